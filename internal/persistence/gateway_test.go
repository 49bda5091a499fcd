package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tatianab/franco-game/internal/models"
)

// fakeStore is an in-memory Store whose calls can be made to fail.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string]models.Snapshot
	calls   []string
	errs    []error
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]models.Snapshot{}}
}

// failWith queues errors returned by the next calls, one per call.
func (f *fakeStore) failWith(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

func (f *fakeStore) next(call string) error {
	f.calls = append(f.calls, call)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeStore) Save(_ context.Context, userID string, snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("save:" + userID + ":" + snap.CurrentRoom); err != nil {
		return err
	}
	f.data[userID] = snap
	return nil
}

func (f *fakeStore) Load(_ context.Context, userID string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("load:" + userID); err != nil {
		return nil, err
	}
	snap, ok := f.data[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &snap, nil
}

func (f *fakeStore) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("delete:" + userID); err != nil {
		return err
	}
	delete(f.data, userID)
	return nil
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeStore) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		AttemptTimeout:  time.Second,
	}
}

func newTestGateway(t *testing.T, store Store) *Gateway {
	t.Helper()
	return NewGateway(NewGatewayOptions{
		Store:         store,
		Policy:        fastPolicy(),
		Logger:        zaptest.NewLogger(t),
		ProbeInterval: 5 * time.Millisecond,
	})
}

func snap(room string, items ...string) models.Snapshot {
	return models.Snapshot{CurrentRoom: room, Inventory: append([]string{}, items...)}
}

func TestGatewaySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, newFakeStore())

	want := snap("Lounge", "Chocolate", "Water")
	require.NoError(t, g.Save(ctx, "alice", want))

	got, err := g.Load(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.True(t, g.Exists(ctx, "alice"))
}

func TestGatewayLoadMissingIsNotAnError(t *testing.T) {
	g := newTestGateway(t, newFakeStore())

	got, err := g.Load(context.Background(), "no-such-user")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, g.Exists(context.Background(), "no-such-user"))
}

func TestGatewayLoadFailure(t *testing.T) {
	store := newFakeStore()
	store.failWith(ErrMalformed)
	g := newTestGateway(t, store)

	_, err := g.Load(context.Background(), "alice")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "alice", loadErr.UserID)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Len(t, store.callLog(), 1, "malformed data is not retried")
}

func TestGatewayExistsTreatsErrorsAsAbsent(t *testing.T) {
	store := newFakeStore()
	store.data["alice"] = snap("Lobby")
	store.failWith(&StatusError{Code: 400})
	g := newTestGateway(t, store)

	assert.False(t, g.Exists(context.Background(), "alice"))
}

func TestGatewaySaveRetriesTransientFailures(t *testing.T) {
	store := newFakeStore()
	store.failWith(&StatusError{Code: 503}, &StatusError{Code: 500})
	g := newTestGateway(t, store)

	require.NoError(t, g.Save(context.Background(), "alice", snap("Daycare", "Cracker")))
	assert.Len(t, store.callLog(), 3)
	assert.Equal(t, "Daycare", store.data["alice"].CurrentRoom)
}

func TestGatewaySaveGivesUpAfterMaxAttempts(t *testing.T) {
	store := newFakeStore()
	store.failWith(&StatusError{Code: 502}, &StatusError{Code: 502}, &StatusError{Code: 502}, &StatusError{Code: 502})
	g := newTestGateway(t, store)

	err := g.Save(context.Background(), "alice", snap("Daycare"))
	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Len(t, store.callLog(), 3)
	assert.True(t, g.Online(), "server errors do not mean offline")
}

func TestGatewaySaveDoesNotRetryClientErrors(t *testing.T) {
	store := newFakeStore()
	store.failWith(&StatusError{Code: 400, Body: "bad request"})
	g := newTestGateway(t, store)

	err := g.Save(context.Background(), "alice", snap("Daycare"))
	assert.Error(t, err)
	assert.Len(t, store.callLog(), 1)
}

func TestGatewayUnreachableGoesOffline(t *testing.T) {
	store := newFakeStore()
	down := fmt.Errorf("%w: connection refused", ErrUnreachable)
	store.failWith(down, down, down)
	g := newTestGateway(t, store)

	err := g.Save(context.Background(), "alice", snap("Daycare"))
	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.False(t, g.Online())
	assert.Equal(t, 1, g.Pending(), "the failed save waits for the store")

	// Later saves wait in the queue without an error.
	require.NoError(t, g.Save(context.Background(), "alice", snap("Lobby")))
	assert.Equal(t, 2, g.Pending())

	assert.Zero(t, g.Reconnect(context.Background()))
	assert.Equal(t, "Lobby", store.data["alice"].CurrentRoom)
}

func TestGatewayServerErrorsAreNotQueued(t *testing.T) {
	store := newFakeStore()
	store.failWith(&StatusError{Code: 500}, &StatusError{Code: 500}, &StatusError{Code: 500})
	g := newTestGateway(t, store)

	assert.Error(t, g.Save(context.Background(), "alice", snap("Daycare")))
	assert.Zero(t, g.Pending())
}

func TestGatewayOfflineQueueFlushesInOrder(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := newTestGateway(t, store)
	g.SetOnline(false)

	require.NoError(t, g.Save(ctx, "alice", snap("Director office")))
	require.NoError(t, g.Save(ctx, "bob", snap("Daycare")))
	require.NoError(t, g.Save(ctx, "alice", snap("Lounge")))
	require.NoError(t, g.Delete(ctx, "bob"))
	assert.Equal(t, 4, g.Pending())
	assert.Empty(t, store.callLog())

	failed := g.Reconnect(ctx)
	assert.Zero(t, failed)
	assert.Zero(t, g.Pending())
	assert.Equal(t, []string{
		"save:alice:Director office",
		"save:bob:Daycare",
		"save:alice:Lounge",
		"delete:bob",
	}, store.callLog())
	assert.Equal(t, "Lounge", store.data["alice"].CurrentRoom)
	_, bobSaved := store.data["bob"]
	assert.False(t, bobSaved)
}

func TestGatewayFlushContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := newTestGateway(t, store)
	g.SetOnline(false)

	require.NoError(t, g.Save(ctx, "alice", snap("Daycare")))
	require.NoError(t, g.Save(ctx, "bob", snap("Lounge")))
	store.failWith(&StatusError{Code: 400})

	failed := g.Reconnect(ctx)
	assert.Equal(t, 1, failed)
	assert.Zero(t, g.Pending())
	assert.Equal(t, "Lounge", store.data["bob"].CurrentRoom)
}

func TestGatewayLoadPrefersQueuedWrites(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.data["alice"] = snap("Lobby")
	g := newTestGateway(t, store)
	g.SetOnline(false)

	require.NoError(t, g.Save(ctx, "alice", snap("Greenhouse", "Tomato")))
	got, err := g.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Greenhouse", got.CurrentRoom)

	require.NoError(t, g.Delete(ctx, "alice"))
	got, err = g.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGatewayLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := newTestGateway(t, store)

	// An older save sits in the queue while a newer one goes straight through.
	g.SetOnline(false)
	require.NoError(t, g.Save(ctx, "alice", snap("Daycare")))
	g.SetOnline(true)
	require.NoError(t, g.Save(ctx, "alice", snap("Deep Freezer", "Steak")))

	got, err := g.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Deep Freezer", got.CurrentRoom, "a stale queued save does not shadow the stored one")

	assert.Zero(t, g.Flush(ctx))
	assert.Equal(t, "Deep Freezer", store.data["alice"].CurrentRoom)
	assert.Equal(t, []string{"save:alice:Deep Freezer", "load:alice"}, store.callLog())
}

func TestGatewayConcurrentSavesKeepLastIssued(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{fakeStore: newFakeStore(), entered: make(chan struct{}), release: make(chan struct{})}
	g := newTestGateway(t, store)

	older := g.Reserve("alice")
	newer := g.Reserve("alice")

	// The newer save holds the lane while the older one waits for it.
	done := make(chan error, 1)
	go func() { done <- g.SaveAt(ctx, "alice", snap("Lounge", "Water"), newer) }()
	<-store.entered

	stale := make(chan error, 1)
	go func() { stale <- g.SaveAt(ctx, "alice", snap("Director office"), older) }()

	close(store.release)
	require.NoError(t, <-done)
	require.NoError(t, <-stale)

	assert.Equal(t, "Lounge", store.data["alice"].CurrentRoom)
	assert.Equal(t, []string{"save:alice:Lounge"}, store.callLog(), "the older save is skipped")
}

func TestGatewayOutOfOrderQueuedSaves(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := newTestGateway(t, store)
	g.SetOnline(false)

	older := g.Reserve("alice")
	newer := g.Reserve("alice")
	require.NoError(t, g.SaveAt(ctx, "alice", snap("Lounge", "Water"), newer))
	require.NoError(t, g.SaveAt(ctx, "alice", snap("Director office"), older))

	got, err := g.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Lounge", got.CurrentRoom)

	assert.Zero(t, g.Reconnect(ctx))
	assert.Equal(t, "Lounge", store.data["alice"].CurrentRoom)
	assert.Equal(t, []string{"save:alice:Lounge"}, store.callLog())
}

func TestGatewayRunReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newFakeStore()
	store.pingErr = errors.New("down")
	g := newTestGateway(t, store)

	go g.Run(ctx)

	require.Eventually(t, func() bool { return !g.Online() }, time.Second, time.Millisecond)
	require.NoError(t, g.Save(ctx, "alice", snap("Lounge", "Water")))

	store.mu.Lock()
	store.pingErr = nil
	store.mu.Unlock()

	require.Eventually(t, func() bool { return g.Online() && g.Pending() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"save:alice:Lounge"}, store.callLog())
}

func TestGatewayDeleteErrors(t *testing.T) {
	store := newFakeStore()
	store.failWith(&StatusError{Code: 403})
	g := newTestGateway(t, store)

	err := g.Delete(context.Background(), "alice")
	var delErr *DeleteError
	assert.ErrorAs(t, err, &delErr)
}
