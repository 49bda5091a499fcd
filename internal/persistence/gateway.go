package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/models"
)

const defaultProbeInterval = 15 * time.Second

// Gateway is the game's only view of persistence. It retries transient
// failures, queues writes while offline, and makes sure the last write issued
// for a user is the one that sticks.
type Gateway struct {
	store         Store
	policy        RetryPolicy
	logger        *zap.Logger
	queue         *Queue
	probeInterval time.Duration

	mu     sync.Mutex
	online bool
	lanes  map[string]*lane

	flushMu sync.Mutex
}

// lane serializes writes for one user.
type lane struct {
	issued  atomic.Uint64
	written atomic.Uint64

	mu sync.Mutex
}

type NewGatewayOptions struct {
	Store  Store
	Policy RetryPolicy
	Logger *zap.Logger
	// Queue holds writes made while offline. Nil means a fresh queue.
	Queue         *Queue
	ProbeInterval time.Duration
}

func NewGateway(opts NewGatewayOptions) *Gateway {
	g := &Gateway{
		store:         opts.Store,
		policy:        opts.Policy,
		logger:        opts.Logger,
		queue:         opts.Queue,
		probeInterval: opts.ProbeInterval,
		online:        true,
		lanes:         make(map[string]*lane),
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.queue == nil {
		g.queue = NewQueue()
	}
	if g.probeInterval <= 0 {
		g.probeInterval = defaultProbeInterval
	}
	return g
}

// Reserve hands out the next write position for userID. A write made at an
// earlier position never replaces one made at a later position, whichever
// reaches the store first.
func (g *Gateway) Reserve(userID string) uint64 {
	return g.lane(userID).issued.Add(1)
}

// Save stores snap for userID at a freshly reserved position. See SaveAt.
func (g *Gateway) Save(ctx context.Context, userID string, snap models.Snapshot) error {
	return g.SaveAt(ctx, userID, snap, g.Reserve(userID))
}

// SaveAt stores snap for userID at a position from Reserve. While offline the
// save is queued and nil is returned. A save that finds the store unreachable
// is queued as well, and the *SaveError is still returned.
func (g *Gateway) SaveAt(ctx context.Context, userID string, snap models.Snapshot, seq uint64) error {
	err := g.write(ctx, Operation{Kind: OpSave, UserID: userID, Snapshot: snap, Seq: seq})
	if err != nil {
		return &SaveError{UserID: userID, Err: err}
	}
	return nil
}

// Load returns the user's snapshot, or nil if there is none. A queued write
// newer than anything already stored takes precedence over the store.
func (g *Gateway) Load(ctx context.Context, userID string) (*models.Snapshot, error) {
	if op, ok := g.queue.LastFor(userID); ok && op.Seq > g.lane(userID).written.Load() {
		if op.Kind == OpDelete {
			return nil, nil
		}
		snap := op.Snapshot
		return &snap, nil
	}

	var snap *models.Snapshot
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		s, err := g.store.Load(ctx, userID)
		if err != nil {
			return err
		}
		snap = s
		return nil
	}, g.notify("load", userID))

	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		g.noteFailure(err)
		return nil, &LoadError{UserID: userID, Err: err}
	}
	return snap, nil
}

// Exists reports whether the user has a save. Errors count as no save.
func (g *Gateway) Exists(ctx context.Context, userID string) bool {
	snap, err := g.Load(ctx, userID)
	return err == nil && snap != nil
}

// Delete removes the user's save at a freshly reserved position.
func (g *Gateway) Delete(ctx context.Context, userID string) error {
	return g.DeleteAt(ctx, userID, g.Reserve(userID))
}

// DeleteAt removes the user's save at a position from Reserve. It is queued
// like SaveAt.
func (g *Gateway) DeleteAt(ctx context.Context, userID string, seq uint64) error {
	if err := g.write(ctx, Operation{Kind: OpDelete, UserID: userID, Seq: seq}); err != nil {
		return &DeleteError{UserID: userID, Err: err}
	}
	return nil
}

func (g *Gateway) write(ctx context.Context, op Operation) error {
	if !g.Online() {
		g.enqueue(op)
		return nil
	}
	err := g.apply(ctx, op)
	if errors.Is(err, ErrUnreachable) {
		g.enqueue(op)
	}
	return err
}

// Ping makes one attempt to reach the store.
func (g *Gateway) Ping(ctx context.Context) error {
	if g.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policy.AttemptTimeout)
		defer cancel()
	}
	return g.store.Ping(ctx)
}

func (g *Gateway) Online() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online
}

// SetOnline records connectivity. Going online does not flush; see Reconnect.
func (g *Gateway) SetOnline(online bool) {
	g.mu.Lock()
	changed := g.online != online
	g.online = online
	g.mu.Unlock()

	if changed {
		g.logger.Info("connectivity changed", zap.Bool("online", online), zap.Int("queued", g.queue.Size()))
	}
}

// Reconnect marks the gateway online and drains the offline queue.
func (g *Gateway) Reconnect(ctx context.Context) int {
	g.SetOnline(true)
	return g.Flush(ctx)
}

// Pending returns the number of queued operations.
func (g *Gateway) Pending() int {
	return g.queue.Size()
}

// Flush sends queued operations in the order they were made. A failed
// operation is logged and dropped; the rest are still attempted. It returns
// the number of failures.
func (g *Gateway) Flush(ctx context.Context) int {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	sent, failed := 0, 0
	for {
		if ctx.Err() != nil {
			break
		}
		op, ok := g.queue.Dequeue()
		if !ok {
			break
		}
		if err := g.apply(ctx, op); err != nil {
			failed++
			g.logger.Warn("dropping queued operation",
				zap.String("op", op.Kind.String()),
				zap.String("user_id", op.UserID),
				zap.Duration("queued_for", time.Since(op.Enqueued)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	if sent+failed > 0 {
		g.logger.Info("flushed offline queue", zap.Int("sent", sent), zap.Int("failed", failed))
	}
	return failed
}

// Run probes the store until ctx is done, flushing the queue whenever the
// store can be reached again.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.probe(ctx)
		}
	}
}

func (g *Gateway) probe(ctx context.Context) {
	if err := g.Ping(ctx); err != nil {
		if g.Online() {
			g.logger.Warn("store unreachable", zap.Error(err))
			g.SetOnline(false)
		}
		return
	}
	if !g.Online() || g.queue.Size() > 0 {
		g.Reconnect(ctx)
	}
}

func (g *Gateway) lane(userID string) *lane {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.lanes[userID]
	if !ok {
		l = &lane{}
		g.lanes[userID] = l
	}
	return l
}

// apply sends one write. Writes for the same user run one at a time, and a
// write older than one already stored is skipped.
func (g *Gateway) apply(ctx context.Context, op Operation) error {
	l := g.lane(op.UserID)
	l.mu.Lock()
	defer l.mu.Unlock()

	if written := l.written.Load(); op.Seq < written {
		g.logger.Debug("skipping superseded operation",
			zap.String("op", op.Kind.String()),
			zap.String("user_id", op.UserID),
			zap.Uint64("seq", op.Seq),
			zap.Uint64("written", written),
		)
		return nil
	}

	err := g.policy.Do(ctx, func(ctx context.Context) error {
		switch op.Kind {
		case OpDelete:
			return g.store.Delete(ctx, op.UserID)
		default:
			return g.store.Save(ctx, op.UserID, op.Snapshot)
		}
	}, g.notify(op.Kind.String(), op.UserID))
	if err != nil {
		g.noteFailure(err)
		return err
	}
	l.written.Store(op.Seq)
	return nil
}

func (g *Gateway) enqueue(op Operation) {
	op.Enqueued = time.Now()
	g.queue.Enqueue(op)
	g.logger.Info("queued operation until the store is back",
		zap.String("op", op.Kind.String()),
		zap.String("user_id", op.UserID),
		zap.Int("queued", g.queue.Size()),
	)
}

// noteFailure takes the gateway offline when the store could not be reached at all.
func (g *Gateway) noteFailure(err error) {
	if errors.Is(err, ErrUnreachable) {
		g.SetOnline(false)
	}
}

func (g *Gateway) notify(op, userID string) func(int, error, time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		g.logger.Warn("store attempt failed, retrying",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
}
