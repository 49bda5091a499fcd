// Package persistence stores game snapshots per user, locally or behind the
// remote save API, and hides transient failures from the game.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tatianab/franco-game/internal/models"
)

var (
	// ErrNotFound is returned by Store.Load when the user has no save.
	ErrNotFound = errors.New("no saved game")
	// ErrUnreachable wraps transport failures: the store could not be contacted.
	ErrUnreachable = errors.New("store unreachable")
	// ErrMalformed is returned when a stored snapshot cannot be decoded.
	ErrMalformed = errors.New("malformed snapshot")
)

// Store is a place snapshots live. Implementations make a single attempt per
// call; retrying is the Gateway's job.
type Store interface {
	Save(ctx context.Context, userID string, snap models.Snapshot) error
	Load(ctx context.Context, userID string) (*models.Snapshot, error)
	Delete(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}

// StatusError is a non-2xx answer from the remote store.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server responded with %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server responded with %d: %s", e.Code, e.Body)
}

// IsTransient reports whether retrying err might succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests || se.Code == http.StatusRequestTimeout
	}
	return errors.Is(err, ErrUnreachable) || errors.Is(err, context.DeadlineExceeded)
}

// SaveError is returned when a snapshot could not be stored.
type SaveError struct {
	UserID string
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving game for %q: %v", e.UserID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// LoadError is returned when a snapshot could not be read. A missing save is not a LoadError.
type LoadError struct {
	UserID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading game for %q: %v", e.UserID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DeleteError is returned when a save could not be removed.
type DeleteError struct {
	UserID string
	Err    error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("deleting game for %q: %v", e.UserID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
