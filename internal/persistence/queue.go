package persistence

import (
	"sync"
	"time"

	"github.com/tatianab/franco-game/internal/models"
)

// OpKind is what a queued operation does.
type OpKind int

const (
	OpSave OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSave:
		return "save"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is a write waiting to reach the store.
type Operation struct {
	Kind     OpKind
	UserID   string
	Snapshot models.Snapshot
	// Seq orders operations for the same user; higher was issued later.
	Seq      uint64
	Enqueued time.Time
}

// Queue is an unbounded FIFO of operations, safe for concurrent use.
type Queue struct {
	lock  sync.Mutex
	items []Operation
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds an operation to the end of the queue.
func (q *Queue) Enqueue(op Operation) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items = append(q.items, op)
}

// Dequeue removes and returns the operation at the front of the queue.
func (q *Queue) Dequeue() (Operation, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.items) == 0 {
		return Operation{}, false
	}
	op := q.items[0]
	q.items[0] = Operation{}
	q.items = q.items[1:]
	return op, true
}

// Size returns the number of queued operations.
func (q *Queue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}

// LastFor returns the queued operation for userID with the highest sequence
// number, which is the one a flush leaves in effect.
func (q *Queue) LastFor(userID string) (Operation, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	var (
		last  Operation
		found bool
	)
	for _, op := range q.items {
		if op.UserID == userID && (!found || op.Seq >= last.Seq) {
			last, found = op, true
		}
	}
	return last, found
}
