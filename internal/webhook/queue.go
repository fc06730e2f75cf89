package webhook

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue holds in-process retry timers keyed by delivery id.
// Timers are not persisted; Reconciler picks up whatever a restart loses.
type Queue struct {
	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool
	running sync.WaitGroup
}

func NewQueue() *Queue {
	return &Queue{timers: make(map[uuid.UUID]*time.Timer)}
}

// Schedule runs fn at the given time. It returns false if id is already scheduled or the queue is stopped.
func (q *Queue) Schedule(id uuid.UUID, at time.Time, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	if _, ok := q.timers[id]; ok {
		return false
	}

	q.timers[id] = time.AfterFunc(time.Until(at), func() {
		q.mu.Lock()
		delete(q.timers, id)
		if q.stopped {
			q.mu.Unlock()
			return
		}
		q.running.Add(1)
		q.mu.Unlock()

		defer q.running.Done()
		fn()
	})
	return true
}

func (q *Queue) Scheduled(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.timers[id]
	return ok
}

// Cancel stops a pending timer. It reports whether one was pending.
func (q *Queue) Cancel(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(q.timers, id)
	return true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.timers)
}

// Stop cancels all pending timers and rejects further scheduling.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
}

// Wait blocks until callbacks that started before Stop have returned. Call it after Stop.
func (q *Queue) Wait() {
	q.running.Wait()
}
