package coordinator

import (
	"sync"

	"github.com/roach88/mcjob/internal/job"
)

// unit is one run of one task.
type unit struct {
	Task job.Task
	Run  int
}

// unitQueue is a thread-safe FIFO of pending units. All units are queued
// before the workers start, so workers never wait for new units.
type unitQueue struct {
	mu    sync.Mutex
	units []unit
}

// newUnitQueue creates a queue holding units in order.
func newUnitQueue(units []unit) *unitQueue {
	return &unitQueue{units: append([]unit(nil), units...)}
}

// TryDequeue removes and returns the front unit.
// Returns (unit{}, false) if the queue is empty.
func (q *unitQueue) TryDequeue() (unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.units) == 0 {
		return unit{}, false
	}
	u := q.units[0]

	// Release the slot so the task parameters can be collected.
	q.units[0] = unit{}
	if len(q.units) == 1 {
		q.units = q.units[:0]
	} else {
		q.units = q.units[1:]
	}
	return u, true
}

// Drop removes every queued unit of task and returns them.
func (q *unitQueue) Drop(task string) []unit {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped []unit
	kept := q.units[:0]
	for _, u := range q.units {
		if u.Task.Name == task {
			dropped = append(dropped, u)
			continue
		}
		kept = append(kept, u)
	}
	for i := len(kept); i < len(q.units); i++ {
		q.units[i] = unit{}
	}
	q.units = kept
	return dropped
}

// Drain removes and returns every queued unit.
func (q *unitQueue) Drain() []unit {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.units
	q.units = nil
	return out
}

// Len returns the number of queued units.
func (q *unitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}
