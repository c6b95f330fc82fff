package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/mcjob/internal/mc"
)

type opKind string

const (
	opBroadcast opKind = "broadcast"
	opSum       opKind = "allreduce-sum"
	opAnd       opKind = "allreduce-and"
	opOr        opKind = "allreduce-or"
	opBarrier   opKind = "barrier"
)

// LocalGroup is an in-process group whose ranks are goroutines.
//
// Thread-safety: each rank's Comm is used by exactly one goroutine; the
// group itself is safe for concurrent use by all of them.
type LocalGroup struct {
	size int

	mu      sync.Mutex
	current *round
	err     error // poison
}

// round is one collective call in progress.
type round struct {
	op      opKind
	label   string
	values  []any
	arrived int

	done   chan struct{}
	closed bool
	result any
	err    error
}

func (r *round) finish(result any, err error) {
	if r.closed {
		return
	}
	r.result, r.err, r.closed = result, err, true
	close(r.done)
}

// NewLocalGroup creates a group of n ranks. Panics if n < 1.
func NewLocalGroup(n int) *LocalGroup {
	if n < 1 {
		panic(fmt.Sprintf("parallel: group size %d < 1", n))
	}
	return &LocalGroup{size: n}
}

// Size returns the number of ranks.
func (g *LocalGroup) Size() int {
	return g.size
}

// Comm returns the handle of one rank.
func (g *LocalGroup) Comm(rank int) Comm {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("parallel: rank %d out of range [0,%d)", rank, g.size))
	}
	return &localComm{g: g, rank: rank}
}

// Comms returns the handles of all ranks in rank order.
func (g *LocalGroup) Comms() []Comm {
	out := make([]Comm, g.size)
	for i := range out {
		out[i] = g.Comm(i)
	}
	return out
}

// Err returns the error that poisoned the group, or nil.
func (g *LocalGroup) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// poisonLocked fails the group and the round in progress. g.mu must be held.
func (g *LocalGroup) poisonLocked(err error) {
	if g.err == nil {
		g.err = err
	}
	if g.current != nil {
		g.current.finish(nil, g.err)
		g.current = nil
	}
}

// enter contributes value to the current round and waits for its result.
func (g *LocalGroup) enter(ctx context.Context, rank int, op opKind, label string, value any) (any, error) {
	g.mu.Lock()
	if g.err != nil {
		g.mu.Unlock()
		return nil, g.err
	}

	r := g.current
	if r == nil {
		r = &round{op: op, label: label, values: make([]any, g.size), done: make(chan struct{})}
		g.current = r
	} else if r.op != op || r.label != label {
		g.poisonLocked(mc.NewDesyncError(fmt.Sprintf(
			"rank %d entered %s %q while the group is in %s %q", rank, op, label, r.op, r.label)))
		err := g.err
		g.mu.Unlock()
		return nil, err
	}

	r.values[rank] = value
	r.arrived++
	if r.arrived == g.size {
		g.current = nil
		result, err := reduce(op, r.values)
		if err != nil {
			err = mc.NewDesyncError(fmt.Sprintf("%s %q: %v", op, label, err))
			g.poisonLocked(err)
		}
		r.finish(result, err)
	}
	g.mu.Unlock()

	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		g.mu.Lock()
		defer g.mu.Unlock()
		if r.closed {
			return r.result, r.err
		}
		g.poisonLocked(&mc.Error{
			Code:    mc.ErrCodeCollectiveDesync,
			Message: fmt.Sprintf("rank %d left %s %q", rank, op, label),
			Run:     -1,
			Err:     ctx.Err(),
		})
		return nil, g.err
	}
}

func reduce(op opKind, values []any) (any, error) {
	switch op {
	case opBroadcast:
		return values[0], nil
	case opSum:
		first := values[0].([]float64)
		sum := make([]float64, len(first))
		for rank, v := range values {
			vec := v.([]float64)
			if len(vec) != len(sum) {
				return nil, fmt.Errorf("rank %d contributed %d values, rank 0 contributed %d", rank, len(vec), len(sum))
			}
			for i, x := range vec {
				sum[i] += x
			}
		}
		return sum, nil
	case opAnd:
		for _, v := range values {
			if !v.(bool) {
				return false, nil
			}
		}
		return true, nil
	case opOr:
		for _, v := range values {
			if v.(bool) {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, nil
	}
}

type localComm struct {
	g    *LocalGroup
	rank int
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.g.size }

func (c *localComm) Broadcast(ctx context.Context, label string, value []byte) ([]byte, error) {
	v, err := c.g.enter(ctx, c.rank, opBroadcast, label, append([]byte(nil), value...))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (c *localComm) AllReduceSum(ctx context.Context, label string, values []float64) ([]float64, error) {
	v, err := c.g.enter(ctx, c.rank, opSum, label, append([]float64(nil), values...))
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v.([]float64)...), nil
}

func (c *localComm) AllReduceAnd(ctx context.Context, label string, b bool) (bool, error) {
	v, err := c.g.enter(ctx, c.rank, opAnd, label, b)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (c *localComm) AllReduceOr(ctx context.Context, label string, b bool) (bool, error) {
	v, err := c.g.enter(ctx, c.rank, opOr, label, b)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (c *localComm) Barrier(ctx context.Context, label string) error {
	_, err := c.g.enter(ctx, c.rank, opBarrier, label, struct{}{})
	return err
}

func (c *localComm) Abort(err error) {
	c.g.mu.Lock()
	defer c.g.mu.Unlock()
	c.g.poisonLocked(&mc.Error{
		Code:    mc.ErrCodeCollectiveDesync,
		Message: fmt.Sprintf("rank %d aborted", c.rank),
		Run:     -1,
		Err:     err,
	})
}

// Solo is the Comm of a group of one. Every collective returns the
// caller's own contribution.
type Solo struct{}

var _ Comm = Solo{}

func (Solo) Rank() int { return 0 }
func (Solo) Size() int { return 1 }

func (Solo) Broadcast(_ context.Context, _ string, value []byte) ([]byte, error) {
	return value, nil
}

func (Solo) AllReduceSum(_ context.Context, _ string, values []float64) ([]float64, error) {
	return values, nil
}

func (Solo) AllReduceAnd(_ context.Context, _ string, v bool) (bool, error) { return v, nil }
func (Solo) AllReduceOr(_ context.Context, _ string, v bool) (bool, error)  { return v, nil }
func (Solo) Barrier(context.Context, string) error                          { return nil }

// Abort does nothing; there is nobody to release.
func (Solo) Abort(error) {}
