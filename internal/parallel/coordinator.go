package parallel

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/rng"
)

// Sample is one observable sample reported during a sweep.
type Sample struct {
	Name   string
	Scalar bool
	Values []float64
}

// RestorePoint summarizes a rank's checkpoint for the restore agreement.
type RestorePoint struct {
	Present            bool   `json:"present"`
	RunID              string `json:"run_id,omitempty"`
	Sequence           int64  `json:"sequence"`
	ThermalizationDone int64  `json:"thermalization_done"`
	MeasurementDone    int64  `json:"measurement_done"`
}

// Coordinator implements the collective decisions of a parallel run on top
// of a Comm. With a group of one every decision is the rank's own.
type Coordinator struct {
	comm Comm
}

// NewCoordinator wraps comm.
func NewCoordinator(comm Comm) *Coordinator {
	return &Coordinator{comm: comm}
}

// Rank returns this rank's index.
func (c *Coordinator) Rank() int { return c.comm.Rank() }

// Ranks returns the group size.
func (c *Coordinator) Ranks() int { return c.comm.Size() }

// IsRoot reports whether this rank bins the reduced samples.
func (c *Coordinator) IsRoot() bool { return c.comm.Rank() == 0 }

// Label builds a round label from an operation and the sweep counter.
func Label(op string, sweep int64) string {
	return fmt.Sprintf("%s@%d", op, sweep)
}

// Seed agrees on rank 0's base seed and returns this rank's stream seed,
// derived from the base seed and the rank index.
func (c *Coordinator) Seed(ctx context.Context, proposal uint64) (uint64, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], proposal)
	got, err := c.comm.Broadcast(ctx, "seed", buf[:])
	if err != nil {
		return 0, fmt.Errorf("broadcast seed: %w", err)
	}
	if len(got) != 8 {
		return 0, mc.NewDesyncError(fmt.Sprintf("seed broadcast carried %d bytes", len(got)))
	}
	return rng.Derive(binary.LittleEndian.Uint64(got), uint64(c.comm.Rank())), nil
}

// RunID agrees on rank 0's run identifier.
func (c *Coordinator) RunID(ctx context.Context, proposal string) (string, error) {
	got, err := c.comm.Broadcast(ctx, "run-id", []byte(proposal))
	if err != nil {
		return "", fmt.Errorf("broadcast run id: %w", err)
	}
	return string(got), nil
}

// Restore checks that every rank found the same checkpoint state. A
// mismatch, for example one rank with a checkpoint and one without, is a
// desync: the group cannot resume consistently.
func (c *Coordinator) Restore(ctx context.Context, local RestorePoint) error {
	mine, err := json.Marshal(local)
	if err != nil {
		return fmt.Errorf("encode restore point: %w", err)
	}
	root, err := c.comm.Broadcast(ctx, "restore", mine)
	if err != nil {
		return fmt.Errorf("broadcast restore point: %w", err)
	}
	agree, err := c.comm.AllReduceAnd(ctx, "restore-agree", bytes.Equal(root, mine))
	if err != nil {
		return err
	}
	if !agree {
		return mc.NewDesyncError(fmt.Sprintf("ranks restored different checkpoints (rank 0: %s)", root))
	}
	return nil
}

// Thermalized AND-reduces the thermalization status.
func (c *Coordinator) Thermalized(ctx context.Context, sweep int64, local bool) (bool, error) {
	return c.comm.AllReduceAnd(ctx, Label("thermalized", sweep), local)
}

// ReduceSamples sums the samples of one sweep across ranks. Every rank must
// report the same observables, in the same order and with the same shapes.
// Every rank receives the reduced samples; only rank 0 bins them.
func (c *Coordinator) ReduceSamples(ctx context.Context, sweep int64, samples []Sample) ([]Sample, error) {
	if c.comm.Size() == 1 {
		return samples, nil
	}

	sig := signature(samples)
	root, err := c.comm.Broadcast(ctx, Label("samples-signature", sweep), sig)
	if err != nil {
		return nil, err
	}
	agree, err := c.comm.AllReduceAnd(ctx, Label("samples-agree", sweep), bytes.Equal(root, sig))
	if err != nil {
		return nil, err
	}
	if !agree {
		return nil, mc.NewDesyncError(fmt.Sprintf("ranks reported different observables at sweep %d", sweep))
	}

	var flat []float64
	for _, s := range samples {
		flat = append(flat, s.Values...)
	}
	sum, err := c.comm.AllReduceSum(ctx, Label("samples", sweep), flat)
	if err != nil {
		return nil, err
	}

	out := make([]Sample, len(samples))
	off := 0
	for i, s := range samples {
		out[i] = Sample{Name: s.Name, Scalar: s.Scalar, Values: sum[off : off+len(s.Values)]}
		off += len(s.Values)
	}
	return out, nil
}

// Decide OR-reduces the checkpoint and exit wishes so every rank makes the
// same choice in the same round.
func (c *Coordinator) Decide(ctx context.Context, sweep int64, checkpoint, exit bool) (bool, bool, error) {
	exit, err := c.comm.AllReduceOr(ctx, Label("exit", sweep), exit)
	if err != nil {
		return false, false, err
	}
	checkpoint, err = c.comm.AllReduceOr(ctx, Label("checkpoint", sweep), checkpoint || exit)
	if err != nil {
		return false, false, err
	}
	return checkpoint, exit, nil
}

// Commit AND-reduces the success of a staged checkpoint write. If any rank
// failed all ranks report a persistence error and must discard what they
// staged.
func (c *Coordinator) Commit(ctx context.Context, sweep int64, writeErr error) error {
	ok, err := c.comm.AllReduceAnd(ctx, Label("commit", sweep), writeErr == nil)
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if !ok {
		return mc.NewPersistenceError("checkpoint write failed on another rank", nil)
	}
	return nil
}

// Abort releases the other ranks after a local failure.
func (c *Coordinator) Abort(err error) {
	c.comm.Abort(err)
}

// signature encodes the names and shapes of samples.
func signature(samples []Sample) []byte {
	var b bytes.Buffer
	for _, s := range samples {
		fmt.Fprintf(&b, "%s:%t:%d;", s.Name, s.Scalar, len(s.Values))
	}
	return b.Bytes()
}
