package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/models"
	"github.com/roach88/mcjob/internal/testutil"
)

// hookAlgorithm wraps an algorithm and calls afterSweep after every sweep.
type hookAlgorithm struct {
	mc.Algorithm
	afterSweep func(n int)
	sweeps     int
	inits      int
}

func (h *hookAlgorithm) Init(ctx mc.Context, p mc.Params) error {
	h.inits++
	return h.Algorithm.Init(ctx, p)
}

func (h *hookAlgorithm) Sweep(ctx mc.Context) error {
	err := h.Algorithm.Sweep(ctx)
	h.sweeps++
	if h.afterSweep != nil {
		h.afterSweep(h.sweeps)
	}
	return err
}

// countingStore counts checkpoint writes and can be told to fail them.
type countingStore struct {
	checkpoint.Store
	saves int
	fail  error
}

func (s *countingStore) Save(ctx context.Context, snap *checkpoint.Snapshot) error {
	if s.fail != nil {
		return s.fail
	}
	s.saves++
	return s.Store.Save(ctx, snap)
}

func (s *countingStore) Stage(ctx context.Context, snap *checkpoint.Snapshot) (checkpoint.Staged, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.saves++
	return s.Store.Stage(ctx, snap)
}

var errDiskFull = errors.New("disk full")

func gaussianParams(kind string) mc.Params {
	return mc.Params{
		mc.ParamSweeps:         120,
		mc.ParamThermalization: 15,
		mc.ParamBinSize:        4,
		mc.ParamSeed:           42,
		mc.ParamRNG:            kind,
		"rho":                  0.5,
	}
}

func newAlgorithm(t *testing.T, model mc.Model, params mc.Params) *hookAlgorithm {
	t.Helper()
	alg, err := model.New(params)
	require.NoError(t, err)
	return &hookAlgorithm{Algorithm: alg}
}

func newController(t *testing.T, params mc.Params, alg mc.Algorithm, store checkpoint.Store, opts ...Option) *Controller {
	t.Helper()
	cfg := Config{
		Task:      "task",
		Run:       0,
		Params:    params,
		Algorithm: alg,
		Store:     store,
	}
	opts = append([]Option{WithIDGenerator(testutil.NewSequentialIDGenerator(""))}, opts...)
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func fileStore(t *testing.T) *checkpoint.FileStore {
	t.Helper()
	return checkpoint.NewFileStore(filepath.Join(t.TempDir(), "run0001.ckpt"))
}

// runToEnd runs a fresh controller on store until it is done.
func runToEnd(t *testing.T, params mc.Params, store checkpoint.Store) *checkpoint.Snapshot {
	t.Helper()
	alg := newAlgorithm(t, models.Gaussian{}, params)
	out, err := newController(t, params, alg, store).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeDone, out)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	return snap
}
