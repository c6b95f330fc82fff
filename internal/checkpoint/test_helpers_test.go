package checkpoint

import (
	"math"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
	"github.com/roach88/mcjob/internal/rng"
)

// createTestSnapshot creates a snapshot exercising every field.
func createTestSnapshot(seq int64) *Snapshot {
	return &Snapshot{
		FormatVersion:      mc.CheckpointFormatVersion,
		RunID:              "0190b0f2-7d1a-7000-8000-000000000001",
		Task:               "T=0.5",
		Run:                0,
		Rank:               0,
		Ranks:              1,
		Sequence:           seq,
		ThermalizationDone: 100,
		MeasurementDone:    37,
		RNG:                rng.State{Kind: rng.KindXoshiro, Data: []byte("xsr:0123456789abcdef0123456789abcdef")},
		Observables: map[string]measure.State{
			"Energy": {
				BinSize: 10,
				Shape:   measure.Shape{Scalar: true, Len: 1},
				Bins:    []measure.Vec{{-1.25}, {-1.5}, {0.1}},
				Partial: measure.Partial{Sum: measure.Vec{-8.75}, Count: 7},
			},
			"Corr": {
				BinSize: 10,
				Shape:   measure.Shape{Len: 3},
				Bins:    []measure.Vec{{1, 0.5, math.Inf(1)}},
			},
		},
		Algorithm: []byte{0x00, 0x01, 0xfe, 0xff},
	}
}
