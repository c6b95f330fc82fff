package checkpoint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/mcjob/internal/mc"
	"github.com/roach88/mcjob/internal/measure"
	"github.com/roach88/mcjob/internal/rng"
)

// DomainSnapshot prefixes the checksum input. The version suffix allows a
// future change of the checksum algorithm.
const DomainSnapshot = "mcjob/checkpoint/v1"

// ErrNotFound is returned by Store.Load when no checkpoint exists.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists the snapshots of one run and rank.
type Store interface {
	// Save atomically replaces the stored snapshot.
	Save(ctx context.Context, s *Snapshot) error
	// Stage makes s durable without replacing the stored snapshot. Load keeps
	// returning the previous snapshot until the staged one is promoted.
	Stage(ctx context.Context, s *Snapshot) (Staged, error)
	// Load returns the stored snapshot or ErrNotFound.
	Load(ctx context.Context) (*Snapshot, error)
}

// Staged is a snapshot written by Store.Stage and not yet visible to Load.
// Exactly one of Promote or Discard should be called.
type Staged interface {
	// Promote atomically replaces the stored snapshot with the staged one.
	Promote(ctx context.Context) error
	// Discard drops the staged snapshot and leaves the stored one untouched.
	Discard() error
}

// Snapshot is the persisted state of one run (one rank of it in
// parallel-run mode).
type Snapshot struct {
	FormatVersion int    `json:"format_version"`
	RunID         string `json:"run_id"`
	Task          string `json:"task"`
	Run           int    `json:"run"`
	Rank          int    `json:"rank"`
	Ranks         int    `json:"ranks"`

	// Sequence increases by one with every save.
	Sequence int64 `json:"sequence"`

	ThermalizationDone int64 `json:"thermalization_done"`
	MeasurementDone    int64 `json:"measurement_done"`

	RNG rng.State `json:"rng"`

	// Observables is empty on non-root ranks in parallel-run mode.
	Observables map[string]measure.State `json:"observables"`

	Algorithm []byte `json:"algorithm"`
}

type envelope struct {
	FormatVersion int             `json:"format_version"`
	Checksum      string          `json:"checksum"`
	Snapshot      json.RawMessage `json:"snapshot"`
}

// Encode serializes a snapshot into its enveloped form.
func Encode(s *Snapshot) ([]byte, error) {
	if s.FormatVersion != mc.CheckpointFormatVersion {
		return nil, fmt.Errorf("encode checkpoint: unsupported format version %d", s.FormatVersion)
	}
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	data, err := json.Marshal(envelope{
		FormatVersion: s.FormatVersion,
		Checksum:      Checksum(body),
		Snapshot:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint envelope: %w", err)
	}
	return data, nil
}

// Decode parses an enveloped snapshot, checking version and checksum.
func Decode(data []byte) (*Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, mc.NewPersistenceError("corrupt checkpoint envelope", err)
	}
	if env.FormatVersion != mc.CheckpointFormatVersion {
		return nil, mc.NewConfigurationError(fmt.Sprintf(
			"incompatible checkpoint format version %d (supported: %d)", env.FormatVersion, mc.CheckpointFormatVersion))
	}
	if got := Checksum(env.Snapshot); got != env.Checksum {
		return nil, mc.NewPersistenceError(fmt.Sprintf("corrupt checkpoint: checksum %s, want %s", got, env.Checksum), nil)
	}

	dec := json.NewDecoder(bytes.NewReader(env.Snapshot))
	dec.DisallowUnknownFields()
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, mc.NewPersistenceError("corrupt checkpoint snapshot", err)
	}
	if s.FormatVersion != env.FormatVersion {
		return nil, mc.NewPersistenceError(fmt.Sprintf(
			"corrupt checkpoint: snapshot version %d does not match envelope version %d", s.FormatVersion, env.FormatVersion), nil)
	}
	if s.Observables == nil {
		s.Observables = map[string]measure.State{}
	}
	return &s, nil
}

// Checksum computes the domain-separated SHA-256 of snapshot bytes.
// Format: SHA256(domain + 0x00 + data)
func Checksum(data []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
