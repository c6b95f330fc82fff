package parallel

import "context"

// Comm is one rank's handle on a group of cooperating ranks.
//
// All methods block until every rank of the group has entered the same
// round, or the group fails.
type Comm interface {
	// Rank is this rank's index, 0 <= Rank < Size.
	Rank() int
	// Size is the number of ranks in the group.
	Size() int

	// Broadcast returns rank 0's value on every rank. Other ranks' values
	// are ignored.
	Broadcast(ctx context.Context, label string, value []byte) ([]byte, error)

	// AllReduceSum returns the componentwise sum of every rank's values.
	// All ranks must contribute the same length.
	AllReduceSum(ctx context.Context, label string, values []float64) ([]float64, error)

	// AllReduceAnd returns true only if v is true on every rank.
	AllReduceAnd(ctx context.Context, label string, v bool) (bool, error)

	// AllReduceOr returns true if v is true on any rank.
	AllReduceOr(ctx context.Context, label string, v bool) (bool, error)

	// Barrier waits for every rank.
	Barrier(ctx context.Context, label string) error

	// Abort poisons the group because this rank is leaving with err.
	// Ranks blocked in a collective are released with a desync error.
	Abort(err error)
}
