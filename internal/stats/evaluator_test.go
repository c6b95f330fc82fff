package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mcjob/internal/mc"
)

func TestEvaluator_Registration(t *testing.T) {
	ev := NewEvaluator(mc.Params{"L": 4})
	require.NoError(t, ev.Evaluate("b", []string{"m2", "m4"}, identity))
	require.NoError(t, ev.Evaluate("a", []string{"m2"}, identity))

	got := ev.Evaluables()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, []string{"m2", "m4"}, got[0].Ingredients)
	assert.Equal(t, "a", got[1].Name)
	assert.Equal(t, mc.Params{"L": 4}, ev.Params())
}

func TestEvaluator_Rejects(t *testing.T) {
	ev := NewEvaluator(nil)
	require.NoError(t, ev.Evaluate("a", []string{"x"}, identity))

	tests := []struct {
		name        string
		evaluable   string
		ingredients []string
		fn          mc.EvalFunc
	}{
		{"empty name", "", []string{"x"}, identity},
		{"duplicate", "a", []string{"x"}, identity},
		{"no ingredients", "b", nil, identity},
		{"nil function", "c", []string{"x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ev.Evaluate(tt.evaluable, tt.ingredients, tt.fn)
			require.Error(t, err)
			assert.True(t, mc.IsConfigurationError(err))
		})
	}
	assert.Len(t, ev.Evaluables(), 1)
}
