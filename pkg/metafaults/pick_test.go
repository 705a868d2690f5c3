package metafaults

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

type countingFault struct {
	name    string
	applied int
	cleared int
}

func (f *countingFault) Name() string { return f.name }

func (f *countingFault) Apply(context.Context) error {
	f.applied++
	return nil
}

func (f *countingFault) Clear(context.Context) error {
	f.cleared++
	return nil
}

// fixedSource returns the queued values in order.
type fixedSource struct {
	values []int
}

func (s *fixedSource) Intn(int) int {
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

func TestPickFaultRejectsInvalidEntries(t *testing.T) {
	f := &countingFault{name: "a"}

	tests := []struct {
		name    string
		entries []WeightedEntry
	}{
		{"empty", nil},
		{"zero weight", []WeightedEntry{{Weight: 0, Fault: f}}},
		{"negative weight", []WeightedEntry{{Weight: 3, Fault: f}, {Weight: -1, Fault: f}}},
		{"nil fault", []WeightedEntry{{Weight: 1}}},
		{"total overflows", []WeightedEntry{{Weight: math.MaxInt, Fault: f}, {Weight: 2, Fault: f}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PickFault(tt.entries)
			require.Error(t, err)
			assert.True(t, errors.Is(err, faults.ErrConfiguration))
		})
	}
}

func TestResolveUsesCumulativeWeights(t *testing.T) {
	clr := &countingFault{name: "clear"}
	partition := &countingFault{name: "partition"}

	src := &fixedSource{values: []int{0, 2, 3, 14}}
	m, err := PickFault([]WeightedEntry{{3, clr}, {12, partition}}, WithRand(src))
	require.NoError(t, err)

	assert.Same(t, clr, m.Resolve())
	assert.Same(t, clr, m.Resolve())
	assert.Same(t, partition, m.Resolve())
	assert.Same(t, partition, m.Resolve())
}

func TestWeightsConverge(t *testing.T) {
	clr := &countingFault{name: "clear"}
	partition := &countingFault{name: "partition"}

	m, err := PickFault(
		[]WeightedEntry{{3, clr}, {12, partition}},
		WithRand(rand.New(rand.NewSource(42))),
	)
	require.NoError(t, err)

	const n = 10000
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, m.Apply(ctx))
	}

	assert.Equal(t, n, clr.applied+partition.applied)
	freq := float64(clr.applied) / n
	assert.InDelta(t, 0.2, freq, 0.02, "clear frequency %.3f", freq)
}

func TestSingleEntryAlwaysChosen(t *testing.T) {
	only := &countingFault{name: "only"}
	m, err := PickFault([]WeightedEntry{{7, only}}, WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Same(t, only, m.Resolve())
	}
}

func TestClearTargetsLastChoice(t *testing.T) {
	a := &countingFault{name: "a"}
	b := &countingFault{name: "b"}
	m, err := PickFault([]WeightedEntry{{1, a}, {1, b}}, WithRand(&fixedSource{values: []int{1}}))
	require.NoError(t, err)

	require.NoError(t, m.Clear(context.Background()))
	assert.Zero(t, a.cleared+b.cleared)

	require.NoError(t, m.Apply(context.Background()))
	require.NoError(t, m.Clear(context.Background()))
	assert.Equal(t, 1, b.cleared)
	assert.Equal(t, "pick_fault(1:a, 1:b)", m.String())
}
