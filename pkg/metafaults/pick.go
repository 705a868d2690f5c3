// Package metafaults provides faults that choose another fault at
// application time.
package metafaults

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

// Source is the random source used for draws. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// WeightedEntry pairs a fault with its relative weight.
type WeightedEntry struct {
	Weight int
	Fault  faults.Fault
}

// Option configures a MetaFault.
type Option func(*MetaFault)

// WithRand sets the random source. Tests pass a seeded *rand.Rand.
func WithRand(src Source) Option {
	return func(m *MetaFault) {
		if src != nil {
			m.rng = src
		}
	}
}

// MetaFault applies one of its entries, chosen by weight on every Apply.
type MetaFault struct {
	mu      sync.Mutex
	entries []WeightedEntry
	total   int
	rng     Source
	last    faults.Fault
}

// PickFault builds a MetaFault over entries. Every weight must be positive
// and every fault non-nil.
func PickFault(entries []WeightedEntry, opts ...Option) (*MetaFault, error) {
	if len(entries) == 0 {
		return nil, faults.Configf("entries", "pick_fault needs at least one entry")
	}

	total := 0
	for i, e := range entries {
		if e.Fault == nil {
			return nil, faults.Configf(fmt.Sprintf("entries[%d].fault", i), "fault is nil")
		}
		if e.Weight <= 0 {
			return nil, faults.Configf(fmt.Sprintf("entries[%d].weight", i), "weight must be positive, got %d", e.Weight)
		}
		if e.Weight > math.MaxInt-total {
			return nil, faults.Configf(fmt.Sprintf("entries[%d].weight", i), "total weight overflows")
		}
		total += e.Weight
	}

	m := &MetaFault{
		entries: append([]WeightedEntry(nil), entries...),
		total:   total,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name identifies the meta-fault in logs and reports.
func (m *MetaFault) Name() string {
	return "pick_fault"
}

// String lists the weighted entries.
func (m *MetaFault) String() string {
	parts := make([]string, len(m.entries))
	for i, e := range m.entries {
		parts[i] = fmt.Sprintf("%d:%s", e.Weight, e.Fault.Name())
	}
	return fmt.Sprintf("pick_fault(%s)", strings.Join(parts, ", "))
}

// Entries returns a copy of the weighted entries.
func (m *MetaFault) Entries() []WeightedEntry {
	return append([]WeightedEntry(nil), m.entries...)
}

// Resolve draws one entry: r is uniform in [0, total) and the first entry
// whose cumulative weight exceeds r wins.
func (m *MetaFault) Resolve() faults.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.rng.Intn(m.total)
	for _, e := range m.entries {
		r -= e.Weight
		if r < 0 {
			m.last = e.Fault
			return e.Fault
		}
	}
	m.last = m.entries[len(m.entries)-1].Fault
	return m.last
}

// Apply resolves a fault and applies it.
func (m *MetaFault) Apply(ctx context.Context) error {
	return m.Resolve().Apply(ctx)
}

// Clear clears the most recently chosen fault. It is a no-op before the
// first draw.
func (m *MetaFault) Clear(ctx context.Context) error {
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()

	if last == nil {
		return nil
	}
	return last.Clear(ctx)
}

var _ faults.Resolver = (*MetaFault)(nil)
