// Package faults defines the fault abstraction applied by the scheduler and
// the registry that builds concrete network faults.
package faults

import (
	"context"
)

// Kind identifies a concrete fault implementation.
type Kind string

const (
	KindClearNetwork     Kind = "clear_network_faults"
	KindNetworkPartition Kind = "network_partition"
	KindNetworkLatency   Kind = "network_latency"
)

// Fault is a named, reversible perturbation of the system under test.
//
// Apply must be idempotent: applying a fault that is already active
// re-asserts it rather than stacking a second copy. Clear reverts whatever
// Apply installed and must succeed when nothing is installed.
type Fault interface {
	Name() string
	Apply(ctx context.Context) error
	Clear(ctx context.Context) error
}

// Resolver is implemented by faults that pick a concrete fault at
// invocation time. Callers that want to record the choice resolve first and
// apply the returned fault themselves.
type Resolver interface {
	Resolve() Fault
}

// NetworkBackend is the mechanism that actually changes network conditions.
// Implementations serialize their own calls.
type NetworkBackend interface {
	Partition(ctx context.Context, params PartitionParams) error
	Latency(ctx context.Context, params LatencyParams) error
	Clear(ctx context.Context) error
}

// SimpleFault binds a fault kind and its parameters to a backend.
type SimpleFault struct {
	name      string
	kind      Kind
	partition PartitionParams
	latency   LatencyParams
	backend   NetworkBackend
}

// Name returns the fault name.
func (f *SimpleFault) Name() string {
	return f.name
}

// Kind returns the fault kind.
func (f *SimpleFault) Kind() Kind {
	return f.kind
}

// Apply installs the fault through the backend.
func (f *SimpleFault) Apply(ctx context.Context) error {
	var err error
	switch f.kind {
	case KindClearNetwork:
		err = f.backend.Clear(ctx)
	case KindNetworkPartition:
		err = f.backend.Partition(ctx, f.partition)
	case KindNetworkLatency:
		err = f.backend.Latency(ctx, f.latency)
	default:
		err = Configf("kind", "unknown fault kind %q", f.kind)
	}
	if err != nil {
		return &FaultApplicationError{Fault: f.name, Op: "apply", Err: err}
	}
	return nil
}

// Clear removes every network fault installed through the backend.
func (f *SimpleFault) Clear(ctx context.Context) error {
	if err := f.backend.Clear(ctx); err != nil {
		return &FaultApplicationError{Fault: f.name, Op: "clear", Err: err}
	}
	return nil
}

// Params returns the fault parameters in their declarative form.
func (f *SimpleFault) Params() map[string]interface{} {
	switch f.kind {
	case KindNetworkPartition:
		return f.partition.toMap()
	case KindNetworkLatency:
		return f.latency.toMap()
	default:
		return map[string]interface{}{}
	}
}

func (f *SimpleFault) String() string {
	return f.name
}
