package injection

import (
	"context"
	"sync"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// Network states reported by DryRun.
const (
	StateNone      = "none"
	StatePartition = "partition"
	StateLatency   = "latency"
)

// Call records one backend invocation.
type Call struct {
	Op        string
	Partition faults.PartitionParams
	Latency   faults.LatencyParams
}

// DryRun is a backend that only tracks the network state it would have
// produced.
type DryRun struct {
	mu     sync.Mutex
	logger *reporting.Logger
	state  string
	calls  []Call
	failOn map[string]error
}

// NewDryRun creates a dry-run backend in state "none".
func NewDryRun(logger *reporting.Logger) *DryRun {
	if logger == nil {
		logger = reporting.Nop()
	}
	return &DryRun{
		logger: logger.Component("dry-run"),
		state:  StateNone,
		failOn: make(map[string]error),
	}
}

// Partition records a partition.
func (d *DryRun) Partition(_ context.Context, params faults.PartitionParams) error {
	return d.record(Call{Op: StatePartition, Partition: params}, StatePartition)
}

// Latency records a latency fault.
func (d *DryRun) Latency(_ context.Context, params faults.LatencyParams) error {
	return d.record(Call{Op: StateLatency, Latency: params}, StateLatency)
}

// Clear resets the state to "none".
func (d *DryRun) Clear(context.Context) error {
	return d.record(Call{Op: "clear"}, StateNone)
}

func (d *DryRun) record(call Call, next string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, call)
	if err := d.failOn[call.Op]; err != nil {
		d.logger.Warn("[dry-run] simulated failure", "op", call.Op, "error", err)
		return err
	}
	d.logger.Info("[dry-run] network fault", "op", call.Op, "state", next)
	d.state = next
	return nil
}

// FailOn makes every later call of op ("partition", "latency" or "clear")
// return err. A nil err removes the failure.
func (d *DryRun) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err == nil {
		delete(d.failOn, op)
		return
	}
	d.failOn[op] = err
}

// State returns the current simulated network state.
func (d *DryRun) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Calls returns every recorded call.
func (d *DryRun) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Count returns how many calls of op were recorded.
func (d *DryRun) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}
