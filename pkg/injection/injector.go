// Package injection implements the network backends that faults are applied
// through.
package injection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/jihwankim/chaos-scheduler/pkg/discovery"
	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/injection/command"
	"github.com/jihwankim/chaos-scheduler/pkg/injection/l3l4"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// Executor runs a command in the network namespace of a target container.
type Executor interface {
	Exec(ctx context.Context, targetID string, cmd []string) (string, error)
}

// Injector applies network faults by running iptables and tc commands
// against every resolved target. Every install first removes whatever was
// installed before, so repeated applies converge on a single rule set.
type Injector struct {
	mu       sync.Mutex
	executor Executor
	resolver discovery.Resolver
	device   string
	logger   *reporting.Logger

	targets []discovery.Target
	devices map[string]struct{}
}

// NewInjector creates an injector. Targets are resolved on first use.
func NewInjector(executor Executor, resolver discovery.Resolver, device string, logger *reporting.Logger) *Injector {
	if device == "" {
		device = faults.DefaultDevice
	}
	if logger == nil {
		logger = reporting.Nop()
	}
	return &Injector{
		executor: executor,
		resolver: resolver,
		device:   device,
		logger:   logger.Component("injector"),
		devices:  map[string]struct{}{device: {}},
	}
}

// Partition drops traffic on every target.
func (i *Injector) Partition(ctx context.Context, params faults.PartitionParams) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.install(ctx, "partition", l3l4.PartitionCommands(params))
}

// Latency delays egress traffic on every target.
func (i *Injector) Latency(ctx context.Context, params faults.LatencyParams) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if params.Device == "" {
		params.Device = i.device
	}
	i.devices[params.Device] = struct{}{}
	return i.install(ctx, "latency", l3l4.LatencyCommands(params))
}

// Clear removes every rule this injector may have installed. Rules that are
// already absent are not an error.
func (i *Injector) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	targets, err := i.resolveTargets(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, target := range targets {
		errs = multierr.Append(errs, i.clearTarget(ctx, target))
	}
	return errs
}

// Targets returns the resolved targets, resolving them if necessary.
func (i *Injector) Targets(ctx context.Context) ([]discovery.Target, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	targets, err := i.resolveTargets(ctx)
	if err != nil {
		return nil, err
	}
	return append([]discovery.Target(nil), targets...), nil
}

// install clears and then installs cmds on every target. If any target
// fails, the targets already processed are cleared again so a failed apply
// never leaves the network partly faulted.
func (i *Injector) install(ctx context.Context, fault string, cmds [][]string) error {
	targets, err := i.resolveTargets(ctx)
	if err != nil {
		return err
	}

	for n, target := range targets {
		if err := i.installTarget(ctx, fault, target, cmds); err != nil {
			return multierr.Append(err, i.rollback(ctx, targets[:n+1]))
		}
		i.logger.Info("Installed network fault", "fault", fault, "target", target.Name)
	}
	return nil
}

func (i *Injector) installTarget(ctx context.Context, fault string, target discovery.Target, cmds [][]string) error {
	if err := i.clearTarget(ctx, target); err != nil {
		return err
	}
	for _, cmd := range cmds {
		if _, err := i.executor.Exec(ctx, target.ContainerID, cmd); err != nil {
			return fmt.Errorf("failed to install %s on %s: %w", fault, target.Name, err)
		}
	}
	return nil
}

func (i *Injector) rollback(ctx context.Context, targets []discovery.Target) error {
	var errs error
	for _, target := range targets {
		i.logger.Warn("Rolling back partial install", "target", target.Name)
		errs = multierr.Append(errs, i.clearTarget(ctx, target))
	}
	return errs
}

func (i *Injector) clearTarget(ctx context.Context, target discovery.Target) error {
	devices := make([]string, 0, len(i.devices))
	for device := range i.devices {
		devices = append(devices, device)
	}
	sort.Strings(devices)

	var cmds [][]string
	for n, device := range devices {
		undo := l3l4.ClearCommands(device)
		if n > 0 {
			// Only the tc command is device specific.
			undo = undo[len(undo)-1:]
		}
		cmds = append(cmds, undo...)
	}

	for _, cmd := range cmds {
		if _, err := i.executor.Exec(ctx, target.ContainerID, cmd); err != nil {
			if command.IsExitError(err) {
				continue
			}
			return fmt.Errorf("failed to clear network faults on %s: %w", target.Name, err)
		}
	}
	return nil
}

func (i *Injector) resolveTargets(ctx context.Context) ([]discovery.Target, error) {
	if i.targets != nil {
		return i.targets, nil
	}

	targets, err := i.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve targets: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets resolved")
	}

	for _, t := range targets {
		i.logger.Info("Resolved target", "name", t.Name, "container", t.ContainerID)
	}
	i.targets = targets
	return targets, nil
}
