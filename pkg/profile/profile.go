// Package profile assembles triggers into named chaos profiles.
package profile

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/triggers"
)

// Profile is an ordered, immutable list of triggers. Declaration order is
// the order in which due triggers fire within a tick.
type Profile struct {
	name        string
	description string
	triggers    []triggers.Trigger
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// Description returns the human-readable description.
func (p *Profile) Description() string { return p.description }

// Triggers returns the triggers in declaration order. The slice is a copy.
func (p *Profile) Triggers() []triggers.Trigger {
	return append([]triggers.Trigger(nil), p.triggers...)
}

// Len returns the number of triggers.
func (p *Profile) Len() int { return len(p.triggers) }

// Builder accumulates triggers. Construction errors are collected and
// reported together by Build.
type Builder struct {
	name        string
	description string
	triggers    []triggers.Trigger
	added       int
	err         error
}

// NewBuilder starts a profile called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Describe sets the profile description.
func (b *Builder) Describe(description string) *Builder {
	b.description = description
	return b
}

// OneShot appends a trigger that fires f once.
func (b *Builder) OneShot(f faults.Fault, opts ...triggers.Option) *Builder {
	t, err := triggers.NewOneShot(f, opts...)
	return b.add(t, err)
}

// Periodic appends a trigger that fires f every interval.
func (b *Builder) Periodic(interval time.Duration, f faults.Fault, opts ...triggers.Option) *Builder {
	t, err := triggers.NewPeriodic(interval, f, opts...)
	return b.add(t, err)
}

// Cron appends a trigger that fires f on a cron schedule.
func (b *Builder) Cron(expr string, f faults.Fault, opts ...triggers.Option) *Builder {
	t, err := triggers.NewCron(expr, f, opts...)
	return b.add(t, err)
}

// Add appends an already constructed trigger.
func (b *Builder) Add(t triggers.Trigger) *Builder {
	if t == nil {
		return b.add(nil, faults.Configf("trigger", "trigger is nil"))
	}
	return b.add(t, nil)
}

// Fail records an error from building a fault, so callers can keep chaining.
func (b *Builder) Fail(err error) *Builder {
	b.err = multierr.Append(b.err, err)
	return b
}

func (b *Builder) add(t triggers.Trigger, err error) *Builder {
	b.added++
	if err != nil {
		b.err = multierr.Append(b.err, fmt.Errorf("trigger %d: %w", b.added, err))
		return b
	}
	b.triggers = append(b.triggers, t)
	return b
}

// Build returns the profile, or every error collected while building it.
// Trigger names must be unique within a profile.
func (b *Builder) Build() (*Profile, error) {
	if b.name == "" {
		b.err = multierr.Append(b.err, faults.Configf("name", "profile name is empty"))
	}

	seen := make(map[string]bool, len(b.triggers))
	for _, t := range b.triggers {
		if seen[t.Name()] {
			b.err = multierr.Append(b.err, faults.Configf("trigger", "duplicate trigger name %q, use triggers.WithName", t.Name()))
		}
		seen[t.Name()] = true
	}

	if b.err != nil {
		return nil, b.err
	}
	return &Profile{
		name:        b.name,
		description: b.description,
		triggers:    append([]triggers.Trigger(nil), b.triggers...),
	}, nil
}
