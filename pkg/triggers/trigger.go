// Package triggers decides when the faults of a profile fire.
//
// A trigger is armed once with the scheduler's start time and then polled
// with Due on every tick. When Due reports true the scheduler applies the
// bound fault and calls Fired, whether or not the apply succeeded.
package triggers

import (
	"fmt"
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

// Trigger pairs a fault with a firing rule.
type Trigger interface {
	// Name identifies the trigger in logs, history and metrics
	Name() string

	// Fault returns the fault applied when the trigger fires
	Fault() faults.Fault

	// Arm resets the trigger relative to the run start
	Arm(start time.Time)

	// Due reports whether the trigger should fire at now
	Due(now time.Time) bool

	// Fired records a firing at now
	Fired(now time.Time)

	// Next returns the next planned firing, if any
	Next() (time.Time, bool)

	// Done reports whether the trigger will never fire again
	Done() bool
}

// Option configures a trigger.
type Option func(*options)

type options struct {
	name   string
	offset time.Duration
}

// WithName overrides the generated trigger name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithOffset delays a OneShot trigger relative to the run start.
func WithOffset(offset time.Duration) Option {
	return func(o *options) {
		o.offset = offset
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func defaultName(kind string, f faults.Fault, arg string) string {
	if arg == "" {
		return fmt.Sprintf("%s(%s)", kind, f.Name())
	}
	return fmt.Sprintf("%s(%s, %s)", kind, arg, f.Name())
}
