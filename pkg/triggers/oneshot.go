package triggers

import (
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

// OneShot fires its fault once, at the first tick at or after start+offset.
type OneShot struct {
	name   string
	fault  faults.Fault
	offset time.Duration

	armed bool
	at    time.Time
	fired bool
}

// NewOneShot creates a OneShot trigger. WithOffset and WithName apply.
func NewOneShot(f faults.Fault, opts ...Option) (*OneShot, error) {
	if f == nil {
		return nil, faults.Configf("fault", "oneshot trigger needs a fault")
	}
	o := buildOptions(opts)
	if o.offset < 0 {
		return nil, faults.Configf("offset", "offset must not be negative, got %s", o.offset)
	}
	if o.name == "" {
		arg := ""
		if o.offset > 0 {
			arg = o.offset.String()
		}
		o.name = defaultName("oneshot", f, arg)
	}
	return &OneShot{name: o.name, fault: f, offset: o.offset}, nil
}

func (t *OneShot) Name() string { return t.name }

func (t *OneShot) Fault() faults.Fault { return t.fault }

func (t *OneShot) Arm(start time.Time) {
	t.armed = true
	t.at = start.Add(t.offset)
	t.fired = false
}

func (t *OneShot) Due(now time.Time) bool {
	return t.armed && !t.fired && !now.Before(t.at)
}

func (t *OneShot) Fired(time.Time) {
	t.fired = true
}

func (t *OneShot) Next() (time.Time, bool) {
	if !t.armed || t.fired {
		return time.Time{}, false
	}
	return t.at, true
}

func (t *OneShot) Done() bool {
	return t.fired
}
