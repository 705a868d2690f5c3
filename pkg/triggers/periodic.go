package triggers

import (
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

// Periodic fires its fault every interval, starting one interval after the
// run start. Missed intervals are not replayed: after a late tick the
// trigger fires once and the schedule restarts from that tick.
type Periodic struct {
	name     string
	fault    faults.Fault
	interval time.Duration

	armed bool
	next  time.Time
}

// NewPeriodic creates a Periodic trigger. interval must be positive.
func NewPeriodic(interval time.Duration, f faults.Fault, opts ...Option) (*Periodic, error) {
	if interval <= 0 {
		return nil, faults.Configf("interval", "interval must be positive, got %s", interval)
	}
	if f == nil {
		return nil, faults.Configf("fault", "periodic trigger needs a fault")
	}
	o := buildOptions(opts)
	if o.name == "" {
		o.name = defaultName("periodic", f, interval.String())
	}
	return &Periodic{name: o.name, fault: f, interval: interval}, nil
}

func (t *Periodic) Name() string { return t.name }

func (t *Periodic) Fault() faults.Fault { return t.fault }

// Interval returns the firing interval.
func (t *Periodic) Interval() time.Duration { return t.interval }

func (t *Periodic) Arm(start time.Time) {
	t.armed = true
	t.next = start.Add(t.interval)
}

func (t *Periodic) Due(now time.Time) bool {
	return t.armed && !now.Before(t.next)
}

func (t *Periodic) Fired(now time.Time) {
	t.next = t.next.Add(t.interval)
	if !t.next.After(now) {
		t.next = now.Add(t.interval)
	}
}

func (t *Periodic) Next() (time.Time, bool) {
	return t.next, t.armed
}

func (t *Periodic) Done() bool {
	return false
}
