package triggers

import (
	"time"

	"github.com/robfig/cron"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

// Cron fires its fault on a standard five-field cron schedule. Like
// Periodic, a late tick fires once and the schedule resumes after it.
type Cron struct {
	name     string
	fault    faults.Fault
	expr     string
	schedule cron.Schedule

	armed bool
	next  time.Time
}

// NewCron parses expr and creates a Cron trigger.
func NewCron(expr string, f faults.Fault, opts ...Option) (*Cron, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, faults.Configf("cron", "invalid cron expression %q: %v", expr, err)
	}
	if f == nil {
		return nil, faults.Configf("fault", "cron trigger needs a fault")
	}
	o := buildOptions(opts)
	if o.name == "" {
		o.name = defaultName("cron", f, expr)
	}
	return &Cron{name: o.name, fault: f, expr: expr, schedule: schedule}, nil
}

func (t *Cron) Name() string { return t.name }

func (t *Cron) Fault() faults.Fault { return t.fault }

// Expression returns the cron expression.
func (t *Cron) Expression() string { return t.expr }

func (t *Cron) Arm(start time.Time) {
	t.armed = true
	t.next = t.schedule.Next(start)
}

func (t *Cron) Due(now time.Time) bool {
	return t.armed && !t.next.IsZero() && !now.Before(t.next)
}

func (t *Cron) Fired(now time.Time) {
	t.next = t.schedule.Next(now)
}

func (t *Cron) Next() (time.Time, bool) {
	return t.next, t.armed && !t.next.IsZero()
}

func (t *Cron) Done() bool {
	return t.armed && t.next.IsZero()
}
