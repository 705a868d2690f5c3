package triggers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

type nopFault struct{}

func (nopFault) Name() string                { return "nop" }
func (nopFault) Apply(context.Context) error { return nil }
func (nopFault) Clear(context.Context) error { return nil }

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// drive ticks trig every step from start through start+span and returns the
// offsets at which it fired.
func drive(trig Trigger, span, step time.Duration) []time.Duration {
	trig.Arm(start)
	var fired []time.Duration
	for off := time.Duration(0); off <= span; off += step {
		now := start.Add(off)
		if trig.Due(now) {
			trig.Fired(now)
			fired = append(fired, off)
		}
	}
	return fired
}

func TestOneShotFiresExactlyOnce(t *testing.T) {
	trig, err := NewOneShot(nopFault{})
	require.NoError(t, err)

	fired := drive(trig, time.Minute, time.Second)

	assert.Equal(t, []time.Duration{0}, fired)
	assert.True(t, trig.Done())
	_, ok := trig.Next()
	assert.False(t, ok)
}

func TestOneShotOffset(t *testing.T) {
	trig, err := NewOneShot(nopFault{}, WithOffset(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "oneshot(10s, nop)", trig.Name())

	assert.Equal(t, []time.Duration{10 * time.Second}, drive(trig, time.Minute, time.Second))
}

func TestOneShotNotDueBeforeArm(t *testing.T) {
	trig, err := NewOneShot(nopFault{})
	require.NoError(t, err)
	assert.False(t, trig.Due(start))
}

func TestPeriodicFiresKTimes(t *testing.T) {
	for _, k := range []int{0, 1, 3, 7} {
		trig, err := NewPeriodic(30*time.Second, nopFault{})
		require.NoError(t, err)

		span := time.Duration(k)*30*time.Second + 500*time.Millisecond
		fired := drive(trig, span, 250*time.Millisecond)

		assert.Len(t, fired, k, "k=%d", k)
		for i, off := range fired {
			assert.Equal(t, time.Duration(i+1)*30*time.Second, off)
		}
	}
}

func TestPeriodicDoesNotReplayBacklog(t *testing.T) {
	trig, err := NewPeriodic(10*time.Second, nopFault{})
	require.NoError(t, err)
	trig.Arm(start)

	late := start.Add(65 * time.Second)
	require.True(t, trig.Due(late))
	trig.Fired(late)

	assert.False(t, trig.Due(late), "missed intervals must collapse into one firing")
	next, ok := trig.Next()
	require.True(t, ok)
	assert.Equal(t, late.Add(10*time.Second), next)
}

func TestPeriodicKeepsCadenceWhenSlightlyLate(t *testing.T) {
	trig, err := NewPeriodic(10*time.Second, nopFault{})
	require.NoError(t, err)
	trig.Arm(start)

	trig.Fired(start.Add(12 * time.Second))
	next, _ := trig.Next()
	assert.Equal(t, start.Add(20*time.Second), next)
}

func TestPeriodicRejectsNonPositiveInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := NewPeriodic(d, nopFault{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, faults.ErrConfiguration))
	}
}

func TestCronSchedule(t *testing.T) {
	trig, err := NewCron("*/10 * * * *", nopFault{})
	require.NoError(t, err)

	fired := drive(trig, 35*time.Minute, 30*time.Second)

	assert.Equal(t, []time.Duration{10 * time.Minute, 20 * time.Minute, 30 * time.Minute}, fired)
	assert.False(t, trig.Done())
}

func TestCronRejectsBadExpression(t *testing.T) {
	_, err := NewCron("every tuesday", nopFault{})
	require.Error(t, err)
	assert.True(t, faults.IsConfigurationError(err))
}

func TestNilFaultRejected(t *testing.T) {
	_, err := NewOneShot(nil)
	assert.Error(t, err)
	_, err = NewPeriodic(time.Second, nil)
	assert.Error(t, err)
	_, err = NewCron("* * * * *", nil)
	assert.Error(t, err)
}
