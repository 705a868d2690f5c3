package profile

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/injection"
	"github.com/jihwankim/chaos-scheduler/pkg/metafaults"
	"github.com/jihwankim/chaos-scheduler/pkg/triggers"
)

func TestBuilderKeepsDeclarationOrder(t *testing.T) {
	reg := faults.NewRegistry(injection.NewDryRun(nil))
	clearFault := reg.ClearNetworkFaults()

	p, err := NewBuilder("ordered").
		OneShot(clearFault).
		Periodic(time.Minute, clearFault).
		Cron("0 * * * *", clearFault).
		Build()
	require.NoError(t, err)

	names := make([]string, 0, p.Len())
	for _, trig := range p.Triggers() {
		names = append(names, trig.Name())
	}
	assert.Equal(t, []string{
		"oneshot(clear_network_faults)",
		"periodic(1m0s, clear_network_faults)",
		"cron(0 * * * *, clear_network_faults)",
	}, names)
}

func TestProfileIsImmutable(t *testing.T) {
	reg := faults.NewRegistry(injection.NewDryRun(nil))
	p, err := NewBuilder("immutable").OneShot(reg.ClearNetworkFaults()).Build()
	require.NoError(t, err)

	trigs := p.Triggers()
	trigs[0] = nil
	assert.NotNil(t, p.Triggers()[0])
}

func TestBuilderCollectsErrors(t *testing.T) {
	reg := faults.NewRegistry(injection.NewDryRun(nil))
	clearFault := reg.ClearNetworkFaults()

	_, err := NewBuilder("broken").
		Periodic(0, clearFault).
		Cron("not a cron", clearFault).
		Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrConfiguration))
	assert.Contains(t, err.Error(), "trigger 1")
	assert.Contains(t, err.Error(), "trigger 2")
}

func TestBuilderRejectsDuplicateNames(t *testing.T) {
	reg := faults.NewRegistry(injection.NewDryRun(nil))
	clearFault := reg.ClearNetworkFaults()

	_, err := NewBuilder("dup").OneShot(clearFault).OneShot(clearFault).Build()
	require.Error(t, err)

	_, err = NewBuilder("dup").
		OneShot(clearFault).
		OneShot(clearFault, triggers.WithName("second clear")).
		Build()
	require.NoError(t, err)
}

func TestEmptyProfileIsLegal(t *testing.T) {
	p, err := NewBuilder("empty").Build()
	require.NoError(t, err)
	assert.Zero(t, p.Len())
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"faulty", "latency", "mixed"}, Presets())

	reg := faults.NewRegistry(injection.NewDryRun(nil))
	src := rand.New(rand.NewSource(1))

	for _, name := range Presets() {
		t.Run(name, func(t *testing.T) {
			preset, err := Lookup(name)
			require.NoError(t, err)

			p, err := preset.Factory(reg, src)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
			assert.NotEmpty(t, p.Description())

			first := p.Triggers()[0]
			assert.IsType(t, &triggers.OneShot{}, first)
			assert.Equal(t, "clear_network_faults", first.Fault().Name())

			periodic, ok := p.Triggers()[1].(*triggers.Periodic)
			require.True(t, ok)
			_, ok = periodic.Fault().(*metafaults.MetaFault)
			assert.True(t, ok)
		})
	}
}

func TestFaultyMatchesCanonicalProfile(t *testing.T) {
	reg := faults.NewRegistry(injection.NewDryRun(nil))
	p, err := Faulty(reg, nil)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	periodic := p.Triggers()[1].(*triggers.Periodic)
	assert.Equal(t, 30*time.Second, periodic.Interval())

	entries := periodic.Fault().(*metafaults.MetaFault).Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Weight)
	assert.Equal(t, "clear_network_faults", entries[0].Fault.Name())
	assert.Equal(t, 12, entries[1].Weight)
	assert.Equal(t, "introduce_network_partition", entries[1].Fault.Name())
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("gremlins")
	require.Error(t, err)
	assert.True(t, faults.IsConfigurationError(err))
}

func TestPresetsNeedBackend(t *testing.T) {
	_, err := Faulty(faults.NewRegistry(nil), nil)
	assert.Error(t, err)
}
