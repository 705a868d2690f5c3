package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/injection"
)

func TestCleanupAllClearsNetwork(t *testing.T) {
	backend := injection.NewDryRun(nil)
	reg := faults.NewRegistry(backend)
	ctx := context.Background()

	partition, err := reg.IntroduceNetworkPartition(faults.PartitionParams{})
	require.NoError(t, err)
	require.NoError(t, partition.Apply(ctx))
	require.Equal(t, injection.StatePartition, backend.State())

	c := New(reg.ClearNetworkFaults(), nil)
	require.NoError(t, c.CleanupAll(ctx))

	assert.Equal(t, injection.StateNone, backend.State())
	assert.Equal(t, CleanupSummary{TotalActions: 1, Succeeded: 1}, c.GetSummary())
}

func TestCleanupAllRetriesClear(t *testing.T) {
	backend := injection.NewDryRun(nil)
	backend.FailOn("clear", errors.New("iptables locked"))
	reg := faults.NewRegistry(backend)

	c := New(reg.ClearNetworkFaults(), nil, WithAttempts(3), WithRetryDelay(0))
	err := c.CleanupAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, backend.Count("clear"))
	assert.Equal(t, 3, c.GetSummary().Failed)
}

func TestCleanupAllRunsReleasesInReverse(t *testing.T) {
	backend := injection.NewDryRun(nil)
	reg := faults.NewRegistry(backend)

	var order []string
	c := New(reg.ClearNetworkFaults(), nil)
	c.Register("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	c.Register("second", func(context.Context) error {
		order = append(order, "second")
		return errors.New("sidecar stuck")
	})

	err := c.CleanupAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release second")
	assert.Equal(t, []string{"second", "first"}, order)

	log := c.GetAuditLog()
	require.Len(t, log, 3)
	assert.Equal(t, "clear_network_faults", log[0].Action)
	assert.Equal(t, "second", log[1].Target)
	assert.False(t, log[1].Success)
	assert.Equal(t, "sidecar stuck", log[1].Error)
}

func TestCleanupSummaryString(t *testing.T) {
	s := CleanupSummary{TotalActions: 3, Succeeded: 2, Failed: 1}
	assert.Equal(t, "Cleanup Summary: 3 total actions, 2 succeeded, 1 failed", s.String())
}
