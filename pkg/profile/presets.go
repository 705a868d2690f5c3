package profile

import (
	"fmt"
	"sort"
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/metafaults"
)

// Factory builds a preset against a registry. src seeds the meta-fault
// draws; nil uses a time-seeded source.
type Factory func(reg *faults.Registry, src metafaults.Source) (*Profile, error)

// Preset is a named, documented profile factory.
type Preset struct {
	Name        string
	Description string
	Factory     Factory
}

const (
	faultyDescription  = "clear once, then every 30s pick clear (3) or partition (12)"
	latencyDescription = "clear once, then every 30s pick clear (3) or latency (12)"
	mixedDescription   = "clear once, every 45s pick clear (2), partition (5) or latency (5), and clear every 10 minutes"
)

var presets = map[string]Preset{
	"faulty": {
		Name:        "faulty",
		Description: faultyDescription,
		Factory:     Faulty,
	},
	"latency": {
		Name:        "latency",
		Description: latencyDescription,
		Factory:     Latency,
	},
	"mixed": {
		Name:        "mixed",
		Description: mixedDescription,
		Factory:     Mixed,
	},
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named preset.
func Lookup(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, faults.Configf("profile", "unknown profile %q (available: %v)", name, Presets())
	}
	return p, nil
}

// Faulty clears once at start, then every 30 seconds either clears (weight
// 3) or partitions the network (weight 12).
func Faulty(reg *faults.Registry, src metafaults.Source) (*Profile, error) {
	clearFault := reg.ClearNetworkFaults()
	partition, err := reg.IntroduceNetworkPartition(reg.PartitionDefaults())
	if err != nil {
		return nil, fmt.Errorf("faulty: %w", err)
	}

	pick, err := metafaults.PickFault([]metafaults.WeightedEntry{
		{Weight: 3, Fault: clearFault},
		{Weight: 12, Fault: partition},
	}, metafaults.WithRand(src))
	if err != nil {
		return nil, fmt.Errorf("faulty: %w", err)
	}

	return NewBuilder("faulty").
		Describe(faultyDescription).
		OneShot(clearFault).
		Periodic(30*time.Second, pick).
		Build()
}

// Latency is Faulty with latency in place of the partition.
func Latency(reg *faults.Registry, src metafaults.Source) (*Profile, error) {
	clearFault := reg.ClearNetworkFaults()
	latency, err := reg.IntroduceNetworkLatency(reg.LatencyDefaults())
	if err != nil {
		return nil, fmt.Errorf("latency: %w", err)
	}

	pick, err := metafaults.PickFault([]metafaults.WeightedEntry{
		{Weight: 3, Fault: clearFault},
		{Weight: 12, Fault: latency},
	}, metafaults.WithRand(src))
	if err != nil {
		return nil, fmt.Errorf("latency: %w", err)
	}

	return NewBuilder("latency").
		Describe(latencyDescription).
		OneShot(clearFault).
		Periodic(30*time.Second, pick).
		Build()
}

// Mixed alternates partitions and latency and clears on a cron schedule.
func Mixed(reg *faults.Registry, src metafaults.Source) (*Profile, error) {
	clearFault := reg.ClearNetworkFaults()
	partition, err := reg.IntroduceNetworkPartition(reg.PartitionDefaults())
	if err != nil {
		return nil, fmt.Errorf("mixed: %w", err)
	}
	latency, err := reg.IntroduceNetworkLatency(reg.LatencyDefaults())
	if err != nil {
		return nil, fmt.Errorf("mixed: %w", err)
	}

	pick, err := metafaults.PickFault([]metafaults.WeightedEntry{
		{Weight: 2, Fault: clearFault},
		{Weight: 5, Fault: partition},
		{Weight: 5, Fault: latency},
	}, metafaults.WithRand(src))
	if err != nil {
		return nil, fmt.Errorf("mixed: %w", err)
	}

	return NewBuilder("mixed").
		Describe(mixedDescription).
		OneShot(clearFault).
		Periodic(45*time.Second, pick).
		Cron("*/10 * * * *", clearFault).
		Build()
}
