package l3l4

import (
	"fmt"
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

// LatencyCommands returns the tc netem command that delays egress traffic.
// "replace" makes re-applying the same latency a no-op.
func LatencyCommands(params faults.LatencyParams) [][]string {
	device := params.Device
	if device == "" {
		device = faults.DefaultDevice
	}

	cmd := []string{"tc", "qdisc", "replace", "dev", device, "root", "netem", "delay", formatDelay(params.Delay)}
	if params.Jitter > 0 {
		cmd = append(cmd, formatDelay(params.Jitter))
		if params.Correlation > 0 {
			cmd = append(cmd, fmt.Sprintf("%.0f%%", params.Correlation))
		}
	}
	return [][]string{cmd}
}

// ClearCommands returns the commands that remove every rule installed by
// PartitionCommands and LatencyCommands. Each of them may fail when the rule
// is absent; callers ignore exit errors.
func ClearCommands(device string) [][]string {
	if device == "" {
		device = faults.DefaultDevice
	}
	return [][]string{
		jumpRule("-D", "INPUT"),
		jumpRule("-D", "OUTPUT"),
		{"iptables", "-F", PartitionChain},
		{"iptables", "-X", PartitionChain},
		{"tc", "qdisc", "del", "dev", device, "root"},
	}
}

// formatDelay renders d in tc time units. Whole milliseconds use ms, anything
// finer falls back to us so sub-millisecond delays are not rounded to zero.
func formatDelay(d time.Duration) string {
	if d%time.Millisecond == 0 {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%dus", d.Microseconds())
}
