package l3l4

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

func join(cmds [][]string) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = strings.Join(c, " ")
	}
	return out
}

func TestPartitionCommandsAllTraffic(t *testing.T) {
	got := join(PartitionCommands(faults.PartitionParams{Direction: "both", Protocol: "all"}))

	assert.Equal(t, []string{
		"iptables -N CHAOS_PARTITION",
		"iptables -A CHAOS_PARTITION ! -s 127.0.0.0/8 -j DROP",
		"iptables -A CHAOS_PARTITION ! -d 127.0.0.0/8 -j DROP",
		"iptables -I INPUT -m comment --comment chaos-scheduler -j CHAOS_PARTITION",
		"iptables -I OUTPUT -m comment --comment chaos-scheduler -j CHAOS_PARTITION",
	}, got)
}

func TestPartitionCommandsPeersAndPorts(t *testing.T) {
	got := join(PartitionCommands(faults.PartitionParams{
		Peers:     []string{"10.0.0.2", "10.1.0.0/16"},
		Ports:     "30303,8545",
		Protocol:  "tcp",
		Direction: "out",
	}))

	assert.Equal(t, []string{
		"iptables -N CHAOS_PARTITION",
		"iptables -A CHAOS_PARTITION -d 10.0.0.2 -p tcp -m multiport --ports 30303,8545 -j DROP",
		"iptables -A CHAOS_PARTITION -d 10.1.0.0/16 -p tcp -m multiport --ports 30303,8545 -j DROP",
		"iptables -I OUTPUT -m comment --comment chaos-scheduler -j CHAOS_PARTITION",
	}, got)
}

func TestLatencyCommands(t *testing.T) {
	assert.Equal(t,
		[]string{"tc qdisc replace dev eth0 root netem delay 100ms"},
		join(LatencyCommands(faults.LatencyParams{Delay: 100 * time.Millisecond})))

	assert.Equal(t,
		[]string{"tc qdisc replace dev eth1 root netem delay 250ms 20ms 25%"},
		join(LatencyCommands(faults.LatencyParams{
			Device:      "eth1",
			Delay:       250 * time.Millisecond,
			Jitter:      20 * time.Millisecond,
			Correlation: 25,
		})))
}

func TestLatencyCommandsKeepSubMillisecondDelays(t *testing.T) {
	assert.Equal(t,
		[]string{"tc qdisc replace dev eth0 root netem delay 500us 1500us"},
		join(LatencyCommands(faults.LatencyParams{
			Delay:  500 * time.Microsecond,
			Jitter: 1500 * time.Microsecond,
		})))
}

func TestClearCommandsUndoEverything(t *testing.T) {
	assert.Equal(t, []string{
		"iptables -D INPUT -m comment --comment chaos-scheduler -j CHAOS_PARTITION",
		"iptables -D OUTPUT -m comment --comment chaos-scheduler -j CHAOS_PARTITION",
		"iptables -F CHAOS_PARTITION",
		"iptables -X CHAOS_PARTITION",
		"tc qdisc del dev eth0 root",
	}, join(ClearCommands("")))
}
