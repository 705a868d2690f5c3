// Package l3l4 builds the iptables and tc commands that implement network
// partitions and latency inside a target's network namespace.
package l3l4

import (
	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

const (
	// PartitionChain holds every DROP rule installed by a partition.
	PartitionChain = "CHAOS_PARTITION"

	// RuleComment tags the jump rules so clear can find them.
	RuleComment = "chaos-scheduler"

	loopbackCIDR = "127.0.0.0/8"
)

// PartitionCommands returns the iptables commands that install a partition.
// The caller is expected to have cleared previous rules first.
func PartitionCommands(params faults.PartitionParams) [][]string {
	cmds := [][]string{{"iptables", "-N", PartitionChain}}

	inbound := params.Direction == "in" || params.Direction == "both"
	outbound := params.Direction == "out" || params.Direction == "both"

	if inbound {
		cmds = append(cmds, dropRules("-s", params)...)
	}
	if outbound {
		cmds = append(cmds, dropRules("-d", params)...)
	}

	if inbound {
		cmds = append(cmds, jumpRule("-I", "INPUT"))
	}
	if outbound {
		cmds = append(cmds, jumpRule("-I", "OUTPUT"))
	}
	return cmds
}

// dropRules builds one DROP rule per peer. addrFlag is -s for inbound
// traffic and -d for outbound traffic.
func dropRules(addrFlag string, params faults.PartitionParams) [][]string {
	var cmds [][]string

	if len(params.Peers) == 0 {
		rule := []string{"iptables", "-A", PartitionChain, "!", addrFlag, loopbackCIDR}
		rule = append(rule, protoMatch(params)...)
		cmds = append(cmds, append(rule, "-j", "DROP"))
		return cmds
	}

	for _, peer := range params.Peers {
		rule := []string{"iptables", "-A", PartitionChain, addrFlag, peer}
		rule = append(rule, protoMatch(params)...)
		cmds = append(cmds, append(rule, "-j", "DROP"))
	}
	return cmds
}

func protoMatch(params faults.PartitionParams) []string {
	if params.Protocol == "" || params.Protocol == "all" {
		return nil
	}
	match := []string{"-p", params.Protocol}
	if params.Ports != "" {
		match = append(match, "-m", "multiport", "--ports", params.Ports)
	}
	return match
}

func jumpRule(op, builtin string) []string {
	return []string{
		"iptables", op, builtin,
		"-m", "comment", "--comment", RuleComment,
		"-j", PartitionChain,
	}
}
