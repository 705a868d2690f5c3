package faults

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultDevice       = "eth0"
	DefaultLatencyDelay = 100 * time.Millisecond
)

// PartitionParams describes which traffic a partition drops.
type PartitionParams struct {
	// Peers are IPs or CIDRs cut off from the target. Empty drops all
	// non-loopback traffic.
	Peers []string

	// Ports is a comma-separated list of ports (e.g. "26656,26657"). Empty
	// matches every port.
	Ports string

	// Protocol is tcp, udp or all.
	Protocol string

	// Direction is in, out or both.
	Direction string
}

// LatencyParams describes the delay added to egress traffic.
type LatencyParams struct {
	Device      string
	Delay       time.Duration
	Jitter      time.Duration
	Correlation float64 // percent, 0-100
}

// WithDefaults fills unset fields: protocol all, direction both.
func (p PartitionParams) WithDefaults() PartitionParams {
	if p.Protocol == "" {
		p.Protocol = "all"
	}
	if p.Direction == "" {
		p.Direction = "both"
	}
	return p
}

// Validate checks the partition parameters.
func (p PartitionParams) Validate() error {
	switch p.Direction {
	case "in", "out", "both":
	default:
		return Configf("direction", "must be in, out or both, got %q", p.Direction)
	}
	switch p.Protocol {
	case "tcp", "udp", "all":
	default:
		return Configf("protocol", "must be tcp, udp or all, got %q", p.Protocol)
	}
	for _, peer := range p.Peers {
		if net.ParseIP(peer) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(peer); err != nil {
			return Configf("peers", "%q is neither an IP nor a CIDR", peer)
		}
	}
	if p.Ports != "" {
		if p.Protocol == "all" {
			return Configf("ports", "ports require protocol tcp or udp")
		}
		for _, port := range strings.Split(p.Ports, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(port))
			if err != nil || n < 1 || n > 65535 {
				return Configf("ports", "invalid port %q", port)
			}
		}
	}
	return nil
}

// WithDefaults fills unset fields: device eth0, delay 100ms.
func (p LatencyParams) WithDefaults() LatencyParams {
	if p.Device == "" {
		p.Device = DefaultDevice
	}
	if p.Delay == 0 {
		p.Delay = DefaultLatencyDelay
	}
	return p
}

// Validate checks the latency parameters.
func (p LatencyParams) Validate() error {
	if p.Delay <= 0 {
		return Configf("delay", "must be positive, got %s", p.Delay)
	}
	if p.Jitter < 0 {
		return Configf("jitter", "cannot be negative")
	}
	if p.Correlation < 0 || p.Correlation > 100 {
		return Configf("correlation", "must be between 0 and 100")
	}
	return nil
}

func (p PartitionParams) toMap() map[string]interface{} {
	return map[string]interface{}{
		"peers":     append([]string(nil), p.Peers...),
		"ports":     p.Ports,
		"protocol":  p.Protocol,
		"direction": p.Direction,
	}
}

func (p LatencyParams) toMap() map[string]interface{} {
	return map[string]interface{}{
		"device":      p.Device,
		"delay":       p.Delay.String(),
		"jitter":      p.Jitter.String(),
		"correlation": p.Correlation,
	}
}

// partitionFromMap converts declarative parameters into PartitionParams.
func partitionFromMap(params map[string]interface{}) (PartitionParams, error) {
	var p PartitionParams
	for _, key := range sortedKeys(params) {
		v := params[key]
		switch key {
		case "peers":
			peers, err := stringList(v)
			if err != nil {
				return p, Configf("peers", "%v", err)
			}
			p.Peers = peers
		case "ports":
			switch pv := v.(type) {
			case string:
				p.Ports = pv
			case int:
				p.Ports = strconv.Itoa(pv)
			default:
				return p, Configf("ports", "unsupported type %T", v)
			}
		case "protocol":
			s, ok := v.(string)
			if !ok {
				return p, Configf("protocol", "must be a string")
			}
			p.Protocol = s
		case "direction":
			s, ok := v.(string)
			if !ok {
				return p, Configf("direction", "must be a string")
			}
			p.Direction = s
		default:
			return p, Configf(key, "unknown partition parameter")
		}
	}
	return p, nil
}

// latencyFromMap converts declarative parameters into LatencyParams.
// Durations may be given as strings ("250ms") or integer milliseconds.
func latencyFromMap(params map[string]interface{}) (LatencyParams, error) {
	var p LatencyParams
	for _, key := range sortedKeys(params) {
		v := params[key]
		switch key {
		case "device":
			s, ok := v.(string)
			if !ok {
				return p, Configf("device", "must be a string")
			}
			p.Device = s
		case "delay", "latency":
			d, err := durationValue(v)
			if err != nil {
				return p, Configf(key, "%v", err)
			}
			p.Delay = d
		case "jitter":
			d, err := durationValue(v)
			if err != nil {
				return p, Configf("jitter", "%v", err)
			}
			p.Jitter = d
		case "correlation":
			switch cv := v.(type) {
			case int:
				p.Correlation = float64(cv)
			case float64:
				p.Correlation = cv
			default:
				return p, Configf("correlation", "unsupported type %T", v)
			}
		default:
			return p, Configf(key, "unknown latency parameter")
		}
	}
	return p, nil
}

func durationValue(v interface{}) (time.Duration, error) {
	switch dv := v.(type) {
	case time.Duration:
		return dv, nil
	case int:
		return time.Duration(dv) * time.Millisecond, nil
	case string:
		d, err := time.ParseDuration(dv)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", dv)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func stringList(v interface{}) ([]string, error) {
	switch lv := v.(type) {
	case []string:
		return lv, nil
	case string:
		if lv == "" {
			return nil, nil
		}
		parts := strings.Split(lv, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []interface{}:
		out := make([]string, 0, len(lv))
		for _, item := range lv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list item %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
