// Package discovery resolves the containers a chaos run perturbs.
package discovery

import (
	"context"
	"regexp"
	"strings"
)

// Target is a container whose network namespace receives faults.
type Target struct {
	// Name is the service or container name, without docker's leading slash
	Name string

	// ContainerID is the docker container ID
	ContainerID string

	// IP is the container's first network address, if known
	IP string

	// Labels are docker container labels
	Labels map[string]string
}

// Resolver returns the targets of a run.
type Resolver interface {
	Resolve(ctx context.Context) ([]Target, error)
}

// Static is a Resolver over a fixed target list.
type Static []Target

// Resolve returns the list itself.
func (s Static) Resolve(context.Context) ([]Target, error) {
	return append([]Target(nil), s...), nil
}

// MatchAny reports whether any of names matches pattern.
func MatchAny(names []string, pattern string) bool {
	for _, name := range names {
		if Match(strings.TrimPrefix(name, "/"), pattern) {
			return true
		}
	}
	return false
}

// Match reports whether name matches pattern. "*" matches everything,
// patterns containing regex metacharacters are compiled as regular
// expressions, and anything else is a substring match with optional
// leading and trailing wildcards.
func Match(name, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if strings.ContainsAny(pattern, `\[](){}^$+?.|`) {
		if re, err := regexp.Compile(pattern); err == nil {
			return re.MatchString(name)
		}
	}

	pattern = strings.TrimPrefix(pattern, "*")
	pattern = strings.TrimSuffix(pattern, "*")
	return pattern != "" && strings.Contains(name, pattern)
}
