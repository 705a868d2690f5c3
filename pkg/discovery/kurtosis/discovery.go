// Package kurtosis resolves targets from the services of a Kurtosis enclave.
package kurtosis

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/kurtosis-tech/kurtosis/api/golang/engine/lib/kurtosis_context"

	"github.com/jihwankim/chaos-scheduler/pkg/discovery"
	"github.com/jihwankim/chaos-scheduler/pkg/discovery/docker"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// Discovery resolves enclave services to docker containers.
type Discovery struct {
	kurtosisCtx  *kurtosis_context.KurtosisContext
	dockerClient *docker.Client
	logger       *reporting.Logger

	Enclave string
	Pattern string
}

// New connects to the local Kurtosis engine.
func New(dockerClient *docker.Client, enclave, pattern string, logger *reporting.Logger) (*Discovery, error) {
	if logger == nil {
		logger = reporting.Nop()
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("invalid service pattern: %w", err)
	}

	ctx, err := kurtosis_context.NewKurtosisContextFromLocalEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create Kurtosis context: %w", err)
	}

	return &Discovery{
		kurtosisCtx:  ctx,
		dockerClient: dockerClient,
		logger:       logger.Component("kurtosis"),
		Enclave:      enclave,
		Pattern:      pattern,
	}, nil
}

// ServiceNames lists the services of the enclave.
func (d *Discovery) ServiceNames(ctx context.Context) ([]string, error) {
	enclaveCtx, err := d.kurtosisCtx.GetEnclaveContext(ctx, d.Enclave)
	if err != nil {
		return nil, fmt.Errorf("failed to get enclave context: %w", err)
	}

	services, err := enclaveCtx.GetServices()
	if err != nil {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names, nil
}

// Resolve implements discovery.Resolver. Services whose container cannot be
// found are skipped with a warning.
func (d *Discovery) Resolve(ctx context.Context) ([]discovery.Target, error) {
	names, err := d.ServiceNames(ctx)
	if err != nil {
		return nil, err
	}

	matched, err := filterNames(names, d.Pattern)
	if err != nil {
		return nil, err
	}

	var targets []discovery.Target
	for _, name := range matched {
		target, err := d.lookupContainer(ctx, name)
		if err != nil {
			d.logger.Warn("No container for service", "service", name, "error", err)
			continue
		}
		target.Name = name
		targets = append(targets, *target)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no services in enclave %s match %q", d.Enclave, d.Pattern)
	}
	return targets, nil
}

func (d *Discovery) lookupContainer(ctx context.Context, service string) (*discovery.Target, error) {
	var lastErr error
	for _, name := range containerNames(d.Enclave, service) {
		target, err := d.dockerClient.GetContainerByName(ctx, name)
		if err == nil {
			return target, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// containerNames lists the docker names a Kurtosis service may run under.
func containerNames(enclave, service string) []string {
	return []string{service, fmt.Sprintf("%s--%s", enclave, service)}
}

func filterNames(names []string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	var out []string
	for _, name := range names {
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	return out, nil
}
