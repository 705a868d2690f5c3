package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/jihwankim/chaos-scheduler/pkg/config"
	"github.com/jihwankim/chaos-scheduler/pkg/discovery"
	"github.com/jihwankim/chaos-scheduler/pkg/discovery/docker"
	"github.com/jihwankim/chaos-scheduler/pkg/discovery/kurtosis"
	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/injection"
	"github.com/jihwankim/chaos-scheduler/pkg/injection/command"
	"github.com/jihwankim/chaos-scheduler/pkg/injection/sidecar"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// backendEnv is the network backend of a run plus what it holds on to.
type backendEnv struct {
	backend faults.NetworkBackend

	// targets lists the perturbed targets, nil for dry runs
	targets func(ctx context.Context) ([]discovery.Target, error)

	// release frees sidecars and clients after the final clear
	release func(ctx context.Context) error
}

func buildBackend(cfg *config.Config, logger *reporting.Logger) (*backendEnv, error) {
	switch cfg.Backend.Type {
	case config.BackendDryRun:
		return &backendEnv{backend: injection.NewDryRun(logger)}, nil

	case config.BackendLocal:
		inj := injection.NewInjector(
			command.Host{Commander: command.NewShell(logger)},
			discovery.Static{{Name: "localhost"}},
			cfg.Backend.Device,
			logger,
		)
		return &backendEnv{backend: inj, targets: inj.Targets}, nil

	case config.BackendDocker:
		dockerClient, err := docker.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}

		var resolver discovery.Resolver = &docker.Resolver{Client: dockerClient, Patterns: cfg.Targets}
		if cfg.Kurtosis.EnclaveName != "" {
			kd, err := kurtosis.New(dockerClient, cfg.Kurtosis.EnclaveName, cfg.Kurtosis.ServicePattern, logger)
			if err != nil {
				dockerClient.Close()
				return nil, err
			}
			resolver = kd
		}

		sidecars := sidecar.New(dockerClient, cfg.Docker.SidecarImage, logger)
		inj := injection.NewInjector(sidecars, resolver, cfg.Backend.Device, logger)

		return &backendEnv{
			backend: inj,
			targets: inj.Targets,
			release: func(ctx context.Context) error {
				return multierr.Append(sidecars.DestroyAll(ctx), dockerClient.Close())
			},
		}, nil

	default:
		return nil, faults.Configf("backend.type", "unknown backend %q", cfg.Backend.Type)
	}
}
