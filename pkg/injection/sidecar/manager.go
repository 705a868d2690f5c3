// Package sidecar runs fault commands inside helper containers that share a
// target container's network namespace.
package sidecar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/multierr"

	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// DefaultImage ships iptables and tc.
const DefaultImage = "nicolaka/netshoot:latest"

// ContainerAPI is the subset of the docker client used by the manager.
type ContainerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string) error
	ContainerStop(ctx context.Context, containerID string, timeoutSeconds int) error
	ContainerRemove(ctx context.Context, containerID string) error
	ExecCommand(ctx context.Context, containerID string, cmd []string) (string, error)
}

// Manager creates one sidecar per target and executes commands in it.
type Manager struct {
	mu       sync.Mutex
	docker   ContainerAPI
	image    string
	logger   *reporting.Logger
	sidecars map[string]string // target container ID -> sidecar container ID
}

// New creates a sidecar manager
func New(docker ContainerAPI, image string, logger *reporting.Logger) *Manager {
	if image == "" {
		image = DefaultImage
	}
	if logger == nil {
		logger = reporting.Nop()
	}
	return &Manager{
		docker:   docker,
		image:    image,
		logger:   logger.Component("sidecar"),
		sidecars: make(map[string]string),
	}
}

// Exec runs cmd in the sidecar attached to targetID, creating the sidecar
// on first use. Errors from the command itself are returned unwrapped so
// callers can inspect exit codes.
func (m *Manager) Exec(ctx context.Context, targetID string, cmd []string) (string, error) {
	sidecarID, err := m.ensure(ctx, targetID)
	if err != nil {
		return "", err
	}

	m.logger.Debug("Executing in sidecar", "sidecar", shortID(sidecarID), "cmd", strings.Join(cmd, " "))
	return m.docker.ExecCommand(ctx, sidecarID, cmd)
}

func (m *Manager) ensure(ctx context.Context, targetID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sidecarID, ok := m.sidecars[targetID]; ok {
		return sidecarID, nil
	}

	config := &container.Config{
		Image: m.image,
		Cmd:   []string{"sleep", "infinity"},
		Tty:   true,
	}
	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode("container:" + targetID),
		CapAdd:      []string{"NET_ADMIN", "NET_RAW"},
		AutoRemove:  true,
	}

	name := fmt.Sprintf("chaos-sidecar-%s", shortID(targetID))
	resp, err := m.docker.ContainerCreate(ctx, config, hostConfig, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return "", fmt.Errorf("failed to create sidecar container: %w", err)
	}

	if err := m.docker.ContainerStart(ctx, resp.ID); err != nil {
		return "", fmt.Errorf("failed to start sidecar container: %w", err)
	}

	m.sidecars[targetID] = resp.ID
	m.logger.Info("Created sidecar", "sidecar", shortID(resp.ID), "target", shortID(targetID))
	return resp.ID, nil
}

// Destroy removes the sidecar attached to targetID. It is a no-op when none
// exists.
func (m *Manager) Destroy(ctx context.Context, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.destroyLocked(ctx, targetID)
}

func (m *Manager) destroyLocked(ctx context.Context, targetID string) error {
	sidecarID, ok := m.sidecars[targetID]
	if !ok {
		return nil
	}

	if err := m.docker.ContainerStop(ctx, sidecarID, 10); err != nil && !isGone(err) {
		return fmt.Errorf("failed to stop sidecar: %w", err)
	}
	if err := m.docker.ContainerRemove(ctx, sidecarID); err != nil && !isGone(err) {
		return fmt.Errorf("failed to remove sidecar: %w", err)
	}

	delete(m.sidecars, targetID)
	m.logger.Info("Destroyed sidecar", "target", shortID(targetID))
	return nil
}

// DestroyAll removes every sidecar the manager created.
func (m *Manager) DestroyAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for targetID := range m.sidecars {
		errs = multierr.Append(errs, m.destroyLocked(ctx, targetID))
	}
	return errs
}

// Sidecars returns a copy of the target to sidecar mapping.
func (m *Manager) Sidecars() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.sidecars))
	for k, v := range m.sidecars {
		out[k] = v
	}
	return out
}

// isGone matches the docker errors returned for containers that already
// stopped or were auto-removed.
func isGone(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "is already stopped") ||
		strings.Contains(msg, "No such container") ||
		strings.Contains(msg, "removal of container") ||
		strings.Contains(msg, "is already in progress")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
