// Package docker resolves targets from the local docker daemon and wraps
// the container operations used by sidecars.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/jihwankim/chaos-scheduler/pkg/discovery"
	"github.com/jihwankim/chaos-scheduler/pkg/injection/command"
)

// Client wraps the Docker API client
type Client struct {
	cli *client.Client
}

// New creates a Docker client from the environment
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Client{cli: cli}, nil
}

// Close closes the Docker client connection
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// GetContainerByName finds a running container by exact name
func (c *Client) GetContainerByName(ctx context.Context, name string) (*discovery.Target, error) {
	containers, err := c.cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	for _, ctr := range containers {
		for _, ctrName := range ctr.Names {
			if ctrName == "/"+name || ctrName == name {
				target := toTarget(ctr)
				return &target, nil
			}
		}
	}

	return nil, fmt.Errorf("container not found: %s", name)
}

// FindTargets returns every running container whose name matches at least
// one of patterns.
func (c *Client) FindTargets(ctx context.Context, patterns []string) ([]discovery.Target, error) {
	containers, err := c.cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var targets []discovery.Target
	for _, ctr := range containers {
		for _, pattern := range patterns {
			if discovery.MatchAny(ctr.Names, pattern) {
				targets = append(targets, toTarget(ctr))
				break
			}
		}
	}

	return targets, nil
}

// ExecCommand executes a command in a container and returns its output.
// A non-zero exit is reported as *command.ExitError.
func (c *Client) ExecCommand(ctx context.Context, containerID string, cmd []string) (string, error) {
	execConfig := types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}

	execID, err := c.cli.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return "", fmt.Errorf("failed to create exec: %w", err)
	}

	resp, err := c.cli.ContainerExecAttach(ctx, execID.ID, types.ExecStartCheck{})
	if err != nil {
		return "", fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return stdout.String(), fmt.Errorf("failed to read output: %w", err)
	}
	output := stdout.String() + stderr.String()

	inspectResp, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return output, fmt.Errorf("failed to inspect exec: %w", err)
	}

	if inspectResp.ExitCode != 0 {
		return output, &command.ExitError{Cmd: cmd, Code: inspectResp.ExitCode, Output: output}
	}

	return output, nil
}

// ContainerCreate creates a new container
func (c *Client) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.CreateResponse, error) {
	return c.cli.ContainerCreate(ctx, config, hostConfig, networkingConfig, platform, containerName)
}

// ContainerStart starts a container
func (c *Client) ContainerStart(ctx context.Context, containerID string) error {
	return c.cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{})
}

// ContainerStop stops a container, waiting at most timeoutSeconds
func (c *Client) ContainerStop(ctx context.Context, containerID string, timeoutSeconds int) error {
	return c.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeoutSeconds})
}

// ContainerRemove force-removes a container
func (c *Client) ContainerRemove(ctx context.Context, containerID string) error {
	return c.cli.ContainerRemove(ctx, containerID, types.ContainerRemoveOptions{Force: true})
}

func toTarget(ctr types.Container) discovery.Target {
	target := discovery.Target{
		ContainerID: ctr.ID,
		Labels:      ctr.Labels,
	}
	if len(ctr.Names) > 0 {
		target.Name = strings.TrimPrefix(ctr.Names[0], "/")
	}
	if ctr.NetworkSettings != nil {
		for _, endpoint := range ctr.NetworkSettings.Networks {
			if endpoint != nil && endpoint.IPAddress != "" {
				target.IP = endpoint.IPAddress
				break
			}
		}
	}
	return target
}

// Resolver resolves targets by container name pattern.
type Resolver struct {
	Client   *Client
	Patterns []string
}

// Resolve implements discovery.Resolver.
func (r *Resolver) Resolve(ctx context.Context) ([]discovery.Target, error) {
	targets, err := r.Client.FindTargets(ctx, r.Patterns)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no containers match %v", r.Patterns)
	}
	return targets, nil
}
