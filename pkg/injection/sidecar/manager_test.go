package sidecar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocker struct {
	created []*container.HostConfig
	started []string
	removed []string
	execs   map[string][][]string
	stopErr error
	next    int
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{execs: make(map[string][][]string)}
}

func (f *fakeDocker) ContainerCreate(_ context.Context, _ *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *specs.Platform, _ string) (container.CreateResponse, error) {
	f.next++
	f.created = append(f.created, hostConfig)
	return container.CreateResponse{ID: fmt.Sprintf("sidecar-%d", f.next)}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeDocker) ContainerStop(context.Context, string, int) error {
	return f.stopErr
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDocker) ExecCommand(_ context.Context, id string, cmd []string) (string, error) {
	f.execs[id] = append(f.execs[id], cmd)
	return "", nil
}

func TestExecCreatesSidecarOnce(t *testing.T) {
	docker := newFakeDocker()
	m := New(docker, "", nil)
	ctx := context.Background()

	_, err := m.Exec(ctx, "target-a", []string{"iptables", "-L"})
	require.NoError(t, err)
	_, err = m.Exec(ctx, "target-a", []string{"tc", "qdisc", "show"})
	require.NoError(t, err)

	require.Len(t, docker.created, 1)
	assert.Equal(t, container.NetworkMode("container:target-a"), docker.created[0].NetworkMode)
	assert.Contains(t, docker.created[0].CapAdd, "NET_ADMIN")
	assert.Len(t, docker.execs["sidecar-1"], 2)
}

func TestDestroyAllRemovesEverySidecar(t *testing.T) {
	docker := newFakeDocker()
	m := New(docker, "", nil)
	ctx := context.Background()

	_, _ = m.Exec(ctx, "a", []string{"true"})
	_, _ = m.Exec(ctx, "b", []string{"true"})

	require.NoError(t, m.DestroyAll(ctx))
	assert.ElementsMatch(t, []string{"sidecar-1", "sidecar-2"}, docker.removed)
	assert.Empty(t, m.Sidecars())

	// Nothing left to destroy.
	require.NoError(t, m.DestroyAll(ctx))
}

func TestDestroyToleratesStoppedContainer(t *testing.T) {
	docker := newFakeDocker()
	docker.stopErr = errors.New("Error response from daemon: No such container: sidecar-1")
	m := New(docker, "", nil)
	ctx := context.Background()

	_, _ = m.Exec(ctx, "a", []string{"true"})
	assert.NoError(t, m.Destroy(ctx, "a"))
	assert.NoError(t, m.Destroy(ctx, "missing"))
}
