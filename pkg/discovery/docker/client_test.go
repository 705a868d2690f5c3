package docker

import (
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/network"
	"github.com/stretchr/testify/assert"
)

func TestToTarget(t *testing.T) {
	ctr := types.Container{
		ID:     "0123456789abcdef",
		Names:  []string{"/l2-el-1-bor"},
		Labels: map[string]string{"role": "rpc"},
		NetworkSettings: &types.SummaryNetworkSettings{
			Networks: map[string]*network.EndpointSettings{
				"kt": {IPAddress: "172.16.0.4"},
			},
		},
	}

	target := toTarget(ctr)

	assert.Equal(t, "l2-el-1-bor", target.Name)
	assert.Equal(t, "0123456789abcdef", target.ContainerID)
	assert.Equal(t, "172.16.0.4", target.IP)
	assert.Equal(t, "rpc", target.Labels["role"])
}

func TestToTargetWithoutNetworks(t *testing.T) {
	target := toTarget(types.Container{ID: "abc", Names: []string{"/solo"}})

	assert.Equal(t, "solo", target.Name)
	assert.Empty(t, target.IP)
}
