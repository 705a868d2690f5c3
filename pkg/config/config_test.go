package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("CHAOS_ENCLAVE", "pos-devnet")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scheduler:
  profile: mixed
  tick_interval: 500ms
  duration: 10m
  seed: 42
backend:
  type: dry_run
kurtosis:
  enclave_name: ${CHAOS_ENCLAVE}
  service_pattern: "^l2-el-"
network:
  partition:
    peers: ["10.0.0.0/24"]
    ports: "30303"
    protocol: tcp
    direction: in
  latency:
    delay: 250ms
    jitter: 50ms
    correlation: 25
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "mixed", cfg.Scheduler.Profile)
	assert.Equal(t, model.Duration(500*time.Millisecond), cfg.Scheduler.TickInterval)
	assert.Equal(t, int64(42), cfg.Scheduler.Seed)
	assert.Equal(t, "pos-devnet", cfg.Kurtosis.EnclaveName)

	sc := cfg.SchedulerOptions()
	assert.Equal(t, 10*time.Minute, sc.Duration)
	assert.Equal(t, 30*time.Second, sc.CleanupTimeout, "unset fields keep defaults")

	assert.Equal(t, faults.PartitionParams{
		Peers:     []string{"10.0.0.0/24"},
		Ports:     "30303",
		Protocol:  "tcp",
		Direction: "in",
	}, cfg.PartitionParams())

	assert.Equal(t, faults.LatencyParams{
		Device:      "eth0",
		Delay:       250 * time.Millisecond,
		Jitter:      50 * time.Millisecond,
		Correlation: 25,
	}, cfg.LatencyParams())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Scheduler.Duration = model.Duration(5 * time.Minute)
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Scheduler, loaded.Scheduler)
	assert.Equal(t, cfg.Backend, loaded.Backend)
	assert.Equal(t, cfg.Targets, loaded.Targets)
	assert.Equal(t, cfg.LatencyParams(), loaded.LatencyParams())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown profile", func(c *Config) { c.Scheduler.Profile = "nope" }},
		{"zero tick", func(c *Config) { c.Scheduler.TickInterval = 0 }},
		{"negative duration", func(c *Config) { c.Scheduler.Duration = model.Duration(-time.Second) }},
		{"unknown backend", func(c *Config) { c.Backend.Type = "ssh" }},
		{"docker without image", func(c *Config) { c.Docker.SidecarImage = "" }},
		{"docker without targets", func(c *Config) { c.Targets = nil }},
		{"bad direction", func(c *Config) { c.Network.Partition.Direction = "sideways" }},
		{"bad peer", func(c *Config) { c.Network.Partition.Peers = []string{"not-an-ip"} }},
		{"bad correlation", func(c *Config) { c.Network.Latency.Correlation = 150 }},
		{"no output dir", func(c *Config) { c.Reporting.OutputDir = "" }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
