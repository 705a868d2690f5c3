// Package config loads the chaos-scheduler YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"

	"github.com/jihwankim/chaos-scheduler/pkg/core/scheduler"
	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/profile"
)

// Backend types.
const (
	BackendDocker = "docker"
	BackendLocal  = "local"
	BackendDryRun = "dry_run"
)

// Config represents the chaos-scheduler configuration
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Backend   BackendConfig   `yaml:"backend"`
	Docker    DockerConfig    `yaml:"docker"`
	Kurtosis  KurtosisConfig  `yaml:"kurtosis"`
	Targets   []string        `yaml:"targets"`
	Network   NetworkConfig   `yaml:"network"`
	Reporting ReportingConfig `yaml:"reporting"`
	Emergency EmergencyConfig `yaml:"emergency"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// FrameworkConfig contains general settings
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// SchedulerConfig contains the run loop timings
type SchedulerConfig struct {
	Profile        string         `yaml:"profile"`
	TickInterval   model.Duration `yaml:"tick_interval"`
	ApplyTimeout   model.Duration `yaml:"apply_timeout"`
	CleanupTimeout model.Duration `yaml:"cleanup_timeout"`
	Duration       model.Duration `yaml:"duration"`

	// Seed makes meta-fault draws reproducible. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// BackendConfig selects how network faults are installed
type BackendConfig struct {
	// Type is docker (sidecar per target container), local (this host's
	// network namespace) or dry_run (nothing is touched)
	Type   string `yaml:"type"`
	Device string `yaml:"device"`
}

// DockerConfig contains Docker settings for sidecar management
type DockerConfig struct {
	SidecarImage string `yaml:"sidecar_image"`
}

// KurtosisConfig resolves targets from a Kurtosis enclave when set
type KurtosisConfig struct {
	EnclaveName    string `yaml:"enclave_name"`
	ServicePattern string `yaml:"service_pattern"`
}

// NetworkConfig contains the parameters of the network faults
type NetworkConfig struct {
	Partition PartitionConfig `yaml:"partition"`
	Latency   LatencyConfig   `yaml:"latency"`
}

// PartitionConfig mirrors faults.PartitionParams
type PartitionConfig struct {
	Peers     []string `yaml:"peers"`
	Ports     string   `yaml:"ports"`
	Protocol  string   `yaml:"protocol"`
	Direction string   `yaml:"direction"`
}

// LatencyConfig mirrors faults.LatencyParams
type LatencyConfig struct {
	Device      string         `yaml:"device"`
	Delay       model.Duration `yaml:"delay"`
	Jitter      model.Duration `yaml:"jitter"`
	Correlation float64        `yaml:"correlation"`
}

// ReportingConfig contains reporting and output settings
type ReportingConfig struct {
	OutputDir string   `yaml:"output_dir"`
	KeepLastN int      `yaml:"keep_last_n"`
	Formats   []string `yaml:"formats"`
}

// EmergencyConfig contains emergency stop settings
type EmergencyConfig struct {
	StopFile     string         `yaml:"stop_file"`
	PollInterval model.Duration `yaml:"poll_interval"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Scheduler: SchedulerConfig{
			Profile:        "faulty",
			TickInterval:   model.Duration(time.Second),
			ApplyTimeout:   model.Duration(30 * time.Second),
			CleanupTimeout: model.Duration(30 * time.Second),
		},
		Backend: BackendConfig{
			Type:   BackendDocker,
			Device: faults.DefaultDevice,
		},
		Docker: DockerConfig{
			SidecarImage: "nicolaka/netshoot:latest",
		},
		Targets: []string{"*"},
		Network: NetworkConfig{
			Partition: PartitionConfig{
				Protocol:  "all",
				Direction: "both",
			},
			Latency: LatencyConfig{
				Delay: model.Duration(faults.DefaultLatencyDelay),
			},
		},
		Reporting: ReportingConfig{
			OutputDir: "./reports",
			KeepLastN: 50,
			Formats:   []string{"json"},
		},
		Emergency: EmergencyConfig{
			StopFile:     "/tmp/chaos-emergency-stop",
			PollInterval: model.Duration(time.Second),
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9464",
		},
	}
}

// Load loads configuration from a YAML file. Environment variables in the
// file are expanded. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expandedData, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := profile.Lookup(c.Scheduler.Profile); err != nil {
		return fmt.Errorf("scheduler.profile: %w", err)
	}

	if c.Scheduler.TickInterval <= 0 {
		return faults.Configf("scheduler.tick_interval", "must be positive")
	}
	if c.Scheduler.ApplyTimeout < 0 || c.Scheduler.CleanupTimeout < 0 || c.Scheduler.Duration < 0 {
		return faults.Configf("scheduler", "timeouts and duration must not be negative")
	}

	switch c.Backend.Type {
	case BackendDocker:
		if c.Docker.SidecarImage == "" {
			return faults.Configf("docker.sidecar_image", "required for the docker backend")
		}
		if len(c.Targets) == 0 && c.Kurtosis.EnclaveName == "" {
			return faults.Configf("targets", "docker backend needs target patterns or a kurtosis enclave")
		}
	case BackendLocal, BackendDryRun:
	default:
		return faults.Configf("backend.type", "must be docker, local or dry_run, got %q", c.Backend.Type)
	}

	if err := c.PartitionParams().Validate(); err != nil {
		return fmt.Errorf("network.partition: %w", err)
	}
	if err := c.LatencyParams().Validate(); err != nil {
		return fmt.Errorf("network.latency: %w", err)
	}

	if c.Reporting.OutputDir == "" {
		return faults.Configf("reporting.output_dir", "required")
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return faults.Configf("metrics.listen_address", "required when metrics are enabled")
	}

	return nil
}

// SchedulerOptions converts the scheduler section.
func (c *Config) SchedulerOptions() scheduler.Config {
	return scheduler.Config{
		TickInterval:   time.Duration(c.Scheduler.TickInterval),
		ApplyTimeout:   time.Duration(c.Scheduler.ApplyTimeout),
		CleanupTimeout: time.Duration(c.Scheduler.CleanupTimeout),
		Duration:       time.Duration(c.Scheduler.Duration),
	}
}

// PartitionParams converts the partition section, with defaults applied.
func (c *Config) PartitionParams() faults.PartitionParams {
	p := c.Network.Partition
	return faults.PartitionParams{
		Peers:     append([]string(nil), p.Peers...),
		Ports:     p.Ports,
		Protocol:  p.Protocol,
		Direction: p.Direction,
	}.WithDefaults()
}

// LatencyParams converts the latency section, with defaults applied.
func (c *Config) LatencyParams() faults.LatencyParams {
	l := c.Network.Latency
	device := l.Device
	if device == "" {
		device = c.Backend.Device
	}
	return faults.LatencyParams{
		Device:      device,
		Delay:       time.Duration(l.Delay),
		Jitter:      time.Duration(l.Jitter),
		Correlation: l.Correlation,
	}.WithDefaults()
}
