package faults

// Registry constructs faults bound to a single network backend.
// Construction has no side effects; the backend is only touched by Apply
// and Clear.
type Registry struct {
	backend   NetworkBackend
	partition PartitionParams
	latency   LatencyParams
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPartitionDefaults sets the parameters presets use for partitions.
func WithPartitionDefaults(p PartitionParams) RegistryOption {
	return func(r *Registry) {
		r.partition = p
	}
}

// WithLatencyDefaults sets the parameters presets use for latency faults.
func WithLatencyDefaults(p LatencyParams) RegistryOption {
	return func(r *Registry) {
		r.latency = p
	}
}

// NewRegistry creates a registry for backend.
func NewRegistry(backend NetworkBackend, opts ...RegistryOption) *Registry {
	r := &Registry{backend: backend}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PartitionDefaults returns the configured partition parameters.
func (r *Registry) PartitionDefaults() PartitionParams {
	return r.partition
}

// LatencyDefaults returns the configured latency parameters.
func (r *Registry) LatencyDefaults() LatencyParams {
	return r.latency
}

// Backend returns the backend faults are bound to.
func (r *Registry) Backend() NetworkBackend {
	return r.backend
}

// ClearNetworkFaults returns the fault that removes every network fault.
func (r *Registry) ClearNetworkFaults() Fault {
	return &SimpleFault{
		name:    "clear_network_faults",
		kind:    KindClearNetwork,
		backend: r.backend,
	}
}

// IntroduceNetworkPartition returns a fault that drops traffic as described
// by params. Zero-valued fields take defaults.
func (r *Registry) IntroduceNetworkPartition(params PartitionParams) (Fault, error) {
	if r.backend == nil {
		return nil, Configf("backend", "no network backend configured")
	}
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &SimpleFault{
		name:      "introduce_network_partition",
		kind:      KindNetworkPartition,
		partition: params,
		backend:   r.backend,
	}, nil
}

// IntroduceNetworkLatency returns a fault that delays egress traffic.
// Zero-valued fields take defaults.
func (r *Registry) IntroduceNetworkLatency(params LatencyParams) (Fault, error) {
	if r.backend == nil {
		return nil, Configf("backend", "no network backend configured")
	}
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &SimpleFault{
		name:    "introduce_network_latency",
		kind:    KindNetworkLatency,
		latency: params,
		backend: r.backend,
	}, nil
}

// New builds a fault from its kind and declarative parameters.
func (r *Registry) New(kind Kind, params map[string]interface{}) (Fault, error) {
	switch kind {
	case KindClearNetwork:
		if len(params) > 0 {
			return nil, Configf("params", "%s takes no parameters", kind)
		}
		if r.backend == nil {
			return nil, Configf("backend", "no network backend configured")
		}
		return r.ClearNetworkFaults(), nil
	case KindNetworkPartition:
		p, err := partitionFromMap(params)
		if err != nil {
			return nil, err
		}
		return r.IntroduceNetworkPartition(p)
	case KindNetworkLatency:
		p, err := latencyFromMap(params)
		if err != nil {
			return nil, err
		}
		return r.IntroduceNetworkLatency(p)
	default:
		return nil, Configf("kind", "unknown fault kind %q", kind)
	}
}
