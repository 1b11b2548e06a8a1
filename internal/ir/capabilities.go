package ir

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Number is the set of value types a capability field may hold.
type Number interface {
	~int64 | ~float64
}

// Opt is an optional capability value. The zero Opt is absent, which is
// distinct from a present zero.
type Opt[T Number] struct {
	v  T
	ok bool
}

// Some returns a present Opt holding v.
func Some[T Number](v T) Opt[T] {
	return Opt[T]{v: v, ok: true}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.v, o.ok
}

// Or returns the value if present, def otherwise.
func (o Opt[T]) Or(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// IsSet reports whether the value is present.
func (o Opt[T]) IsSet() bool {
	return o.ok
}

// IsZero reports whether the value is absent. Used by omitzero / omitempty.
func (o Opt[T]) IsZero() bool {
	return !o.ok
}

// MarshalJSON encodes an absent value as null.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

// UnmarshalJSON decodes null as absent.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// MarshalYAML encodes an absent value as null.
func (o Opt[T]) MarshalYAML() (any, error) {
	if !o.ok {
		return nil, nil
	}
	return o.v, nil
}

// UnmarshalYAML decodes null as absent.
func (o *Opt[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*o = Some(v)
	return nil
}

// String renders the value or "absent".
func (o Opt[T]) String() string {
	if !o.ok {
		return "absent"
	}
	return fmt.Sprint(o.v)
}

// Capabilities is the flattened, read-only hardware capability snapshot.
// Every field is optional; absence means unconstrained, and the pass that
// reads it falls back to a conservative default.
type Capabilities struct {
	MaxNeuronsPerCore         Opt[int64]   `json:"max_neurons_per_core,omitzero" yaml:"max_neurons_per_core,omitempty"`
	MaxSynapsesPerCore        Opt[int64]   `json:"max_synapses_per_core,omitzero" yaml:"max_synapses_per_core,omitempty"`
	MaxFanIn                  Opt[int64]   `json:"max_fan_in,omitzero" yaml:"max_fan_in,omitempty"`
	MaxFanOut                 Opt[int64]   `json:"max_fan_out,omitzero" yaml:"max_fan_out,omitempty"`
	CoreMemoryKiB             Opt[float64] `json:"core_memory_kib,omitzero" yaml:"core_memory_kib,omitempty"`
	InterconnectBandwidthMbps Opt[float64] `json:"interconnect_bandwidth_mbps,omitzero" yaml:"interconnect_bandwidth_mbps,omitempty"`
	TimeResolutionNs          Opt[int64]   `json:"time_resolution_ns,omitzero" yaml:"time_resolution_ns,omitempty"`
	NeuronMemKiBPer           Opt[float64] `json:"neuron_mem_kib_per,omitzero" yaml:"neuron_mem_kib_per,omitempty"`
	SynMemKiBPer              Opt[float64] `json:"syn_mem_kib_per,omitzero" yaml:"syn_mem_kib_per,omitempty"`
	BytesPerEvent             Opt[int64]   `json:"bytes_per_event,omitzero" yaml:"bytes_per_event,omitempty"`
	DefaultSpikeRateHz        Opt[float64] `json:"default_spike_rate_hz,omitzero" yaml:"default_spike_rate_hz,omitempty"`
}
