package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the realistic-delay preset: NewSnapshot's defaults.
func Default() *Snapshot {
	return NewSnapshot()
}

// Instant returns a preset with every delay zeroed, for fast deterministic
// tests. The scan discovery interval is set to 1ms rather than zero.
func Instant() *Snapshot {
	s := NewSnapshot()
	s.StateUpdateDelay = 0
	s.ScanDiscoveryInterval = time.Millisecond
	s.ConnectionDelay = 0
	s.DisconnectionDelay = 0
	s.ServiceDiscoveryDelay = 0
	s.CharacteristicDiscoveryDelay = 0
	s.DescriptorDiscoveryDelay = 0
	s.ReadDelay = 0
	s.WriteDelay = 0
	s.NotificationDelay = 0
	s.PairingDelay = 0
	s.BackpressureProcessingDelay = 0
	return s
}

// Slow returns a preset with elongated delays, a small MTU, and
// back-pressure enabled — for exercising timeout and queueing paths.
func Slow() *Snapshot {
	s := NewSnapshot()
	s.StateUpdateDelay = 500 * time.Millisecond
	s.ScanDiscoveryInterval = time.Second
	s.ConnectionDelay = time.Second
	s.DisconnectionDelay = 500 * time.Millisecond
	s.ServiceDiscoveryDelay = 500 * time.Millisecond
	s.CharacteristicDiscoveryDelay = 500 * time.Millisecond
	s.DescriptorDiscoveryDelay = 400 * time.Millisecond
	s.ReadDelay = 300 * time.Millisecond
	s.WriteDelay = 300 * time.Millisecond
	s.NotificationDelay = 300 * time.Millisecond
	s.PairingDelay = 2 * time.Second
	s.BackpressureProcessingDelay = 500 * time.Millisecond
	s.DefaultMTU = 23
	s.MaximumMTU = 23
	s.SimulateBackpressure = true
	s.MaxWriteWithoutResponseQueue = 3
	s.MaxNotificationQueue = 3
	return s
}

// Unreliable returns a preset with non-zero connection and read/write
// error-injection rates.
func Unreliable() *Snapshot {
	s := NewSnapshot()
	s.SimulateConnectionFailure = true
	s.ConnectionFailureRate = 0.2
	s.SimulateReadWriteErrors = true
	s.ReadWriteErrorRate = 0.2
	return s
}

// LoadPreset reads a YAML document from r into a copy of base (or
// NewSnapshot() if base is nil), overriding only the fields present in the
// document. Unknown fields are rejected.
func LoadPreset(r io.Reader, base *Snapshot) (*Snapshot, error) {
	if base == nil {
		base = NewSnapshot()
	} else {
		base = base.Clone()
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(base); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode preset: %w", err)
	}
	return base, nil
}
