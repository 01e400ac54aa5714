// Package config defines the EmulatorBus's immutable configuration
// snapshot and the named presets applications install it from.
package config

import (
	"time"

	defaults "github.com/mcuadros/go-defaults"
)

// Snapshot is an immutable record of timing, error-injection, MTU, queue,
// scan, security, restoration, and event-firing parameters. A Snapshot is
// installed atomically on the bus via Bus.Configure and is never mutated
// after construction — callers that want different behavior build a new
// Snapshot.
type Snapshot struct {
	// Timing delays, one per operation category (spec.md §4.1).
	StateUpdateDelay          time.Duration `default:"50ms"`
	ScanDiscoveryInterval     time.Duration `default:"200ms"`
	ConnectionDelay           time.Duration `default:"150ms"`
	DisconnectionDelay        time.Duration `default:"50ms"`
	ServiceDiscoveryDelay     time.Duration `default:"100ms"`
	CharacteristicDiscoveryDelay time.Duration `default:"100ms"`
	DescriptorDiscoveryDelay  time.Duration `default:"80ms"`
	ReadDelay                 time.Duration `default:"30ms"`
	WriteDelay                time.Duration `default:"30ms"`
	NotificationDelay         time.Duration `default:"20ms"`
	PairingDelay              time.Duration `default:"300ms"`
	BackpressureProcessingDelay time.Duration `default:"50ms"`

	// RSSI simulation.
	RSSILow      int `default:"-90"`
	RSSIHigh     int `default:"-40"`
	RSSIVariation int `default:"5"`

	// Error injection.
	SimulateConnectionFailure bool    `default:"false"`
	ConnectionFailureRate     float64 `default:"0"`
	SimulateReadWriteErrors   bool    `default:"false"`
	ReadWriteErrorRate        float64 `default:"0"`

	// MTU.
	DefaultMTU int `default:"23"`
	MaximumMTU int `default:"517"`

	// Back-pressure.
	MaxWriteWithoutResponseQueue int  `default:"20"`
	MaxNotificationQueue         int  `default:"20"`
	SimulateBackpressure         bool `default:"false"`

	// Security.
	RequirePairing  bool `default:"false"`
	SimulatePairing bool `default:"false"`
	PairingSucceeds bool `default:"true"`

	// Scan options.
	HonorAllowDuplicatesOption bool `default:"true"`
	HonorSolicitedServiceUUIDs bool `default:"true"`

	// Restoration.
	StateRestorationEnabled bool `default:"true"`

	// Connection events.
	FireConnectionEvents         bool `default:"false"`
	FireANCSAuthorizationUpdates bool `default:"false"`

	// Advertisement synthesis.
	AutoGenerateAdvertisementFields bool `default:"true"`
}

// NewSnapshot returns a Snapshot with every field set to its struct-tag
// default, the same construct-then-populate-defaults idiom the teacher uses
// for its own Config (github.com/mcuadros/go-defaults applies `default:"..."`
// tags via reflection — worthwhile here because Snapshot carries far more
// tunables than the teacher's Config did).
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	defaults.SetDefaults(s)
	return s
}

// Clone returns a shallow copy of s. Snapshot has no pointer/slice fields,
// so a shallow copy is a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	cp := *s
	return &cp
}

// RSSIRange returns the configured low/high bounds for simulated RSSI
// sampling.
func (s *Snapshot) RSSIRange() (low, high int) {
	return s.RSSILow, s.RSSIHigh
}
