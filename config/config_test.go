package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotAppliesDefaults(t *testing.T) {
	s := NewSnapshot()
	assert.Equal(t, 23, s.DefaultMTU)
	assert.Equal(t, 517, s.MaximumMTU)
	assert.Equal(t, 50*time.Millisecond, s.StateUpdateDelay)
	assert.False(t, s.SimulateBackpressure)
}

func TestInstantPresetZeroesDelays(t *testing.T) {
	s := Instant()
	assert.Zero(t, s.StateUpdateDelay)
	assert.Zero(t, s.ConnectionDelay)
	assert.Zero(t, s.ReadDelay)
	assert.Zero(t, s.WriteDelay)
}

func TestSlowPresetEnablesBackpressure(t *testing.T) {
	s := Slow()
	assert.True(t, s.SimulateBackpressure)
	assert.Equal(t, 3, s.MaxWriteWithoutResponseQueue)
	assert.Greater(t, s.ConnectionDelay, 500*time.Millisecond)
}

func TestUnreliablePresetInjectsErrors(t *testing.T) {
	s := Unreliable()
	assert.True(t, s.SimulateConnectionFailure)
	assert.Greater(t, s.ConnectionFailureRate, 0.0)
	assert.True(t, s.SimulateReadWriteErrors)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewSnapshot()
	c := s.Clone()
	c.DefaultMTU = 99
	assert.NotEqual(t, s.DefaultMTU, c.DefaultMTU)
}

func TestLoadPresetOverridesOnlyGivenFields(t *testing.T) {
	yamlDoc := `defaultmtu: 100`
	s, err := LoadPreset(strings.NewReader(yamlDoc), Instant())
	require.NoError(t, err)
	assert.Equal(t, 100, s.DefaultMTU)
	assert.Zero(t, s.ConnectionDelay, "unspecified fields should keep the base preset's value")
}
