package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, Load())
}

func TestDefaults(t *testing.T) {
	load(t)

	assert.Equal(t, ":8080", APIAddr())
	assert.Equal(t, "file", ReadingSource())
	assert.Equal(t, "data/live.json", ReadingPath())
	assert.Equal(t, 200.0, SamplingRate())
	assert.Equal(t, 2*time.Second, CycleInterval())
	assert.False(t, HistoryEnabled())
	assert.False(t, UseCloudServices())
	assert.Equal(t, zerolog.InfoLevel, LogLevel())

	cfg := Training()
	assert.Equal(t, 200, cfg.Trees)
	assert.Equal(t, 0.01, cfg.Contamination)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "iforest", cfg.Name)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("READING_SOURCE", "MQTT")
	t.Setenv("CYCLE_INTERVAL", "500ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HISTORY_ENABLED", "true")
	load(t)

	assert.Equal(t, "mqtt", ReadingSource())
	assert.Equal(t, 500*time.Millisecond, CycleInterval())
	assert.Equal(t, zerolog.DebugLevel, LogLevel())
	assert.True(t, HistoryEnabled())
}

func TestLogLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	load(t)
	assert.Equal(t, zerolog.InfoLevel, LogLevel())
}

func TestCalibration(t *testing.T) {
	load(t)
	c, err := Calibration()
	require.NoError(t, err)
	assert.Equal(t, -0.2, c.LowBound)
	assert.Equal(t, 0.2, c.HighBound)

	t.Setenv("HEALTH_LOW_BOUND", "0.3")
	_, err = Calibration()
	assert.Error(t, err)

	t.Setenv("HEALTH_LOW_BOUND", "-Inf")
	_, err = Calibration()
	assert.ErrorContains(t, err, "finite")
}

func TestDefaultPolicy(t *testing.T) {
	load(t)
	p, err := Policy()
	require.NoError(t, err)
	require.Len(t, p.Components, 4)
	assert.Equal(t, 12.0, p.DamageScale)
	assert.Equal(t, "P1", p.Components[0].ID)
	assert.Equal(t, 1.0, p.Components[0].Weight)
	assert.Equal(t, 0.25, p.Components[3].Weight)
}

func TestPolicyWeights(t *testing.T) {
	t.Setenv("PILLARS", "north, south")
	t.Setenv("PILLAR_WEIGHTS", "0.5, 2")
	t.Setenv("DAMAGE_SCALE", "10")
	load(t)

	p, err := Policy()
	require.NoError(t, err)
	require.Len(t, p.Components, 2)
	assert.Equal(t, "south", p.Components[1].ID)
	assert.Equal(t, 2.0, p.Components[1].Weight)
	assert.Equal(t, 10.0, p.DamageScale)
}

func TestPolicyWeightMismatch(t *testing.T) {
	t.Setenv("PILLAR_WEIGHTS", "1,2")
	load(t)
	_, err := Policy()
	assert.ErrorContains(t, err, "PILLAR_WEIGHTS has 2 entries")

	t.Setenv("PILLAR_WEIGHTS", "1,x,1,1")
	_, err = Policy()
	assert.Error(t, err)
}

func TestPolicyWithoutPillars(t *testing.T) {
	t.Setenv("PILLARS", " , ")
	load(t)
	_, err := Policy()
	assert.Error(t, err)
}

func TestPolicyRejectsNonFiniteScale(t *testing.T) {
	t.Setenv("DAMAGE_SCALE", "Inf")
	load(t)
	_, err := Policy()
	assert.ErrorContains(t, err, "finite")

	t.Setenv("DAMAGE_SCALE", "12")
	t.Setenv("PILLAR_WEIGHTS", "1,NaN,1,1")
	_, err = Policy()
	assert.Error(t, err)
}
