package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideUpdate_DeviationTrigger(t *testing.T) {
	// spec.md example 1: latestAnswer=2500, observed=2515, threshold=0.5%.
	shouldUpdate, reason := DecideUpdate(100, 3600, 2515.0, 2500.0, 0.5)
	assert.True(t, shouldUpdate)
	assert.Equal(t, ReasonDeviation, reason)
}

func TestDecideUpdate_TimeTrigger(t *testing.T) {
	// spec.md example 2: no deviation but the heartbeat interval elapsed.
	shouldUpdate, reason := DecideUpdate(3601, 3600, 2500.0, 2500.0, 0.5)
	assert.True(t, shouldUpdate)
	assert.Equal(t, ReasonTime, reason)
}

func TestDecideUpdate_NeitherTrigger(t *testing.T) {
	shouldUpdate, _ := DecideUpdate(100, 3600, 2500.0, 2500.0, 0.5)
	assert.False(t, shouldUpdate)
}

func TestDecideUpdate_ZeroOnChainValue(t *testing.T) {
	shouldUpdate, reason := DecideUpdate(0, 3600, 1.0, 0.0, 0.5)
	assert.True(t, shouldUpdate)
	assert.Equal(t, ReasonDeviation, reason)

	shouldUpdate, _ = DecideUpdate(0, 3600, 0.0, 0.0, 0.5)
	assert.False(t, shouldUpdate)
}

func TestDecideUpdate_ExactThresholdBoundary(t *testing.T) {
	// time_since_update == minimum_update_frequency should trigger (>=).
	shouldUpdate, reason := DecideUpdate(3600, 3600, 2500.0, 2500.0, 0.5)
	assert.True(t, shouldUpdate)
	assert.Equal(t, ReasonTime, reason)
}

func TestIsOutlier(t *testing.T) {
	assert.True(t, IsOutlier(2100.0, 1000.0))  // > 2x
	assert.True(t, IsOutlier(400.0, 1000.0))   // < 0.5x
	assert.False(t, IsOutlier(1100.0, 1000.0)) // within range
	assert.False(t, IsOutlier(5.0, 0.0))       // no baseline yet
}
