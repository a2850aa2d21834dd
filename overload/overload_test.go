package overload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoreEvaluate_AdmitsBelowThreshold(t *testing.T) {
	d := CoreEvaluate(50, 100)
	assert.True(t, d.Admit)
	assert.Equal(t, 50, d.LoadPercent)
	assert.False(t, d.Triggered)
}

func TestCoreEvaluate_RejectsAtThreshold(t *testing.T) {
	d := CoreEvaluate(90, 100)
	assert.False(t, d.Admit)
	assert.True(t, d.Triggered)
}

func TestCoreEvaluate_ZeroCapacityAlwaysRejects(t *testing.T) {
	d := CoreEvaluate(0, 0)
	assert.False(t, d.Admit)
	assert.Equal(t, 100, d.LoadPercent)
	assert.True(t, d.Triggered)
}

func TestIsomorphismSweep_IdenticalPolicyPasses(t *testing.T) {
	ok, failingUsed := IsomorphismSweep(100, CoreEvaluate)
	assert.True(t, ok)
	assert.Equal(t, -1, failingUsed)
}

func TestIsomorphismSweep_LooserAcceleratedPolicyFailsSweep(t *testing.T) {
	looser := func(used, capacity int) Decision {
		return Decision{Admit: true, LoadPercent: used * 100 / capacity}
	}
	ok, failingUsed := IsomorphismSweep(100, looser)
	assert.False(t, ok)
	assert.Equal(t, 90, failingUsed)
}

func TestIsomorphismSweep_StricterAcceleratedPolicyPasses(t *testing.T) {
	stricter := func(used, capacity int) Decision {
		core := CoreEvaluate(used, capacity)
		if core.LoadPercent >= 80 {
			return Decision{Admit: false, LoadPercent: core.LoadPercent, Triggered: true}
		}
		return core
	}
	ok, failingUsed := IsomorphismSweep(100, stricter)
	assert.True(t, ok)
	assert.Equal(t, -1, failingUsed)
}
