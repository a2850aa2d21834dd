package detkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionEntity_AdmissionRefusesPoisonedAndNotOpen(t *testing.T) {
	r := newRegionEntity(4, 64)
	require.NoError(t, r.checkAdmission("Task.Spawn"))

	r.poison()
	err := r.checkAdmission("Task.Spawn")
	require.Error(t, err)
	assert.Equal(t, StatusRegionPoisoned, StatusOf(err))

	r2 := newRegionEntity(4, 64)
	require.NoError(t, r2.transitionTo(RegionClosing))
	err = r2.checkAdmission("Task.Spawn")
	require.Error(t, err)
	assert.Equal(t, StatusRegionNotOpen, StatusOf(err))
}

func TestRegionEntity_TaskAndObligationBookkeeping(t *testing.T) {
	r := newRegionEntity(4, 64)
	h1, h2 := Handle(1), Handle(2)
	r.addTask(h1)
	r.addTask(h2)
	assert.Equal(t, 2, r.taskCount())
	r.removeTask(h1)
	assert.Equal(t, 1, r.taskCount())

	o1 := Handle(3)
	r.addObligation(o1)
	assert.Equal(t, 1, r.obligationCount())
	r.removeObligation(o1)
	assert.Equal(t, 0, r.obligationCount())
}

func TestRegionEntity_AllocCaptureBumpsAndExhausts(t *testing.T) {
	r := newRegionEntity(4, 8)
	b1, err := r.allocCapture(4)
	require.NoError(t, err)
	assert.Len(t, b1, 4)

	b2, err := r.allocCapture(4)
	require.NoError(t, err)
	assert.Len(t, b2, 4)

	_, err = r.allocCapture(1)
	require.Error(t, err)
	assert.Equal(t, StatusResourceExhausted, StatusOf(err))
}

func TestRegionEntity_TransitionToValidatesTable(t *testing.T) {
	r := newRegionEntity(4, 64)
	require.NoError(t, r.transitionTo(RegionClosing))
	err := r.transitionTo(RegionOpen)
	require.Error(t, err)
	assert.Equal(t, StatusInvalidTransition, StatusOf(err))
}
