package detkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObligationEntity_CommitResolvesOnce(t *testing.T) {
	o := newObligationEntity(Handle(1))
	require.NoError(t, o.commit())
	assert.Equal(t, ObligationCommitted, o.getState())

	err := o.commit()
	require.Error(t, err)
	assert.Equal(t, StatusObligationAlreadyResolved, StatusOf(err))
}

func TestObligationEntity_AbortResolvesOnce(t *testing.T) {
	o := newObligationEntity(Handle(1))
	require.NoError(t, o.abort())
	assert.Equal(t, ObligationAborted, o.getState())

	err := o.abort()
	require.Error(t, err)
	assert.Equal(t, StatusObligationAlreadyResolved, StatusOf(err))
}

func TestObligationEntity_LeakOnlyAppliesToReserved(t *testing.T) {
	o := newObligationEntity(Handle(1))
	require.NoError(t, o.leak())
	assert.Equal(t, ObligationLeaked, o.getState())

	o2 := newObligationEntity(Handle(1))
	require.NoError(t, o2.commit())
	err := o2.leak()
	require.Error(t, err)
	assert.Equal(t, StatusObligationAlreadyResolved, StatusOf(err))
}
