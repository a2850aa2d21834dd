package detkernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerWheel_FiresInDeadlineOrder(t *testing.T) {
	w := NewTimerWheel(8, DefaultTimerMaxDuration)
	base := time.Unix(1000, 0)

	_, err := w.Register(base.Add(3*time.Second), 1, 0)
	require.NoError(t, err)
	_, err = w.Register(base.Add(1*time.Second), 2, 0)
	require.NoError(t, err)
	_, err = w.Register(base.Add(2*time.Second), 3, 0)
	require.NoError(t, err)

	fired := w.CollectExpired(base.Add(5*time.Second), 16)
	require.Len(t, fired, 3)
	assert.Equal(t, uint64(2), fired[0].EntityID)
	assert.Equal(t, uint64(3), fired[1].EntityID)
	assert.Equal(t, uint64(1), fired[2].EntityID)
}

func TestTimerWheel_TieBreaksByInsertionOrder(t *testing.T) {
	w := NewTimerWheel(8, DefaultTimerMaxDuration)
	base := time.Unix(1000, 0)
	deadline := base.Add(time.Second)

	_, err := w.Register(deadline, 10, 0)
	require.NoError(t, err)
	_, err = w.Register(deadline, 20, 0)
	require.NoError(t, err)

	fired := w.CollectExpired(deadline, 16)
	require.Len(t, fired, 2)
	assert.Equal(t, uint64(10), fired[0].EntityID)
	assert.Equal(t, uint64(20), fired[1].EntityID)
}

func TestTimerWheel_CancelSkipsStaleHeapEntry(t *testing.T) {
	w := NewTimerWheel(8, DefaultTimerMaxDuration)
	base := time.Unix(1000, 0)

	h, err := w.Register(base.Add(time.Second), 1, 0)
	require.NoError(t, err)
	require.NoError(t, w.Cancel(h))

	fired := w.CollectExpired(base.Add(2*time.Second), 16)
	assert.Empty(t, fired)
	assert.Equal(t, 0, w.Pending())
}

func TestTimerWheel_RegisterBeyondMaxDurationFails(t *testing.T) {
	w := NewTimerWheel(8, time.Hour)
	base := time.Unix(1000, 0)
	_, err := w.Register(base.Add(2*time.Hour), 1, 0)
	require.Error(t, err)
	assert.Equal(t, StatusTimerDurationExceeded, StatusOf(err))
}

func TestTimerWheel_CollectExpiredCapsAtMaxWakers(t *testing.T) {
	w := NewTimerWheel(8, DefaultTimerMaxDuration)
	base := time.Unix(1000, 0)
	for i := uint64(0); i < 5; i++ {
		_, err := w.Register(base.Add(time.Second), i, 0)
		require.NoError(t, err)
	}
	fired := w.CollectExpired(base.Add(2*time.Second), 2)
	assert.Len(t, fired, 2)
	assert.Equal(t, 3, w.Pending())
}

func TestTimerWheel_UpdateReschedules(t *testing.T) {
	w := NewTimerWheel(8, DefaultTimerMaxDuration)
	base := time.Unix(1000, 0)
	h, err := w.Register(base.Add(time.Second), 7, 42)
	require.NoError(t, err)

	h2, err := w.Update(h, base.Add(5*time.Second))
	require.NoError(t, err)

	fired := w.CollectExpired(base.Add(2*time.Second), 16)
	assert.Empty(t, fired)

	fired = w.CollectExpired(base.Add(6*time.Second), 16)
	require.Len(t, fired, 1)
	assert.Equal(t, h2, fired[0].Handle)
	assert.Equal(t, uint64(7), fired[0].EntityID)
	assert.Equal(t, uint64(42), fired[0].Aux)
}

func TestTimerWheel_AdvanceIgnoresBackwardCalls(t *testing.T) {
	w := NewTimerWheel(8, DefaultTimerMaxDuration)
	base := time.Unix(1000, 0)
	w.Advance(base)
	w.Advance(base.Add(-time.Second))
	assert.Equal(t, base, w.Now())
}
