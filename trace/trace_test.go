package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_EmitAssignsMonotonicSequence(t *testing.T) {
	l := NewLog(4)
	e0 := l.Emit("a", 1, 0, 0)
	e1 := l.Emit("b", 2, 0, 0)
	assert.Equal(t, uint64(0), e0.Sequence)
	assert.Equal(t, uint64(1), e1.Sequence)
	assert.Equal(t, 2, l.EventCount())
}

func TestLog_OverflowWrapsAndSetsFlag(t *testing.T) {
	l := NewLog(2)
	l.Emit("a", 1, 0, 0)
	l.Emit("b", 2, 0, 0)
	assert.False(t, l.Overflowed())
	l.Emit("c", 3, 0, 0)
	assert.True(t, l.Overflowed())
	assert.Equal(t, 2, l.EventCount())

	e0, ok := l.EventGet(0)
	require.True(t, ok)
	assert.Equal(t, "b", e0.Kind)
	e1, ok := l.EventGet(1)
	require.True(t, ok)
	assert.Equal(t, "c", e1.Kind)
}

func TestLog_ResetRestartsChain(t *testing.T) {
	l := NewLog(4)
	l.Emit("a", 1, 0, 0)
	digestBefore := l.Digest()
	l.Reset()
	assert.Zero(t, l.Digest())
	assert.Zero(t, l.EventCount())
	assert.NotEqual(t, digestBefore, l.Digest())
}

func TestLog_DigestDeterministicAcrossIdenticalRuns(t *testing.T) {
	run := func() uint64 {
		l := NewLog(8)
		l.Emit("x", 1, 0, 0)
		l.Emit("y", 2, 0, 0)
		l.Emit("z", 3, 0, 0)
		return l.Digest()
	}
	assert.Equal(t, run(), run())
}

func TestLog_ReplayVerifyDetectsDivergence(t *testing.T) {
	l := NewLog(8)
	l.Emit("a", 1, 0, 0)
	l.Emit("b", 2, 0, 0)

	l.LoadReference([]Event{
		{Kind: "a", EntityID: 1},
		{Kind: "b", EntityID: 99},
	})
	result := l.ReplayVerify()
	assert.Equal(t, ReplayEntityMismatch, result.Outcome)
}

func TestLog_ReplayVerifyMatchesIdenticalReference(t *testing.T) {
	l := NewLog(8)
	l.Emit("a", 1, 0, 0)
	l.Emit("b", 2, 0, 0)

	var ref []Event
	for i := 0; i < l.EventCount(); i++ {
		e, ok := l.EventGet(i)
		require.True(t, ok)
		ref = append(ref, e)
	}
	l.LoadReference(ref)
	result := l.ReplayVerify()
	assert.Equal(t, ReplayMatch, result.Outcome)
	assert.Equal(t, -1, result.Index)
}

func TestEvent_EncodeWritesLittleEndianFields(t *testing.T) {
	e := Event{Sequence: 1, Kind: "k", EntityID: 2, Aux: 3, Status: 4}
	buf := make([]byte, 64)
	n := e.Encode(buf)
	assert.Equal(t, byte(1), buf[0])
	assert.Greater(t, n, 0)
}
