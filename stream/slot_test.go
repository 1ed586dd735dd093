package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolLifecycle(t *testing.T) {
	p := NewPool(2, 64)
	require.Equal(t, 2, p.Depth())
	require.Zero(t, p.Submitted())

	s := p.Acquire()
	require.NotNil(t, s)
	require.Equal(t, SlotFree, s.State())
	require.Len(t, s.buf, 64)

	s.SetLength(32)
	p.NoteSubmitted(s)
	require.Equal(t, SlotSubmitted, s.State())
	require.Equal(t, 1, p.Submitted())
	require.Len(t, s.Buffer(), 32)

	got, err := p.BeginCompletion(s.ID())
	require.NoError(t, err)
	require.Same(t, s, got)
	require.Equal(t, SlotCompleting, s.State())
	require.Equal(t, 1, p.Submitted())

	// Resubmission keeps the slot counted
	p.NoteSubmitted(s)
	require.Equal(t, 1, p.Submitted())

	_, err = p.BeginCompletion(s.ID())
	require.NoError(t, err)
	p.Release(s)
	require.Equal(t, SlotFree, s.State())
	require.Zero(t, p.Submitted())
}

func TestPoolExhaustion(t *testing.T) {
	p := NewPool(2, 16)

	a := p.Acquire()
	p.NoteSubmitted(a)
	b := p.Acquire()
	p.NoteSubmitted(b)
	require.NotSame(t, a, b)

	// Soft failure when everything is in flight
	require.Nil(t, p.Acquire())

	p.Release(a)
	require.Same(t, a, p.Acquire())
}

func TestPoolBeginCompletionUnknown(t *testing.T) {
	p := NewPool(1, 16)

	_, err := p.BeginCompletion(5)
	require.Error(t, err)

	// A free slot has no completion to begin
	_, err = p.BeginCompletion(0)
	require.Error(t, err)
}

func TestPoolEachSubmitted(t *testing.T) {
	p := NewPool(3, 16)

	a := p.Acquire()
	p.NoteSubmitted(a)
	b := p.Acquire()
	p.NoteSubmitted(b)

	var seen []uint64
	p.EachSubmitted(func(s *TransferSlot) {
		seen = append(seen, s.ID())
	})
	require.ElementsMatch(t, []uint64{a.ID(), b.ID()}, seen)
}

func TestSlotStateString(t *testing.T) {
	require.Equal(t, "free", SlotFree.String())
	require.Equal(t, "submitted", SlotSubmitted.String())
	require.Equal(t, "completing", SlotCompleting.String())
	require.Equal(t, "invalid", SlotState(99).String())
}
