package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModel_SubmitAssignsDenseIDs(t *testing.T) {
	m := NewModel()

	id0, isFence, _ := m.Submit(Command{Type: CmdWrite, Lba: 0, Len: 1, Pattern: 7})
	require.Equal(t, uint32(0), id0)
	require.False(t, isFence)

	id1, isFence, fid := m.Submit(Command{Type: CmdFence})
	require.Equal(t, uint32(1), id1)
	require.True(t, isFence)
	require.Equal(t, uint32(0), fid)

	id2, isFence, fid2 := m.Submit(Command{Type: CmdFence})
	require.Equal(t, uint32(2), id2)
	require.True(t, isFence)
	require.Equal(t, uint32(1), fid2)

	require.Equal(t, 3, m.PendingCount())
	require.Equal(t, uint32(3), m.PendingPeak())
}

func TestModel_PendingCanonicalIsAscending(t *testing.T) {
	m := NewModel()
	for i := 0; i < 5; i++ {
		m.Submit(Command{Type: CmdFence})
	}
	_, ok := m.Complete(2)
	require.True(t, ok)

	require.Equal(t, []uint32{0, 1, 3, 4}, m.PendingCanonical())
}

func TestModel_WriteTouchesOnlyHostStorage(t *testing.T) {
	// A WRITE not followed by WRITE_VISIBLE must stay invisible to READ:
	// the visibility gap the fence-effectiveness metric relies on.
	m := NewModel()
	m.Submit(Command{Type: CmdWrite, Lba: 0, Len: 2, Pattern: 5})
	m.Submit(Command{Type: CmdRead, Lba: 0, Len: 2})

	res, ok := m.Complete(0)
	require.True(t, ok)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, uint32(0), res.Out)

	res, ok = m.Complete(1)
	require.True(t, ok)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, uint32(0), res.Out, "READ must observe device storage only")
}

func TestModel_WriteVisibleFlushRoundTrip(t *testing.T) {
	// WRITE(0,2,5) then WRITE_VISIBLE(0,2) then READ(0,2):
	// hash = (0*31+5)*31+5 = 160.
	m := NewModel()
	m.Submit(Command{Type: CmdWrite, Lba: 0, Len: 2, Pattern: 5})
	m.Submit(Command{Type: CmdWriteVisible, Lba: 0, Len: 2})
	m.Submit(Command{Type: CmdRead, Lba: 0, Len: 2})

	for id := uint32(0); id < 2; id++ {
		res, ok := m.Complete(id)
		require.True(t, ok)
		require.Equal(t, StatusOK, res.Status)
	}

	res, ok := m.Complete(2)
	require.True(t, ok)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, uint32(160), res.Out)
}

func TestModel_ReadHashWrapsAt32Bits(t *testing.T) {
	// Large patterns must wrap in 32-bit arithmetic: 0xFFFFFFFF*31 +
	// 0xFFFFFFFF mod 2^32 = 0xFFFFFFE0.
	m := NewModel()
	m.Submit(Command{Type: CmdWrite, Lba: 0, Len: 2, Pattern: 0xFFFFFFFF})
	m.Submit(Command{Type: CmdWriteVisible, Lba: 0, Len: 2})
	m.Submit(Command{Type: CmdRead, Lba: 0, Len: 2})

	m.Complete(0)
	m.Complete(1)
	res, _ := m.Complete(2)
	require.Equal(t, uint32(0xFFFFFFE0), res.Out)
}

func TestModel_OutOfBoundsIsCommandLevelError(t *testing.T) {
	m := NewModel()
	m.Submit(Command{Type: CmdWrite, Lba: 1023, Len: 2, Pattern: 1})
	m.Submit(Command{Type: CmdRead, Lba: 1024, Len: 1})
	m.Submit(Command{Type: CmdWriteVisible, Lba: 1000, Len: 100})

	for id := uint32(0); id < 3; id++ {
		res, ok := m.Complete(id)
		require.True(t, ok)
		require.Equal(t, StatusErr, res.Status)
		require.Equal(t, uint32(0), res.Out)
	}
}

func TestModel_BoundaryWriteAtEndOfStorage(t *testing.T) {
	m := NewModel()
	m.Submit(Command{Type: CmdWrite, Lba: 1023, Len: 1, Pattern: 9})
	res, _ := m.Complete(0)
	require.Equal(t, StatusOK, res.Status)
}

func TestModel_UnknownCommandTypeCompletesErr(t *testing.T) {
	m := NewModel()
	m.Submit(Command{Type: "TRIM", Lba: 0, Len: 1})
	res, ok := m.Complete(0)
	require.True(t, ok)
	require.Equal(t, StatusErr, res.Status)
	require.Equal(t, uint32(0), res.Out)
}

func TestModel_ForceCompleteSkipsExecution(t *testing.T) {
	m := NewModel()
	m.Submit(Command{Type: CmdWrite, Lba: 0, Len: 1, Pattern: 7})
	m.Submit(Command{Type: CmdWriteVisible, Lba: 0, Len: 1})
	m.Submit(Command{Type: CmdRead, Lba: 0, Len: 1})

	res, ok := m.ForceComplete(0, StatusTimeout)
	require.True(t, ok)
	require.Equal(t, StatusTimeout, res.Status)
	require.Equal(t, uint32(0), res.Out)

	// The forced WRITE never executed, so the flush copies zeros.
	m.Complete(1)
	res, _ = m.Complete(2)
	require.Equal(t, uint32(0), res.Out)
}

func TestModel_CompleteUnknownIDFails(t *testing.T) {
	m := NewModel()
	_, ok := m.Complete(0)
	require.False(t, ok)

	m.Submit(Command{Type: CmdFence})
	_, ok = m.Complete(0)
	require.True(t, ok)
	_, ok = m.Complete(0)
	require.False(t, ok, "double complete must fail")
}

func TestModel_ResetClearsPending(t *testing.T) {
	m := NewModel()
	for i := 0; i < 4; i++ {
		m.Submit(Command{Type: CmdWrite, Lba: uint64(i), Len: 1, Pattern: 1})
	}
	m.Complete(0)

	pendingBefore := m.Reset()
	require.Equal(t, uint32(3), pendingBefore)
	require.Equal(t, 0, m.PendingCount())
	require.True(t, m.HadReset())
	require.Equal(t, uint32(3), m.CommandsLost())

	// IDs keep growing after a reset; the counter never rewinds.
	id, _, _ := m.Submit(Command{Type: CmdFence})
	require.Equal(t, uint32(4), id)
}

func TestModel_PendingPeakTracksHighWater(t *testing.T) {
	m := NewModel()
	m.Submit(Command{Type: CmdFence})
	m.Submit(Command{Type: CmdFence})
	m.Complete(0)
	m.Complete(1)
	m.Submit(Command{Type: CmdFence})

	require.Equal(t, uint32(2), m.PendingPeak())
}
