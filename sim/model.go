package sim

import (
	"fmt"
	"sort"
)

// StorageWords is the size of each storage array, in u32 words.
const StorageWords = 1024

// maxPending bounds the pending set. The study's workloads stay far below
// it; exceeding it is a programming error, not a runtime condition.
const maxPending = 4096

// PendingCommand is a submitted-but-not-completed command.
type PendingCommand struct {
	CmdID   uint32
	Command Command
	FenceID uint32
	IsFence bool
}

// CommandResult is the terminal outcome of one command.
type CommandResult struct {
	CmdID  uint32
	Status Status
	Out    uint32
}

// Model holds the device state: dual storage (host-written vs.
// device-visible), the pending set, and the monotonic run counters.
// WRITE mutates only host storage, WRITE_VISIBLE copies host to device
// word-by-word, READ observes only device storage. The gap between the two
// arrays is what the fence-effectiveness metric measures.
type Model struct {
	hostStorage [StorageWords]uint32
	devStorage  [StorageWords]uint32

	submitted []PendingCommand
	pending   map[uint32]int // cmd_id -> index into submitted
	completed []CommandResult

	nextCmdID   uint32
	nextFenceID uint32
	pendingPeak uint32

	hadReset            bool
	commandsLostToReset uint32
}

// NewModel creates a model with zeroed storage and empty pending set.
func NewModel() *Model {
	return &Model{
		pending: make(map[uint32]int),
	}
}

// Submit allocates the next cmd_id for the command and inserts it into the
// pending set. Fence commands additionally allocate a dense fence_id.
// Submit never blocks and never fails; backpressure is the runner's
// concern.
func (m *Model) Submit(command Command) (cmdID uint32, isFence bool, fenceID uint32) {
	if len(m.pending) >= maxPending {
		panic(fmt.Sprintf("pending set overflow: %d commands in flight", len(m.pending)))
	}

	cmdID = m.nextCmdID
	m.nextCmdID++

	isFence = command.IsFence()
	if isFence {
		fenceID = m.nextFenceID
		m.nextFenceID++
	}

	m.submitted = append(m.submitted, PendingCommand{
		CmdID:   cmdID,
		Command: command,
		FenceID: fenceID,
		IsFence: isFence,
	})
	m.pending[cmdID] = len(m.submitted) - 1

	if n := uint32(len(m.pending)); n > m.pendingPeak {
		m.pendingPeak = n
	}
	return cmdID, isFence, fenceID
}

// PendingCanonical returns the pending cmd_ids sorted ascending. All
// scheduler decisions refer to this order.
func (m *Model) PendingCanonical() []uint32 {
	ids := make([]uint32, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PendingCount returns the number of in-flight commands.
func (m *Model) PendingCount() int {
	return len(m.pending)
}

// PendingPeak returns the peak in-flight count seen so far.
func (m *Model) PendingPeak() uint32 {
	return m.pendingPeak
}

// Complete executes the pending command and removes it from the pending
// set. Returns ok=false if cmd_id is not pending; callers must guarantee
// it is.
func (m *Model) Complete(cmdID uint32) (CommandResult, bool) {
	return m.finish(cmdID, "")
}

// ForceComplete removes the pending command with the given terminal status
// and out=0, without executing it. Used for fault injection.
func (m *Model) ForceComplete(cmdID uint32, status Status) (CommandResult, bool) {
	return m.finish(cmdID, status)
}

func (m *Model) finish(cmdID uint32, forced Status) (CommandResult, bool) {
	idx, ok := m.pending[cmdID]
	if !ok {
		return CommandResult{}, false
	}
	delete(m.pending, cmdID)

	var status Status
	var out uint32
	if forced != "" {
		status, out = forced, 0
	} else {
		status, out = m.execute(m.submitted[idx].Command)
	}

	result := CommandResult{CmdID: cmdID, Status: status, Out: out}
	m.completed = append(m.completed, result)
	return result, true
}

// execute runs one command against storage. All arithmetic is wrapping
// 32-bit; all range iteration is ascending-index.
func (m *Model) execute(command Command) (Status, uint32) {
	switch command.Type {
	case CmdWrite:
		start, end := command.Lba, command.Lba+uint64(command.Len)
		if end > StorageWords {
			return StatusErr, 0
		}
		for i := start; i < end; i++ {
			m.hostStorage[i] = command.Pattern
		}
		return StatusOK, 0

	case CmdRead:
		start, end := command.Lba, command.Lba+uint64(command.Len)
		if end > StorageWords {
			return StatusErr, 0
		}
		var hash uint32
		for i := start; i < end; i++ {
			hash = hash*31 + m.devStorage[i]
		}
		return StatusOK, hash

	case CmdFence:
		return StatusOK, 0

	case CmdWriteVisible:
		start, end := command.Lba, command.Lba+uint64(command.Len)
		if end > StorageWords {
			return StatusErr, 0
		}
		for i := start; i < end; i++ {
			m.devStorage[i] = m.hostStorage[i]
		}
		return StatusOK, 0
	}

	// Unknown command type is a command-level outcome, not a fatal error.
	return StatusErr, 0
}

// Reset clears the pending set and records the loss. Returns the number of
// commands that were pending. hadReset and commandsLostToReset are
// write-once per run.
func (m *Model) Reset() uint32 {
	pendingBefore := uint32(len(m.pending))
	m.commandsLostToReset = pendingBefore
	m.pending = make(map[uint32]int)
	m.hadReset = true
	return pendingBefore
}

// HadReset reports whether Reset was called during this run.
func (m *Model) HadReset() bool {
	return m.hadReset
}

// CommandsLost returns the number of commands cleared by the reset.
func (m *Model) CommandsLost() uint32 {
	return m.commandsLostToReset
}

// SubmitOrder returns all submitted cmd_ids in submission order.
func (m *Model) SubmitOrder() []uint32 {
	order := make([]uint32, len(m.submitted))
	for i, p := range m.submitted {
		order[i] = p.CmdID
	}
	return order
}

// CompleteOrder returns completed cmd_ids in completion order.
func (m *Model) CompleteOrder() []uint32 {
	order := make([]uint32, len(m.completed))
	for i, r := range m.completed {
		order[i] = r.CmdID
	}
	return order
}
