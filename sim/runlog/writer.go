// Package runlog owns the run-log contract: the exact event-line grammar a
// run emits, the parser that reads it back, and the per-run summary
// metrics mined from it. The package stores pure data and has no
// dependencies on sim/ so that offline tooling can import it alone.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer buffers the event lines of a single run and writes them out once.
// Line formats are a cross-implementation contract: spaces after commas
// are mandatory, parentheses are literal, lines are newline-terminated.
type Writer struct {
	lines []string
}

// NewWriter creates an empty run-log writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Header records the RUN_HEADER line. Exactly one per run, first.
func (w *Writer) Header(runID, seedID string, scheduleSeed uint64, policy, boundK, faultMode string, nCmds int, submitWindow, schedulerVersion, gitCommit string) {
	w.lines = append(w.lines, fmt.Sprintf(
		"RUN_HEADER(run_id=%s, seed_id=%s, schedule_seed=%d, policy=%s, bound_k=%s, fault_mode=%s, n_cmds=%d, submit_window=%s, scheduler_version=%s, git_commit=%s)",
		runID, seedID, scheduleSeed, policy, boundK, faultMode, nCmds, submitWindow, schedulerVersion, gitCommit))
}

// Submit records a SUBMIT event.
func (w *Writer) Submit(cmdID uint32, cmdType string) {
	w.lines = append(w.lines, fmt.Sprintf("SUBMIT(cmd_id=%d, cmd_type=%s)", cmdID, cmdType))
}

// Fence records a FENCE event, emitted immediately after the submit of a
// fence command.
func (w *Writer) Fence(fenceID uint32) {
	w.lines = append(w.lines, fmt.Sprintf("FENCE(fence_id=%d)", fenceID))
}

// Complete records a COMPLETE event.
func (w *Writer) Complete(cmdID uint32, status string, out uint32) {
	w.lines = append(w.lines, fmt.Sprintf("COMPLETE(cmd_id=%d, status=%s, out=%d)", cmdID, status, out))
}

// Reset records a RESET event.
func (w *Writer) Reset(reason string, pendingBefore uint32) {
	w.lines = append(w.lines, fmt.Sprintf("RESET(reason=%s, pending_before=%d)", reason, pendingBefore))
}

// RunEnd records the RUN_END line. Exactly one per run, last.
func (w *Writer) RunEnd(pendingLeft, pendingPeak uint32) {
	w.lines = append(w.lines, fmt.Sprintf("RUN_END(pending_left=%d, pending_peak=%d)", pendingLeft, pendingPeak))
}

// Lines returns the buffered event lines.
func (w *Writer) Lines() []string {
	return w.lines
}

// String returns the full log text, each line newline-terminated.
func (w *Writer) String() string {
	if len(w.lines) == 0 {
		return ""
	}
	return strings.Join(w.lines, "\n") + "\n"
}

// WriteFile writes the log to path, creating parent directories as needed.
// The log file has exactly one writer: this run.
func (w *Writer) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(w.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write log %s: %w", path, err)
	}
	return nil
}
