package runlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriter_ExactLineGrammar(t *testing.T) {
	// The grammar is a cross-implementation contract: spaces after commas,
	// literal parentheses, newline-terminated lines.
	w := NewWriter()
	w.Header("s_FIFO_0_7_NONE", "s", 7, "FIFO", "0", "NONE", 3, "inf", "v1.0", "abc")
	w.Submit(0, "WRITE")
	w.Submit(1, "FENCE")
	w.Fence(0)
	w.Complete(0, "OK", 0)
	w.Complete(1, "OK", 0)
	w.Reset("INJECTED", 2)
	w.RunEnd(0, 2)

	require.Equal(t, []string{
		"RUN_HEADER(run_id=s_FIFO_0_7_NONE, seed_id=s, schedule_seed=7, policy=FIFO, bound_k=0, fault_mode=NONE, n_cmds=3, submit_window=inf, scheduler_version=v1.0, git_commit=abc)",
		"SUBMIT(cmd_id=0, cmd_type=WRITE)",
		"SUBMIT(cmd_id=1, cmd_type=FENCE)",
		"FENCE(fence_id=0)",
		"COMPLETE(cmd_id=0, status=OK, out=0)",
		"COMPLETE(cmd_id=1, status=OK, out=0)",
		"RESET(reason=INJECTED, pending_before=2)",
		"RUN_END(pending_left=0, pending_peak=2)",
	}, w.Lines())
}

func TestWriter_StringNewlineTerminatesEveryLine(t *testing.T) {
	w := NewWriter()
	w.Submit(0, "READ")
	w.RunEnd(0, 1)

	require.Equal(t, "SUBMIT(cmd_id=0, cmd_type=READ)\nRUN_END(pending_left=0, pending_peak=1)\n", w.String())
}

func TestWriter_EmptyLogIsEmptyString(t *testing.T) {
	require.Equal(t, "", NewWriter().String())
}

func TestWriter_WriteFileCreatesParentDirectories(t *testing.T) {
	w := NewWriter()
	w.Submit(0, "WRITE")
	w.RunEnd(1, 1)

	path := filepath.Join(t.TempDir(), "out", "logs", "run.log")
	require.NoError(t, w.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, w.String(), string(data))
}
