package runlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Event-line patterns. The grammar is fixed; anything else on a line is a
// parse miss, not a variant.
var (
	reHeader   = regexp.MustCompile(`^RUN_HEADER\((.*)\)$`)
	reSubmit   = regexp.MustCompile(`^SUBMIT\(cmd_id=(\d+), cmd_type=([A-Z_]+)\)$`)
	reFence    = regexp.MustCompile(`^FENCE\(fence_id=(\d+)\)$`)
	reComplete = regexp.MustCompile(`^COMPLETE\(cmd_id=(\d+), status=([A-Z_]+), out=(\d+)\)$`)
	reReset    = regexp.MustCompile(`^RESET\(reason=([^,]+), pending_before=(\d+)\)$`)
	reRunEnd   = regexp.MustCompile(`^RUN_END\(pending_left=(\d+), pending_peak=(\d+)\)$`)
)

// FenceInfo is one FENCE event with its position among submits.
type FenceInfo struct {
	FenceID        uint32
	FenceCmdID     uint32
	FenceSubmitPos int
}

// Run is one parsed run log.
type Run struct {
	// Header fields.
	RunID            string
	SeedID           string
	ScheduleSeed     uint64
	Policy           string
	BoundK           string
	FaultMode        string
	NCmds            int
	SubmitWindow     string
	SchedulerVersion string
	GitCommit        string

	// Submit side, in event order.
	SubmitOrder []uint32
	SubmitPos   map[uint32]int // cmd_id -> index in SubmitOrder
	CmdType     map[uint32]string
	SubmitStep  map[uint32]int // cmd_id -> 0-based event-log step

	// Complete side, in event order.
	CompleteOrder []uint32
	CompletePos   map[uint32]int
	Status        map[uint32]string
	CompleteStep  map[uint32]int

	Fences []FenceInfo

	HasReset           bool
	ResetPendingBefore int

	HasRunEnd   bool
	PendingLeft int
	PendingPeak int

	// Run-level flags.
	Mismatch bool // any protocol violation in the event stream
	Timeout  bool // at least one COMPLETE with status TIMEOUT
	Crash    bool // no RUN_END: the process died mid-run

	NumOK      int
	NumErr     int
	NumTimeout int
}

func newRun() *Run {
	return &Run{
		SubmitPos:    make(map[uint32]int),
		CmdType:      make(map[uint32]string),
		SubmitStep:   make(map[uint32]int),
		CompletePos:  make(map[uint32]int),
		Status:       make(map[uint32]string),
		CompleteStep: make(map[uint32]int),
	}
}

// ParseFile parses one run log from disk.
func ParseFile(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file; close error is not actionable

	run, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log %s: %w", path, err)
	}
	return run, nil
}

// Parse reads a run log from r. Blank lines are tolerated; a missing
// RUN_END marks the run as crashed. Parse never fails on protocol
// violations inside the stream; those set the Mismatch flag so that runs
// remain comparable across implementations.
func Parse(r io.Reader) (*Run, error) {
	run := newRun()
	eventStep := 0
	lastFenceCmd := -1

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := reHeader.FindStringSubmatch(line); m != nil {
			run.parseHeader(m[1])
			continue
		}

		if m := reSubmit.FindStringSubmatch(line); m != nil {
			cid := parseU32(m[1])
			ctype := m[2]
			if _, dup := run.SubmitPos[cid]; dup {
				run.Mismatch = true
			} else {
				run.SubmitPos[cid] = len(run.SubmitOrder)
				run.SubmitOrder = append(run.SubmitOrder, cid)
				run.CmdType[cid] = ctype
				run.SubmitStep[cid] = eventStep
			}
			if ctype == "FENCE" {
				lastFenceCmd = int(cid)
			}
			eventStep++
			continue
		}

		if m := reFence.FindStringSubmatch(line); m != nil {
			fid := parseU32(m[1])
			if lastFenceCmd < 0 {
				run.Mismatch = true
				run.Fences = append(run.Fences, FenceInfo{
					FenceID:        fid,
					FenceSubmitPos: len(run.SubmitOrder),
				})
			} else {
				fc := uint32(lastFenceCmd)
				pos, ok := run.SubmitPos[fc]
				if !ok {
					pos = len(run.SubmitOrder)
				}
				run.Fences = append(run.Fences, FenceInfo{
					FenceID:        fid,
					FenceCmdID:     fc,
					FenceSubmitPos: pos,
				})
				lastFenceCmd = -1
			}
			eventStep++
			continue
		}

		if m := reComplete.FindStringSubmatch(line); m != nil {
			cid := parseU32(m[1])
			status := m[2]
			if _, known := run.SubmitPos[cid]; !known {
				run.Mismatch = true
			}
			if _, dup := run.CompletePos[cid]; dup {
				run.Mismatch = true
			} else {
				run.CompletePos[cid] = len(run.CompleteOrder)
				run.CompleteOrder = append(run.CompleteOrder, cid)
				run.Status[cid] = status
				run.CompleteStep[cid] = eventStep
			}
			switch status {
			case "OK":
				run.NumOK++
			case "ERR":
				run.NumErr++
			case "TIMEOUT":
				run.NumTimeout++
				run.Timeout = true
			}
			eventStep++
			continue
		}

		if m := reReset.FindStringSubmatch(line); m != nil {
			run.HasReset = true
			run.ResetPendingBefore = int(parseU32(m[2]))
			eventStep++
			continue
		}

		if m := reRunEnd.FindStringSubmatch(line); m != nil {
			run.HasRunEnd = true
			run.PendingLeft = int(parseU32(m[1]))
			run.PendingPeak = int(parseU32(m[2]))
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !run.HasRunEnd {
		run.Crash = true
		run.Mismatch = true
	}
	if run.FaultMode == "NONE" && run.HasRunEnd && run.PendingLeft > 0 {
		run.Mismatch = true
	}
	return run, nil
}

// parseHeader fills header fields from the "k=v, k=v" list inside
// RUN_HEADER. Values in this grammar never contain commas.
func (run *Run) parseHeader(kvList string) {
	for _, part := range strings.Split(kvList, ",") {
		part = strings.TrimSpace(part)
		k, v, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch k {
		case "run_id":
			run.RunID = v
		case "seed_id":
			run.SeedID = v
		case "schedule_seed":
			run.ScheduleSeed, _ = strconv.ParseUint(v, 10, 64)
		case "policy":
			run.Policy = v
		case "bound_k":
			run.BoundK = v
		case "fault_mode":
			run.FaultMode = v
		case "n_cmds":
			run.NCmds, _ = strconv.Atoi(v)
		case "submit_window":
			run.SubmitWindow = v
		case "scheduler_version":
			run.SchedulerVersion = v
		case "git_commit":
			run.GitCommit = v
		}
	}
}

func parseU32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint32(v)
}
