package runlog

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary is the per-run metric set mined from a parsed Run. All metrics
// are defined on the event stream alone so that logs from different
// implementations summarize identically.
type Summary struct {
	RunID        string
	SeedID       string
	ScheduleSeed uint64
	Policy       string
	BoundK       string
	FaultMode    string

	ReorderDistance    float64
	FenceEffectiveness float64
	ResetCompleteness  float64
	MeanLatencySteps   float64
	P95LatencySteps    float64
	MaxLatencySteps    float64

	NumOK      int
	NumErr     int
	NumTimeout int

	Mismatch bool
	Timeout  bool
	Crash    bool
}

// Summarize computes the full metric set for one run.
func Summarize(run *Run) Summary {
	return Summary{
		RunID:        run.RunID,
		SeedID:       run.SeedID,
		ScheduleSeed: run.ScheduleSeed,
		Policy:       run.Policy,
		BoundK:       run.BoundK,
		FaultMode:    run.FaultMode,

		ReorderDistance:    ReorderDistance(run),
		FenceEffectiveness: FenceEffectiveness(run),
		ResetCompleteness:  ResetCompleteness(run),
		MeanLatencySteps:   MeanLatencySteps(run),
		P95LatencySteps:    P95LatencySteps(run),
		MaxLatencySteps:    MaxLatencySteps(run),

		NumOK:      run.NumOK,
		NumErr:     run.NumErr,
		NumTimeout: run.NumTimeout,

		Mismatch: run.Mismatch,
		Timeout:  run.Timeout,
		Crash:    run.Crash,
	}
}

// fenwick is a 1-based binary indexed tree over counts.
type fenwick struct {
	tree []int
}

func newFenwick(n int) *fenwick {
	return &fenwick{tree: make([]int, n+1)}
}

func (f *fenwick) add(i int) {
	for i++; i < len(f.tree); i += i & (-i) {
		f.tree[i]++
	}
}

// prefix returns the count of added values <= i.
func (f *fenwick) prefix(i int) int {
	sum := 0
	for i++; i > 0; i -= i & (-i) {
		sum += f.tree[i]
	}
	return sum
}

// ReorderDistance is the inversion count between submit order and complete
// order, normalized by the worst case n*(n-1)/2 over the n completed
// commands. 0 means in-order completion, 1 means full reversal. Runs with
// fewer than two completions score 0.
func ReorderDistance(run *Run) float64 {
	n := len(run.CompleteOrder)
	if n < 2 {
		return 0
	}

	// Rank each completed command by its submit position, then count
	// inversions in the completion sequence of ranks.
	ranks := make([]int, 0, n)
	for _, cid := range run.CompleteOrder {
		pos, ok := run.SubmitPos[cid]
		if !ok {
			continue
		}
		ranks = append(ranks, pos)
	}
	if len(ranks) < 2 {
		return 0
	}

	maxRank := 0
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}

	ft := newFenwick(maxRank + 1)
	inversions := 0
	for i, r := range ranks {
		// Already-seen ranks greater than r each form one inversion.
		inversions += i - ft.prefix(r)
		ft.add(r)
	}

	m := len(ranks)
	worst := m * (m - 1) / 2
	return float64(inversions) / float64(worst)
}

// FenceEffectiveness is the fraction of (before, after) command pairs
// around each fence whose completion respected the barrier: before
// completed earlier than after. FENCE commands themselves are excluded
// from both sides. A run with no constrained pairs scores 1.0.
func FenceEffectiveness(run *Run) float64 {
	if len(run.Fences) == 0 {
		return 1.0
	}

	satisfied, total := 0, 0
	for _, fence := range run.Fences {
		var before, after []uint32
		for _, cid := range run.SubmitOrder {
			if run.CmdType[cid] == "FENCE" {
				continue
			}
			pos := run.SubmitPos[cid]
			if pos < fence.FenceSubmitPos {
				before = append(before, cid)
			} else if pos > fence.FenceSubmitPos {
				after = append(after, cid)
			}
		}
		for _, b := range before {
			bPos, bDone := run.CompletePos[b]
			for _, a := range after {
				aPos, aDone := run.CompletePos[a]
				total++
				// A command that never completed sits at +Inf in completion
				// order: it cannot satisfy a pair from the "before" side and
				// cannot violate one from the "after" side.
				if bDone && (!aDone || bPos < aPos) {
					satisfied++
				}
			}
		}
	}

	if total == 0 {
		return 1.0
	}
	return float64(satisfied) / float64(total)
}

// ResetCompleteness measures how much in-flight work the reset drained:
// (pending_before - pending_left) / pending_before, clamped to [0, 1].
// Runs without a reset score 1.0, as do resets that found nothing pending.
func ResetCompleteness(run *Run) float64 {
	if !run.HasReset || run.ResetPendingBefore == 0 {
		return 1.0
	}
	drained := float64(run.ResetPendingBefore-run.PendingLeft) / float64(run.ResetPendingBefore)
	if drained < 0 {
		return 0
	}
	if drained > 1 {
		return 1
	}
	return drained
}

// latencySteps collects per-command latencies in event-log steps from
// SUBMIT to COMPLETE, ascending. Commands that never completed are
// excluded.
func latencySteps(run *Run) []float64 {
	latencies := make([]float64, 0, len(run.CompleteOrder))
	for _, cid := range run.CompleteOrder {
		submitStep, ok := run.SubmitStep[cid]
		if !ok {
			continue
		}
		latencies = append(latencies, float64(run.CompleteStep[cid]-submitStep))
	}
	sort.Float64s(latencies)
	return latencies
}

// MeanLatencySteps is the mean per-command latency in event-log steps.
// Runs with no completed commands score 0.
func MeanLatencySteps(run *Run) float64 {
	latencies := latencySteps(run)
	if len(latencies) == 0 {
		return 0
	}
	return stat.Mean(latencies, nil)
}

// P95LatencySteps is the 95th percentile of per-command latency in
// event-log steps: the sorted latency at floor index 0.95*(n-1). The
// floor-indexed order statistic is part of the cross-implementation
// contract, so no interpolating quantile may be substituted. Runs with no
// completed commands score 0.
func P95LatencySteps(run *Run) float64 {
	latencies := latencySteps(run)
	if len(latencies) == 0 {
		return 0
	}
	return latencies[int(0.95*float64(len(latencies)-1))]
}

// MaxLatencySteps is the largest per-command latency in event-log steps,
// 0 when nothing completed.
func MaxLatencySteps(run *Run) float64 {
	latencies := latencySteps(run)
	if len(latencies) == 0 {
		return 0
	}
	return latencies[len(latencies)-1]
}
