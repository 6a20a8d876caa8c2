package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TheBuccaneer/fgt-nvme-robustness/sim/runlog"
)

// RunConfig fixes every input of one run. Two runs with equal configs and
// equal seeds produce byte-identical logs.
type RunConfig struct {
	SeedID           string
	ScheduleSeed     uint64
	Policy           Policy
	BoundK           BoundK
	FaultMode        FaultMode
	SubmitWindow     SubmitWindow
	SchedulerVersion string
	GitCommit        string
	DumpSchedule     bool
}

// RunID derives the canonical run identifier used in log headers and
// matrix file names.
func (c RunConfig) RunID() string {
	return fmt.Sprintf("%s_%s_%s_%d_%s",
		c.SeedID, c.Policy, c.BoundK.String(), c.ScheduleSeed, c.FaultMode)
}

// RunResult carries the artifacts of one finished run.
type RunResult struct {
	RunID    string
	Log      *runlog.Writer
	Schedule *SerializedSchedule

	PendingLeft uint32
	PendingPeak uint32
	NumOK       int
	NumErr      int
	NumTimeout  int

	HadReset     bool
	CommandsLost int
}

// ExecuteRun drives one run to termination: the submit/complete
// interleaving loop with optional mid-run fault injection. The loop ends
// when the workload is exhausted and the pending set drains, or when a
// RESET fault cuts the run short.
func ExecuteRun(seed *Seed, cfg RunConfig) *RunResult {
	model := NewModel()
	scheduler := NewScheduler(cfg.Policy, cfg.BoundK, cfg.ScheduleSeed)
	log := runlog.NewWriter()

	runID := cfg.RunID()
	nCmds := len(seed.Commands)

	var schedule *SerializedSchedule
	if cfg.DumpSchedule {
		schedule = NewSerializedSchedule(seed.SeedID, cfg.ScheduleSeed, cfg.Policy, cfg.BoundK, cfg.FaultMode)
	}

	log.Header(runID, seed.SeedID, cfg.ScheduleSeed, string(cfg.Policy),
		cfg.BoundK.String(), string(cfg.FaultMode), nCmds,
		cfg.SubmitWindow.String(), cfg.SchedulerVersion, cfg.GitCommit)

	logrus.Debugf("run %s: %d commands, policy=%s bound_k=%s fault=%s",
		runID, nCmds, cfg.Policy, cfg.BoundK.String(), cfg.FaultMode)

	result := &RunResult{RunID: runID, Log: log, Schedule: schedule}

	// Faults fire at the completion-step midpoint of the workload, once.
	faultStep := nCmds / 2
	faultInjected := false

	nextCmd := 0
	stepCount := 0
	stopSubmits := false
	batchRemaining := 0

	for {
		submitOK := model.PendingCount() < cfg.SubmitWindow.Value() &&
			nextCmd < nCmds && !stopSubmits
		completeOK := model.PendingCount() > 0

		if !submitOK && !completeOK {
			break
		}

		doComplete := false
		switch {
		case submitOK && completeOK:
			if cfg.Policy == PolicyBatched && batchRemaining > 0 {
				// Mid-burst: completes are forced, no coin consumed.
				doComplete = true
			} else {
				doComplete = scheduler.NextBit() == 1
			}
		case completeOK:
			doComplete = true
		default:
			doComplete = false
		}

		if doComplete {
			// Fault trigger, checked before selection. Firing here rather
			// than at the top of the loop keeps the coin-bit consumption
			// identical between faulty and fault-free runs up to the
			// injection point.
			if cfg.FaultMode != FaultNone && !faultInjected && stepCount >= faultStep {
				faultInjected = true

				switch cfg.FaultMode {
				case FaultTimeout:
					// The canonical head times out; later submits are cut
					// off so the run drains under the failure.
					if pending := model.PendingCanonical(); len(pending) > 0 {
						victim := pending[0]
						res, _ := model.ForceComplete(victim, StatusTimeout)
						log.Complete(res.CmdID, string(res.Status), res.Out)
						result.NumTimeout++
						if schedule != nil {
							schedule.AddFault("TIMEOUT", stepCount)
						}
					}
					stopSubmits = true
					stepCount++
					continue

				case FaultReset:
					pendingBefore := model.Reset()
					log.Reset("INJECTED", pendingBefore)
					result.HadReset = true
					result.CommandsLost = int(pendingBefore)
					if schedule != nil {
						schedule.AddFault("RESET", stepCount)
					}
					goto done
				}
			}

			if cfg.Policy == PolicyBatched && batchRemaining == 0 {
				batchRemaining = min(scheduler.BatchSize(), model.PendingCount())
			}

			decision, ok := scheduler.Pick(model.PendingCanonical())
			if !ok {
				break
			}
			res, _ := model.Complete(decision.CmdID)
			log.Complete(res.CmdID, string(res.Status), res.Out)
			switch res.Status {
			case StatusOK:
				result.NumOK++
			case StatusErr:
				result.NumErr++
			case StatusTimeout:
				result.NumTimeout++
			}
			if schedule != nil {
				schedule.AddComplete(decision.PickIndex)
			}
			stepCount++
			if cfg.Policy == PolicyBatched {
				batchRemaining--
			}
		} else {
			command := seed.Commands[nextCmd]
			nextCmd++
			cmdID, isFence, fenceID := model.Submit(command)
			log.Submit(cmdID, command.Type)
			if isFence {
				log.Fence(fenceID)
			}
		}
	}

done:
	result.PendingLeft = uint32(model.PendingCount())
	result.PendingPeak = model.PendingPeak()
	log.RunEnd(result.PendingLeft, result.PendingPeak)

	logrus.Debugf("run %s: ok=%d err=%d timeout=%d pending_left=%d peak=%d",
		runID, result.NumOK, result.NumErr, result.NumTimeout,
		result.PendingLeft, result.PendingPeak)
	return result
}
