package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TheBuccaneer/fgt-nvme-robustness/sim"
)

var (
	// CLI flags for a single run
	oneSeedFile         string // Path to the JSON seed file
	oneScheduleSeed     uint64 // RNG seed for scheduling decisions
	onePolicy           string // FIFO, RANDOM, ADVERSARIAL, BATCHED
	oneBoundK           string // Reorder bound: 0, 1, 2, ... or "inf"
	oneFaultMode        string // NONE, TIMEOUT, RESET
	oneSubmitWindow     string // Max pending commands (number or "inf")
	oneOutLog           string // Output log file path
	oneSchedulerVersion string // Scheduler version string for the header
	oneGitCommit        string // Git commit string for the header
	oneDumpSchedule     string // Optional JSON path for the serialized schedule
)

// runOneCmd executes one run with explicit parameters
var runOneCmd = &cobra.Command{
	Use:   "run-one",
	Short: "Execute a single run and write its event log",
	Run: func(cmd *cobra.Command, args []string) {
		seed, err := sim.LoadSeed(oneSeedFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		policy, err := sim.ParsePolicy(onePolicy)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		boundK, err := sim.ParseBoundK(oneBoundK)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		faultMode, err := sim.ParseFaultMode(oneFaultMode)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		submitWindow, err := sim.ParseSubmitWindow(oneSubmitWindow)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		cfg := sim.RunConfig{
			SeedID:           seed.SeedID,
			ScheduleSeed:     oneScheduleSeed,
			Policy:           policy,
			BoundK:           boundK,
			FaultMode:        faultMode,
			SubmitWindow:     submitWindow,
			SchedulerVersion: oneSchedulerVersion,
			GitCommit:        oneGitCommit,
			DumpSchedule:     oneDumpSchedule != "",
		}

		result := sim.ExecuteRun(seed, cfg)
		if err := result.Log.WriteFile(oneOutLog); err != nil {
			logrus.Fatalf("%v", err)
		}
		if result.Schedule != nil {
			if err := result.Schedule.WriteFile(oneDumpSchedule); err != nil {
				logrus.Fatalf("%v", err)
			}
		}

		fmt.Printf("Run completed: %s\n", result.RunID)
		fmt.Printf("  pending_left: %d\n", result.PendingLeft)
		fmt.Printf("  pending_peak: %d\n", result.PendingPeak)
	},
}

// init sets up run-one flags
func init() {
	runOneCmd.Flags().StringVar(&oneSeedFile, "seed-file", "", "Path to seed file (JSON)")
	runOneCmd.Flags().Uint64Var(&oneScheduleSeed, "schedule-seed", 0, "Schedule seed (RNG seed for scheduling decisions)")
	runOneCmd.Flags().StringVar(&onePolicy, "policy", "", "Scheduling policy: FIFO, RANDOM, ADVERSARIAL, BATCHED")
	runOneCmd.Flags().StringVar(&oneBoundK, "bound-k", "", "Reorder bound: 0, 1, 2, ... or \"inf\"")
	runOneCmd.Flags().StringVar(&oneFaultMode, "fault-mode", "NONE", "Fault mode: NONE, TIMEOUT, RESET")
	runOneCmd.Flags().StringVar(&oneSubmitWindow, "submit-window", "inf", "Submit window: max pending commands (number or \"inf\")")
	runOneCmd.Flags().StringVar(&oneOutLog, "out-log", "", "Output log file path")
	runOneCmd.Flags().StringVar(&oneSchedulerVersion, "scheduler-version", "v1.0", "Scheduler version string")
	runOneCmd.Flags().StringVar(&oneGitCommit, "git-commit", "", "Git commit string")
	runOneCmd.Flags().StringVar(&oneDumpSchedule, "dump-schedule", "", "Dump the serialized schedule to this JSON file")

	for _, required := range []string{"seed-file", "schedule-seed", "policy", "bound-k", "out-log"} {
		if err := runOneCmd.MarkFlagRequired(required); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runOneCmd)
}
