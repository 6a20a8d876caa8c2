package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TheBuccaneer/fgt-nvme-robustness/sim"
)

var (
	// CLI flags for a matrix run
	matrixConfig        string // Path to the YAML experiment config
	matrixOutDir        string // Output directory for per-run logs
	matrixScheduleSeeds string // Optional override of the config's seed range
	matrixSubmitWindow  string // Max pending commands (number or "inf")
	matrixDumpSchedules bool   // Dump serialized schedules for all runs
)

// runMatrixCmd executes every run of an experiment matrix
var runMatrixCmd = &cobra.Command{
	Use:   "run-matrix",
	Short: "Execute the full experiment matrix from a config file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := sim.LoadExperimentConfig(matrixConfig)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		submitWindow, err := sim.ParseSubmitWindow(matrixSubmitWindow)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if matrixScheduleSeeds != "" {
			start, end, err := sim.ParseSeedRange(matrixScheduleSeeds)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			cfg.SetSeedRange(start, end)
		}

		if err := os.MkdirAll(matrixOutDir, 0o755); err != nil {
			logrus.Fatalf("failed to create output directory %s: %v", matrixOutDir, err)
		}

		total := cfg.TotalRuns()
		logrus.Infof("running %d experiments: %d seeds, policies=%v, bounds=%d, faults=%v, schedule seeds %d-%d, submit window %s",
			total, len(cfg.Seeds), cfg.Policies, len(cfg.Bounds), cfg.Faults,
			cfg.SeedRangeStart, cfg.SeedRangeEnd, submitWindow)

		completed, errors := 0, 0
		for _, seedPath := range cfg.Seeds {
			seed, err := sim.LoadSeed(seedPath)
			if err != nil {
				logrus.Errorf("%v", err)
				errors++
				continue
			}

			for _, policy := range cfg.Policies {
				for _, boundK := range cfg.Bounds {
					for _, faultMode := range cfg.Faults {
						for _, scheduleSeed := range cfg.ScheduleSeeds() {
							runCfg := sim.RunConfig{
								SeedID:           seed.SeedID,
								ScheduleSeed:     scheduleSeed,
								Policy:           policy,
								BoundK:           boundK,
								FaultMode:        faultMode,
								SubmitWindow:     submitWindow,
								SchedulerVersion: cfg.SchedulerVersion,
								GitCommit:        cfg.GitCommit,
								DumpSchedule:     matrixDumpSchedules,
							}

							if err := executeMatrixRun(seed, runCfg); err != nil {
								logrus.Errorf("run %s: %v", runCfg.RunID(), err)
								errors++
								continue
							}
							completed++
							if completed%100 == 0 {
								logrus.Infof("progress: %d/%d", completed, total)
							}
						}
					}
				}
			}
		}

		fmt.Printf("Completed: %d/%d\n", completed, total)
		if errors > 0 {
			fmt.Printf("Errors: %d\n", errors)
			os.Exit(1)
		}
	},
}

// executeMatrixRun drives one matrix cell and writes its artifacts under
// the output directory.
func executeMatrixRun(seed *sim.Seed, cfg sim.RunConfig) error {
	result := sim.ExecuteRun(seed, cfg)

	logPath := filepath.Join(matrixOutDir, result.RunID+".log")
	if err := result.Log.WriteFile(logPath); err != nil {
		return err
	}
	if result.Schedule != nil {
		schedulePath := filepath.Join(matrixOutDir, "schedules", result.RunID+".json")
		if err := result.Schedule.WriteFile(schedulePath); err != nil {
			return err
		}
	}
	return nil
}

// init sets up run-matrix flags
func init() {
	runMatrixCmd.Flags().StringVar(&matrixConfig, "config", "", "Path to config file (YAML)")
	runMatrixCmd.Flags().StringVar(&matrixOutDir, "out-dir", "", "Output directory for logs")
	runMatrixCmd.Flags().StringVar(&matrixScheduleSeeds, "schedule-seeds", "", "Override schedule seeds (e.g. \"0-99\")")
	runMatrixCmd.Flags().StringVar(&matrixSubmitWindow, "submit-window", "inf", "Submit window: max pending commands (number or \"inf\")")
	runMatrixCmd.Flags().BoolVar(&matrixDumpSchedules, "dump-schedules", false, "Dump serialized schedules for all runs")

	for _, required := range []string{"config", "out-dir"} {
		if err := runMatrixCmd.MarkFlagRequired(required); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runMatrixCmd)
}
