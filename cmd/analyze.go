package cmd

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TheBuccaneer/fgt-nvme-robustness/sim/runlog"
)

var (
	// CLI flags for offline log analysis
	analyzeLogs string // Log file or directory to mine
	analyzeOut  string // Output CSV path
)

// analyzeCmd mines run logs into a per-run metrics CSV
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Mine run logs into a per-run metrics CSV",
	Run: func(cmd *cobra.Command, args []string) {
		files, err := collectLogFiles(analyzeLogs)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if len(files) == 0 {
			logrus.Fatalf("no .log files found under %s", analyzeLogs)
		}

		summaries := make([]runlog.Summary, 0, len(files))
		failed := 0
		for _, path := range files {
			run, err := runlog.ParseFile(path)
			if err != nil {
				logrus.Errorf("%v", err)
				failed++
				continue
			}
			summaries = append(summaries, runlog.Summarize(run))
		}
		if len(summaries) == 0 {
			logrus.Fatalf("all %d logs under %s failed parsing", len(files), analyzeLogs)
		}

		if err := writeSummaryCSV(analyzeOut, summaries); err != nil {
			logrus.Fatalf("%v", err)
		}

		fmt.Printf("Analyzed %d runs -> %s\n", len(summaries), analyzeOut)
		if failed > 0 {
			fmt.Printf("Failed: %d\n", failed)
			os.Exit(1)
		}
	},
}

// collectLogFiles returns the sorted .log files under path, or path itself
// when it is a file.
func collectLogFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logs path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".log") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk logs directory %s: %w", path, err)
	}
	return files, nil
}

// writeSummaryCSV writes one row per run, creating parent directories as
// needed.
func writeSummaryCSV(path string, summaries []runlog.Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // flush errors surface via w.Error below

	w := csv.NewWriter(f)
	header := []string{
		"run_id", "seed_id", "schedule_seed", "policy", "bound_k", "fault_mode",
		"RD", "FE", "RCS",
		"mean_latency_step", "p95_latency_step", "max_latency_step",
		"n_ok", "n_err", "n_timeout",
		"mismatch", "timeout", "crash",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, s := range summaries {
		row := []string{
			s.RunID, s.SeedID, strconv.FormatUint(s.ScheduleSeed, 10),
			s.Policy, s.BoundK, s.FaultMode,
			formatMetric(s.ReorderDistance), formatMetric(s.FenceEffectiveness),
			formatMetric(s.ResetCompleteness),
			formatMetric(s.MeanLatencySteps), formatMetric(s.P95LatencySteps),
			formatMetric(s.MaxLatencySteps),
			strconv.Itoa(s.NumOK), strconv.Itoa(s.NumErr), strconv.Itoa(s.NumTimeout),
			boolFlag(s.Mismatch), boolFlag(s.Timeout), boolFlag(s.Crash),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// init sets up analyze flags
func init() {
	analyzeCmd.Flags().StringVar(&analyzeLogs, "logs", "", "Log file or directory (e.g. out/logs)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Output CSV path (e.g. out/csv/results.csv)")

	for _, required := range []string{"logs", "out"} {
		if err := analyzeCmd.MarkFlagRequired(required); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(analyzeCmd)
}
