package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
seeds:
  - "seeds/seed_001.json"
  - "seeds/seed_002.json"
policies:
  - FIFO
  - RANDOM
bounds:
  - "0"
  - "inf"
faults:
  - NONE
  - RESET
schedule_seeds: "0-9"
scheduler_version: "v1.0"
git_commit: "abc123"
`

func TestLoadExperimentConfig_Valid(t *testing.T) {
	cfg, err := LoadExperimentConfig(writeTempConfig(t, validConfig))
	require.NoError(t, err)

	require.Equal(t, []string{"seeds/seed_001.json", "seeds/seed_002.json"}, cfg.Seeds)
	require.Equal(t, []Policy{PolicyFIFO, PolicyRandom}, cfg.Policies)
	require.Equal(t, []BoundK{FiniteBound(0), InfiniteBound()}, cfg.Bounds)
	require.Equal(t, []FaultMode{FaultNone, FaultReset}, cfg.Faults)
	require.Equal(t, uint64(0), cfg.SeedRangeStart)
	require.Equal(t, uint64(9), cfg.SeedRangeEnd)
	require.Equal(t, "v1.0", cfg.SchedulerVersion)
	require.Equal(t, "abc123", cfg.GitCommit)

	// 2 seeds * 2 policies * 2 bounds * 2 faults * 10 schedule seeds
	require.Equal(t, 160, cfg.TotalRuns())
	require.Len(t, cfg.ScheduleSeeds(), 10)
}

func TestLoadExperimentConfig_UnknownPolicy(t *testing.T) {
	path := writeTempConfig(t, `
seeds: ["s.json"]
policies: ["LIFO"]
bounds: ["0"]
faults: ["NONE"]
schedule_seeds: "0"
scheduler_version: "v1"
`)
	_, err := LoadExperimentConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "LIFO")
}

func TestLoadExperimentConfig_BadSeedRange(t *testing.T) {
	path := writeTempConfig(t, `
seeds: ["s.json"]
policies: ["FIFO"]
bounds: ["0"]
faults: ["NONE"]
schedule_seeds: "ten"
scheduler_version: "v1"
`)
	_, err := LoadExperimentConfig(path)
	require.Error(t, err)
}

func TestLoadExperimentConfig_MissingFile(t *testing.T) {
	_, err := LoadExperimentConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope.yaml")
}

func TestParseSeedRange(t *testing.T) {
	start, end, err := ParseSeedRange("0-99")
	require.NoError(t, err)
	require.Equal(t, uint64(0), start)
	require.Equal(t, uint64(99), end)

	start, end, err = ParseSeedRange("42")
	require.NoError(t, err)
	require.Equal(t, uint64(42), start)
	require.Equal(t, uint64(42), end)

	_, _, err = ParseSeedRange("1-two")
	require.Error(t, err)
	_, _, err = ParseSeedRange("")
	require.Error(t, err)
}

func TestExperimentConfig_SetSeedRangeOverride(t *testing.T) {
	cfg, err := LoadExperimentConfig(writeTempConfig(t, validConfig))
	require.NoError(t, err)

	cfg.SetSeedRange(5, 7)
	require.Equal(t, []uint64{5, 6, 7}, cfg.ScheduleSeeds())
	require.Equal(t, 48, cfg.TotalRuns())
}
