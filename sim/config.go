package sim

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawConfig mirrors the experiment YAML before enum validation.
type rawConfig struct {
	Seeds            []string `yaml:"seeds"`
	Policies         []string `yaml:"policies"`
	Bounds           []string `yaml:"bounds"`
	Faults           []string `yaml:"faults"`
	ScheduleSeeds    string   `yaml:"schedule_seeds"`
	SchedulerVersion string   `yaml:"scheduler_version"`
	GitCommit        string   `yaml:"git_commit"`
}

// ExperimentConfig is a validated experiment matrix: every combination of
// seed file, policy, bound, fault mode, and schedule seed is one run.
type ExperimentConfig struct {
	Seeds            []string
	Policies         []Policy
	Bounds           []BoundK
	Faults           []FaultMode
	SeedRangeStart   uint64
	SeedRangeEnd     uint64
	SchedulerVersion string
	GitCommit        string
}

// LoadExperimentConfig reads and validates an experiment YAML file.
// git_commit "auto" resolves through git rev-parse HEAD.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg := &ExperimentConfig{
		Seeds:            raw.Seeds,
		SchedulerVersion: raw.SchedulerVersion,
	}

	for _, s := range raw.Policies {
		p, err := ParsePolicy(s)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Policies = append(cfg.Policies, p)
	}
	for _, s := range raw.Bounds {
		b, err := ParseBoundK(s)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Bounds = append(cfg.Bounds, b)
	}
	for _, s := range raw.Faults {
		f, err := ParseFaultMode(s)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Faults = append(cfg.Faults, f)
	}

	cfg.SeedRangeStart, cfg.SeedRangeEnd, err = ParseSeedRange(raw.ScheduleSeeds)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if raw.GitCommit == "auto" {
		cfg.GitCommit = gitCommitHash()
	} else {
		cfg.GitCommit = raw.GitCommit
	}
	return cfg, nil
}

// ParseSeedRange parses a schedule-seed range, either "start-end"
// (inclusive) or a single integer.
func ParseSeedRange(s string) (start, end uint64, err error) {
	if lo, hi, found := strings.Cut(s, "-"); found {
		start, err = strconv.ParseUint(lo, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid schedule_seeds range start: %s", lo)
		}
		end, err = strconv.ParseUint(hi, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid schedule_seeds range end: %s", hi)
		}
		return start, end, nil
	}
	start, err = strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule_seeds value: %s", s)
	}
	return start, start, nil
}

// SetSeedRange overrides the schedule-seed range, as the run-matrix
// --schedule-seeds flag does.
func (c *ExperimentConfig) SetSeedRange(start, end uint64) {
	c.SeedRangeStart = start
	c.SeedRangeEnd = end
}

// ScheduleSeeds returns every schedule seed in the configured range.
func (c *ExperimentConfig) ScheduleSeeds() []uint64 {
	seeds := make([]uint64, 0, c.SeedRangeEnd-c.SeedRangeStart+1)
	for s := c.SeedRangeStart; ; s++ {
		seeds = append(seeds, s)
		if s == c.SeedRangeEnd {
			break
		}
	}
	return seeds
}

// TotalRuns is the size of the experiment matrix.
func (c *ExperimentConfig) TotalRuns() int {
	nSchedules := int(c.SeedRangeEnd - c.SeedRangeStart + 1)
	return len(c.Seeds) * len(c.Policies) * len(c.Bounds) * len(c.Faults) * nSchedules
}

// gitCommitHash resolves the current HEAD commit, or empty if the working
// directory is not a git checkout.
func gitCommitHash() string {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
