package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ScheduleStep is one tagged entry of a schedule's decision stream: a
// completion pick carries pick_index, an injected fault carries fault_type
// and at_step. The tag plus omitempty fields reproduce the serialized
// union shape shared across implementations.
type ScheduleStep struct {
	Type      string `json:"type"`
	PickIndex *int   `json:"pick_index,omitempty"`
	FaultType string `json:"fault_type,omitempty"`
	AtStep    *int   `json:"at_step,omitempty"`
}

// SerializedSchedule captures every scheduling decision of a run so that a
// schedule can be replayed or diffed independently of the event log.
type SerializedSchedule struct {
	SeedID       string         `json:"seed_id"`
	ScheduleSeed uint64         `json:"schedule_seed"`
	Policy       string         `json:"policy"`
	BoundK       string         `json:"bound_k"`
	FaultMode    string         `json:"fault_mode"`
	Steps        []ScheduleStep `json:"steps"`
}

// NewSerializedSchedule creates an empty schedule record for one run.
func NewSerializedSchedule(seedID string, scheduleSeed uint64, policy Policy, boundK BoundK, faultMode FaultMode) *SerializedSchedule {
	return &SerializedSchedule{
		SeedID:       seedID,
		ScheduleSeed: scheduleSeed,
		Policy:       string(policy),
		BoundK:       boundK.String(),
		FaultMode:    string(faultMode),
		Steps:        []ScheduleStep{},
	}
}

// AddComplete records one completion decision.
func (s *SerializedSchedule) AddComplete(pickIndex int) {
	p := pickIndex
	s.Steps = append(s.Steps, ScheduleStep{Type: "CompletePick", PickIndex: &p})
}

// AddFault records one injected fault.
func (s *SerializedSchedule) AddFault(faultType string, atStep int) {
	a := atStep
	s.Steps = append(s.Steps, ScheduleStep{Type: "FAULT", FaultType: faultType, AtStep: &a})
}

// WriteFile serializes the schedule as indented JSON, creating parent
// directories as needed.
func (s *SerializedSchedule) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create schedule directory %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize schedule %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schedule %s: %w", path, err)
	}
	return nil
}
