package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Policy selects which candidate completes next within the bound_k window.
type Policy string

const (
	// PolicyFIFO completes the oldest pending command first.
	PolicyFIFO Policy = "FIFO"
	// PolicyRandom picks uniformly among the candidates.
	PolicyRandom Policy = "RANDOM"
	// PolicyAdversarial picks the youngest candidate (maximum reordering).
	PolicyAdversarial Policy = "ADVERSARIAL"
	// PolicyBatched picks like RANDOM; the burst discipline is imposed by
	// the runner, not the scheduler.
	PolicyBatched Policy = "BATCHED"
)

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToUpper(s)) {
	case PolicyFIFO:
		return PolicyFIFO, nil
	case PolicyRandom:
		return PolicyRandom, nil
	case PolicyAdversarial:
		return PolicyAdversarial, nil
	case PolicyBatched:
		return PolicyBatched, nil
	}
	return "", fmt.Errorf("unknown policy: %s", s)
}

func (p Policy) String() string {
	return string(p)
}

// FaultMode selects the fault injected at the run's midpoint step.
type FaultMode string

const (
	// FaultNone injects nothing.
	FaultNone FaultMode = "NONE"
	// FaultTimeout force-completes the oldest pending command with
	// status TIMEOUT and stops further submits.
	FaultTimeout FaultMode = "TIMEOUT"
	// FaultReset clears the pending set and ends the run immediately.
	FaultReset FaultMode = "RESET"
)

// ParseFaultMode parses a fault mode name, case-insensitively.
func ParseFaultMode(s string) (FaultMode, error) {
	switch FaultMode(strings.ToUpper(s)) {
	case FaultNone:
		return FaultNone, nil
	case FaultTimeout:
		return FaultTimeout, nil
	case FaultReset:
		return FaultReset, nil
	}
	return "", fmt.Errorf("unknown fault mode: %s", s)
}

func (f FaultMode) String() string {
	return string(f)
}

// Status is the terminal status of a completed command.
type Status string

const (
	StatusOK      Status = "OK"
	StatusErr     Status = "ERR"
	StatusTimeout Status = "TIMEOUT"
)

func (s Status) String() string {
	return string(s)
}

// BoundK is the reorder-freedom knob: the scheduler sees the first
// min(k+1, pending) commands of the canonical pending list as candidates.
// Finite(0) forces FIFO-equivalent completion order under any policy.
type BoundK struct {
	k        uint32
	infinite bool
}

// FiniteBound returns a finite bound of k.
func FiniteBound(k uint32) BoundK {
	return BoundK{k: k}
}

// InfiniteBound returns the unbounded reorder window.
func InfiniteBound() BoundK {
	return BoundK{infinite: true}
}

// ParseBoundK parses "inf" or a non-negative integer.
func ParseBoundK(s string) (BoundK, error) {
	if strings.ToLower(s) == "inf" {
		return InfiniteBound(), nil
	}
	k, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return BoundK{}, fmt.Errorf("invalid bound_k: %s", s)
	}
	return FiniteBound(uint32(k)), nil
}

// Window returns the candidate-window length for a canonical pending list
// of length m.
func (b BoundK) Window(m int) int {
	if b.infinite {
		return m
	}
	if c := int(b.k) + 1; c < m {
		return c
	}
	return m
}

func (b BoundK) String() string {
	if b.infinite {
		return "inf"
	}
	return strconv.FormatUint(uint64(b.k), 10)
}

// SubmitWindow caps the number of in-flight commands before submission is
// gated. Infinite means submits are never gated by backpressure.
type SubmitWindow struct {
	n        int
	infinite bool
}

// FiniteWindow returns a submit window of n in-flight commands.
func FiniteWindow(n int) SubmitWindow {
	return SubmitWindow{n: n}
}

// InfiniteWindow returns the uncapped submit window (the paper's SW-inf).
func InfiniteWindow() SubmitWindow {
	return SubmitWindow{infinite: true}
}

// ParseSubmitWindow parses "inf" or a non-negative integer.
func ParseSubmitWindow(s string) (SubmitWindow, error) {
	if strings.ToLower(s) == "inf" {
		return InfiniteWindow(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return SubmitWindow{}, fmt.Errorf("invalid submit_window: %s", s)
	}
	return FiniteWindow(n), nil
}

// Value returns the cap, with Infinite mapped to the maximum representable
// value so comparisons never gate.
func (w SubmitWindow) Value() int {
	if w.infinite {
		return math.MaxInt
	}
	return w.n
}

func (w SubmitWindow) String() string {
	if w.infinite {
		return "inf"
	}
	return strconv.Itoa(w.n)
}
