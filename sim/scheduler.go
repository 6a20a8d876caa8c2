package sim

// schedulerBatchSize is the fixed burst length of the BATCHED policy.
const schedulerBatchSize = 4

// Decision is one completion pick.
type Decision struct {
	// PickIndex is the index within the candidate window (recorded in the
	// serialized schedule).
	PickIndex int
	// CmdID is the selected command.
	CmdID uint32
}

// Scheduler selects which pending command completes at each step and
// supplies the submit/complete arbitration coin. Aside from the RNG it is
// stateless across steps: the BATCHED burst counter lives in the runner
// because it gates the coin, a cross-component concern.
type Scheduler struct {
	policy Policy
	boundK BoundK
	rng    *SplitMix64
}

// NewScheduler creates a scheduler for one run.
func NewScheduler(policy Policy, boundK BoundK, scheduleSeed uint64) *Scheduler {
	return &Scheduler{
		policy: policy,
		boundK: boundK,
		rng:    NewSplitMix64(scheduleSeed),
	}
}

// NextBit returns the next arbitration coin bit (1 means complete).
func (s *Scheduler) NextBit() uint64 {
	return s.rng.NextBit()
}

// Candidates returns the bound_k window: the first min(k+1, len) entries of
// the canonical pending list, or the full list for an infinite bound.
func (s *Scheduler) Candidates(pending []uint32) []uint32 {
	return pending[:s.boundK.Window(len(pending))]
}

// Pick selects the next command to complete from the canonical pending
// list. Returns ok=false only on an empty list; the runner never calls
// Pick without pending work.
func (s *Scheduler) Pick(pending []uint32) (Decision, bool) {
	candidates := s.Candidates(pending)
	if len(candidates) == 0 {
		return Decision{}, false
	}

	var idx int
	switch s.policy {
	case PolicyFIFO:
		idx = 0
	case PolicyRandom:
		idx = int(s.rng.Range(uint64(len(candidates))))
	case PolicyAdversarial:
		idx = len(candidates) - 1
	case PolicyBatched:
		// Same single-pick distribution as RANDOM; the burst discipline is
		// the runner's.
		idx = int(s.rng.Range(uint64(len(candidates))))
	}

	return Decision{PickIndex: idx, CmdID: candidates[idx]}, true
}

// Policy returns the configured policy.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// BoundK returns the configured reorder bound.
func (s *Scheduler) BoundK() BoundK {
	return s.boundK
}

// BatchSize returns the fixed BATCHED burst length.
func (s *Scheduler) BatchSize() int {
	return schedulerBatchSize
}
