package domain

import "time"

// RunStatus classifies the outcome of a pipeline run.
type RunStatus string

const (
	// StatusSuccess means every executed phase completed with no unit failures.
	StatusSuccess RunStatus = "success"
	// StatusPartial means a lenient run completed with some unit failures.
	StatusPartial RunStatus = "partial"
	// StatusFailed means the run failed.
	StatusFailed RunStatus = "failed"
)

// PhaseOutcome records what happened to a single phase during a run.
type PhaseOutcome struct {
	Phase         Phase
	Executed      bool
	FromCache     bool
	Completed     int
	Failed        int
	FailedUnitIDs []string
	Duration      time.Duration
}

// RunResult is the structured result of a pipeline run. FailedUnitIDs is the
// union of per-phase failing ids so a narrower re-run can be targeted.
type RunResult struct {
	Status        RunStatus
	Phases        []PhaseOutcome
	FailedUnitIDs []string
	Duration      time.Duration
}

// RunMeta is the per-phase metadata file recording the last full run. Its
// presence with a matching identity enables the fast "everything reusable"
// check without probing individual unit entries.
type RunMeta struct {
	Identity      string    `json:"contentIdentity"`
	GeneratedAt   time.Time `json:"generatedAt"`
	FailedUnitIDs []string  `json:"failedUnitIds,omitempty"`
}

// Failed returns the recorded failing unit ids. Metadata produced by older
// writers omits the field; absence means no failures.
func (m *RunMeta) Failed() []string {
	if m == nil {
		return nil
	}
	return m.FailedUnitIDs
}
