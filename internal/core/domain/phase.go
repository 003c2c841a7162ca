package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// Phase identifies one stage of the pipeline. Phases have a fixed linear
// dependency order: discover feeds analyze, analyze feeds write, write feeds
// publish.
type Phase int

const (
	// PhaseDiscover scans the source tree and produces the unit graph.
	PhaseDiscover Phase = iota
	// PhaseAnalyze produces a per-unit analysis from the graph.
	PhaseAnalyze
	// PhaseWrite produces a per-unit article from the analyses.
	PhaseWrite
	// PhasePublish materializes cached articles into the output directory.
	PhasePublish
)

// Phases returns all phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseDiscover, PhaseAnalyze, PhaseWrite, PhasePublish}
}

// String returns the lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDiscover:
		return "discover"
	case PhaseAnalyze:
		return "analyze"
	case PhaseWrite:
		return "write"
	case PhasePublish:
		return "publish"
	default:
		return "unknown"
	}
}

// ParsePhase converts a phase name into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discover":
		return PhaseDiscover, nil
	case "analyze":
		return PhaseAnalyze, nil
	case "write":
		return PhaseWrite, nil
	case "publish":
		return PhasePublish, nil
	default:
		return PhaseDiscover, zerr.With(ErrUnknownPhase, "phase", s)
	}
}

// ValidatePhaseRange checks that from does not come after until.
func ValidatePhaseRange(from, until Phase) error {
	if from > until {
		return zerr.With(zerr.With(ErrInvalidPhaseRange, "from", from.String()), "until", until.String())
	}
	return nil
}
