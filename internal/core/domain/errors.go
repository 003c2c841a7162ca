package domain

import "go.trai.ch/zerr"

var (
	// ErrUnitAlreadyExists is returned when adding a unit whose id is already present in the graph.
	ErrUnitAlreadyExists = zerr.New("unit already exists")

	// ErrUnknownPhase is returned when a phase name cannot be parsed.
	ErrUnknownPhase = zerr.New("unknown phase")

	// ErrInvalidPhaseRange is returned when the start phase comes after the end phase.
	// This is a configuration error and is never retried.
	ErrInvalidPhaseRange = zerr.New("invalid phase range")

	// ErrMissingUpstreamCache is returned when a run starts at a bounded phase
	// but a phase before it has no usable cached result. The run fails fast
	// rather than proceeding without data a downstream phase requires.
	ErrMissingUpstreamCache = zerr.New("missing upstream cache")

	// ErrGeneratorFailure wraps an opaque external generator failure.
	ErrGeneratorFailure = zerr.New("generator call failed")

	// ErrGeneratorTimeout marks a generator call that exceeded its deadline.
	ErrGeneratorTimeout = zerr.New("generator call timed out")

	// ErrParse is returned when generator output is syntactically invalid or
	// schema-incomplete after the bounded repair attempt.
	ErrParse = zerr.New("unparsable generator output")

	// ErrAllAreasFailed is returned when every per-area discovery call failed.
	ErrAllAreasFailed = zerr.New("all area discoveries failed")

	// ErrNoUnitsSucceeded is returned in strict mode when a map phase produced
	// zero successful units, which usually signals misconfiguration rather
	// than isolated unit failures.
	ErrNoUnitsSucceeded = zerr.New("no units succeeded")

	// ErrPipelineFailed is the terminal error for a failed run.
	ErrPipelineFailed = zerr.New("pipeline failed")
)
