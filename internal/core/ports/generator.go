// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/tome/internal/core/domain"
)

// Generator is the opaque external generation capability. A call may take
// minutes and may fail for any reason; the pipeline only pattern-matches on
// timeouts (domain.ErrGeneratorTimeout) to decide on the single bounded retry
// for malformed discovery responses.
//
//go:generate go run go.uber.org/mock/mockgen -source=generator.go -destination=mocks/mock_generator.go -package=mocks
type Generator interface {
	// Invoke runs one generation call and returns the raw response text.
	// The implementation enforces the configured per-call timeout.
	Invoke(ctx context.Context, spec domain.PromptSpec) (string, error)
}
