// Package domain contains the core domain models for the documentation pipeline.
package domain

import "strings"

// Complexity is a rough size/effort classification for a unit.
type Complexity string

const (
	// ComplexityLow marks small, self-contained units.
	ComplexityLow Complexity = "low"
	// ComplexityMedium marks units of moderate size or coupling.
	ComplexityMedium Complexity = "medium"
	// ComplexityHigh marks large or heavily interconnected units.
	ComplexityHigh Complexity = "high"
)

// Unit is one discovered, independently analyzable component of the source tree.
// It uses InternedString for fields that are frequently repeated to save memory.
type Unit struct {
	ID           InternedString   `json:"id"`
	Name         string           `json:"name"`
	Path         string           `json:"path"`
	Purpose      string           `json:"purpose"`
	Complexity   Complexity       `json:"complexity"`
	Category     string           `json:"category,omitempty"`
	Area         InternedString   `json:"area,omitempty"`
	Dependencies []InternedString `json:"dependencies,omitempty"`
	Dependents   []InternedString `json:"dependents,omitempty"`
}

// Slugify normalizes a free-form name into a lowercase kebab-case identifier.
// Runs of characters outside [a-z0-9] collapse into a single dash, and leading
// or trailing dashes are trimmed.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}

// NormalizeComplexity converts a free-form string to a Complexity, defaulting
// to medium when the value is unknown.
func NormalizeComplexity(s string) Complexity {
	switch Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case ComplexityLow:
		return ComplexityLow
	case ComplexityHigh:
		return ComplexityHigh
	default:
		return ComplexityMedium
	}
}
