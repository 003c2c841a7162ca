package domain

import "time"

// PromptKind selects which generation task a PromptSpec describes. The
// generator is opaque; the kind only routes prompt construction.
type PromptKind string

const (
	// PromptStructureScan asks for an approximate file count and the
	// top-level areas of a large tree.
	PromptStructureScan PromptKind = "structure_scan"
	// PromptFullDiscovery asks for the complete unit graph in one call.
	PromptFullDiscovery PromptKind = "full_discovery"
	// PromptAreaDiscovery asks for the unit graph of a single area subtree.
	PromptAreaDiscovery PromptKind = "area_discovery"
	// PromptAnalyzeUnit asks for the analysis of one unit.
	PromptAnalyzeUnit PromptKind = "analyze_unit"
	// PromptWriteArticle asks for the article covering one analyzed unit.
	PromptWriteArticle PromptKind = "write_article"
)

// PromptSpec is the request handed to the generator. Subject names the unit
// or area the call is scoped to, Context carries serialized upstream data
// (e.g. the unit's analysis), and Amendment carries the parse-error feedback
// attached on the second attempt of the bounded retry.
type PromptSpec struct {
	Kind      PromptKind
	Subject   string
	Path      string
	Context   string
	Amendment string
}

// ScanReport is the result of the round-1 structural scan: an approximate
// file count, the flat list of top-level areas, and best-effort project info.
type ScanReport struct {
	FileCount int
	Areas     []Area
	Project   ProjectInfo
}

// Analysis is the per-unit analysis payload produced by the analyze phase.
type Analysis struct {
	UnitID      InternedString `json:"unitId"`
	Summary     string         `json:"summary"`
	Details     string         `json:"details,omitempty"`
	Interfaces  []string       `json:"interfaces,omitempty"`
	Risks       []string       `json:"risks,omitempty"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Article is the per-unit written content produced by the write phase.
type Article struct {
	UnitID      InternedString `json:"unitId"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Artifact is an aggregate output of a reduce step, e.g. the site index.
type Artifact struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
