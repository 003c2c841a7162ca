package domain

// Default tuning values applied by Config.Normalize.
const (
	// DefaultConcurrency bounds outstanding generator calls in a map phase.
	DefaultConcurrency = 5
	// MaxWriteConcurrency caps the doubled concurrency used by the write
	// phase, whose calls are typically cheaper.
	MaxWriteConcurrency = 10
	// DefaultScanThreshold is the file count at or below which discovery
	// skips the two-round scan and probes the whole tree in one call.
	DefaultScanThreshold = 3000
	// DefaultTimeoutMs bounds a single generator call.
	DefaultTimeoutMs = 300_000
)

// Config holds the per-invocation pipeline settings loaded from tome.yaml.
// It is constructed once per run and threaded through every component; there
// is no ambient module state.
type Config struct {
	Project       string
	SourceRoot    string
	OutputDir     string
	CacheDir      string
	Model         string
	Concurrency   int
	TimeoutMs     int
	ScanThreshold int
	Strict        bool
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.SourceRoot == "" {
		c.SourceRoot = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = "docs"
	}
	if c.CacheDir == "" {
		c.CacheDir = ".tome"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.ScanThreshold <= 0 {
		c.ScanThreshold = DefaultScanThreshold
	}
}

// WriteConcurrency returns the concurrency bound for the write phase: the
// configured bound doubled, capped at MaxWriteConcurrency.
func (c *Config) WriteConcurrency() int {
	n := c.Concurrency * 2
	if n > MaxWriteConcurrency {
		return MaxWriteConcurrency
	}
	return n
}
