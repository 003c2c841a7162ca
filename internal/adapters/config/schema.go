package config

// Tomefile represents the structure of the tome.yaml configuration file.
type Tomefile struct {
	Version  string      `yaml:"version"`
	Project  string      `yaml:"project"`
	Source   string      `yaml:"source"`
	Output   string      `yaml:"output"`
	CacheDir string      `yaml:"cacheDir"`
	Strict   bool        `yaml:"strict"`
	Model    string      `yaml:"model"`
	Limits   LimitsDTO   `yaml:"limits"`
	Discover DiscoverDTO `yaml:"discover"`
}

// LimitsDTO bounds generator usage.
type LimitsDTO struct {
	Concurrency int `yaml:"concurrency"`
	TimeoutMs   int `yaml:"timeoutMs"`
}

// DiscoverDTO tunes the discovery phase.
type DiscoverDTO struct {
	ScanThreshold int `yaml:"scanThreshold"`
}
