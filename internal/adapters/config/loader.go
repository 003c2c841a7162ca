// Package config provides the configuration loader for tome.
package config

import (
	"os"
	"path/filepath"

	"go.trai.ch/tome/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the configuration file looked up in the working directory.
const DefaultFilename = "tome.yaml"

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct {
	Filename string
}

// NewLoader creates a loader for the default configuration filename.
func NewLoader() *FileConfigLoader {
	return &FileConfigLoader{Filename: DefaultFilename}
}

// Load reads the configuration from the given working directory.
func (l *FileConfigLoader) Load(cwd string) (*domain.Config, error) {
	path := filepath.Join(cwd, l.Filename)
	return Load(path)
}

// Load reads a configuration file from the given path and returns a
// normalized domain.Config.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read config file")
	}

	var tf Tomefile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	if tf.Project == "" {
		return nil, zerr.With(zerr.New("missing required field"), "field", "project")
	}

	cfg := &domain.Config{
		Project:       tf.Project,
		SourceRoot:    tf.Source,
		OutputDir:     tf.Output,
		CacheDir:      tf.CacheDir,
		Model:         tf.Model,
		Concurrency:   tf.Limits.Concurrency,
		TimeoutMs:     tf.Limits.TimeoutMs,
		ScanThreshold: tf.Discover.ScanThreshold,
		Strict:        tf.Strict,
	}
	cfg.Normalize()

	return cfg, nil
}
