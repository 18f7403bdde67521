// Package config provides configuration loading and management for the
// ingestion engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Sources     SourcesConfig     `yaml:"sources"`
	Annotations AnnotationsConfig `yaml:"annotations"`
	Relations   []RelationMapping `yaml:"relations"`
	EntityTypes []TypeMapping     `yaml:"entity_types"`
	Watch       WatchConfig       `yaml:"watch"`
}

// SourcesConfig controls source file discovery.
type SourcesConfig struct {
	// Dir is the root directory scanned for source files.
	Dir string `yaml:"dir"`

	// OntologyGlobs select ontology markup files, relative to Dir.
	OntologyGlobs []string `yaml:"ontology_globs"`

	// AnnotationGlobs select tabular annotation files, relative to Dir.
	AnnotationGlobs []string `yaml:"annotation_globs"`
}

// AnnotationsConfig declares annotation capability. This is an explicit
// setting resolved once at startup, not a runtime probe.
type AnnotationsConfig struct {
	// Enabled controls whether annotation workbooks are parsed.
	Enabled bool `yaml:"enabled"`
}

// RelationMapping maps a source-specific predicate name onto a
// canonical relation. The canonical vocabulary is open-ended and
// supplied as data.
type RelationMapping struct {
	// Source is the predicate name as it appears in source files.
	Source string `yaml:"source"`

	// Canonical is the relation name used internally.
	Canonical string `yaml:"canonical"`

	// Inverse swaps the assertion's endpoints on ingest.
	Inverse bool `yaml:"inverse"`

	// Description documents the relation when it introduces a new
	// canonical name.
	Description string `yaml:"description,omitempty"`
}

// TypeMapping maps class-name keywords to an entity type.
type TypeMapping struct {
	Keywords []string `yaml:"keywords"`
	Type     string   `yaml:"type"`
}

// WatchConfig controls automatic re-ingestion on file changes.
type WatchConfig struct {
	// Enabled activates the filesystem watcher.
	Enabled bool `yaml:"enabled"`

	// DebounceDelay is how long to wait for more changes before
	// re-ingesting.
	DebounceDelay string `yaml:"debounce_delay"`
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *WatchConfig) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Dir:             ".",
			OntologyGlobs:   []string{"**/*.owl", "**/*.rdf"},
			AnnotationGlobs: []string{"**/*.xlsx"},
		},
		Annotations: AnnotationsConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			Enabled:       false,
			DebounceDelay: "500ms",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Sources.Dir == "" {
		return fmt.Errorf("sources.dir is required")
	}
	if len(c.Sources.OntologyGlobs) == 0 {
		return fmt.Errorf("sources.ontology_globs must not be empty")
	}
	for i, m := range c.Relations {
		if m.Source == "" {
			return fmt.Errorf("relations[%d].source is required", i)
		}
		if m.Canonical == "" {
			return fmt.Errorf("relations[%d].canonical is required", i)
		}
	}
	for i, m := range c.EntityTypes {
		if len(m.Keywords) == 0 {
			return fmt.Errorf("entity_types[%d].keywords must not be empty", i)
		}
		if m.Type == "" {
			return fmt.Errorf("entity_types[%d].type is required", i)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one; other takes precedence
// for non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Sources.Dir != "" {
		c.Sources.Dir = other.Sources.Dir
	}
	if len(other.Sources.OntologyGlobs) > 0 {
		c.Sources.OntologyGlobs = other.Sources.OntologyGlobs
	}
	if len(other.Sources.AnnotationGlobs) > 0 {
		c.Sources.AnnotationGlobs = other.Sources.AnnotationGlobs
	}

	c.Annotations.Enabled = other.Annotations.Enabled

	if len(other.Relations) > 0 {
		c.Relations = append(c.Relations, other.Relations...)
	}
	if len(other.EntityTypes) > 0 {
		c.EntityTypes = append(c.EntityTypes, other.EntityTypes...)
	}

	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
}
