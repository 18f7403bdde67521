package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	require.NoError(t, c.Validate())
	assert.Equal(t, ".", c.Sources.Dir)
	assert.Contains(t, c.Sources.OntologyGlobs, "**/*.owl")
	assert.True(t, c.Annotations.Enabled)
	assert.False(t, c.Watch.Enabled)
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	c.Sources.Dir = ""
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Sources.OntologyGlobs = nil
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Relations = []RelationMapping{{Source: "", Canonical: "treatsDisease"}}
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.EntityTypes = []TypeMapping{{Keywords: []string{"assay"}, Type: ""}}
	assert.Error(t, c.Validate())
}

func TestLoadFromFile(t *testing.T) {
	content := `
sources:
  dir: /data/ontologies
  ontology_globs:
    - "*.owl"
annotations:
  enabled: false
relations:
  - source: is_treated_by
    canonical: treatsDisease
    inverse: true
entity_types:
  - keywords: [assay, panel]
    type: LabTest
watch:
  enabled: true
  debounce_delay: 2s
`
	path := filepath.Join(t.TempDir(), "semgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/ontologies", c.Sources.Dir)
	assert.Equal(t, []string{"*.owl"}, c.Sources.OntologyGlobs)
	// Defaults survive for untouched fields.
	assert.Equal(t, []string{"**/*.xlsx"}, c.Sources.AnnotationGlobs)
	assert.False(t, c.Annotations.Enabled)

	require.Len(t, c.Relations, 1)
	assert.Equal(t, "is_treated_by", c.Relations[0].Source)
	assert.True(t, c.Relations[0].Inverse)

	require.Len(t, c.EntityTypes, 1)
	assert.Equal(t, "LabTest", c.EntityTypes[0].Type)

	assert.True(t, c.Watch.Enabled)
	assert.Equal(t, 2*time.Second, c.Watch.GetDebounceDelay())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/semgraph.yaml")
	assert.Error(t, err)
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	c := DefaultConfig()
	c.Sources.Dir = "/srv/kb"
	c.Relations = []RelationMapping{
		{Source: "cures", Canonical: "treatsDisease"},
	}

	path := filepath.Join(t.TempDir(), "nested", "semgraph.yaml")
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, c.Sources.Dir, loaded.Sources.Dir)
	assert.Equal(t, c.Relations, loaded.Relations)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Relations = []RelationMapping{
		{Source: "treats_disease", Canonical: "treatsDisease"},
	}

	override := &Config{
		Sources: SourcesConfig{Dir: "/override"},
		Relations: []RelationMapping{
			{Source: "cures", Canonical: "treatsDisease"},
		},
		Watch: WatchConfig{Enabled: true},
	}

	base.Merge(override)

	assert.Equal(t, "/override", base.Sources.Dir)
	assert.Len(t, base.Relations, 2)
	assert.True(t, base.Watch.Enabled)
	// Untouched defaults stay.
	assert.Equal(t, []string{"**/*.owl", "**/*.rdf"}, base.Sources.OntologyGlobs)
}
