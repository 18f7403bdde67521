// Package annotate merges annotation mappings into graph entities at
// lower precedence than explicitly asserted data.
package annotate

import (
	"log/slog"

	"github.com/c360studio/semgraph/graph"
	"github.com/c360studio/semgraph/source"
)

// Report summarizes one annotation application. Unmatched keys are
// warnings, not errors: annotation coverage is expected to be partial.
type Report struct {
	// Applied counts annotation fields written to entities.
	Applied int `json:"applied"`

	// Shadowed counts fields skipped because the entity already carried
	// an explicit property under the same key.
	Shadowed int `json:"shadowed"`

	// Unmatched lists annotation keys that resolved to no entity.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Applier writes annotation mappings into a graph store.
type Applier struct {
	logger *slog.Logger
}

// NewApplier creates an annotation applier.
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger}
}

// Apply resolves each annotation key to an entity by display name
// (exact match first, then case-insensitive) and merges its fields into
// the entity's annotation bag. A field whose key already exists in the
// entity's explicit property bag is never applied.
func (a *Applier) Apply(store *graph.Store, annotations source.Annotations, provenance string) (*Report, error) {
	report := &Report{}

	for _, key := range annotations.Keys() {
		entity, ok := store.FindByName(key)
		if !ok {
			report.Unmatched = append(report.Unmatched, key)
			continue
		}

		for field, raw := range annotations[key] {
			applied, err := store.SetAnnotation(entity.ID, field, graph.Coerce(raw, provenance))
			if err != nil {
				return nil, err
			}
			if applied {
				report.Applied++
			} else {
				report.Shadowed++
			}
		}
	}

	a.logger.Info("Annotations applied",
		"provenance", provenance,
		"applied", report.Applied,
		"shadowed", report.Shadowed,
		"unmatched", len(report.Unmatched))

	return report, nil
}
