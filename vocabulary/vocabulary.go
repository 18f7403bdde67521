// Package vocabulary maps source-specific relationship and class names
// onto the engine's canonical vocabulary.
//
// The canonical relation set is open-ended and supplied as data: a
// registry of canonical relations plus an alias table from source
// predicate names. Nothing here branches on specific relation names.
package vocabulary

import (
	"strings"
	"sync"
)

// Relation describes a canonical relationship type.
type Relation struct {
	// Name is the canonical relation name used internally regardless of
	// source-specific naming.
	Name string

	// Description is human-readable documentation.
	Description string

	// IRI is the standard-vocabulary equivalent, if any.
	IRI string
}

// TypeRule maps class-name keywords to an entity type. Rules are
// evaluated in registration order; the first keyword match wins.
type TypeRule struct {
	Keywords []string
	Type     string
}

// Registry holds the canonical relation set, the alias table from
// source predicate names, and the entity-type rules.
type Registry struct {
	mu        sync.RWMutex
	relations map[string]Relation // keyed by canonical name
	aliases   map[string]alias    // keyed by folded source name
	typeRules []TypeRule
}

type alias struct {
	canonical string
	inverse   bool
}

// Option is a functional option for relation registration.
type Option func(*Relation)

// WithDescription sets the relation's documentation string.
func WithDescription(desc string) Option {
	return func(r *Relation) {
		r.Description = desc
	}
}

// WithIRI sets the standard-vocabulary IRI for the relation.
func WithIRI(iri string) Option {
	return func(r *Relation) {
		r.IRI = iri
	}
}

// NewRegistry creates a registry pre-populated with the default
// healthcare vocabulary. Callers extend it from configuration.
func NewRegistry() *Registry {
	r := &Registry{
		relations: make(map[string]Relation),
		aliases:   make(map[string]alias),
	}

	r.Register("treatsDisease",
		WithDescription("Treatment addresses a disease (treatment -> disease)"))
	r.Register("hasDisease",
		WithDescription("Patient diagnosed with a disease (patient -> disease)"))
	r.Register("receivesTreatment",
		WithDescription("Patient receives a treatment (patient -> treatment)"))
	r.Register("hasLabTest",
		WithDescription("Patient has a lab test on record (patient -> lab test)"))

	// Underscore spellings observed in source files.
	r.Alias("treats_disease", "treatsDisease", false)
	r.Alias("has_disease", "hasDisease", false)
	r.Alias("receives_treatment", "receivesTreatment", false)
	r.Alias("has_lab_test", "hasLabTest", false)

	r.RegisterTypeRule(TypeRule{Keywords: []string{"patient"}, Type: "Patient"})
	r.RegisterTypeRule(TypeRule{Keywords: []string{"disease", "diagnosis"}, Type: "Disease"})
	r.RegisterTypeRule(TypeRule{Keywords: []string{"treatment", "therapy", "medication"}, Type: "Treatment"})
	r.RegisterTypeRule(TypeRule{Keywords: []string{"doctor", "physician"}, Type: "Doctor"})
	r.RegisterTypeRule(TypeRule{Keywords: []string{"facility", "hospital"}, Type: "Facility"})
	r.RegisterTypeRule(TypeRule{Keywords: []string{"labtest", "lab_test"}, Type: "LabTest"})

	return r
}

// Register adds a canonical relation and makes its own name
// resolvable as an alias.
func (r *Registry) Register(name string, opts ...Option) {
	rel := Relation{Name: name}
	for _, opt := range opts {
		opt(&rel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[name] = rel
	r.aliases[fold(name)] = alias{canonical: name}
}

// Alias maps a source-specific predicate name onto a canonical
// relation. When inverse is true, the assertion's endpoints are swapped
// on ingest.
func (r *Registry) Alias(sourceName, canonical string, inverse bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[fold(sourceName)] = alias{canonical: canonical, inverse: inverse}
}

// Canonicalize resolves a source predicate name to its canonical
// relation name. Unmapped names pass through unchanged so that
// predicates outside the configured vocabulary are still ingested
// (forward-compatible).
func (r *Registry) Canonicalize(sourceName string) (name string, inverse bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.aliases[fold(sourceName)]; ok {
		return a.canonical, a.inverse
	}
	return sourceName, false
}

// Relation returns the metadata for a canonical relation name.
func (r *Registry) Relation(name string) (Relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rel, ok := r.relations[name]
	return rel, ok
}

// ListRelations returns all registered canonical relation names.
func (r *Registry) ListRelations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.relations))
	for name := range r.relations {
		names = append(names, name)
	}
	return names
}

// RegisterTypeRule appends an entity-type inference rule.
func (r *Registry) RegisterTypeRule(rule TypeRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typeRules = append(r.typeRules, rule)
}

// TypeForClass resolves a class local name to an entity type. A
// matching rule wins; otherwise the class name itself is the type, so
// unconfigured ontologies still produce meaningful tags. Individuals
// without any class membership get the fallback type "Entity".
func (r *Registry) TypeForClass(class string) string {
	if class == "" {
		return "Entity"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	folded := fold(class)
	for _, rule := range r.typeRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(folded, kw) {
				return rule.Type
			}
		}
	}
	return class
}

// fold normalizes a name for case-insensitive lookup.
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
