// Package source provides types and loaders for knowledge source ingestion.
package source

import "sort"

// Descriptor is the intermediate representation produced by an ontology
// loader. It is never persisted; the graph store consumes it during merge
// and the descriptor is discarded afterwards.
type Descriptor struct {
	// Name is the provenance tag recorded on merged entities, typically
	// the source file's base name without extension.
	Name string

	// Path is the file the descriptor was parsed from.
	Path string

	// Namespaces maps declared prefixes to their IRIs. The empty prefix
	// holds the default namespace, if one was declared.
	Namespaces map[string]string

	// Classes are raw class declarations. They are reference data only
	// and never become entities.
	Classes []Class

	// ObjectProperties are declared object properties. Assertions may
	// reference properties that were never declared; those are still
	// captured in Assertions.
	ObjectProperties []ObjectProperty

	// Individuals are the authoritative entity source.
	Individuals []Individual

	// Assertions are subject-predicate-object facts whose object is
	// another individual. Literal-valued assertions are recorded on the
	// individual's Literals map instead.
	Assertions []Assertion
}

// Class is a raw class declaration.
type Class struct {
	Name string
	IRI  string
}

// ObjectProperty is a declared object property with optional domain/range.
type ObjectProperty struct {
	Name   string
	IRI    string
	Domain string
	Range  string
}

// Individual is a named instance with its class memberships and
// literal-valued properties.
type Individual struct {
	Name string
	IRI  string

	// Types holds the local names of the individual's class memberships.
	Types []string

	// Literals holds property assertions whose object is a literal value.
	// Values are kept as raw strings; the graph store coerces them to
	// typed values at merge time.
	Literals map[string]string
}

// Assertion links two individuals through a source-specific predicate.
// Subject, Predicate and Object are local names resolved against the
// descriptor's namespace table.
type Assertion struct {
	Subject   string
	Predicate string
	Object    string
}

// Annotations maps an inferred entity key to its annotation fields.
// It is the output of an annotation loader and the input of the applier.
type Annotations map[string]map[string]string

// Keys returns the entity keys present in the annotation mapping, in
// sorted order so that application outcomes are reproducible.
func (a Annotations) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
