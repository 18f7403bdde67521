package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Kind discriminates between the two source families the engine ingests.
type Kind string

// Source kinds.
const (
	// KindOntology marks semantic markup files (OWL/RDF-XML).
	KindOntology Kind = "ontology"
	// KindAnnotation marks tabular annotation files (Excel workbooks).
	KindAnnotation Kind = "annotation"
	// KindUnknown marks files the engine does not ingest.
	KindUnknown Kind = "unknown"
)

// Loader defines the interface for ontology source loaders.
type Loader interface {
	// Load parses one source file into a descriptor. It returns a
	// *ParseError on malformed markup and must not mutate shared state.
	Load(path string) (*Descriptor, error)

	// CanLoad returns true if this loader handles the given MIME type.
	CanLoad(mimeType string) bool

	// MimeType returns the primary MIME type for this loader.
	MimeType() string
}

// Registry manages ontology source loaders keyed by MIME type.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty loader registry. Callers register the
// loaders they need; the registry takes no position on formats.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]Loader),
	}
}

// Register adds a loader to the registry.
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[l.MimeType()] = l
}

// GetByMimeType returns a loader for the given MIME type, or nil.
func (r *Registry) GetByMimeType(mimeType string) Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.loaders[mimeType]; ok {
		return l
	}
	for _, l := range r.loaders {
		if l.CanLoad(mimeType) {
			return l
		}
	}
	return nil
}

// GetByExtension returns a loader for a file based on its extension.
func (r *Registry) GetByExtension(filename string) Loader {
	return r.GetByMimeType(MimeTypeFromExtension(filepath.Ext(filename)))
}

// Load parses a source file using the appropriate loader.
func (r *Registry) Load(path string) (*Descriptor, error) {
	l := r.GetByExtension(path)
	if l == nil {
		return nil, fmt.Errorf("no loader for file type: %s", filepath.Ext(path))
	}
	return l.Load(path)
}

// ListMimeTypes returns all registered MIME types.
func (r *Registry) ListMimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.loaders))
	for t := range r.loaders {
		types = append(types, t)
	}
	return types
}

// KindForFile classifies a file path by extension.
func KindForFile(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".owl", ".rdf", ".xml":
		return KindOntology
	case ".xlsx", ".xlsm":
		return KindAnnotation
	default:
		return KindUnknown
	}
}

// MimeTypeFromExtension returns the MIME type for a file extension.
func MimeTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".owl":
		return "application/owl+xml"
	case ".rdf", ".xml":
		return "application/rdf+xml"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
