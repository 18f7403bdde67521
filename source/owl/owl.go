// Package owl parses OWL ontology files in RDF/XML form into source
// descriptors.
//
// Only the subset covering class declarations, object-property
// declarations, named individuals with class memberships, and
// subject-predicate-object assertions between individuals is interpreted.
// Constructs outside this subset (restrictions, cardinality, imports,
// data-property ranges) are skipped, never treated as errors.
package owl

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/semgraph/source"
)

// Well-known namespaces.
const (
	NamespaceOWL  = "http://www.w3.org/2002/07/owl#"
	NamespaceRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS = "http://www.w3.org/2000/01/rdf-schema#"
)

// Loader parses OWL RDF/XML files. It is a pure function over the file
// contents: it never mutates graph state.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates an OWL loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// MimeType returns the primary MIME type for this loader.
func (l *Loader) MimeType() string {
	return "application/owl+xml"
}

// CanLoad returns true for OWL and RDF/XML MIME types.
func (l *Loader) CanLoad(mimeType string) bool {
	switch mimeType {
	case "application/owl+xml", "application/rdf+xml", "text/xml", "application/xml":
		return true
	default:
		return false
	}
}

// Load parses one ontology file into a descriptor.
func (l *Loader) Load(path string) (*source.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology file: %w", err)
	}
	defer f.Close()

	desc, err := l.Parse(path, f)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Ontology file loaded",
		"path", path,
		"classes", len(desc.Classes),
		"individuals", len(desc.Individuals),
		"assertions", len(desc.Assertions))

	return desc, nil
}

// Parse reads RDF/XML from r and builds a descriptor. The decode is
// streaming; the file is never held in memory as a DOM.
func (l *Loader) Parse(path string, r io.Reader) (*source.Descriptor, error) {
	desc := &source.Descriptor{
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:       path,
		Namespaces: make(map[string]string),
	}

	dec := xml.NewDecoder(r)
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, source.NewParseError(path, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !sawRoot {
			sawRoot = true
			collectNamespaces(start, desc.Namespaces)
			continue
		}

		if err := l.parseNode(dec, start, desc); err != nil {
			return nil, source.NewParseError(path, err)
		}
	}

	if !sawRoot {
		return nil, source.NewParseError(path, fmt.Errorf("no root element"))
	}

	return desc, nil
}

// parseNode dispatches one top-level element under the RDF root.
func (l *Loader) parseNode(dec *xml.Decoder, start xml.StartElement, desc *source.Descriptor) error {
	if start.Name.Space != NamespaceOWL {
		// Outside the interpreted subset.
		return dec.Skip()
	}

	switch start.Name.Local {
	case "Class":
		if iri := nodeIRI(start); iri != "" {
			desc.Classes = append(desc.Classes, source.Class{
				Name: LocalName(iri),
				IRI:  iri,
			})
		}
		return dec.Skip()

	case "ObjectProperty":
		return l.parseObjectProperty(dec, start, desc)

	case "NamedIndividual":
		return l.parseIndividual(dec, start, desc)

	default:
		// Ontology headers, restrictions, datatype properties and the
		// rest of OWL are skipped.
		return dec.Skip()
	}
}

// parseObjectProperty captures a declared object property with its
// optional rdfs:domain and rdfs:range.
func (l *Loader) parseObjectProperty(dec *xml.Decoder, start xml.StartElement, desc *source.Descriptor) error {
	iri := nodeIRI(start)
	prop := source.ObjectProperty{
		Name: LocalName(iri),
		IRI:  iri,
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == NamespaceRDFS {
				switch t.Name.Local {
				case "domain":
					prop.Domain = LocalName(resourceAttr(t))
				case "range":
					prop.Range = LocalName(resourceAttr(t))
				}
			}
			if err := dec.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if prop.Name != "" {
				desc.ObjectProperties = append(desc.ObjectProperties, prop)
			}
			return nil
		}
	}
}

// parseIndividual captures a named individual, its class memberships,
// and its property assertions. Assertions carrying an rdf:resource link
// to another individual; assertions with character data are literal
// properties.
func (l *Loader) parseIndividual(dec *xml.Decoder, start xml.StartElement, desc *source.Descriptor) error {
	iri := nodeIRI(start)
	if iri == "" {
		return dec.Skip()
	}

	ind := source.Individual{
		Name:     LocalName(iri),
		IRI:      iri,
		Literals: make(map[string]string),
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == NamespaceRDF && t.Name.Local == "type" {
				if class := LocalName(resourceAttr(t)); class != "" && !isBuiltinClass(resourceAttr(t)) {
					ind.Types = append(ind.Types, class)
				}
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}

			// Predicates are captured whether or not they were declared
			// as object properties, and whether namespace-qualified or
			// bare.
			predicate := t.Name.Local

			if resource := resourceAttr(t); resource != "" {
				desc.Assertions = append(desc.Assertions, source.Assertion{
					Subject:   ind.Name,
					Predicate: predicate,
					Object:    LocalName(resource),
				})
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}

			literal, err := readLiteral(dec)
			if err != nil {
				return err
			}
			if literal != "" {
				ind.Literals[predicate] = literal
			}

		case xml.EndElement:
			desc.Individuals = append(desc.Individuals, ind)
			return nil
		}
	}
}

// readLiteral consumes tokens until the enclosing element closes,
// accumulating character data. Nested markup inside a literal is outside
// the interpreted subset and is ignored.
func readLiteral(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 0 {
				sb.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.TrimSpace(sb.String()), nil
			}
			depth--
		}
	}
}

// collectNamespaces records xmlns declarations from the root element.
func collectNamespaces(root xml.StartElement, into map[string]string) {
	for _, attr := range root.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			into[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			into[""] = attr.Value
		}
	}
}

// nodeIRI returns the identifying IRI of a node from rdf:about or
// rdf:ID, tolerating bare attribute names for files without namespace
// prefixes on attributes.
func nodeIRI(start xml.StartElement) string {
	for _, attr := range start.Attr {
		if attr.Name.Local != "about" && attr.Name.Local != "ID" {
			continue
		}
		if attr.Name.Space == NamespaceRDF || attr.Name.Space == "" {
			return attr.Value
		}
	}
	return ""
}

// resourceAttr returns the rdf:resource attribute value, tolerating a
// bare "resource" attribute.
func resourceAttr(start xml.StartElement) string {
	for _, attr := range start.Attr {
		if attr.Name.Local != "resource" {
			continue
		}
		if attr.Name.Space == NamespaceRDF || attr.Name.Space == "" {
			return attr.Value
		}
	}
	return ""
}

// isBuiltinClass reports whether a type IRI points into the OWL or RDFS
// vocabularies rather than a user-declared class.
func isBuiltinClass(iri string) bool {
	return strings.HasPrefix(iri, NamespaceOWL) || strings.HasPrefix(iri, NamespaceRDFS)
}

// LocalName extracts the local name from an IRI or qualified reference:
// the fragment after '#' when present, otherwise the segment after the
// last '/'. Bare local names pass through unchanged.
func LocalName(iri string) string {
	if iri == "" {
		return ""
	}
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
