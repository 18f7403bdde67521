// Package graph provides the canonical, deduplicated entity-relationship
// store that ingested sources merge into.
package graph

import (
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the closed set of property value kinds.
type Kind int

// Value kinds.
const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a scalar property value with a provenance tag. Exactly one of
// the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind   Kind    `json:"kind"`
	Str    string  `json:"str,omitempty"`
	Num    float64 `json:"num,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
	Source string  `json:"source,omitempty"`
}

// StringValue creates a string-kind value.
func StringValue(s, source string) Value {
	return Value{Kind: KindString, Str: s, Source: source}
}

// NumberValue creates a number-kind value.
func NumberValue(n float64, source string) Value {
	return Value{Kind: KindNumber, Num: n, Source: source}
}

// BoolValue creates a bool-kind value.
func BoolValue(b bool, source string) Value {
	return Value{Kind: KindBool, Bool: b, Source: source}
}

// Coerce turns a raw literal into a typed value: "true"/"false" become
// bools, parseable numbers become numbers, everything else stays a
// string.
func Coerce(raw, source string) Value {
	switch strings.ToLower(raw) {
	case "true":
		return BoolValue(true, source)
	case "false":
		return BoolValue(false, source)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return NumberValue(n, source)
	}
	return StringValue(raw, source)
}

// Equal reports payload equality, ignoring provenance.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	default:
		return false
	}
}

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return v.Str
	}
}

// String renders the payload for display.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// Entity is a node in the store. Properties holds explicitly asserted
// data; Annotations holds lower-precedence metadata applied from
// annotation sources and never shadows an explicit property.
type Entity struct {
	ID          string           `json:"id"`
	Key         string           `json:"key"`
	Type        string           `json:"type"`
	Name        string           `json:"name"`
	Properties  map[string]Value `json:"properties,omitempty"`
	Annotations map[string]Value `json:"annotations,omitempty"`
	Sources     []string         `json:"sources,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to callers outside the store
// lock.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Properties = cloneValues(e.Properties)
	c.Annotations = cloneValues(e.Annotations)
	c.Sources = append([]string(nil), e.Sources...)
	return &c
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	SourceID   string           `json:"source_id"`
	TargetID   string           `json:"target_id"`
	Properties map[string]Value `json:"properties,omitempty"`
	Sources    []string         `json:"sources,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Clone returns a deep copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	c := *r
	c.Properties = cloneValues(r.Properties)
	c.Sources = append([]string(nil), r.Sources...)
	return &c
}

// Related pairs a relationship with the entity on its other end.
type Related struct {
	Relationship *Relationship
	Entity       *Entity
}

// Query filters entities. Zero-value fields do not constrain the result.
type Query struct {
	// Type matches the entity type exactly.
	Type string

	// NameSubstring matches case-insensitively against display names.
	NameSubstring string

	// Properties requires payload-equal explicit property values.
	Properties map[string]Value
}

// Matches reports whether the entity satisfies every set filter.
func (q Query) Matches(e *Entity) bool {
	if q.Type != "" && e.Type != q.Type {
		return false
	}
	if q.NameSubstring != "" &&
		!strings.Contains(strings.ToLower(e.Name), strings.ToLower(q.NameSubstring)) {
		return false
	}
	for key, want := range q.Properties {
		got, ok := e.Properties[key]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Stats counts store contents by entity type and relationship type.
type Stats struct {
	Entities           map[string]int `json:"entities_by_type"`
	Relationships      map[string]int `json:"relationships_by_type"`
	TotalEntities      int            `json:"total_entities"`
	TotalRelationships int            `json:"total_relationships"`
}

// Snapshot is a serializable export of the merged graph, in insertion
// order.
type Snapshot struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}

func cloneValues(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	c := make(map[string]Value, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
