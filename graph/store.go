package graph

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semgraph/vocabulary"
)

// relKey identifies a (type, source, target) triple for deduplication.
type relKey struct {
	relType  string
	sourceID string
	targetID string
}

// Store is the canonical, deduplicated entity-relationship graph.
//
// Mutations run under exclusive lock; read-only queries run concurrently
// with each other and never observe a partially applied merge. All
// returned entities and relationships are copies.
type Store struct {
	mu     sync.RWMutex
	vocab  *vocabulary.Registry
	logger *slog.Logger

	entities map[string]*Entity
	order    []string          // entity ids in insertion order
	byKey    map[string]string // normalized external key -> entity id
	byName   map[string]string // exact display name -> entity id

	relationships map[string]*Relationship
	relOrder      []string          // relationship ids in insertion order
	relIndex      map[relKey]string // triple -> relationship id
	outgoing      map[string][]string
	incoming      map[string][]string
}

// NewStore creates an empty store using the given canonical vocabulary.
func NewStore(vocab *vocabulary.Registry, logger *slog.Logger) *Store {
	if vocab == nil {
		vocab = vocabulary.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		vocab:         vocab,
		logger:        logger,
		entities:      make(map[string]*Entity),
		byKey:         make(map[string]string),
		byName:        make(map[string]string),
		relationships: make(map[string]*Relationship),
		relIndex:      make(map[relKey]string),
		outgoing:      make(map[string][]string),
		incoming:      make(map[string][]string),
	}
}

// NormalizeKey folds an external key (a name or identifier string) for
// identity resolution. Two ingestions of the same normalized key resolve
// to the same entity.
func NormalizeKey(externalKey string) string {
	return strings.ToLower(strings.TrimSpace(externalKey))
}

// UpsertEntity creates or merges an entity identified by its external
// key. It is idempotent on the key: the first call creates, subsequent
// calls merge properties with last-write-wins at the property-key level.
// The returned id is stable across calls for the same key.
func (s *Store) UpsertEntity(externalKey, entityType string, props map[string]Value) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(externalKey, entityType, props, "api")
}

func (s *Store) upsertLocked(externalKey, entityType string, props map[string]Value, provenance string) (string, error) {
	key := NormalizeKey(externalKey)
	if key == "" {
		return "", fmt.Errorf("external key must not be empty")
	}

	now := time.Now()

	id, exists := s.byKey[key]
	if !exists {
		id = uuid.New().String()
		e := &Entity{
			ID:         id,
			Key:        key,
			Type:       "Entity",
			Name:       strings.TrimSpace(externalKey),
			Properties: make(map[string]Value),
			CreatedAt:  now,
		}
		s.entities[id] = e
		s.order = append(s.order, id)
		s.byKey[key] = id
		s.byName[e.Name] = id
	}

	e := s.entities[id]

	// A specific type always wins over the fallback; between two specific
	// types the last-loaded source wins.
	if entityType != "" && (e.Type == "Entity" || entityType != "Entity") {
		e.Type = entityType
	}

	for k, v := range props {
		e.Properties[k] = v
	}
	e.Sources = appendSource(e.Sources, provenance)
	e.UpdatedAt = now

	return id, nil
}

// AddRelationship creates a directed relationship between two stored
// entities. The relationship type is canonicalized through the
// vocabulary. It fails with ErrDanglingReference when either endpoint is
// absent, and returns the existing id when the (type, source, target)
// triple is already present.
func (s *Store) AddRelationship(relType, sourceID, targetID string, props map[string]Value) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRelationshipLocked(relType, sourceID, targetID, props, "api")
}

func (s *Store) addRelationshipLocked(relType, sourceID, targetID string, props map[string]Value, provenance string) (string, error) {
	canonical, inverse := s.vocab.Canonicalize(relType)
	if inverse {
		sourceID, targetID = targetID, sourceID
	}

	if _, ok := s.entities[sourceID]; !ok {
		return "", fmt.Errorf("source %s: %w", sourceID, ErrDanglingReference)
	}
	if _, ok := s.entities[targetID]; !ok {
		return "", fmt.Errorf("target %s: %w", targetID, ErrDanglingReference)
	}

	key := relKey{relType: canonical, sourceID: sourceID, targetID: targetID}
	if id, ok := s.relIndex[key]; ok {
		// Re-ingesting the same assertion is a no-op, not a second
		// relationship.
		rel := s.relationships[id]
		for k, v := range props {
			rel.Properties[k] = v
		}
		rel.Sources = appendSource(rel.Sources, provenance)
		return id, nil
	}

	id := uuid.New().String()
	rel := &Relationship{
		ID:         id,
		Type:       canonical,
		SourceID:   sourceID,
		TargetID:   targetID,
		Properties: make(map[string]Value),
		Sources:    []string{provenance},
		CreatedAt:  time.Now(),
	}
	for k, v := range props {
		rel.Properties[k] = v
	}

	s.relationships[id] = rel
	s.relOrder = append(s.relOrder, id)
	s.relIndex[key] = id
	s.outgoing[sourceID] = append(s.outgoing[sourceID], id)
	s.incoming[targetID] = append(s.incoming[targetID], id)

	return id, nil
}

// RemoveRelationship deletes a relationship by id. Relationships are
// destroyed only through this explicit call.
func (s *Store) RemoveRelationship(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relationships[id]
	if !ok {
		return ErrNotFound
	}

	delete(s.relationships, id)
	delete(s.relIndex, relKey{relType: rel.Type, sourceID: rel.SourceID, targetID: rel.TargetID})
	s.relOrder = removeID(s.relOrder, id)
	s.outgoing[rel.SourceID] = removeID(s.outgoing[rel.SourceID], id)
	s.incoming[rel.TargetID] = removeID(s.incoming[rel.TargetID], id)

	return nil
}

// RemoveEntity deletes an entity by id along with every relationship
// touching it, so the store never holds a dangling endpoint. Entities
// are destroyed only through this explicit call, never by a merge.
func (s *Store) RemoveEntity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return ErrNotFound
	}

	incident := append([]string{}, s.outgoing[id]...)
	incident = append(incident, s.incoming[id]...)
	for _, relID := range incident {
		rel, ok := s.relationships[relID]
		if !ok {
			continue
		}
		delete(s.relationships, relID)
		delete(s.relIndex, relKey{relType: rel.Type, sourceID: rel.SourceID, targetID: rel.TargetID})
		s.relOrder = removeID(s.relOrder, relID)
		s.outgoing[rel.SourceID] = removeID(s.outgoing[rel.SourceID], relID)
		s.incoming[rel.TargetID] = removeID(s.incoming[rel.TargetID], relID)
	}

	delete(s.entities, id)
	delete(s.byKey, e.Key)
	delete(s.byName, e.Name)
	delete(s.outgoing, id)
	delete(s.incoming, id)
	s.order = removeID(s.order, id)

	return nil
}

// GetEntity returns a copy of the entity with the given id.
func (s *Store) GetEntity(id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// FindByName resolves a display name to an entity: exact match first,
// then case-insensitive.
func (s *Store) FindByName(name string) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byName[name]; ok {
		return s.entities[id].Clone(), true
	}
	if id, ok := s.byKey[NormalizeKey(name)]; ok {
		return s.entities[id].Clone(), true
	}
	return nil, false
}

// Query returns copies of the entities matching q, in insertion order.
func (s *Store) Query(q Query) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Entity
	for _, id := range s.order {
		if e := s.entities[id]; q.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// GetRelated returns the relationships touching the entity, each paired
// with the entity on the other end. With relTypes given, only those
// canonical types are returned. Outgoing edges come first, then
// incoming, each in insertion order.
func (s *Store) GetRelated(id string, relTypes ...string) ([]Related, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entities[id]; !ok {
		return nil, ErrNotFound
	}

	wanted := make(map[string]bool, len(relTypes))
	for _, t := range relTypes {
		canonical, _ := s.vocab.Canonicalize(t)
		wanted[canonical] = true
	}

	var out []Related
	collect := func(relIDs []string, otherEnd func(*Relationship) string) {
		for _, relID := range relIDs {
			rel := s.relationships[relID]
			if len(wanted) > 0 && !wanted[rel.Type] {
				continue
			}
			other := s.entities[otherEnd(rel)]
			out = append(out, Related{
				Relationship: rel.Clone(),
				Entity:       other.Clone(),
			})
		}
	}

	collect(s.outgoing[id], func(r *Relationship) string { return r.TargetID })
	collect(s.incoming[id], func(r *Relationship) string { return r.SourceID })

	return out, nil
}

// SetAnnotation records an annotation field on an entity. Annotations
// apply at lower precedence than explicit data: when the key already
// exists in the explicit property bag, the annotation is not applied
// and false is returned.
func (s *Store) SetAnnotation(id, key string, v Value) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return false, ErrNotFound
	}
	if _, exists := e.Properties[key]; exists {
		return false, nil
	}
	if e.Annotations == nil {
		e.Annotations = make(map[string]Value)
	}
	e.Annotations[key] = v
	e.UpdatedAt = time.Now()
	return true, nil
}

// Stats returns counts by entity type and relationship type.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Entities:      make(map[string]int),
		Relationships: make(map[string]int),
	}
	for _, e := range s.entities {
		st.Entities[e.Type]++
	}
	for _, r := range s.relationships {
		st.Relationships[r.Type]++
	}
	st.TotalEntities = len(s.entities)
	st.TotalRelationships = len(s.relationships)
	return st
}

// CheckIntegrity verifies the store-wide invariant that every
// relationship's endpoints resolve to existing entities. A failure here
// is a programming error and fatal to the load run.
func (s *Store) CheckIntegrity() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.relOrder {
		rel := s.relationships[id]
		if _, ok := s.entities[rel.SourceID]; !ok {
			return fmt.Errorf("relationship %s source %s: %w", id, rel.SourceID, ErrIntegrityViolation)
		}
		if _, ok := s.entities[rel.TargetID]; !ok {
			return fmt.Errorf("relationship %s target %s: %w", id, rel.TargetID, ErrIntegrityViolation)
		}
	}
	return nil
}

// Export returns a serializable snapshot of the graph in insertion
// order.
func (s *Store) Export() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Entities:      make([]*Entity, 0, len(s.order)),
		Relationships: make([]*Relationship, 0, len(s.relOrder)),
	}
	for _, id := range s.order {
		snap.Entities = append(snap.Entities, s.entities[id].Clone())
	}
	for _, id := range s.relOrder {
		snap.Relationships = append(snap.Relationships, s.relationships[id].Clone())
	}
	return snap
}

func appendSource(sources []string, src string) []string {
	for _, s := range sources {
		if s == src {
			return sources
		}
	}
	return append(sources, src)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
