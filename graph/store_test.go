package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEntity_IdempotentOnKey(t *testing.T) {
	s := NewStore(nil, nil)

	id1, err := s.UpsertEntity("Diabetes", "Disease", nil)
	require.NoError(t, err)

	id2, err := s.UpsertEntity("Diabetes", "Disease", nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// Normalized keys resolve to the same entity.
	id3, err := s.UpsertEntity("  diabetes ", "Disease", nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id3)

	assert.Equal(t, 1, s.Stats().TotalEntities)
}

func TestUpsertEntity_EmptyKey(t *testing.T) {
	s := NewStore(nil, nil)

	_, err := s.UpsertEntity("  ", "Disease", nil)
	assert.Error(t, err)
}

func TestUpsertEntity_PropertyMerge(t *testing.T) {
	s := NewStore(nil, nil)

	id, err := s.UpsertEntity("Patient1", "Patient", map[string]Value{
		"age":  NumberValue(54, "a"),
		"ward": StringValue("east", "a"),
	})
	require.NoError(t, err)

	// New keys are added; existing keys are overwritten by the newer
	// call.
	_, err = s.UpsertEntity("Patient1", "Patient", map[string]Value{
		"ward":     StringValue("west", "b"),
		"admitted": BoolValue(true, "b"),
	})
	require.NoError(t, err)

	e, err := s.GetEntity(id)
	require.NoError(t, err)
	assert.Equal(t, NumberValue(54, "a"), e.Properties["age"])
	assert.Equal(t, StringValue("west", "b"), e.Properties["ward"])
	assert.Equal(t, BoolValue(true, "b"), e.Properties["admitted"])
}

func TestAddRelationship_DanglingReference(t *testing.T) {
	s := NewStore(nil, nil)

	id, err := s.UpsertEntity("Diabetes", "Disease", nil)
	require.NoError(t, err)

	_, err = s.AddRelationship("treatsDisease", "nope", id, nil)
	assert.ErrorIs(t, err, ErrDanglingReference)

	_, err = s.AddRelationship("treatsDisease", id, "nope", nil)
	assert.ErrorIs(t, err, ErrDanglingReference)

	assert.Equal(t, 0, s.Stats().TotalRelationships)
}

func TestAddRelationship_Dedup(t *testing.T) {
	s := NewStore(nil, nil)

	src, _ := s.UpsertEntity("InsulinTherapy", "Treatment", nil)
	tgt, _ := s.UpsertEntity("Diabetes", "Disease", nil)

	id1, err := s.AddRelationship("treatsDisease", src, tgt, nil)
	require.NoError(t, err)

	// Same triple through an alias spelling still dedups.
	id2, err := s.AddRelationship("treats_disease", src, tgt, nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	assert.Equal(t, 1, s.Stats().TotalRelationships)
}

func TestRemoveRelationship(t *testing.T) {
	s := NewStore(nil, nil)

	src, _ := s.UpsertEntity("InsulinTherapy", "Treatment", nil)
	tgt, _ := s.UpsertEntity("Diabetes", "Disease", nil)
	id, _ := s.AddRelationship("treatsDisease", src, tgt, nil)

	require.NoError(t, s.RemoveRelationship(id))
	assert.Equal(t, 0, s.Stats().TotalRelationships)
	assert.ErrorIs(t, s.RemoveRelationship(id), ErrNotFound)

	related, err := s.GetRelated(src)
	require.NoError(t, err)
	assert.Empty(t, related)

	// Re-adding after removal creates a fresh relationship.
	id2, err := s.AddRelationship("treatsDisease", src, tgt, nil)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestRemoveEntity_CascadesRelationships(t *testing.T) {
	s := NewStore(nil, nil)

	src, _ := s.UpsertEntity("InsulinTherapy", "Treatment", nil)
	tgt, _ := s.UpsertEntity("Diabetes", "Disease", nil)
	_, err := s.AddRelationship("treatsDisease", src, tgt, nil)
	require.NoError(t, err)

	require.NoError(t, s.RemoveEntity(tgt))

	_, err = s.GetEntity(tgt)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Stats().TotalRelationships)
	assert.NoError(t, s.CheckIntegrity())

	// The key is released; a re-ingest creates a fresh entity.
	fresh, err := s.UpsertEntity("Diabetes", "Disease", nil)
	require.NoError(t, err)
	assert.NotEqual(t, tgt, fresh)

	assert.ErrorIs(t, s.RemoveEntity(tgt), ErrNotFound)
}

func TestGetEntity_NotFound(t *testing.T) {
	s := NewStore(nil, nil)

	_, err := s.GetEntity("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_InsertionOrder(t *testing.T) {
	s := NewStore(nil, nil)

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := s.UpsertEntity(name, "Disease", nil)
		require.NoError(t, err)
	}

	got := s.Query(Query{Type: "Disease"})
	require.Len(t, got, 3)
	assert.Equal(t, "Zeta", got[0].Name)
	assert.Equal(t, "Alpha", got[1].Name)
	assert.Equal(t, "Mid", got[2].Name)
}

func TestQuery_Filters(t *testing.T) {
	s := NewStore(nil, nil)

	_, err := s.UpsertEntity("Diabetes", "Disease", map[string]Value{
		"chronic": BoolValue(true, "t"),
	})
	require.NoError(t, err)
	_, err = s.UpsertEntity("Influenza", "Disease", map[string]Value{
		"chronic": BoolValue(false, "t"),
	})
	require.NoError(t, err)
	_, err = s.UpsertEntity("InsulinTherapy", "Treatment", nil)
	require.NoError(t, err)

	byType := s.Query(Query{Type: "Disease"})
	assert.Len(t, byType, 2)

	byName := s.Query(Query{NameSubstring: "diab"})
	require.Len(t, byName, 1)
	assert.Equal(t, "Diabetes", byName[0].Name)

	byProp := s.Query(Query{Properties: map[string]Value{
		"chronic": BoolValue(true, "other-source"),
	}})
	require.Len(t, byProp, 1)
	assert.Equal(t, "Diabetes", byProp[0].Name)

	assert.Len(t, s.Query(Query{}), 3)
}

func TestGetRelated(t *testing.T) {
	s := NewStore(nil, nil)

	patient, _ := s.UpsertEntity("Patient1", "Patient", nil)
	disease, _ := s.UpsertEntity("Diabetes", "Disease", nil)
	treatment, _ := s.UpsertEntity("InsulinTherapy", "Treatment", nil)

	_, err := s.AddRelationship("hasDisease", patient, disease, nil)
	require.NoError(t, err)
	_, err = s.AddRelationship("treatsDisease", treatment, disease, nil)
	require.NoError(t, err)

	// Disease sees both incoming edges.
	related, err := s.GetRelated(disease)
	require.NoError(t, err)
	require.Len(t, related, 2)

	// Filtered by relation type, tolerating alias spellings.
	related, err = s.GetRelated(disease, "treats_disease")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "treatsDisease", related[0].Relationship.Type)
	assert.Equal(t, "InsulinTherapy", related[0].Entity.Name)

	_, err = s.GetRelated("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAnnotation_Precedence(t *testing.T) {
	s := NewStore(nil, nil)

	id, err := s.UpsertEntity("Diabetes", "Disease", map[string]Value{
		"severity": StringValue("moderate", "ontology"),
	})
	require.NoError(t, err)

	// Explicit property for the same key blocks the annotation.
	applied, err := s.SetAnnotation(id, "severity", StringValue("chronic", "workbook"))
	require.NoError(t, err)
	assert.False(t, applied)

	// Unclaimed keys land in the annotation bag.
	applied, err = s.SetAnnotation(id, "prevalence", StringValue("common", "workbook"))
	require.NoError(t, err)
	assert.True(t, applied)

	e, err := s.GetEntity(id)
	require.NoError(t, err)
	assert.Equal(t, "moderate", e.Properties["severity"].Str)
	assert.Equal(t, "common", e.Annotations["prevalence"].Str)
	_, shadowed := e.Annotations["severity"]
	assert.False(t, shadowed)
}

func TestFindByName(t *testing.T) {
	s := NewStore(nil, nil)

	_, err := s.UpsertEntity("Diabetes", "Disease", nil)
	require.NoError(t, err)

	e, ok := s.FindByName("Diabetes")
	require.True(t, ok)
	assert.Equal(t, "Diabetes", e.Name)

	e, ok = s.FindByName("DIABETES")
	require.True(t, ok)
	assert.Equal(t, "Diabetes", e.Name)

	_, ok = s.FindByName("Influenza")
	assert.False(t, ok)
}

func TestCheckIntegrity(t *testing.T) {
	s := NewStore(nil, nil)

	src, _ := s.UpsertEntity("InsulinTherapy", "Treatment", nil)
	tgt, _ := s.UpsertEntity("Diabetes", "Disease", nil)
	_, err := s.AddRelationship("treatsDisease", src, tgt, nil)
	require.NoError(t, err)

	require.NoError(t, s.CheckIntegrity())

	// Corrupt the store from the inside: a relationship pointing at a
	// removed entity must surface as an invariant violation.
	s.mu.Lock()
	delete(s.entities, tgt)
	s.mu.Unlock()

	assert.ErrorIs(t, s.CheckIntegrity(), ErrIntegrityViolation)
}

func TestExport(t *testing.T) {
	s := NewStore(nil, nil)

	src, _ := s.UpsertEntity("InsulinTherapy", "Treatment", nil)
	tgt, _ := s.UpsertEntity("Diabetes", "Disease", nil)
	_, err := s.AddRelationship("treatsDisease", src, tgt, nil)
	require.NoError(t, err)

	snap := s.Export()
	require.Len(t, snap.Entities, 2)
	require.Len(t, snap.Relationships, 1)
	assert.Equal(t, "InsulinTherapy", snap.Entities[0].Name)
	assert.Equal(t, "treatsDisease", snap.Relationships[0].Type)
}

func TestClone_Isolation(t *testing.T) {
	s := NewStore(nil, nil)

	id, err := s.UpsertEntity("Diabetes", "Disease", map[string]Value{
		"code": StringValue("E11", "t"),
	})
	require.NoError(t, err)

	e, err := s.GetEntity(id)
	require.NoError(t, err)
	e.Properties["code"] = StringValue("tampered", "t")

	fresh, err := s.GetEntity(id)
	require.NoError(t, err)
	assert.Equal(t, "E11", fresh.Properties["code"].Str)
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, BoolValue(true, "s"), Coerce("true", "s"))
	assert.Equal(t, BoolValue(false, "s"), Coerce("False", "s"))
	assert.Equal(t, NumberValue(42, "s"), Coerce("42", "s"))
	assert.Equal(t, NumberValue(-3.5, "s"), Coerce("-3.5", "s"))
	assert.Equal(t, StringValue("E11", "s"), Coerce("E11", "s"))
}
