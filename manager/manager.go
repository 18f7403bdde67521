// Package manager orchestrates multi-source ingestion into a single
// graph store and exposes the engine's query and write surface.
package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semgraph/annotate"
	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/graph"
	"github.com/c360studio/semgraph/metric"
	"github.com/c360studio/semgraph/source"
	"github.com/c360studio/semgraph/source/excel"
	"github.com/c360studio/semgraph/source/owl"
	"github.com/c360studio/semgraph/vocabulary"
)

// State is the orchestrator lifecycle state.
type State string

// Lifecycle states. Ready accepts further load calls, so ingestion is
// incremental and repeatable.
const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// ErrFailed is returned for load calls after the store's own invariants
// were found violated. A single bad input file never causes this; it is
// isolated and the run continues.
var ErrFailed = errors.New("manager in failed state")

// FileError records a skipped source file.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// LoadReport summarizes one load batch.
type LoadReport struct {
	Ontologies  []*graph.MergeReport `json:"ontologies,omitempty"`
	Annotations []*annotate.Report   `json:"annotations,omitempty"`

	// Skipped lists files dropped from the batch with their errors.
	Skipped []FileError `json:"skipped,omitempty"`

	// AnnotationsSkipped is set when the whole annotation phase was
	// skipped because the capability is unavailable.
	AnnotationsSkipped bool `json:"annotations_skipped,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Warnings returns the total number of per-assertion and per-key
// warnings recorded across the batch.
func (r *LoadReport) Warnings() int {
	n := 0
	for _, m := range r.Ontologies {
		n += len(m.Warnings)
	}
	for _, a := range r.Annotations {
		n += len(a.Unmatched)
	}
	return n
}

// Manager owns the graph store and drives loaders against it. External
// callers interact with the store only through this surface.
type Manager struct {
	mu    sync.Mutex // serializes loads and guards state
	state State

	cfg     *config.Config
	vocab   *vocabulary.Registry
	store   *graph.Store
	loaders *source.Registry
	tables  *excel.Loader
	applier *annotate.Applier
	metrics *metric.Metrics
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New creates a manager from configuration. The canonical vocabulary is
// seeded from the defaults and extended with the configured relation
// and entity-type mappings.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := &Manager{
		state:  StateEmpty,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.vocab = vocabulary.NewRegistry()
	for _, rel := range cfg.Relations {
		if _, ok := m.vocab.Relation(rel.Canonical); !ok {
			m.vocab.Register(rel.Canonical, vocabulary.WithDescription(rel.Description))
		}
		m.vocab.Alias(rel.Source, rel.Canonical, rel.Inverse)
	}
	for _, tm := range cfg.EntityTypes {
		m.vocab.RegisterTypeRule(vocabulary.TypeRule{Keywords: tm.Keywords, Type: tm.Type})
	}

	m.store = graph.NewStore(m.vocab, m.logger)

	m.loaders = source.NewRegistry()
	m.loaders.Register(owl.NewLoader(m.logger))

	m.tables = excel.NewLoader(cfg.Annotations.Enabled, m.logger)
	m.applier = annotate.NewApplier(m.logger)

	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Store exposes the underlying graph store for callers that need the
// full store surface. The store is safe for concurrent use.
func (m *Manager) Store() *graph.Store {
	return m.store
}

// LoadDirectory discovers source files under dir (the configured
// sources directory when dir is empty) and ingests them: every ontology
// file first, in lexicographic order, then every annotation file. The
// fixed order makes merge outcomes for overlapping keys reproducible
// regardless of filesystem enumeration order.
func (m *Manager) LoadDirectory(dir string) (*LoadReport, error) {
	if dir == "" {
		dir = m.cfg.Sources.Dir
	}

	ontologies, err := discoverSources(dir, m.cfg.Sources.OntologyGlobs)
	if err != nil {
		return nil, fmt.Errorf("discover ontology sources: %w", err)
	}
	annotations, err := discoverSources(dir, m.cfg.Sources.AnnotationGlobs)
	if err != nil {
		return nil, fmt.Errorf("discover annotation sources: %w", err)
	}

	return m.load(ontologies, annotations)
}

// LoadFiles ingests an explicit set of files, classified by extension
// and ordered deterministically within each group.
func (m *Manager) LoadFiles(paths ...string) (*LoadReport, error) {
	var ontologies, annotations []string
	var report LoadReport

	for _, p := range paths {
		switch source.KindForFile(p) {
		case source.KindOntology:
			ontologies = append(ontologies, p)
		case source.KindAnnotation:
			annotations = append(annotations, p)
		default:
			report.Skipped = append(report.Skipped, FileError{
				Path: p,
				Err:  "unrecognized source kind",
			})
		}
	}
	sortPaths(ontologies)
	sortPaths(annotations)

	loaded, err := m.load(ontologies, annotations)
	if err != nil {
		return nil, err
	}
	loaded.Skipped = append(report.Skipped, loaded.Skipped...)
	return loaded, nil
}

// load runs one batch: all ontology merges, then the annotation phase.
// File-level errors are isolated and recorded; the only fatal condition
// is a violated store invariant.
func (m *Manager) load(ontologies, annotations []string) (*LoadReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateFailed {
		return nil, ErrFailed
	}
	m.state = StateLoading

	start := time.Now()
	report := &LoadReport{}

	for _, path := range ontologies {
		desc, err := m.loaders.Load(path)
		if err != nil {
			m.logger.Warn("Skipping ontology file", "path", path, "error", err)
			report.Skipped = append(report.Skipped, FileError{Path: path, Err: err.Error()})
			m.countFile("ontology", "error")
			continue
		}

		merged, err := m.store.MergeDescriptor(desc)
		if err != nil {
			report.Skipped = append(report.Skipped, FileError{Path: path, Err: err.Error()})
			m.countFile("ontology", "error")
			continue
		}
		report.Ontologies = append(report.Ontologies, merged)
		m.countFile("ontology", "ok")
		m.observeMerge(merged)
	}

	if err := m.store.CheckIntegrity(); err != nil {
		m.state = StateFailed
		m.logger.Error("Store integrity violated, load aborted", "error", err)
		return nil, err
	}

	// Annotations apply only after every ontology merge completed, at
	// lower precedence than explicit data.
	for _, path := range annotations {
		table, err := m.tables.Load(path, m.hasEntityName)
		if errors.Is(err, source.ErrDependencyMissing) {
			m.logger.Warn("Annotation capability unavailable, skipping annotation phase")
			report.AnnotationsSkipped = true
			break
		}
		if err != nil {
			m.logger.Warn("Skipping annotation file", "path", path, "error", err)
			report.Skipped = append(report.Skipped, FileError{Path: path, Err: err.Error()})
			m.countFile("annotation", "error")
			continue
		}

		applied, err := m.applier.Apply(m.store, table, provenanceFor(path))
		if err != nil {
			m.state = StateFailed
			return nil, err
		}
		report.Annotations = append(report.Annotations, applied)
		m.countFile("annotation", "ok")
		if m.metrics != nil {
			m.metrics.MergeWarnings.Add(float64(len(applied.Unmatched)))
		}
	}

	report.Duration = time.Since(start)
	m.state = StateReady
	m.updateGauges()

	m.logger.Info("Load batch complete",
		"ontology_files", len(report.Ontologies),
		"annotation_files", len(report.Annotations),
		"skipped", len(report.Skipped),
		"warnings", report.Warnings(),
		"duration", report.Duration)

	if m.metrics != nil {
		m.metrics.LoadDuration.Observe(report.Duration.Seconds())
	}

	return report, nil
}

// Query returns entities matching the query, in insertion order.
func (m *Manager) Query(q graph.Query) []*graph.Entity {
	return m.store.Query(q)
}

// GetEntity returns the entity with the given id, or graph.ErrNotFound.
func (m *Manager) GetEntity(id string) (*graph.Entity, error) {
	return m.store.GetEntity(id)
}

// GetRelated returns the relationships touching an entity together with
// the entity on the other end.
func (m *Manager) GetRelated(id string, relTypes ...string) ([]graph.Related, error) {
	return m.store.GetRelated(id, relTypes...)
}

// AddEntity creates or merges an entity through the direct write path.
// Properties set here are explicit and take precedence over annotations.
func (m *Manager) AddEntity(entityType, name string, props map[string]graph.Value) (string, error) {
	return m.store.UpsertEntity(name, entityType, props)
}

// AddRelationship creates a relationship between stored entities; it
// fails with graph.ErrDanglingReference when an endpoint is absent.
func (m *Manager) AddRelationship(relType, sourceID, targetID string) (string, error) {
	return m.store.AddRelationship(relType, sourceID, targetID, nil)
}

// RemoveEntity deletes an entity and every relationship touching it.
func (m *Manager) RemoveEntity(id string) error {
	return m.store.RemoveEntity(id)
}

// RemoveRelationship deletes a relationship by id.
func (m *Manager) RemoveRelationship(id string) error {
	return m.store.RemoveRelationship(id)
}

// Stats returns entity and relationship counts by type.
func (m *Manager) Stats() graph.Stats {
	return m.store.Stats()
}

func (m *Manager) hasEntityName(name string) bool {
	if name == "" {
		return false
	}
	_, ok := m.store.FindByName(name)
	return ok
}

func (m *Manager) countFile(kind, status string) {
	if m.metrics != nil {
		m.metrics.FilesLoaded.WithLabelValues(kind, status).Inc()
	}
}

func (m *Manager) observeMerge(r *graph.MergeReport) {
	if m.metrics == nil {
		return
	}
	m.metrics.EntitiesMerged.Add(float64(r.EntitiesCreated + r.EntitiesMerged))
	m.metrics.RelationshipsCreated.Add(float64(r.RelationshipsCreated))
	m.metrics.MergeWarnings.Add(float64(len(r.Warnings)))
}

func (m *Manager) updateGauges() {
	if m.metrics == nil {
		return
	}
	st := m.store.Stats()
	m.metrics.StoreEntities.Reset()
	for t, n := range st.Entities {
		m.metrics.StoreEntities.WithLabelValues(t).Set(float64(n))
	}
	m.metrics.StoreRelationships.Reset()
	for t, n := range st.Relationships {
		m.metrics.StoreRelationships.WithLabelValues(t).Set(float64(n))
	}
}
