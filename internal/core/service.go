package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"diffractcore/internal/blob"
	"diffractcore/internal/calc"
	"diffractcore/internal/codec"
	"diffractcore/internal/fit"
	"diffractcore/internal/infra/persistence/memory"
	"diffractcore/pkg/domain"
)

// Service is the transactional facade used by the HTTP adapter and the CLI.
type Service struct {
	store       *ProjectStore
	rules       *RulesEngine
	logger      Logger
	clock       Clock
	metrics     MetricsRecorder
	tracer      Tracer
	audit       AuditRecorder
	blobs       blob.Store
	compression codec.Algorithm
	fitDefaults FitConfig
	progressBuf int

	mu      sync.Mutex
	plugins map[string]PluginMetadata
	engines map[string]calc.Engine
	engine  string
	fits    map[string]*fitRun
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder installs an audit recorder.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithRulesEngine replaces the default rule set.
func WithRulesEngine(e *RulesEngine) Option {
	return func(s *Service) {
		if e != nil {
			s.rules = e
		}
	}
}

// WithBlobStore enables project archives.
func WithBlobStore(b blob.Store) Option {
	return func(s *Service) { s.blobs = b }
}

// WithArchiveCompression selects the codec used for archives.
func WithArchiveCompression(a codec.Algorithm) Option {
	return func(s *Service) { s.compression = a }
}

// WithFitDefaults sets the fit configuration of new projects.
func WithFitDefaults(cfg FitConfig) Option {
	return func(s *Service) { s.fitDefaults = cfg }
}

// WithProgressBuffer sets the capacity of fit progress channels.
func WithProgressBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.progressBuf = n
		}
	}
}

// NewService builds a service over repo.
func NewService(repo domain.ProjectRepository, opts ...Option) *Service {
	s := &Service{
		rules:       NewDefaultRulesEngine(),
		logger:      noopLogger{},
		clock:       systemClock{},
		metrics:     noopMetricsRecorder{},
		tracer:      noopTracer{},
		audit:       noopAuditRecorder{},
		compression: codec.Zstd,
		fitDefaults: fit.DefaultConfig(),
		progressBuf: 16,
		plugins:     make(map[string]PluginMetadata),
		engines:     map[string]calc.Engine{calc.NeutronCW{}.Name(): calc.NeutronCW{}},
		engine:      calc.NeutronCW{}.Name(),
		fits:        make(map[string]*fitRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewProjectStore(repo, s.rules, s.clock)
	return s
}

// NewInMemoryService builds a service over a memory repository. A nil engine
// keeps the default rules.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(), append([]Option{WithRulesEngine(engine)}, opts...)...)
}

// Store returns the transactional project store.
func (s *Service) Store() *ProjectStore { return s.store }

// Close releases the repository.
func (s *Service) Close() error { return s.store.repo.Close() }

func (s *Service) run(ctx context.Context, op, entityID string, fn func(context.Context) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	d := s.clock.Now().Sub(start)
	s.metrics.Observe(ctx, op, err == nil, d)
	if err != nil {
		s.logger.Warn("operation failed", "operation", op, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, op, entityID, d, err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", d)
	s.recordAuditSuccess(ctx, op, entityID, d)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, d time.Duration) {
	s.recordAudit(ctx, op, entityID, d, AuditStatusSuccess, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, d time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, d, AuditStatusError, err)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, d time.Duration, status AuditStatus, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    status,
		Duration:  d,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// mutate runs fn in a transaction on projectID under the operation wrapper.
func (s *Service) mutate(ctx context.Context, op, projectID, entityID string, fn func(tx *Transaction) error) (Result, error) {
	var res Result
	err := s.run(ctx, op, entityID, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, projectID, fn)
		return err
	})
	s.logViolations(op, res)
	return res, err
}

func (s *Service) logViolations(op string, res Result) {
	for _, v := range res.Violations {
		if v.Severity == SeverityWarn {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
}

// CreateProject creates an empty project. An empty id is replaced by a
// random UUID.
func (s *Service) CreateProject(ctx context.Context, id string, info ProjectInfo) (ProjectDocument, Result, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if info.Name == "" {
		info.Name = id
	}
	var (
		res Result
		doc ProjectDocument
	)
	err := s.run(ctx, "create_project", id, func(ctx context.Context) error {
		cfg, err := fit.NormalizeConfig(s.fitDefaults)
		if err != nil {
			return err
		}
		p := &Project{ID: id, Info: info, Params: newParamStore(), Fit: cfg}
		if res, err = s.store.Create(ctx, p); err != nil {
			return err
		}
		doc = p.Document()
		return nil
	})
	return doc, res, err
}

// GetProject returns the persisted form of a project.
func (s *Service) GetProject(ctx context.Context, id string) (ProjectDocument, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return ProjectDocument{}, err
	}
	return p.Document(), nil
}

// ListProjects returns every stored project, ordered by id.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	return s.run(ctx, "delete_project", id, func(ctx context.Context) error {
		ok, err := s.store.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Newf(domain.CodeNotFound, id, "project not found")
		}
		s.mu.Lock()
		delete(s.fits, id)
		s.mu.Unlock()
		return nil
	})
}

// UpdateProjectInfo changes the name and short description.
func (s *Service) UpdateProjectInfo(ctx context.Context, id, name, description string) (ProjectInfo, Result, error) {
	var info ProjectInfo
	res, err := s.mutate(ctx, "update_project_info", id, id, func(tx *Transaction) error {
		p := tx.Project()
		before := p.Info
		if name != "" {
			p.Info.Name = name
		}
		p.Info.ShortDescription = description
		tx.Record(Change{Entity: EntityProject, Action: ActionUpdate, EntityID: id, Before: before, After: p.Info})
		info = p.Info
		return nil
	})
	return info, res, err
}

// InstallPlugin registers a plugin's rules and engines.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}
	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}
	engines := registry.Engines()
	for _, e := range engines {
		if _, ok := s.engines[e.Name()]; ok {
			return PluginMetadata{}, fmt.Errorf("engine %s already registered", e.Name())
		}
	}
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version()}
	for _, r := range registry.Rules() {
		s.rules.Register(r)
		meta.Rules = append(meta.Rules, r.Name())
	}
	for _, e := range engines {
		s.engines[e.Name()] = e
		meta.Engines = append(meta.Engines, e.Name())
	}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "rules", len(meta.Rules), "engines", len(meta.Engines))
	return meta, nil
}

// RegisteredPlugins lists installed plugins ordered by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Engines lists the available calculator engines and the selected one.
func (s *Service) Engines() (names []string, selected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n := range s.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, s.engine
}

// UseEngine selects the calculator engine by name.
func (s *Service) UseEngine(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engines[name]; !ok {
		return domain.Newf(domain.CodeNotFound, name, "no calculator engine")
	}
	s.engine = name
	return nil
}

func (s *Service) calculator() calc.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[s.engine]
}
