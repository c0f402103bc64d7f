package core

import (
	"context"
	"errors"
	"sync"

	"diffractcore/pkg/domain"
)

// ProjectStore keeps loaded projects in memory over a repository and runs
// every mutation as a transaction: the project is cloned, the clone is
// mutated, rules are evaluated and only then is the clone saved and swapped
// in. A failing transaction leaves the stored project untouched.
type ProjectStore struct {
	mu     sync.RWMutex
	repo   domain.ProjectRepository
	engine *RulesEngine
	clock  Clock
	cache  map[string]*Project
	pinned map[string]string
}

// NewProjectStore wraps repo. A nil engine evaluates no rules.
func NewProjectStore(repo domain.ProjectRepository, engine *RulesEngine, clock Clock) *ProjectStore {
	if engine == nil {
		engine = NewRulesEngine()
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &ProjectStore{
		repo:   repo,
		engine: engine,
		clock:  clock,
		cache:  make(map[string]*Project),
		pinned: make(map[string]string),
	}
}

// Engine returns the rules engine evaluated on commit.
func (s *ProjectStore) Engine() *RulesEngine { return s.engine }

// Repository returns the backing repository.
func (s *ProjectStore) Repository() domain.ProjectRepository { return s.repo }

// Transaction is the mutable scope handed to RunInTransaction callbacks.
type Transaction struct {
	project *Project
	changes []Change
}

// Project returns the working copy.
func (tx *Transaction) Project() *Project { return tx.project }

// Record notes a change for rule evaluation.
func (tx *Transaction) Record(c Change) { tx.changes = append(tx.changes, c) }

// Changes returns the changes recorded so far.
func (tx *Transaction) Changes() []Change { return append([]Change(nil), tx.changes...) }

// View exposes the working copy to rules.
func (tx *Transaction) View() TransactionView { return TransactionView{project: tx.project} }

// Get returns the committed project. Callers must treat it as read-only;
// its parameter store is safe for concurrent reads.
func (s *ProjectStore) Get(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	p, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, id)
}

func (s *ProjectStore) loadLocked(ctx context.Context, id string) (*Project, error) {
	if p, ok := s.cache[id]; ok {
		return p, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := ProjectFromDocument(doc)
	if err != nil {
		return nil, err
	}
	s.cache[id] = p
	return p, nil
}

// List returns the repository listing.
func (s *ProjectStore) List(ctx context.Context) ([]ProjectSummary, error) {
	return s.repo.List(ctx)
}

// Create validates and saves a new project.
func (s *ProjectStore) Create(ctx context.Context, p *Project) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[p.ID]; ok {
		return Result{}, domain.Newf(domain.CodeDuplicateID, p.ID, "project exists")
	}
	if _, err := s.repo.Load(ctx, p.ID); err == nil {
		return Result{}, domain.Newf(domain.CodeDuplicateID, p.ID, "project exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return Result{}, err
	}
	tx := &Transaction{project: p}
	tx.Record(Change{Entity: EntityProject, Action: ActionCreate, EntityID: p.ID, After: p.Info})
	return s.commitLocked(ctx, tx)
}

// Delete removes a project. A project with a running fit cannot be deleted.
func (s *ProjectStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.pinned[id]; ok {
		return false, domain.Newf(domain.CodeFitAlreadyRunning, id, "fit %s is running", run)
	}
	delete(s.cache, id)
	return s.repo.Delete(ctx, id)
}

// RunInTransaction applies fn to a clone of the project and commits it when
// fn succeeds and no rule blocks. Projects pinned by a running fit refuse
// transactions with FitAlreadyRunning.
func (s *ProjectStore) RunInTransaction(ctx context.Context, id string, fn func(tx *Transaction) error) (Result, error) {
	return s.run(ctx, id, false, fn)
}

func (s *ProjectStore) run(ctx context.Context, id string, ignorePin bool, fn func(tx *Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.pinned[id]; ok && !ignorePin {
		return Result{}, domain.Newf(domain.CodeFitAlreadyRunning, id, "fit %s is running", run)
	}
	current, err := s.loadLocked(ctx, id)
	if err != nil {
		return Result{}, err
	}
	tx := &Transaction{project: current.clone()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	return s.commitLocked(ctx, tx)
}

func (s *ProjectStore) commitLocked(ctx context.Context, tx *Transaction) (Result, error) {
	res, err := s.engine.Evaluate(ctx, tx.View(), tx.changes)
	if err != nil {
		return Result{}, err
	}
	if res.HasBlocking() {
		return res, RuleViolationError{Result: res}
	}
	p := tx.project
	now := s.clock.Now().UTC()
	if p.Info.CreatedAt.IsZero() {
		p.Info.CreatedAt = now
	}
	p.Info.ModifiedAt = now
	if err := s.repo.Save(ctx, p.Document()); err != nil {
		return res, err
	}
	s.cache[p.ID] = p
	return res, nil
}

// pin marks a project as owned by a running fit and returns the committed
// copy the fit will write into.
func (s *ProjectStore) pin(ctx context.Context, id, runID string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.pinned[id]; ok {
		return nil, domain.Newf(domain.CodeFitAlreadyRunning, id, "fit %s is running", run)
	}
	p, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pinned[id] = runID
	return p, nil
}

// Pinned returns the run id holding a project, if any.
func (s *ProjectStore) Pinned(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.pinned[id]
	return run, ok
}

func (s *ProjectStore) unpin(id string) {
	s.mu.Lock()
	delete(s.pinned, id)
	s.mu.Unlock()
}

// TransactionView is the read-only view rules evaluate.
type TransactionView struct {
	project *Project
}

var _ RuleView = TransactionView{}

// ProjectID implements RuleView.
func (v TransactionView) ProjectID() string { return v.project.ID }

// ListPhases implements RuleView.
func (v TransactionView) ListPhases() []domain.PhaseRecord {
	out := make([]domain.PhaseRecord, 0, len(v.project.Phases))
	for _, ph := range v.project.Phases {
		out = append(out, ph.Record())
	}
	return out
}

// ListExperiments implements RuleView.
func (v TransactionView) ListExperiments() []domain.ExperimentRecord {
	out := make([]domain.ExperimentRecord, 0, len(v.project.Experiments))
	for _, e := range v.project.Experiments {
		out = append(out, e.Record())
	}
	return out
}

// FindPhase implements RuleView.
func (v TransactionView) FindPhase(id string) (domain.PhaseRecord, bool) {
	ph, ok := v.project.Phase(id)
	if !ok {
		return domain.PhaseRecord{}, false
	}
	return ph.Record(), true
}

// FindExperiment implements RuleView.
func (v TransactionView) FindExperiment(id string) (domain.ExperimentRecord, bool) {
	e, ok := v.project.Experiment(id)
	if !ok {
		return domain.ExperimentRecord{}, false
	}
	return e.Record(), true
}

// FindParameter implements RuleView.
func (v TransactionView) FindParameter(id string) (domain.ParameterRecord, bool) {
	p, err := v.project.Params.Parameter(id)
	if err != nil {
		return domain.ParameterRecord{}, false
	}
	return p.Record(), true
}

// CrystalSystem implements RuleView.
func (v TransactionView) CrystalSystem(phaseID string) (string, bool) {
	ph, ok := v.project.Phase(phaseID)
	if !ok {
		return "", false
	}
	return string(ph.SpaceGroup().System()), true
}
