// Package params implements the parameter store: every refinable scalar of a
// project with its bounds, free/fixed flag and optional constraint expression.
//
// Entries live in an arena addressed by identifier. Constraint dependencies
// are adjacency lists of identifiers; evaluation order is a topological sort
// of that graph, recomputed whenever a constraint is linked or removed, and
// every successful mutation eagerly re-evaluates the constrained parameters
// downstream of it.
package params

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"diffractcore/internal/params/expr"
	"diffractcore/pkg/domain"
)

// Parameter is a read-only view of a store entry.
type Parameter struct {
	ID         string
	Value      float64
	Unit       string
	Bounds     Bounds
	Free       bool
	Constraint string
}

// Constrained reports whether the parameter is derived from an expression.
func (p Parameter) Constrained() bool { return p.Constraint != "" }

type entry struct {
	p        Parameter
	compiled *expr.Expr
	deps     []string
}

// Store holds the parameters of one project. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	arena      []entry
	index      map[string]int
	dependents map[string][]string
	order      []string
	version    uint64
	hist       history
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit bounds the number of undoable steps kept.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.hist.limit = n }
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		index:      make(map[string]int),
		dependents: make(map[string][]string),
		hist:       history{limit: defaultHistoryLimit},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeclareOption tunes a single declaration.
type DeclareOption func(*Parameter)

// WithUnit attaches a unit label.
func WithUnit(unit string) DeclareOption {
	return func(p *Parameter) { p.Unit = unit }
}

// Declare creates a parameter. A free parameter's initial value must satisfy
// its bounds.
func (s *Store) Declare(id string, initial float64, bounds Bounds, free bool, opts ...DeclareOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declare(id, initial, bounds, free, opts...)
}

func (s *Store) declare(id string, initial float64, bounds Bounds, free bool, opts ...DeclareOption) error {
	if strings.TrimSpace(id) == "" {
		return domain.Newf(domain.CodeMalformedData, "", "parameter id required")
	}
	if _, ok := s.index[id]; ok {
		return domain.Newf(domain.CodeDuplicateID, id, "parameter already declared")
	}
	if err := bounds.Validate(); err != nil {
		return withSubject(err, id)
	}
	if !finite(initial) {
		return domain.Newf(domain.CodeNonFiniteValue, id, "initial value %v", initial)
	}
	if free && !bounds.Contains(initial) {
		return domain.Newf(domain.CodeOutOfBounds, id, "initial value %v outside %s", initial, bounds)
	}
	p := Parameter{ID: id, Value: initial, Bounds: bounds.clone(), Free: free}
	for _, opt := range opts {
		opt(&p)
	}
	s.index[id] = len(s.arena)
	s.arena = append(s.arena, entry{p: p})
	s.version++
	return nil
}

// Get returns the current value of id.
func (s *Store) Get(id string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return 0, err
	}
	return e.p.Value, nil
}

// Value returns the value of id and whether it exists.
func (s *Store) Value(id string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.arena[i].p.Value, true
}

// Parameter returns a copy of the full entry for id.
func (s *Store) Parameter(id string) (Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return Parameter{}, err
	}
	return copyParam(e.p), nil
}

// Has reports whether id is declared.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Len returns the number of declared parameters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena)
}

// Version increments on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// List returns all parameters in declaration order.
func (s *Store) List() []Parameter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Parameter, len(s.arena))
	for i, e := range s.arena {
		out[i] = copyParam(e.p)
	}
	return out
}

// Free returns the free parameters in declaration order.
func (s *Store) Free() []Parameter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Parameter
	for _, e := range s.arena {
		if e.p.Free {
			out = append(out, copyParam(e.p))
		}
	}
	return out
}

// FreeIDs returns the identifiers of the free parameters in declaration order.
func (s *Store) FreeIDs() []string {
	free := s.Free()
	out := make([]string, len(free))
	for i, p := range free {
		out[i] = p.ID
	}
	return out
}

// Set assigns a value to a free or fixed parameter and propagates it.
func (s *Store) Set(id string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return err
	}
	if e.p.Constrained() {
		return domain.Newf(domain.CodeConstraintViolation, id, "constrained by %q", e.p.Constraint)
	}
	if !finite(v) {
		return domain.Newf(domain.CodeNonFiniteValue, id, "value %v", v)
	}
	if e.p.Free && !e.p.Bounds.Contains(v) {
		return domain.Newf(domain.CodeOutOfBounds, id, "value %v outside %s", v, e.p.Bounds)
	}
	before := copyParam(e.p)
	if err := s.assign(id, v); err != nil {
		return err
	}
	s.hist.push(change{label: "set " + id, before: []Parameter{before}, after: []Parameter{copyParam(s.arena[s.index[id]].p)}})
	return nil
}

// SetClipped writes v clipped onto the parameter bounds and returns the value
// actually stored. It is the write path of the fit engine and is not recorded
// in the undo history.
func (s *Store) SetClipped(id string, v float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return 0, err
	}
	if e.p.Constrained() {
		return 0, domain.Newf(domain.CodeConstraintViolation, id, "constrained by %q", e.p.Constraint)
	}
	if !finite(v) {
		return 0, domain.Newf(domain.CodeNonFiniteValue, id, "value %v", v)
	}
	v = e.p.Bounds.Clip(v)
	if err := s.assign(id, v); err != nil {
		return 0, err
	}
	return v, nil
}

// SetClippedAll writes a vector of clipped values as one step: concurrent
// readers observe either none or all of them, and a failure leaves every value
// as it was. It returns the values actually stored.
func (s *Store) SetClippedAll(ids []string, values []float64) ([]float64, error) {
	if len(ids) != len(values) {
		return nil, domain.Newf(domain.CodeMalformedData, "", "%d ids for %d values", len(ids), len(values))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]float64, len(s.arena))
	for i := range s.arena {
		saved[i] = s.arena[i].p.Value
	}
	restore := func() {
		for i, v := range saved {
			s.arena[i].p.Value = v
		}
		s.version++
	}
	out := make([]float64, len(ids))
	for i, id := range ids {
		e, err := s.lookupEntry(id)
		if err == nil && e.p.Constrained() {
			err = domain.Newf(domain.CodeConstraintViolation, id, "constrained by %q", e.p.Constraint)
		}
		if err == nil && !finite(values[i]) {
			err = domain.Newf(domain.CodeNonFiniteValue, id, "value %v", values[i])
		}
		if err == nil {
			out[i] = e.p.Bounds.Clip(values[i])
			err = s.assign(id, out[i])
		}
		if err != nil {
			restore()
			return nil, err
		}
	}
	return out, nil
}

// assign writes the value and propagates downstream, restoring on failure.
func (s *Store) assign(id string, v float64) error {
	e := &s.arena[s.index[id]]
	old := e.p.Value
	e.p.Value = v
	if err := s.propagate(id); err != nil {
		s.arena[s.index[id]].p.Value = old
		return err
	}
	s.version++
	return nil
}

// SetFree toggles the free flag. Constrained parameters cannot be freed and a
// parameter whose value lies outside its bounds cannot become free.
func (s *Store) SetFree(id string, free bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return err
	}
	if free && e.p.Constrained() {
		return domain.Newf(domain.CodeConstraintViolation, id, "constrained parameters cannot be free")
	}
	if free && !e.p.Bounds.Contains(e.p.Value) {
		return domain.Newf(domain.CodeOutOfBounds, id, "value %v outside %s", e.p.Value, e.p.Bounds)
	}
	if e.p.Free == free {
		return nil
	}
	before := copyParam(e.p)
	e.p.Free = free
	s.version++
	s.hist.push(change{label: "free " + id, before: []Parameter{before}, after: []Parameter{copyParam(e.p)}})
	return nil
}

// SetBounds replaces the bounds. The value of a free parameter must remain inside.
func (s *Store) SetBounds(id string, b Bounds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return withSubject(err, id)
	}
	if e.p.Free && !b.Contains(e.p.Value) {
		return domain.Newf(domain.CodeOutOfBounds, id, "value %v outside %s", e.p.Value, b)
	}
	before := copyParam(e.p)
	e.p.Bounds = b.clone()
	s.version++
	s.hist.push(change{label: "bounds " + id, before: []Parameter{before}, after: []Parameter{copyParam(e.p)}})
	return nil
}

// Link constrains id to the expression src. Cycles, unknown references and
// unparsable expressions are rejected without touching the store.
func (s *Store) Link(id, src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return err
	}
	before := copyParam(e.p)
	if err := s.link(id, src); err != nil {
		return err
	}
	s.hist.push(change{label: "link " + id, before: []Parameter{before}, after: []Parameter{copyParam(s.arena[s.index[id]].p)}})
	return nil
}

func (s *Store) link(id, src string) error {
	compiled, err := expr.Parse(src)
	if err != nil {
		return domain.Wrap(domain.CodeInvalidExpression, id, err)
	}
	deps := compiled.Vars()
	for _, d := range deps {
		if d == id {
			return domain.Newf(domain.CodeCyclicConstraint, id, "expression %q references itself", src)
		}
		if _, ok := s.index[d]; !ok {
			return domain.Newf(domain.CodeUnknownID, d, "referenced by constraint on %s", id)
		}
	}
	order, err := s.topoOrder(id, deps)
	if err != nil {
		return err
	}
	v, err := compiled.Eval(s.lookup)
	if err != nil {
		return domain.Wrap(domain.CodeInvalidExpression, id, err)
	}
	if !finite(v) {
		return domain.Newf(domain.CodeNonFiniteOutput, id, "constraint %q evaluates to %v", src, v)
	}

	i := s.index[id]
	old := s.arena[i]
	s.detach(id)
	s.wire(id, compiled, deps, v)
	s.order = order
	if err := s.propagate(id); err != nil {
		s.detach(id)
		if old.compiled != nil {
			s.wire(id, old.compiled, old.deps, old.p.Value)
		}
		s.arena[i].p = old.p
		return err
	}
	s.version++
	return nil
}

func (s *Store) wire(id string, compiled *expr.Expr, deps []string, v float64) {
	e := &s.arena[s.index[id]]
	e.compiled = compiled
	e.deps = append([]string(nil), deps...)
	e.p.Constraint = compiled.String()
	e.p.Free = false
	e.p.Value = v
	for _, d := range deps {
		s.dependents[d] = append(s.dependents[d], id)
	}
	s.order, _ = s.topoOrder("", nil)
}

// Unlink removes the constraint on id, keeping its last value. The parameter
// stays fixed until explicitly freed.
func (s *Store) Unlink(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return err
	}
	if !e.p.Constrained() {
		return nil
	}
	before := copyParam(e.p)
	s.detach(id)
	s.version++
	s.hist.push(change{label: "unlink " + id, before: []Parameter{before}, after: []Parameter{copyParam(s.arena[s.index[id]].p)}})
	return nil
}

// Tie constrains id like Link but leaves the undo history untouched and
// drops any recorded step that mentions id. Structural constraints such as
// cell parameters tied by lattice symmetry go through here.
func (s *Store) Tie(id, src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookupEntry(id); err != nil {
		return err
	}
	if err := s.link(id, src); err != nil {
		return err
	}
	s.hist.forget(id)
	return nil
}

// Untie is the unrecorded counterpart of Unlink.
func (s *Store) Untie(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupEntry(id)
	if err != nil {
		return err
	}
	if !e.p.Constrained() {
		return nil
	}
	s.detach(id)
	s.version++
	s.hist.forget(id)
	return nil
}

// detach clears the constraint of id and its incoming edges, then rebuilds
// the evaluation order.
func (s *Store) detach(id string) {
	i := s.index[id]
	e := &s.arena[i]
	for _, d := range e.deps {
		s.dependents[d] = removeString(s.dependents[d], id)
		if len(s.dependents[d]) == 0 {
			delete(s.dependents, d)
		}
	}
	e.deps = nil
	e.compiled = nil
	e.p.Constraint = ""
	// Removing edges cannot introduce a cycle.
	s.order, _ = s.topoOrder("", nil)
}

// Remove deletes id. Parameters referenced by other constraints cannot be removed.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

// RemoveAll deletes several parameters; ids referenced only from within the
// set are allowed. Either all are removed or none.
func (s *Store) RemoveAll(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, err := s.lookupEntry(id); err != nil {
			return err
		}
		set[id] = true
	}
	for _, id := range ids {
		for _, dep := range s.dependents[id] {
			if !set[dep] {
				return domain.Newf(domain.CodeParameterInUse, id, "referenced by %s", dep)
			}
		}
	}
	for _, id := range ids {
		s.detach(id)
	}
	for _, id := range ids {
		if err := s.remove(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) remove(id string) error {
	if _, err := s.lookupEntry(id); err != nil {
		return err
	}
	if users := s.dependents[id]; len(users) > 0 {
		return domain.Newf(domain.CodeParameterInUse, id, "referenced by %s", strings.Join(users, ", "))
	}
	s.detach(id)
	i := s.index[id]
	s.arena = append(s.arena[:i], s.arena[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.arena); j++ {
		s.index[s.arena[j].p.ID] = j
	}
	s.order, _ = s.topoOrder("", nil)
	s.hist.forget(id)
	s.version++
	return nil
}

// Dependents returns the constrained parameters that reference id directly.
func (s *Store) Dependents(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]string(nil), s.dependents[id]...)
	sort.Strings(out)
	return out
}

// EvaluationOrder returns the constrained parameter ids in topological order.
func (s *Store) EvaluationOrder() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Reevaluate recomputes every constrained parameter in evaluation order.
func (s *Store) Reevaluate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make(map[string]float64, len(s.order))
	for _, id := range s.order {
		e := &s.arena[s.index[id]]
		v, err := e.compiled.Eval(s.lookup)
		if err == nil && !finite(v) {
			err = domain.Newf(domain.CodeNonFiniteOutput, id, "constraint %q evaluates to %v", e.p.Constraint, v)
		}
		if err != nil {
			s.restore(prev)
			return err
		}
		prev[id] = e.p.Value
		e.p.Value = v
	}
	return nil
}

// Clone returns an independent copy without undo history.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := &Store{hist: history{limit: s.hist.limit}}
	cp.restoreState(s.saveState())
	return cp
}

// storeState is everything but the history; callers hold the lock.
type storeState struct {
	arena      []entry
	index      map[string]int
	dependents map[string][]string
	order      []string
	version    uint64
}

func (s *Store) saveState() storeState {
	st := storeState{
		arena:      make([]entry, len(s.arena)),
		index:      make(map[string]int, len(s.index)),
		dependents: make(map[string][]string, len(s.dependents)),
		order:      append([]string(nil), s.order...),
		version:    s.version,
	}
	for i, e := range s.arena {
		st.arena[i] = entry{p: copyParam(e.p), compiled: e.compiled, deps: append([]string(nil), e.deps...)}
	}
	for k, v := range s.index {
		st.index[k] = v
	}
	for k, v := range s.dependents {
		st.dependents[k] = append([]string(nil), v...)
	}
	return st
}

func (s *Store) restoreState(st storeState) {
	s.arena = st.arena
	s.index = st.index
	s.dependents = st.dependents
	s.order = st.order
	s.version = st.version + 1
}

// propagate re-evaluates every constrained parameter reachable from changed.
// On failure all re-evaluated values are restored.
func (s *Store) propagate(changed string) error {
	affected := map[string]bool{}
	queue := []string{changed}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, d := range s.dependents[id] {
			if !affected[d] {
				affected[d] = true
				queue = append(queue, d)
			}
		}
	}
	if len(affected) == 0 {
		return nil
	}
	prev := make(map[string]float64, len(affected))
	for _, id := range s.order {
		if !affected[id] {
			continue
		}
		e := &s.arena[s.index[id]]
		v, err := e.compiled.Eval(s.lookup)
		if err == nil && !finite(v) {
			err = domain.Newf(domain.CodeNonFiniteOutput, id, "constraint %q evaluates to %v", e.p.Constraint, v)
		}
		if err != nil {
			s.restore(prev)
			return err
		}
		prev[id] = e.p.Value
		e.p.Value = v
	}
	return nil
}

func (s *Store) restore(prev map[string]float64) {
	for id, v := range prev {
		s.arena[s.index[id]].p.Value = v
	}
}

// topoOrder sorts the constrained parameters with Kahn's algorithm, breaking
// ties by declaration order. When override is set, its dependencies are
// taken from overrideDeps, which lets Link test a graph before committing it.
func (s *Store) topoOrder(override string, overrideDeps []string) ([]string, error) {
	depsOf := func(id string) []string {
		if id == override {
			return overrideDeps
		}
		return s.arena[s.index[id]].deps
	}
	constrained := make(map[string]bool)
	for _, e := range s.arena {
		if e.compiled != nil || e.p.ID == override {
			constrained[e.p.ID] = true
		}
	}
	indeg := make(map[string]int, len(constrained))
	children := make(map[string][]string)
	for _, e := range s.arena {
		id := e.p.ID
		if !constrained[id] {
			continue
		}
		for _, d := range depsOf(id) {
			if constrained[d] {
				indeg[id]++
				children[d] = append(children[d], id)
			}
		}
	}
	var ready []string
	for _, e := range s.arena {
		if constrained[e.p.ID] && indeg[e.p.ID] == 0 {
			ready = append(ready, e.p.ID)
		}
	}
	order := make([]string, 0, len(constrained))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return s.index[ready[i]] < s.index[ready[j]] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, c := range children[id] {
			indeg[c]--
			if indeg[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	if len(order) != len(constrained) {
		var cycle []string
		for id, n := range indeg {
			if n > 0 {
				cycle = append(cycle, id)
			}
		}
		sort.Strings(cycle)
		subject := override
		if subject == "" && len(cycle) > 0 {
			subject = cycle[0]
		}
		return nil, &domain.Error{Code: domain.CodeCyclicConstraint, Subject: subject, Message: "constraint cycle", Params: cycle}
	}
	return order, nil
}

func (s *Store) lookup(id string) (float64, bool) {
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.arena[i].p.Value, true
}

func (s *Store) lookupEntry(id string) (*entry, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, domain.Newf(domain.CodeUnknownID, id, "parameter not declared")
	}
	return &s.arena[i], nil
}

func copyParam(p Parameter) Parameter {
	p.Bounds = p.Bounds.clone()
	return p
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func removeString(in []string, s string) []string {
	out := in[:0]
	for _, v := range in {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func withSubject(err error, id string) error {
	if e, ok := err.(*domain.Error); ok {
		cp := *e
		cp.Subject = id
		return &cp
	}
	return fmt.Errorf("%s: %w", id, err)
}
