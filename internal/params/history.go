package params

import (
	"errors"

	"diffractcore/pkg/domain"
)

const defaultHistoryLimit = 100

// Errors returned by Undo and Redo when there is nothing to replay.
var (
	ErrNothingToUndo = errors.New("params: nothing to undo")
	ErrNothingToRedo = errors.New("params: nothing to redo")
)

type change struct {
	label  string
	before []Parameter
	after  []Parameter
}

type history struct {
	undo  []change
	redo  []change
	limit int
}

func (h *history) push(c change) {
	if h.limit <= 0 {
		return
	}
	h.undo = append(h.undo, c)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
}

// forget drops every step touching id; used when a parameter is removed.
func (h *history) forget(id string) {
	keep := func(list []change) []change {
		out := list[:0]
		for _, c := range list {
			touched := false
			for _, p := range c.before {
				if p.ID == id {
					touched = true
					break
				}
			}
			if !touched {
				out = append(out, c)
			}
		}
		return out
	}
	h.undo = keep(h.undo)
	h.redo = keep(h.redo)
}

// Snapshot is a captured set of parameter states.
type Snapshot []Parameter

// Capture records the current state of ids for a later Record call.
func (s *Store) Capture(ids ...string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, 0, len(ids))
	for _, id := range ids {
		e, err := s.lookupEntry(id)
		if err != nil {
			return nil, err
		}
		out = append(out, copyParam(e.p))
	}
	return out, nil
}

// Record pushes one undoable step covering every parameter in before, whose
// after state is taken from the store now. A completed fit is recorded this way.
func (s *Store) Record(label string, before Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	after := make([]Parameter, 0, len(before))
	for _, p := range before {
		e, err := s.lookupEntry(p.ID)
		if err != nil {
			return err
		}
		after = append(after, copyParam(e.p))
	}
	s.hist.push(change{label: label, before: append([]Parameter(nil), before...), after: after})
	return nil
}

// CanUndo reports whether an undo step is available.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hist.undo) > 0
}

// CanRedo reports whether a redo step is available.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hist.redo) > 0
}

// Undo reverts the most recent recorded step and returns its label.
func (s *Store) Undo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.hist.undo)
	if n == 0 {
		return "", ErrNothingToUndo
	}
	c := s.hist.undo[n-1]
	if err := s.apply(c.before); err != nil {
		return "", err
	}
	s.hist.undo = s.hist.undo[:n-1]
	s.hist.redo = append(s.hist.redo, c)
	return c.label, nil
}

// Redo replays the most recently undone step and returns its label.
func (s *Store) Redo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.hist.redo)
	if n == 0 {
		return "", ErrNothingToRedo
	}
	c := s.hist.redo[n-1]
	if err := s.apply(c.after); err != nil {
		return "", err
	}
	s.hist.redo = s.hist.redo[:n-1]
	s.hist.undo = append(s.hist.undo, c)
	return c.label, nil
}

// apply restores parameter states, rewiring constraints where they differ,
// then re-evaluates all constrained parameters. A step that fails partway
// leaves the store as it was before the call.
func (s *Store) apply(states []Parameter) error {
	saved := s.saveState()
	if err := s.applyStates(states); err != nil {
		s.restoreState(saved)
		return err
	}
	return nil
}

func (s *Store) applyStates(states []Parameter) error {
	for _, st := range states {
		e, err := s.lookupEntry(st.ID)
		if err != nil {
			return err
		}
		if e.p.Constraint != st.Constraint {
			if st.Constraint == "" {
				s.detach(st.ID)
			} else if err := s.link(st.ID, st.Constraint); err != nil {
				return err
			}
		}
		e = &s.arena[s.index[st.ID]]
		e.p.Bounds = st.Bounds.clone()
		e.p.Free = st.Free
		e.p.Unit = st.Unit
		if !st.Constrained() {
			e.p.Value = st.Value
		}
	}
	s.version++
	for _, id := range s.order {
		e := &s.arena[s.index[id]]
		v, err := e.compiled.Eval(s.lookup)
		if err == nil && !finite(v) {
			err = domain.Newf(domain.CodeNonFiniteOutput, id, "constraint %q evaluates to %v", e.p.Constraint, v)
		}
		if err != nil {
			return err
		}
		e.p.Value = v
	}
	return nil
}

// Fork returns an independent copy that keeps the undo and redo history.
// Transactions work on forks so that committed edits stay undoable.
func (s *Store) Fork() *Store {
	cp := s.Clone()
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp.hist.undo = cloneChanges(s.hist.undo)
	cp.hist.redo = cloneChanges(s.hist.redo)
	return cp
}

func cloneChanges(in []change) []change {
	if len(in) == 0 {
		return nil
	}
	out := make([]change, len(in))
	for i, c := range in {
		out[i] = change{label: c.label, before: make([]Parameter, len(c.before)), after: make([]Parameter, len(c.after))}
		for j, p := range c.before {
			out[i].before[j] = copyParam(p)
		}
		for j, p := range c.after {
			out[i].after[j] = copyParam(p)
		}
	}
	return out
}
