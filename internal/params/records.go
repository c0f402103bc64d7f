package params

import (
	"diffractcore/pkg/domain"
)

// Export returns the persisted form of every parameter in declaration order.
func (s *Store) Export() []domain.ParameterRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ParameterRecord, len(s.arena))
	for i, e := range s.arena {
		out[i] = e.p.Record()
	}
	return out
}

// Record converts the parameter to its persisted form.
func (p Parameter) Record() domain.ParameterRecord {
	b := p.Bounds.clone()
	return domain.ParameterRecord{
		ID:         p.ID,
		Value:      p.Value,
		Unit:       p.Unit,
		Min:        b.Min,
		Max:        b.Max,
		Free:       p.Free,
		Constraint: p.Constraint,
	}
}

// FromRecords rebuilds a store from persisted records. All parameters are
// declared first, then constraints are linked in record order so that
// references may point forward.
func FromRecords(records []domain.ParameterRecord, opts ...Option) (*Store, error) {
	s := NewStore(opts...)
	for _, r := range records {
		b := Bounds{Min: r.Min, Max: r.Max}
		free := r.Free && r.Constraint == ""
		if err := s.declare(r.ID, r.Value, b, free, WithUnit(r.Unit)); err != nil {
			return nil, err
		}
	}
	for _, r := range records {
		if r.Constraint == "" {
			continue
		}
		if err := s.link(r.ID, r.Constraint); err != nil {
			return nil, err
		}
	}
	s.hist = history{limit: s.hist.limit}
	return s, nil
}
