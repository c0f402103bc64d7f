// Package memory keeps projects in process memory. It backs tests and the
// default development configuration.
package memory

import (
	"context"
	"sort"
	"sync"

	"diffractcore/internal/infra/persistence"
	"diffractcore/pkg/domain"
)

var _ domain.ProjectRepository = (*Store)(nil)

// Store is a mutex-guarded map of document copies.
type Store struct {
	mu       sync.RWMutex
	projects map[string]domain.ProjectDocument
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{projects: make(map[string]domain.ProjectDocument)}
}

// Save stores a copy of doc, replacing any previous version.
func (s *Store) Save(_ context.Context, doc domain.ProjectDocument) error {
	if err := persistence.CheckID(doc.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[doc.ID] = domain.CloneDocument(doc)
	return nil
}

// Load returns a copy of the stored document.
func (s *Store) Load(_ context.Context, id string) (domain.ProjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.projects[id]
	if !ok {
		return domain.ProjectDocument{}, persistence.NotFound(id)
	}
	return domain.CloneDocument(doc), nil
}

// List returns summaries ordered by id.
func (s *Store) List(_ context.Context) ([]domain.ProjectSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProjectSummary, 0, len(s.projects))
	for _, doc := range s.projects {
		out = append(out, doc.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
