// Package badger stores projects in an embedded BadgerDB under keys
// "project/<id>".
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"

	"diffractcore/internal/infra/persistence"
	"diffractcore/pkg/domain"
)

var _ domain.ProjectRepository = (*Store)(nil)

const keyPrefix = "project/"

// Config selects where the database lives.
type Config struct {
	// Path is the database directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's internal log lines; nil silences them.
	Logger *slog.Logger
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a badger-backed project repository.
type Store struct {
	db  *badgerdb.DB
	enc persistence.Encoding
}

// NewStore opens the database described by cfg.
func NewStore(cfg Config, enc persistence.Encoding) (*Store, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for a persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, enc: enc}, nil
}

func projectKey(id string) []byte { return []byte(keyPrefix + id) }

// Save implements domain.ProjectRepository.
func (s *Store) Save(_ context.Context, doc domain.ProjectDocument) error {
	if err := persistence.CheckID(doc.ID); err != nil {
		return err
	}
	payload, err := s.enc.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(projectKey(doc.ID), payload)
	})
}

// Load implements domain.ProjectRepository.
func (s *Store) Load(_ context.Context, id string) (domain.ProjectDocument, error) {
	var payload []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(projectKey(id))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return domain.ProjectDocument{}, persistence.NotFound(id)
	}
	if err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("load project %s: %w", id, err)
	}
	return s.enc.Unmarshal(payload)
}

// List decodes every stored project; badger keeps no secondary index.
func (s *Store) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	out := []domain.ProjectSummary{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			payload, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			doc, err := s.enc.Unmarshal(payload)
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, doc.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete implements domain.ProjectRepository.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	existed := false
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(projectKey(id)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		existed = true
		return txn.Delete(projectKey(id))
	})
	if err != nil {
		return false, fmt.Errorf("delete project %s: %w", id, err)
	}
	return existed, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }
