// Package memory is an in-process store used in tests and ephemeral runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

var errClosed = errors.New("store closed")

// Store keeps both collections in maps. It is always at store.SchemaVersion.
type Store struct {
	mu     sync.RWMutex
	closed bool
	verses *collection[domain.VerseBookmark]
	pages  *collection[domain.PageBookmark]

	// failWith, when set, makes every collection call fail (tests).
	failWith error
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.verses = &collection[domain.VerseBookmark]{s: s, name: store.VerseCollection, records: map[string]domain.VerseBookmark{}}
	s.pages = &collection[domain.PageBookmark]{s: s, name: store.PageCollection, records: map[string]domain.PageBookmark{}}
	return s
}

func (s *Store) Verses() store.Collection[domain.VerseBookmark] { return s.verses }
func (s *Store) Pages() store.Collection[domain.PageBookmark]   { return s.pages }

func (s *Store) SchemaVersion(context.Context) (int, error) { return store.SchemaVersion, nil }
func (s *Store) Backend() string                            { return "memory" }

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.Unavailable("ping", errClosed)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailWith makes every subsequent collection call fail with err wrapped as a
// storage I/O error. Passing nil restores normal behaviour.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// check must be called with s.mu held.
func (s *Store) check(op, name string) error {
	if s.closed {
		return domain.Unavailable(op, errClosed)
	}
	if s.failWith != nil {
		return domain.IOError(op, name, s.failWith)
	}
	return nil
}

type collection[T store.Record] struct {
	s       *Store
	name    string
	records map[string]T
}

func (c *collection[T]) Get(_ context.Context, key string) (T, bool, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var zero T
	if err := c.s.check("get", c.name); err != nil {
		return zero, false, err
	}
	rec, ok := c.records[key]
	return rec, ok, nil
}

func (c *collection[T]) GetAll(context.Context) ([]T, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	if err := c.s.check("getAll", c.name); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	return out, nil
}

func (c *collection[T]) Put(_ context.Context, rec T) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if err := c.s.check("put", c.name); err != nil {
		return err
	}
	c.records[rec.Key()] = rec
	return nil
}

func (c *collection[T]) Delete(_ context.Context, key string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if err := c.s.check("delete", c.name); err != nil {
		return err
	}
	delete(c.records, key)
	return nil
}
