// Package migration runs ordered schema upgrades inside a caller-owned transaction.
//
// Each store backend declares its own steps over its own transaction type
// (*sql.Tx for sqlite, a WATCH/MULTI handle for redis). The plan only decides which
// steps are pending and in which order; committing or rolling back stays with the store,
// so a failed upgrade never leaves a half-migrated store behind.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
)

// ErrNewerSchema is returned when the store was written by a newer release.
var ErrNewerSchema = errors.New("store schema is newer than supported")

// Step upgrades a store to Version.
type Step[T any] struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx T) error
}

// Plan is an ordered set of steps.
type Plan[T any] struct {
	steps []Step[T]
}

// NewPlan validates that step versions are positive and strictly increasing.
func NewPlan[T any](steps ...Step[T]) (*Plan[T], error) {
	last := 0
	for _, s := range steps {
		if s.Version <= last {
			return nil, fmt.Errorf("migration %q: version %d must be greater than %d", s.Name, s.Version, last)
		}
		if s.Apply == nil {
			return nil, fmt.Errorf("migration %q: missing apply func", s.Name)
		}
		last = s.Version
	}
	return &Plan[T]{steps: steps}, nil
}

// MustPlan is NewPlan for package-level plans.
func MustPlan[T any](steps ...Step[T]) *Plan[T] {
	p, err := NewPlan(steps...)
	if err != nil {
		panic(err)
	}
	return p
}

// Target is the version reached once every step has run.
func (p *Plan[T]) Target() int {
	if len(p.steps) == 0 {
		return 0
	}
	return p.steps[len(p.steps)-1].Version
}

// Pending returns the steps needed to bring a store at version from up to date.
func (p *Plan[T]) Pending(from int) []Step[T] {
	var pending []Step[T]
	for _, s := range p.steps {
		if s.Version > from {
			pending = append(pending, s)
		}
	}
	return pending
}

// Apply runs every pending step against tx and returns the resulting version.
// On failure the returned error wraps domain.ErrMigrationIncomplete; the caller
// must discard tx.
func (p *Plan[T]) Apply(ctx context.Context, tx T, from int, log logger.Logger) (int, error) {
	if from > p.Target() {
		return from, fmt.Errorf("%w: found version %d, supported up to %d", ErrNewerSchema, from, p.Target())
	}

	version := from
	for _, s := range p.Pending(from) {
		log.Info("applying migration",
			logger.Int("from", version),
			logger.Int("to", s.Version),
			logger.String("name", s.Name))

		if err := s.Apply(ctx, tx); err != nil {
			return from, fmt.Errorf("%w: step %d (%s): %w", domain.ErrMigrationIncomplete, s.Version, s.Name, err)
		}
		version = s.Version
	}
	return version, nil
}
