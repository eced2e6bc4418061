// Package redis stores bookmarks in Redis hashes, one hash per collection.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/migration"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

// maxMigrationAttempts bounds optimistic retries when other instances write
// to the watched keys while this one migrates.
const maxMigrationAttempts = 5

var errClosed = errors.New("store closed")

// Options configures Open.
type Options struct {
	Name  string           // store name, prefixes every key
	Clock func() time.Time // stamps records rebuilt by migrations, defaults to time.Now
}

// Store implements store.Conn. The client is owned by the caller.
type Store struct {
	client *redis.Client
	keys   keys
	log    logger.Logger
	now    func() time.Time
	closed atomic.Bool
	verses *hashCollection[domain.VerseBookmark]
	pages  *hashCollection[domain.PageBookmark]
}

// Open checks the connection and migrates the store to store.SchemaVersion.
func Open(ctx context.Context, client *redis.Client, opts Options, log logger.Logger) (*Store, error) {
	if opts.Name == "" {
		opts.Name = store.DefaultName
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, domain.Unavailable("open", err)
	}

	k := newKeys(opts.Name)
	s := &Store{
		client: client,
		keys:   k,
		log:    log.With(logger.String("store", opts.Name)),
		now:    opts.Clock,
	}
	s.verses = &hashCollection[domain.VerseBookmark]{s: s, name: store.VerseCollection, key: k.Collection(store.VerseCollection)}
	s.pages = &hashCollection[domain.PageBookmark]{s: s, name: store.PageCollection, key: k.Collection(store.PageCollection)}

	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate runs the plan inside WATCH/MULTI. If another instance touches the
// watched keys first, EXEC fails and the version is read again; once it is
// current the retry is a no-op.
func (s *Store) migrate(ctx context.Context) error {
	watched := []string{s.keys.Version(), s.verses.key, s.pages.key}

	for attempt := 1; attempt <= maxMigrationAttempts; attempt++ {
		var from, to int
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var err error
			from, err = readVersion(ctx, tx, s.keys.Version())
			if err != nil {
				return err
			}
			if from == plan.Target() {
				to = from
				return nil
			}

			m := &migrator{tx: tx, keys: s.keys, log: s.log, now: s.now}
			to, err = plan.Apply(ctx, m, from, s.log)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, op := range m.ops {
					op(pipe)
				}
				pipe.Set(ctx, s.keys.Version(), strconv.Itoa(to), 0)
				return nil
			})
			return err
		}, watched...)

		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug("schema migration raced with another instance, retrying",
				logger.Int("attempt", attempt))
			continue
		}
		if err != nil {
			if errors.Is(err, domain.ErrMigrationIncomplete) || errors.Is(err, migration.ErrNewerSchema) {
				return domain.Unavailable("migrate", err)
			}
			return domain.Unavailable("migrate", fmt.Errorf("%w: %w", domain.ErrMigrationIncomplete, err))
		}
		if from != to {
			s.log.Info("store schema migrated",
				logger.Int("from", from),
				logger.Int("to", to))
		}
		return nil
	}
	return domain.Unavailable("migrate", fmt.Errorf("%w: gave up after %d contended attempts",
		domain.ErrMigrationIncomplete, maxMigrationAttempts))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, c getter, key string) (int, error) {
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", raw, err)
	}
	return v, nil
}

func (s *Store) Verses() store.Collection[domain.VerseBookmark] { return s.verses }
func (s *Store) Pages() store.Collection[domain.PageBookmark]   { return s.pages }
func (s *Store) Backend() string                                { return "redis" }

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, domain.Unavailable("version", errClosed)
	}
	v, err := readVersion(ctx, s.client, s.keys.Version())
	if err != nil {
		return 0, classify("version", "", err)
	}
	return v, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return domain.Unavailable("ping", errClosed)
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.Unavailable("ping", err)
	}
	return nil
}

// Close detaches the store. The Redis client stays open for its owner.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// classify maps a Redis error to the storage taxonomy.
func classify(op, collection string, err error) error {
	kind := domain.ErrStorageIO
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, errClosed) {
		kind = domain.ErrStorageUnavailable
	}
	return &domain.StorageError{Op: op, Collection: collection, Kind: kind, Err: err}
}
