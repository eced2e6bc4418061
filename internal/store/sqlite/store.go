// Package sqlite is the default durable store: one SQLite file per store name.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

const metaSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const metaSchemaVersion = "schema_version"

// Options configures Open.
type Options struct {
	Dir         string        // directory holding the database file
	Name        string        // store name, the file is <Dir>/<Name>.db
	BusyTimeout time.Duration // how long a writer waits for the lock (default 5s)

	Clock func() time.Time // stamps records rebuilt by migrations, defaults to time.Now
}

// Store implements store.Conn over database/sql.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	log    logger.Logger
	now    func() time.Time
	verses *table[domain.VerseBookmark]
	pages  *table[domain.PageBookmark]
}

// Open opens (creating if needed) the store file and brings its schema to
// store.SchemaVersion. It is safe to call from several processes at once.
func Open(ctx context.Context, opts Options, log logger.Logger) (*Store, error) {
	if opts.Name == "" {
		opts.Name = store.DefaultName
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	path := filepath.Join(opts.Dir, opts.Name+".db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.Unavailable("open", fmt.Errorf("failed to create store directory: %w", err))
	}

	db, err := sql.Open("sqlite", dsn(path, opts.BusyTimeout))
	if err != nil {
		return nil, domain.Unavailable("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, classify("open", "", err)
	}

	s := &Store{
		db:   db,
		path: path,
		log:  log.With(logger.String("store", path)),
		now:  opts.Clock,
	}
	s.verses = newVerseTable(db)
	s.pages = newPageTable(db)

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// dsn enables WAL and takes the write lock at BEGIN so that concurrent
// openers serialise on the migration transaction.
func dsn(path string, busy time.Duration) string {
	return path +
		"?_pragma=busy_timeout(" + strconv.FormatInt(busy.Milliseconds(), 10) + ")" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("migrate", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, metaSchema); err != nil {
		return classify("migrate", "", err)
	}

	// Read under the write lock: another process may have migrated meanwhile.
	current, err := readVersion(ctx, tx)
	if err != nil {
		return classify("migrate", "", err)
	}
	if current == plan.Target() {
		return nil
	}

	m := &migrator{tx: tx, log: s.log, now: s.now}
	version, err := plan.Apply(ctx, m, current, s.log)
	if err != nil {
		return domain.Unavailable("migrate", err)
	}
	if err := writeVersion(ctx, tx, version); err != nil {
		return domain.Unavailable("migrate", fmt.Errorf("%w: %w", domain.ErrMigrationIncomplete, err))
	}
	if err := tx.Commit(); err != nil {
		return domain.Unavailable("migrate", fmt.Errorf("%w: commit: %w", domain.ErrMigrationIncomplete, err))
	}

	s.log.Info("store schema migrated",
		logger.Int("from", current),
		logger.Int("to", version))
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readVersion(ctx context.Context, q querier) (int, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaSchemaVersion).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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

func writeVersion(ctx context.Context, tx *sql.Tx, v int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaSchemaVersion, strconv.Itoa(v))
	if err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

func (s *Store) Verses() store.Collection[domain.VerseBookmark] { return s.verses }
func (s *Store) Pages() store.Collection[domain.PageBookmark]   { return s.pages }
func (s *Store) Backend() string                                { return "sqlite" }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return 0, domain.Unavailable("version", errors.New("store closed"))
	}
	v, err := readVersion(ctx, db)
	if err != nil {
		return 0, classify("version", "", err)
	}
	return v, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return domain.Unavailable("ping", errors.New("store closed"))
	}
	if err := db.PingContext(ctx); err != nil {
		return classify("ping", "", err)
	}
	return nil
}

// Close releases the database. Calling it twice is fine.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
