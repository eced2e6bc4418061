package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

func openTest(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Dir: dir, Name: "test-db"}, logger.New("error", false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedLegacy writes a verse table without a primary key, as early releases did.
func seedLegacy(t *testing.T, dir string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(dir, "test-db.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestOpenFreshStore(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, t.TempDir())

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, v)

	verses, err := s.Verses().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, verses)

	pages, err := s.Pages().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestCollectionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, t.TempDir())
	created := time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)

	verse := domain.VerseBookmark{ID: "18:10", VerseID: "18:10", CreatedAt: created}
	require.NoError(t, s.Verses().Put(ctx, verse))

	got, ok, err := s.Verses().Get(ctx, "18:10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, verse, got)

	page := domain.PageBookmark{ID: "page:255", PageNumber: 255, CreatedAt: created}
	require.NoError(t, s.Pages().Put(ctx, page))

	replaced := page
	replaced.CreatedAt = created.Add(time.Hour)
	require.NoError(t, s.Pages().Put(ctx, replaced))

	pages, err := s.Pages().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, replaced, pages[0])

	require.NoError(t, s.Pages().Delete(ctx, "page:255"))
	require.NoError(t, s.Pages().Delete(ctx, "page:255"))
	_, ok, err = s.Pages().Get(ctx, "page:255")
	require.NoError(t, err)
	assert.False(t, ok)

	verses, err := s.Verses().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, verses, 1, "page operations must not touch verse bookmarks")
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := openTest(t, dir)
	require.NoError(t, first.Verses().Put(ctx, domain.VerseBookmark{ID: "2:255", VerseID: "2:255", CreatedAt: time.Now()}))
	require.NoError(t, first.Close())

	second := openTest(t, dir)
	verses, err := second.Verses().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, verses, 1)
}

func TestLegacyVerseTableIsRekeyed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedLegacy(t, dir,
		`CREATE TABLE bookmarks (id TEXT, verse_id TEXT, created_at TEXT)`,
		`INSERT INTO bookmarks VALUES (NULL, '2:255', '2023-01-01T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES (NULL, '18:10', '2023-01-02T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES ('36:1', '36:1', '2023-01-03T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES (NULL, '2:255', '2023-02-01T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES (NULL, NULL, '2023-02-01T00:00:00.000Z')`,
	)

	s := openTest(t, dir)

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, v)

	verses, err := s.Verses().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, verses, 3)
	for _, b := range verses {
		assert.Equal(t, b.VerseID, b.ID)
	}

	got, ok, err := s.Verses().Get(ctx, "2:255")
	require.NoError(t, err)
	require.True(t, ok, "rekeyed records must be reachable by key")
	assert.Equal(t, time.February, got.CreatedAt.Month(), "duplicate keys keep the last record")

	pages, err := s.Pages().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages, "page collection is created by the additive step")
}

func TestLegacyRecordsWithInvalidVerseIDAreDropped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedLegacy(t, dir,
		`CREATE TABLE bookmarks (id TEXT, verse_id TEXT, created_at TEXT)`,
		`INSERT INTO bookmarks VALUES (NULL, 'abc', '2023-01-01T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES ('abc', '200:1', '2023-01-01T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES (NULL, '1:1', '2023-01-01T00:00:00.000Z')`,
	)

	s := openTest(t, dir)
	verses, err := s.Verses().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, verses, 1)
	assert.Equal(t, "1:1", verses[0].ID)
}

func TestLegacyTableWithoutIDColumn(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedLegacy(t, dir,
		`CREATE TABLE bookmarks (verse_id TEXT, created_at TEXT)`,
		`INSERT INTO bookmarks VALUES ('1:1', '2023-01-01T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES ('114:6', NULL)`,
	)

	s := openTest(t, dir)
	verses, err := s.Verses().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, verses, 2)

	_, ok, err := s.Verses().Get(ctx, "114:6")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedLegacy(t, dir,
		`CREATE TABLE bookmarks (id TEXT, verse_id TEXT, created_at TEXT)`,
		`INSERT INTO bookmarks VALUES (NULL, '2:255', '2023-01-01T00:00:00.000Z')`,
		// A view in the way of the staging table makes the rebuild fail.
		`CREATE VIEW bookmarks_migrated AS SELECT 1`,
	)

	_, err := Open(ctx, Options{Dir: dir, Name: "test-db"}, logger.New("error", false))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMigrationIncomplete)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	db, err := sql.Open("sqlite", filepath.Join(dir, "test-db.db"))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM bookmarks WHERE verse_id = '2:255'`).Scan(&count))
	assert.Equal(t, 1, count, "legacy data must survive a failed migration")

	var metaTables int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'pageBookmarks'`).Scan(&metaTables))
	assert.Zero(t, metaTables, "no step may persist after a failure")
}

func TestConcurrentOpensMigrateOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedLegacy(t, dir,
		`CREATE TABLE bookmarks (id TEXT, verse_id TEXT, created_at TEXT)`,
		`INSERT INTO bookmarks VALUES (NULL, '2:255', '2023-01-01T00:00:00.000Z')`,
		`INSERT INTO bookmarks VALUES (NULL, '3:7', '2023-01-01T00:00:00.000Z')`,
	)

	const contexts = 4
	var wg sync.WaitGroup
	stores := make([]*Store, contexts)
	errs := make([]error, contexts)
	for i := 0; i < contexts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i], errs[i] = Open(ctx, Options{Dir: dir, Name: "test-db", BusyTimeout: 10 * time.Second}, logger.New("error", false))
		}(i)
	}
	wg.Wait()

	for i := 0; i < contexts; i++ {
		require.NoError(t, errs[i])
		t.Cleanup(func() { _ = stores[i].Close() })
	}

	verses, err := stores[0].Verses().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, verses, 2)
}

func TestNewerSchemaIsRefused(t *testing.T) {
	dir := t.TempDir()
	seedLegacy(t, dir,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`INSERT INTO meta VALUES ('schema_version', '9')`,
	)

	_, err := Open(context.Background(), Options{Dir: dir, Name: "test-db"}, logger.New("error", false))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestClosedStore(t *testing.T) {
	s := openTest(t, t.TempDir())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), domain.ErrStorageUnavailable)
}
