package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/migration"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

// migrator is the transaction handle every step runs against.
type migrator struct {
	tx  *sql.Tx
	log logger.Logger
	now func() time.Time
}

var plan = migration.MustPlan(
	migration.Step[*migrator]{Version: 3, Name: "key verse bookmarks by id", Apply: keyVersesByID},
	migration.Step[*migrator]{Version: 4, Name: "add page bookmarks", Apply: addPageBookmarks},
)

// keyVersesByID creates the verse table, or rebuilds a legacy one whose primary
// key is not "id". Capture, rebuild and reinsert share the open transaction.
func keyVersesByID(ctx context.Context, m *migrator) error {
	cols, err := tableColumns(ctx, m.tx, store.VerseCollection)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		_, err := m.tx.ExecContext(ctx, fmt.Sprintf(verseTableSchema, `"bookmarks"`))
		return err
	}
	if cols.keyedByID() {
		return nil
	}

	captured, err := captureLegacyVerses(ctx, m.tx, cols)
	if err != nil {
		return err
	}
	recs, skipped := store.RekeyAll(captured, m.now())
	if skipped > 0 {
		m.log.Warn("dropping verse bookmarks without a usable key",
			logger.Int("count", skipped))
	}

	stmts := []string{
		`DROP TABLE IF EXISTS "bookmarks_migrated"`,
		fmt.Sprintf(verseTableSchema, `"bookmarks_migrated"`),
	}
	for _, stmt := range stmts {
		if _, err := m.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create migrated table: %w", err)
		}
	}

	insert, err := m.tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO "bookmarks_migrated" (id, verse_id, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, rec := range recs {
		if _, err := insert.ExecContext(ctx, verseValues(rec)...); err != nil {
			return fmt.Errorf("failed to reinsert bookmark %s: %w", rec.ID, err)
		}
	}

	for _, stmt := range []string{
		`DROP TABLE "bookmarks"`,
		`ALTER TABLE "bookmarks_migrated" RENAME TO "bookmarks"`,
	} {
		if _, err := m.tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to swap verse table: %w", err)
		}
	}

	m.log.Info("verse bookmarks rekeyed",
		logger.Int("captured", len(captured)),
		logger.Int("kept", len(recs)))
	return nil
}

func addPageBookmarks(ctx context.Context, m *migrator) error {
	_, err := m.tx.ExecContext(ctx, pageTableSchema)
	return err
}

type columnSet map[string]int // column name -> position in primary key (0 = not in key)

func (c columnSet) keyedByID() bool {
	keyCols := 0
	for _, pk := range c {
		if pk > 0 {
			keyCols++
		}
	}
	return keyCols == 1 && c["id"] == 1
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) (columnSet, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := columnSet{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = pk
	}
	return cols, rows.Err()
}

// captureLegacyVerses reads every row of the legacy table in insertion order.
// Columns missing from the legacy layout read as empty strings.
func captureLegacyVerses(ctx context.Context, tx *sql.Tx, cols columnSet) ([]store.LegacyVerse, error) {
	pick := func(name string) string {
		if _, ok := cols[name]; ok {
			return "COALESCE(CAST(" + name + " AS TEXT), '')"
		}
		return "''"
	}
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM "bookmarks" ORDER BY rowid`,
		pick("id"), pick("verse_id"), pick("created_at"))

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to capture legacy bookmarks: %w", err)
	}
	defer rows.Close()

	var captured []store.LegacyVerse
	for rows.Next() {
		var l store.LegacyVerse
		if err := rows.Scan(&l.ID, &l.VerseID, &l.CreatedAt); err != nil {
			return nil, err
		}
		captured = append(captured, l)
	}
	return captured, rows.Err()
}
