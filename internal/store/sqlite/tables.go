package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

const verseTableSchema = `
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	verse_id TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

const pageTableSchema = `
CREATE TABLE IF NOT EXISTS "pageBookmarks" (
	id TEXT PRIMARY KEY,
	pageNumber INTEGER NOT NULL CHECK (pageNumber BETWEEN 1 AND 604),
	created_at TEXT NOT NULL
)`

type rowScanner interface {
	Scan(dest ...any) error
}

// table is a collection stored in one SQLite table keyed by an "id" column.
type table[T store.Record] struct {
	db     *sql.DB
	name   string
	values func(T) []any
	scan   func(rowScanner) (T, error)

	getSQL    string
	getAllSQL string
	putSQL    string
	deleteSQL string
}

func newTable[T store.Record](db *sql.DB, name, columns, placeholders string, values func(T) []any, scan func(rowScanner) (T, error)) *table[T] {
	quoted := `"` + name + `"`
	return &table[T]{
		db:        db,
		name:      name,
		values:    values,
		scan:      scan,
		getSQL:    fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, quoted),
		getAllSQL: fmt.Sprintf(`SELECT %s FROM %s`, columns, quoted),
		putSQL:    fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (%s)`, quoted, columns, placeholders),
		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoted),
	}
}

func newVerseTable(db *sql.DB) *table[domain.VerseBookmark] {
	return newTable(db, store.VerseCollection, "id, verse_id, created_at", "?, ?, ?", verseValues,
		func(row rowScanner) (domain.VerseBookmark, error) {
			var b domain.VerseBookmark
			var created string
			if err := row.Scan(&b.ID, &b.VerseID, &created); err != nil {
				return b, err
			}
			ts, err := domain.ParseTimestamp(created)
			if err != nil {
				return b, fmt.Errorf("bookmark %s: %w", b.ID, err)
			}
			b.CreatedAt = ts
			return b, nil
		})
}

func verseValues(b domain.VerseBookmark) []any {
	return []any{b.ID, b.VerseID, domain.FormatTimestamp(b.CreatedAt)}
}

func newPageTable(db *sql.DB) *table[domain.PageBookmark] {
	return newTable(db, store.PageCollection, "id, pageNumber, created_at", "?, ?, ?",
		func(b domain.PageBookmark) []any {
			return []any{b.ID, b.PageNumber, domain.FormatTimestamp(b.CreatedAt)}
		},
		func(row rowScanner) (domain.PageBookmark, error) {
			var b domain.PageBookmark
			var created string
			if err := row.Scan(&b.ID, &b.PageNumber, &created); err != nil {
				return b, err
			}
			ts, err := domain.ParseTimestamp(created)
			if err != nil {
				return b, fmt.Errorf("page bookmark %s: %w", b.ID, err)
			}
			b.CreatedAt = ts
			return b, nil
		})
}

func (t *table[T]) Get(ctx context.Context, key string) (T, bool, error) {
	rec, err := t.scan(t.db.QueryRowContext(ctx, t.getSQL, key))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, classify("get", t.name, err)
	}
	return rec, true, nil
}

func (t *table[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, t.getAllSQL)
	if err != nil {
		return nil, classify("getAll", t.name, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, classify("getAll", t.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("getAll", t.name, err)
	}
	return out, nil
}

func (t *table[T]) Put(ctx context.Context, rec T) error {
	if _, err := t.db.ExecContext(ctx, t.putSQL, t.values(rec)...); err != nil {
		return classify("put", t.name, err)
	}
	return nil
}

func (t *table[T]) Delete(ctx context.Context, key string) error {
	if _, err := t.db.ExecContext(ctx, t.deleteSQL, key); err != nil {
		return classify("delete", t.name, err)
	}
	return nil
}
