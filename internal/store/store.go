// Package store defines the durable bookmark store shared by every backend.
package store

import (
	"context"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
)

// SchemaVersion is the version every backend migrates to on open.
const SchemaVersion = 4

// DefaultName is the store name used when none is configured.
const DefaultName = "quranfi-db"

// Persisted collection names.
const (
	VerseCollection = "bookmarks"
	PageCollection  = "pageBookmarks"
)

// Record is anything stored under a primary key.
type Record interface {
	Key() string
}

// Collection is a set of records sharing one primary key.
// Get reports absence with ok == false and a nil error.
// GetAll returns records in no particular order.
// Put replaces any record with the same key; Delete of a missing key is a no-op.
type Collection[T Record] interface {
	Get(ctx context.Context, key string) (rec T, ok bool, err error)
	GetAll(ctx context.Context) ([]T, error)
	Put(ctx context.Context, rec T) error
	Delete(ctx context.Context, key string) error
}

// Conn is an open handle on a named store.
type Conn interface {
	Verses() Collection[domain.VerseBookmark]
	Pages() Collection[domain.PageBookmark]

	// SchemaVersion reads the persisted schema version.
	SchemaVersion(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	// Backend names the substrate, e.g. "sqlite".
	Backend() string
	Close() error
}
