package sqlite

import (
	"errors"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
)

// classify maps a driver error to the storage taxonomy. Failures that mean the
// file cannot be used at all are ErrStorageUnavailable, everything else
// (disk full, corruption, busy) is ErrStorageIO.
func classify(op, collection string, err error) error {
	kind := domain.ErrStorageIO

	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN,
			sqlite3.SQLITE_PERM,
			sqlite3.SQLITE_AUTH,
			sqlite3.SQLITE_READONLY,
			sqlite3.SQLITE_NOTADB:
			kind = domain.ErrStorageUnavailable
		}
	}

	return &domain.StorageError{Op: op, Collection: collection, Kind: kind, Err: err}
}
