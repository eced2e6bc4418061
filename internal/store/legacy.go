package store

import (
	"sort"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
)

// LegacyVerse is a verse bookmark captured from a layout older than the
// id-keyed one. Any field may be empty.
type LegacyVerse struct {
	ID        string
	VerseID   string
	CreatedAt string
}

// Rekey turns a captured record into a current-schema bookmark.
// The key is the canonical form of VerseID, or of ID when VerseID is not a
// verse reference. A missing or unreadable timestamp becomes now.
// ok is false when neither field holds a valid verse reference; such a record
// could never be addressed again and is dropped.
func (l LegacyVerse) Rekey(now time.Time) (rec domain.VerseBookmark, ok bool) {
	var key string
	for _, candidate := range []string{l.VerseID, l.ID} {
		if ref, err := domain.ParseVerseID(candidate); err == nil {
			key = ref.String()
			break
		}
	}
	if key == "" {
		return domain.VerseBookmark{}, false
	}

	created, err := domain.ParseTimestamp(l.CreatedAt)
	if err != nil {
		created = now.UTC()
	}
	return domain.VerseBookmark{ID: key, VerseID: key, CreatedAt: created}, true
}

// RekeyAll rekeys captured records in capture order. Duplicate keys collapse to
// the last captured record. skipped counts records without a valid verse key.
func RekeyAll(captured []LegacyVerse, now time.Time) (out []domain.VerseBookmark, skipped int) {
	pos := make(map[string]int, len(captured))
	for _, l := range captured {
		rec, ok := l.Rekey(now)
		if !ok {
			skipped++
			continue
		}
		if i, dup := pos[rec.ID]; dup {
			out[i] = rec
			continue
		}
		pos[rec.ID] = len(out)
		out = append(out, rec)
	}
	return out, skipped
}

// SortVerses orders bookmarks by chapter then verse. Ids that are not valid
// verse references sort last, by id.
func SortVerses(recs []domain.VerseBookmark) {
	sort.SliceStable(recs, func(i, j int) bool {
		ri, errI := domain.ParseVerseID(recs[i].VerseID)
		rj, errJ := domain.ParseVerseID(recs[j].VerseID)
		switch {
		case errI == nil && errJ == nil:
			return ri.Less(rj)
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return recs[i].ID < recs[j].ID
		}
	})
}

// SortPages orders bookmarks by page number.
func SortPages(recs []domain.PageBookmark) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].PageNumber < recs[j].PageNumber })
}
