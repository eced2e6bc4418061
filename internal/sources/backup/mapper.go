package backup

import (
	"fmt"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
)

// Mapper converts between backup entries and domain bookmarks
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a mapper. Entries without a timestamp get now().
func NewMapper(now func() time.Time) *Mapper {
	if now == nil {
		now = time.Now
	}
	return &Mapper{now: now}
}

// ToDomain validates every entry and converts the file to bookmarks.
// Duplicate entries collapse to the last one, as repeated upserts would.
func (m *Mapper) ToDomain(f File) ([]domain.VerseBookmark, []domain.PageBookmark, error) {
	now := m.now()

	verses := make([]domain.VerseBookmark, 0, len(f.Verses))
	seenVerse := make(map[string]int, len(f.Verses))
	for i, e := range f.Verses {
		created, err := m.timestamp(e.CreatedAt, now)
		if err != nil {
			return nil, nil, fmt.Errorf("verses[%d]: %w", i, err)
		}
		bm, err := domain.NewVerseBookmark(e.VerseID, created)
		if err != nil {
			return nil, nil, fmt.Errorf("verses[%d]: %w", i, err)
		}
		if pos, ok := seenVerse[bm.ID]; ok {
			verses[pos] = bm
			continue
		}
		seenVerse[bm.ID] = len(verses)
		verses = append(verses, bm)
	}

	pages := make([]domain.PageBookmark, 0, len(f.Pages))
	seenPage := make(map[int]int, len(f.Pages))
	for i, e := range f.Pages {
		created, err := m.timestamp(e.CreatedAt, now)
		if err != nil {
			return nil, nil, fmt.Errorf("pages[%d]: %w", i, err)
		}
		bm, err := domain.NewPageBookmark(e.Page, created)
		if err != nil {
			return nil, nil, fmt.Errorf("pages[%d]: %w", i, err)
		}
		if pos, ok := seenPage[bm.PageNumber]; ok {
			pages[pos] = bm
			continue
		}
		seenPage[bm.PageNumber] = len(pages)
		pages = append(pages, bm)
	}

	return verses, pages, nil
}

func (m *Mapper) timestamp(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	return domain.ParseTimestamp(raw)
}

// FromDomain builds a backup document.
func (m *Mapper) FromDomain(verses []domain.VerseBookmark, pages []domain.PageBookmark) File {
	f := File{
		Version:    FormatVersion,
		ExportedAt: domain.FormatTimestamp(m.now()),
		Verses:     make([]VerseEntry, 0, len(verses)),
		Pages:      make([]PageEntry, 0, len(pages)),
	}
	for _, v := range verses {
		f.Verses = append(f.Verses, VerseEntry{VerseID: v.VerseID, CreatedAt: domain.FormatTimestamp(v.CreatedAt)})
	}
	for _, p := range pages {
		f.Pages = append(f.Pages, PageEntry{Page: p.PageNumber, CreatedAt: domain.FormatTimestamp(p.CreatedAt)})
	}
	return f
}
