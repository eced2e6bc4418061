package index

import (
	"sync"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
)

// MemoryIndex is the presentation copy of the bookmark collections.
// It is rebuilt from the store on every refresh and patched after each
// successful toggle; the store stays the source of truth.
type MemoryIndex struct {
	mu         sync.RWMutex
	verses     map[string]domain.VerseBookmark // ID -> bookmark
	pages      map[int]domain.PageBookmark     // page number -> bookmark
	lastReload time.Time                       // Timestamp of last full reload
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		verses: make(map[string]domain.VerseBookmark),
		pages:  make(map[int]domain.PageBookmark),
	}
}

// Replace swaps both collections for a fresh read of the store.
func (idx *MemoryIndex) Replace(verses []domain.VerseBookmark, pages []domain.PageBookmark) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.verses = make(map[string]domain.VerseBookmark, len(verses))
	for _, v := range verses {
		idx.verses[v.ID] = v
	}
	idx.pages = make(map[int]domain.PageBookmark, len(pages))
	for _, p := range pages {
		idx.pages[p.PageNumber] = p
	}
	idx.lastReload = time.Now()
}

// GetLastReload returns the timestamp of the last full reload
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// ─────────────────────────────────────────────────────────────────
// Verse bookmarks
// ─────────────────────────────────────────────────────────────────

// Verses returns verse bookmarks in reading order
func (idx *MemoryIndex) Verses() []domain.VerseBookmark {
	idx.mu.RLock()
	out := make([]domain.VerseBookmark, 0, len(idx.verses))
	for _, v := range idx.verses {
		out = append(out, v)
	}
	idx.mu.RUnlock()

	store.SortVerses(out)
	return out
}

// HasVerse reports whether a verse id is bookmarked
func (idx *MemoryIndex) HasVerse(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, ok := idx.verses[id]
	return ok
}

// PutVerse adds or replaces a single verse bookmark
func (idx *MemoryIndex) PutVerse(bm domain.VerseBookmark) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.verses[bm.ID] = bm
}

// DeleteVerse removes a verse bookmark from the index
func (idx *MemoryIndex) DeleteVerse(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.verses, id)
}

// ─────────────────────────────────────────────────────────────────
// Page bookmarks
// ─────────────────────────────────────────────────────────────────

// Pages returns page bookmarks by page number
func (idx *MemoryIndex) Pages() []domain.PageBookmark {
	idx.mu.RLock()
	out := make([]domain.PageBookmark, 0, len(idx.pages))
	for _, p := range idx.pages {
		out = append(out, p)
	}
	idx.mu.RUnlock()

	store.SortPages(out)
	return out
}

func (idx *MemoryIndex) HasPage(page int) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	_, ok := idx.pages[page]
	return ok
}

func (idx *MemoryIndex) PutPage(bm domain.PageBookmark) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.pages[bm.PageNumber] = bm
}

func (idx *MemoryIndex) DeletePage(page int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.pages, page)
}

// Counts returns the number of verse and page bookmarks
func (idx *MemoryIndex) Counts() (verses, pages int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.verses), len(idx.pages)
}
