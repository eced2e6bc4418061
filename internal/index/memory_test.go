package index

import (
	"sync"
	"testing"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
)

func verse(id string) domain.VerseBookmark {
	return domain.VerseBookmark{ID: id, VerseID: id, CreatedAt: time.Now()}
}

func page(n int) domain.PageBookmark {
	return domain.PageBookmark{ID: domain.PageKey(n), PageNumber: n, CreatedAt: time.Now()}
}

func TestNewMemoryIndex(t *testing.T) {
	index := NewMemoryIndex()
	if index == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	verses, pages := index.Counts()
	if verses != 0 || pages != 0 {
		t.Errorf("NewMemoryIndex() should start empty, got %d verses %d pages", verses, pages)
	}
	if !index.GetLastReload().IsZero() {
		t.Error("NewMemoryIndex() should not have a reload time")
	}
}

func TestReplaceOverwrites(t *testing.T) {
	index := NewMemoryIndex()

	index.Replace([]domain.VerseBookmark{verse("1:1")}, []domain.PageBookmark{page(1)})
	index.Replace([]domain.VerseBookmark{verse("2:255"), verse("18:10")}, nil)

	if index.HasVerse("1:1") {
		t.Error("Replace() should drop verses missing from the new read")
	}
	if index.HasPage(1) {
		t.Error("Replace() should drop pages missing from the new read")
	}
	verses, pages := index.Counts()
	if verses != 2 || pages != 0 {
		t.Errorf("Counts() = %d, %d, want 2, 0", verses, pages)
	}
	if index.GetLastReload().IsZero() {
		t.Error("Replace() should set the reload time")
	}
}

func TestSortedViews(t *testing.T) {
	index := NewMemoryIndex()
	index.Replace(
		[]domain.VerseBookmark{verse("18:10"), verse("2:255"), verse("2:3")},
		[]domain.PageBookmark{page(300), page(7), page(42)},
	)

	wantVerses := []string{"2:3", "2:255", "18:10"}
	for i, v := range index.Verses() {
		if v.ID != wantVerses[i] {
			t.Errorf("Verses()[%d] = %s, want %s", i, v.ID, wantVerses[i])
		}
	}

	wantPages := []int{7, 42, 300}
	for i, p := range index.Pages() {
		if p.PageNumber != wantPages[i] {
			t.Errorf("Pages()[%d] = %d, want %d", i, p.PageNumber, wantPages[i])
		}
	}
}

func TestPutAndDelete(t *testing.T) {
	index := NewMemoryIndex()

	index.PutVerse(verse("36:1"))
	index.PutPage(page(604))
	if !index.HasVerse("36:1") || !index.HasPage(604) {
		t.Fatal("Put should make records visible")
	}

	index.DeleteVerse("36:1")
	index.DeletePage(604)
	index.DeletePage(604)
	if index.HasVerse("36:1") || index.HasPage(604) {
		t.Error("Delete should remove records")
	}
}

func TestConcurrentAccess(t *testing.T) {
	index := NewMemoryIndex()
	var wg sync.WaitGroup

	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			index.PutPage(page(n))
		}(i)
		go func() {
			defer wg.Done()
			_ = index.Pages()
		}()
	}
	wg.Wait()

	if _, pages := index.Counts(); pages != 50 {
		t.Errorf("Counts() pages = %d, want 50", pages)
	}
}
