package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseVerseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    VerseRef
		wantErr bool
	}{
		{name: "ayat al-kursi", input: "2:255", want: VerseRef{Chapter: 2, Verse: 255}},
		{name: "first verse", input: "1:1", want: VerseRef{Chapter: 1, Verse: 1}},
		{name: "last verse", input: "114:6", want: VerseRef{Chapter: 114, Verse: 6}},
		{name: "leading zeros", input: "018:010", want: VerseRef{Chapter: 18, Verse: 10}},
		{name: "whitespace", input: " 18:10 ", want: VerseRef{Chapter: 18, Verse: 10}},
		{name: "empty", input: "", wantErr: true},
		{name: "no separator", input: "2255", wantErr: true},
		{name: "chapter zero", input: "0:1", wantErr: true},
		{name: "chapter too high", input: "115:1", wantErr: true},
		{name: "verse zero", input: "2:0", wantErr: true},
		{name: "verse beyond chapter", input: "1:8", wantErr: true},
		{name: "negative verse", input: "2:-1", wantErr: true},
		{name: "plus sign", input: "+2:5", wantErr: true},
		{name: "letters", input: "a:b", wantErr: true},
		{name: "extra part", input: "2:5:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerseID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVerseID(%q) expected error, got %+v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("ParseVerseID(%q) error should match ErrInvalidArgument, got %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVerseID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseVerseID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerseCountTable(t *testing.T) {
	total := 0
	for ch := 1; ch <= TotalChapters; ch++ {
		total += VerseCount(ch)
	}
	if total != 6236 {
		t.Errorf("total verses = %d, want 6236", total)
	}
	if VerseCount(0) != 0 || VerseCount(115) != 0 {
		t.Error("VerseCount() should be 0 outside 1..114")
	}
}

func TestVerseRefPath(t *testing.T) {
	ref := VerseRef{Chapter: 18, Verse: 10}
	if got := ref.Path(); got != "/surah/18#ayah-10" {
		t.Errorf("Path() = %q", got)
	}
	if !ref.Less(VerseRef{Chapter: 18, Verse: 11}) || !ref.Less(VerseRef{Chapter: 19, Verse: 1}) {
		t.Error("Less() ordering is wrong")
	}
}

func TestNewVerseBookmarkCanonicalID(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	bm, err := NewVerseBookmark("018:010", now)
	if err != nil {
		t.Fatalf("NewVerseBookmark() error = %v", err)
	}
	if bm.ID != "18:10" || bm.VerseID != "18:10" {
		t.Errorf("NewVerseBookmark() = %+v, want id and verse id 18:10", bm)
	}
	if bm.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt should be UTC, got %v", bm.CreatedAt.Location())
	}
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		page    int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{42, false},
		{604, false},
		{605, true},
		{-3, true},
	}

	for _, tt := range tests {
		err := ValidatePage(tt.page)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePage(%d) error = %v, wantErr %v", tt.page, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ValidatePage(%d) error should match ErrInvalidArgument", tt.page)
		}
	}
}

func TestPageKeyRoundTrip(t *testing.T) {
	bm, err := NewPageBookmark(255, time.Now())
	if err != nil {
		t.Fatalf("NewPageBookmark() error = %v", err)
	}
	if bm.ID != "page:255" {
		t.Errorf("ID = %q, want page:255", bm.ID)
	}
	page, err := ParsePageKey(bm.ID)
	if err != nil || page != 255 {
		t.Errorf("ParsePageKey(%q) = %d, %v", bm.ID, page, err)
	}
	if _, err := ParsePageKey("255"); err == nil {
		t.Error("ParsePageKey() without prefix should fail")
	}
	if bm.Path() != "/page/255" {
		t.Errorf("Path() = %q", bm.Path())
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678_900_000, time.UTC)
	got := FormatTimestamp(ts)
	if got != "2024-01-02T03:04:05.678Z" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
	parsed, err := ParseTimestamp(got)
	if err != nil {
		t.Fatalf("ParseTimestamp() error = %v", err)
	}
	if !parsed.Equal(ts.Truncate(time.Millisecond)) {
		t.Errorf("ParseTimestamp() = %v", parsed)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("ParseTimestamp() should reject garbage")
	}
}

func TestStorageErrorMatching(t *testing.T) {
	cause := errors.New("disk full")
	err := IOError("put", "bookmarks", cause)

	if !errors.Is(err, ErrStorageIO) {
		t.Error("IOError should match ErrStorageIO")
	}
	if !errors.Is(err, cause) {
		t.Error("IOError should match its cause")
	}
	if errors.Is(err, ErrStorageUnavailable) {
		t.Error("IOError should not match ErrStorageUnavailable")
	}

	var se *StorageError
	if !errors.As(Unavailable("open", cause), &se) || se.Op != "open" {
		t.Errorf("Unavailable() should be a *StorageError with op open, got %+v", se)
	}
}

func TestPersistedJSONLayout(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	data, err := json.Marshal(VerseBookmark{ID: "18:10", VerseID: "18:10", CreatedAt: created})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"18:10","verse_id":"18:10","created_at":"2024-05-01T10:00:00.000Z"}`
	if string(data) != want {
		t.Errorf("verse JSON = %s, want %s", data, want)
	}

	var page PageBookmark
	if err := json.Unmarshal([]byte(`{"id":"page:255","pageNumber":255,"created_at":"2024-05-01T10:00:00.000Z"}`), &page); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if page.ID != "page:255" || page.PageNumber != 255 || !page.CreatedAt.Equal(created) {
		t.Errorf("Unmarshal() = %+v", page)
	}

	if err := json.Unmarshal([]byte(`{"id":"page:1","pageNumber":1,"created_at":"soon"}`), &page); err == nil {
		t.Error("Unmarshal() should reject a bad timestamp")
	}
}
