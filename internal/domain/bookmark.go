package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TotalPages is the page count of the reference print layout.
const TotalPages = 604

// PageKeyPrefix prefixes every page bookmark primary key.
const PageKeyPrefix = "page:"

// VerseBookmark is a saved marker on a single verse.
//
// Its JSON form is the persisted layout, see json.go.
type VerseBookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the primary key.
	// It MUST be equal to VerseID.
	ID string

	// VerseID references the verse as "<chapter>:<verse>".
	// Example: 2:255
	VerseID string

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is the time the verse was (last) bookmarked.
	CreatedAt time.Time
}

// Key returns the primary key of the record.
func (b VerseBookmark) Key() string { return b.ID }

// Ref parses the verse reference of the bookmark.
func (b VerseBookmark) Ref() (VerseRef, error) { return ParseVerseID(b.VerseID) }

// PageBookmark is a saved marker on one page of the print layout.
type PageBookmark struct {
	// ID is the primary key, "page:<PageNumber>".
	ID string

	// PageNumber is in [1, TotalPages].
	PageNumber int

	CreatedAt time.Time
}

// Key returns the primary key of the record.
func (b PageBookmark) Key() string { return b.ID }

// Path returns the reader path of the bookmarked page.
func (b PageBookmark) Path() string { return "/page/" + strconv.Itoa(b.PageNumber) }

// NewVerseBookmark builds a validated verse bookmark keyed by its verse id.
func NewVerseBookmark(verseID string, now time.Time) (VerseBookmark, error) {
	ref, err := ParseVerseID(verseID)
	if err != nil {
		return VerseBookmark{}, err
	}
	id := ref.String()
	return VerseBookmark{ID: id, VerseID: id, CreatedAt: now.UTC().Truncate(time.Millisecond)}, nil
}

// NewPageBookmark builds a validated page bookmark.
func NewPageBookmark(page int, now time.Time) (PageBookmark, error) {
	if err := ValidatePage(page); err != nil {
		return PageBookmark{}, err
	}
	return PageBookmark{ID: PageKey(page), PageNumber: page, CreatedAt: now.UTC().Truncate(time.Millisecond)}, nil
}

// PageKey returns the primary key for a page number.
func PageKey(page int) string {
	return PageKeyPrefix + strconv.Itoa(page)
}

// ParsePageKey extracts the page number from a "page:<n>" key.
func ParsePageKey(key string) (int, error) {
	raw, ok := strings.CutPrefix(key, PageKeyPrefix)
	if !ok {
		return 0, &ValidationError{Field: "id", Value: key, Message: "missing page: prefix"}
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "id", Value: key, Message: "page is not a number"}
	}
	return page, ValidatePage(page)
}

// ValidatePage checks that page lies within the print layout.
func ValidatePage(page int) error {
	if page < 1 || page > TotalPages {
		return &ValidationError{
			Field:   "pageNumber",
			Value:   strconv.Itoa(page),
			Message: fmt.Sprintf("must be between 1 and %d", TotalPages),
		}
	}
	return nil
}

// ParsePage parses a page number from user input.
func ParsePage(raw string) (int, error) {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: "pageNumber", Value: raw, Message: "not an integer"}
	}
	return page, ValidatePage(page)
}

// ─────────────────────────────────────────────────────────────────
// Timestamps
// ─────────────────────────────────────────────────────────────────

// TimestampLayout is the persisted created_at format (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in the persisted layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the persisted layout and any RFC 3339 variant.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
