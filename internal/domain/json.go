package domain

import (
	"encoding/json"
	"fmt"
)

// verseDoc and pageDoc are the persisted record layouts. The field names are
// shared with stores written by earlier releases and must not change.
type verseDoc struct {
	ID        string `json:"id"`
	VerseID   string `json:"verse_id"`
	CreatedAt string `json:"created_at"`
}

type pageDoc struct {
	ID         string `json:"id"`
	PageNumber int    `json:"pageNumber"`
	CreatedAt  string `json:"created_at"`
}

func (b VerseBookmark) MarshalJSON() ([]byte, error) {
	return json.Marshal(verseDoc{ID: b.ID, VerseID: b.VerseID, CreatedAt: FormatTimestamp(b.CreatedAt)})
}

func (b *VerseBookmark) UnmarshalJSON(data []byte) error {
	var doc verseDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	created, err := ParseTimestamp(doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("verse bookmark %s: %w", doc.ID, err)
	}
	*b = VerseBookmark{ID: doc.ID, VerseID: doc.VerseID, CreatedAt: created}
	return nil
}

func (b PageBookmark) MarshalJSON() ([]byte, error) {
	return json.Marshal(pageDoc{ID: b.ID, PageNumber: b.PageNumber, CreatedAt: FormatTimestamp(b.CreatedAt)})
}

func (b *PageBookmark) UnmarshalJSON(data []byte) error {
	var doc pageDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	created, err := ParseTimestamp(doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("page bookmark %s: %w", doc.ID, err)
	}
	*b = PageBookmark{ID: doc.ID, PageNumber: doc.PageNumber, CreatedAt: created}
	return nil
}
