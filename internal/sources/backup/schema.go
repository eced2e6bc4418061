package backup

// FormatVersion is written to every export.
const FormatVersion = 1

// VerseEntry is one verse bookmark in a backup file.
type VerseEntry struct {
	VerseID   string `yaml:"verse_id"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// PageEntry is one page bookmark in a backup file.
type PageEntry struct {
	Page      int    `yaml:"page"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// File is the root structure of a bookmark backup:
//
//	version: 1
//	exported_at: 2024-05-01T10:00:00.000Z
//	verses:
//	  - verse_id: "2:255"
//	    created_at: 2024-05-01T10:00:00.000Z
//	pages:
//	  - page: 42
type File struct {
	Version    int          `yaml:"version"`
	ExportedAt string       `yaml:"exported_at,omitempty"`
	Verses     []VerseEntry `yaml:"verses"`
	Pages      []PageEntry  `yaml:"pages"`
}
