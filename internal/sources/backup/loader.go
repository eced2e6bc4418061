package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads a backup file from disk
type Loader struct {
	filePath string
}

// NewLoader creates a new backup loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the backup file
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read backup file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a backup document. Unknown fields are rejected so a typo
// does not silently drop bookmarks.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("failed to parse backup yaml: %w", err)
	}
	if f.Version > FormatVersion {
		return File{}, fmt.Errorf("backup format version %d is newer than supported %d", f.Version, FormatVersion)
	}
	return f, nil
}
