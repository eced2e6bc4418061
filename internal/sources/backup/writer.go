package backup

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Write encodes f as YAML.
func Write(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return enc.Close()
}
