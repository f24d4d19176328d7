// Package storage persists exported bundles to disk and to BoltDB.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stixgraph/internal/stixcore"
)

// DirWriter writes the aggregate bundle to <Root>/<base(Root)>.json and every
// per-object bundle to <Root>/<type>/<id>.json.
type DirWriter struct {
	Root string
}

// AggregatePath is where WriteAggregate puts the collection bundle.
func (d DirWriter) AggregatePath() string {
	return filepath.Join(d.Root, filepath.Base(filepath.Clean(d.Root))+".json")
}

// ObjectPath is where WriteObject puts a bundle holding o.
func (d DirWriter) ObjectPath(o stixcore.Object) string {
	return filepath.Join(d.Root, o.Type(), o.ID()+".json")
}

// WriteAggregate writes the collection bundle.
func (d DirWriter) WriteAggregate(b *stixcore.Bundle) (string, error) {
	path := d.AggregatePath()
	if err := writeJSON(path, b); err != nil {
		return "", err
	}
	return path, nil
}

// WriteObjects writes single-object bundles, one file each.
func (d DirWriter) WriteObjects(bundles []*stixcore.Bundle) (int, error) {
	written := 0
	for _, b := range bundles {
		if len(b.Objects) != 1 {
			return written, fmt.Errorf("bundle %s holds %d objects, want 1", b.ID, len(b.Objects))
		}
		if err := writeJSON(d.ObjectPath(b.Objects[0]), b); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ReadBundle loads a bundle written by DirWriter.
func ReadBundle(path string) (*stixcore.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle %s: %w", path, err)
	}
	var b stixcore.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bundle %s: %w", path, err)
	}
	return &b, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
