package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stixgraph/internal/stixcore"
)

func sampleBundle() *stixcore.Bundle {
	return stixcore.STIX20().Bundle("agg", []stixcore.Object{
		{"type": "x-mitre-tactic", "id": "x-mitre-tactic--1", "name": "Strategic Planning"},
		{"type": "attack-pattern", "id": "attack-pattern--2", "name": "5Ds", "url": "http://x/?a=1&b=2"},
		{"type": "relationship", "id": "relationship--3", "source_ref": "x-mitre-tactic--1"},
	})
}

func TestDirWriterAggregate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "amitt-attack")
	w := DirWriter{Root: root}

	path, err := w.WriteAggregate(sampleBundle())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "amitt-attack.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"type\": \"bundle\""))
	assert.Contains(t, string(data), "a=1&b=2", "html must not be escaped")

	b, err := ReadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "bundle--agg", b.ID)
	assert.Equal(t, "2.0", b.SpecVersion)
	require.Len(t, b.Objects, 3)
	assert.Equal(t, "attack-pattern--2", b.Objects[1].ID())
}

func TestDirWriterObjects(t *testing.T) {
	root := t.TempDir()
	w := DirWriter{Root: root}
	agg := sampleBundle()

	var split []*stixcore.Bundle
	for i, o := range agg.Objects {
		split = append(split, stixcore.STIX20().Bundle(string(rune('a'+i)), []stixcore.Object{o}))
	}
	n, err := w.WriteObjects(split)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	path := filepath.Join(root, "attack-pattern", "attack-pattern--2.json")
	assert.Equal(t, path, w.ObjectPath(agg.Objects[1]))
	b, err := ReadBundle(path)
	require.NoError(t, err)
	require.Len(t, b.Objects, 1)
	assert.Equal(t, "5Ds", b.Objects[0]["name"])
}

func TestDirWriterRejectsMultiObjectBundle(t *testing.T) {
	_, err := DirWriter{Root: t.TempDir()}.WriteObjects([]*stixcore.Bundle{sampleBundle()})
	assert.Error(t, err)
}

func TestReadBundleErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadBundle(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = ReadBundle(bad)
	assert.Error(t, err)
}
