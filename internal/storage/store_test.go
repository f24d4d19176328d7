package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stixgraph/internal/stixcore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveBundle(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveBundle("amitt-attack", sampleBundle()))

	b, err := s.GetBundle("amitt-attack")
	require.NoError(t, err)
	assert.Equal(t, "bundle--agg", b.ID)
	assert.Len(t, b.Objects, 3)

	o, err := s.GetObject("attack-pattern--2")
	require.NoError(t, err)
	assert.Equal(t, "5Ds", o["name"])

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x-mitre-tactic": 1, "attack-pattern": 1, "relationship": 1}, stats)

	types, err := s.Types()
	require.NoError(t, err)
	assert.Equal(t, []string{"attack-pattern", "relationship", "x-mitre-tactic"}, types)
}

func TestStoreListObjects(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveBundle("a", sampleBundle()))
	require.NoError(t, s.SaveObject(stixcore.Object{"type": "attack-pattern", "id": "attack-pattern--9"}))

	all, err := s.ListObjects("")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	patterns, err := s.ListObjects("attack-pattern")
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	for _, o := range patterns {
		assert.Equal(t, "attack-pattern", o.Type())
	}
}

func TestStoreErrors(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetBundle("nope")
	assert.Error(t, err)
	_, err = s.GetObject("no-separator")
	assert.Error(t, err)
	_, err = s.GetObject("campaign--missing")
	assert.Error(t, err)

	assert.Error(t, s.SaveObject(stixcore.Object{"type": "campaign"}))
	assert.Error(t, s.SaveObject(stixcore.Object{"type": BundleBucket, "id": "bundles--1"}))
}
