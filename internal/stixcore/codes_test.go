package stixcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlaceholder(t *testing.T) {
	for code, want := range map[string]bool{
		"":       true,
		"  ":     true,
		"TA00":   true,
		"T0000":  true,
		"I00000": true,
		"R000":   true,
		"ta00 ":  true,
		"TA01":   false,
		"T0010":  false,
		"T":      false,
		"A001":   false,
	} {
		assert.Equal(t, want, IsPlaceholder(code), "code %q", code)
	}
}

func TestCodeSchemeKindOf(t *testing.T) {
	scheme := DefaultCodeScheme()
	tests := []struct {
		code string
		kind Kind
		ok   bool
	}{
		{"TA01", KindTactic, true},
		{"ta01", KindTactic, true},
		{"T0001", KindTechnique, true},
		{"IS01", KindIntrusionSet, true},
		{"ID01", KindIdentity, true},
		{"I00001", KindIncident, true},
		{"C0001", KindCampaign, true},
		{"A001", KindActor, true},
		{"X01", "", false},
		{"TAX", "", false},
		{"A", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		kind, ok := scheme.KindOf(tt.code)
		assert.Equal(t, tt.ok, ok, "code %q", tt.code)
		assert.Equal(t, tt.kind, kind, "code %q", tt.code)
	}
}

func TestParsePrefixes(t *testing.T) {
	prefixes, err := ParsePrefixes(map[string]string{"TA": "tactics", "X": "Actor", "Z": "intrusion_set"})
	require.NoError(t, err)
	assert.Equal(t, map[string]Kind{"TA": KindTactic, "X": KindActor, "Z": KindIntrusionSet}, prefixes)

	scheme := NewCodeScheme(prefixes)
	kind, ok := scheme.KindOf("x12")
	require.True(t, ok)
	assert.Equal(t, KindActor, kind)

	_, err = ParsePrefixes(map[string]string{"Q": "bogus"})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" IntrusionSets ")
	require.NoError(t, err)
	assert.Equal(t, KindIntrusionSet, k)

	k, err = ParseKind("technique")
	require.NoError(t, err)
	assert.Equal(t, KindTechnique, k)
	assert.Equal(t, TableTechniques, k.Table())

	_, err = ParseKind("malware")
	assert.Error(t, err)
}
