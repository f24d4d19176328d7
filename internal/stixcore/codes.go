package stixcore

import (
	"fmt"
	"sort"
	"strings"
)

// IsPlaceholder reports whether code is a reserved "no entity" code: empty, or
// an alphabetic prefix followed only by zeros (TA00, T0000, I00000).
func IsPlaceholder(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return true
	}
	i := 0
	for i < len(code) && isASCIILetter(code[i]) {
		i++
	}
	digits := code[i:]
	if digits == "" {
		return false
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] != '0' {
			return false
		}
	}
	return true
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

type codePrefix struct {
	prefix string
	kind   Kind
}

// CodeScheme infers an entity kind from a natural code's alphabetic prefix.
type CodeScheme struct {
	prefixes []codePrefix
}

// DefaultPrefixes is the AMITT code layout.
var DefaultPrefixes = map[string]Kind{
	"TA": KindTactic,
	"T":  KindTechnique,
	"I":  KindIncident,
	"IS": KindIntrusionSet,
	"ID": KindIdentity,
	"C":  KindCampaign,
	"A":  KindActor,
}

// NewCodeScheme builds a scheme from prefix -> kind pairs. Longer prefixes are
// tried first.
func NewCodeScheme(prefixes map[string]Kind) *CodeScheme {
	s := &CodeScheme{}
	for p, k := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		s.prefixes = append(s.prefixes, codePrefix{prefix: p, kind: k})
	}
	sort.Slice(s.prefixes, func(i, j int) bool {
		if len(s.prefixes[i].prefix) != len(s.prefixes[j].prefix) {
			return len(s.prefixes[i].prefix) > len(s.prefixes[j].prefix)
		}
		return s.prefixes[i].prefix < s.prefixes[j].prefix
	})
	return s
}

// DefaultCodeScheme returns NewCodeScheme(DefaultPrefixes).
func DefaultCodeScheme() *CodeScheme {
	return NewCodeScheme(DefaultPrefixes)
}

// ParsePrefixes converts a config map of prefix -> kind name.
func ParsePrefixes(m map[string]string) (map[string]Kind, error) {
	out := make(map[string]Kind, len(m))
	for p, name := range m {
		k, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("prefix %q: %w", p, err)
		}
		out[p] = k
	}
	return out, nil
}

// KindOf returns the kind whose prefix matches code. The prefix must be
// followed by a digit, so "TA01" never matches "T".
func (s *CodeScheme) KindOf(code string) (Kind, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range s.prefixes {
		if !strings.HasPrefix(code, p.prefix) {
			continue
		}
		rest := code[len(p.prefix):]
		if rest != "" && isASCIIDigit(rest[0]) {
			return p.kind, true
		}
	}
	return "", false
}
