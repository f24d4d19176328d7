package stixcore

import (
	"errors"
	"fmt"
	"strings"
)

var errEmptyGroup = errors.New("empty reference group")

// ParseReferences extracts every well-formed (external-id, source-name, url)
// tuple from a free-text cell such as
//
//	(T001, mitre-attack, http://a)(T002, other, http://b)
//
// Malformed tuples are dropped.
func ParseReferences(cell string) []Reference {
	refs, _ := parseReferences(cell)
	return refs
}

// parseReferences also reports the tuples it rejected as malformed.
func parseReferences(cell string) ([]Reference, []error) {
	var (
		refs    []Reference
		dropped []error
	)
	for _, group := range splitGroups(cell) {
		ref, err := parseTuple(group)
		switch {
		case errors.Is(err, errEmptyGroup):
			continue
		case err != nil:
			dropped = append(dropped, err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, dropped
}

// splitGroups returns the contents of each top-level parenthesized group.
// Parentheses nested inside a group stay part of its text; stray closing
// parentheses and an unterminated trailing group are ignored.
func splitGroups(s string) []string {
	var groups []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				groups = append(groups, s[start:i])
			}
		}
	}
	return groups
}

// parseTuple splits one group on commas. Fields past the second are re-joined
// into the URL, since URLs may carry commas of their own.
func parseTuple(group string) (Reference, error) {
	fields := strings.Split(group, ",")
	empty := true
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] != "" {
			empty = false
		}
	}
	if empty {
		return Reference{}, errEmptyGroup
	}
	if len(fields) < 3 {
		return Reference{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedReference, group, len(fields))
	}
	return Reference{
		ExternalID: fields[0],
		SourceName: fields[1],
		URL:        strings.Join(fields[2:], ","),
	}, nil
}
