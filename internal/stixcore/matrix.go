package stixcore

import (
	"fmt"
	"io"
	"strings"
)

// MatrixColumn is one tactic and the techniques filed under it.
type MatrixColumn struct {
	Tactic     *Entity
	Techniques []*Entity
}

// Matrix is the tactic-by-technique summary view.
type Matrix struct {
	Name    string
	Columns []MatrixColumn
}

// BuildMatrix lays out the built tactics in build order, each with the built
// techniques the normalizer grouped under it. Techniques skipped by the
// builder do not appear.
func BuildMatrix(name string, entities []*Entity) *Matrix {
	techniques := make(map[string]*Entity)
	for _, e := range entities {
		if e.Kind == KindTechnique {
			techniques[e.Code] = e
		}
	}
	m := &Matrix{Name: name}
	for _, e := range entities {
		if e.Kind != KindTactic {
			continue
		}
		col := MatrixColumn{Tactic: e}
		for _, code := range e.Techniques {
			if t, ok := techniques[code]; ok {
				col.Techniques = append(col.Techniques, t)
			}
		}
		m.Columns = append(m.Columns, col)
	}
	return m
}

// Depth is the length of the longest column.
func (m *Matrix) Depth() int {
	depth := 0
	for _, c := range m.Columns {
		if len(c.Techniques) > depth {
			depth = len(c.Techniques)
		}
	}
	return depth
}

// WriteMarkdown renders the matrix as a markdown table, one tactic per column.
func (m *Matrix) WriteMarkdown(w io.Writer) error {
	if len(m.Columns) == 0 {
		_, err := fmt.Fprintf(w, "# %s\n\n(no tactics)\n", m.Name)
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", m.Name)

	sb.WriteString("|")
	for _, c := range m.Columns {
		fmt.Fprintf(&sb, " %s %s |", c.Tactic.Code, cellText(c.Tactic.Name))
	}
	sb.WriteString("\n|")
	for range m.Columns {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")

	for i := 0; i < m.Depth(); i++ {
		sb.WriteString("|")
		for _, c := range m.Columns {
			if i < len(c.Techniques) {
				t := c.Techniques[i]
				fmt.Fprintf(&sb, " %s %s |", t.Code, cellText(t.Name))
			} else {
				sb.WriteString(" |")
			}
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func cellText(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
