package stixcore

import (
	"sort"
	"strings"
)

// Dataset is the normalized workbook: clean tables plus the technique grouping
// left-joined onto tactics.
type Dataset struct {
	tables           map[string]*Table
	tacticTechniques map[string][]string
	names            map[string]map[string]string
}

// NormalizeTables trims every cell, turns missing and NaN-like cells into "",
// and groups technique codes under their owning tactic. It never fails.
func NormalizeTables(raw map[string]*Table) *Dataset {
	ds := &Dataset{
		tables:           make(map[string]*Table, len(raw)),
		tacticTechniques: make(map[string][]string),
		names:            make(map[string]map[string]string),
	}
	for name, t := range raw {
		if t == nil {
			continue
		}
		key := normalizeName(name)
		ds.tables[key] = normalizeTable(key, t)
	}

	for _, row := range ds.Table(TableTechniques).Rows {
		tactic, code := row.Get(ColTactic), row.Get(ColID)
		if tactic == "" || code == "" {
			continue
		}
		ds.tacticTechniques[tactic] = append(ds.tacticTechniques[tactic], code)
	}
	return ds
}

// normalizeTable keeps the header order, then appends columns that only
// appear in row cells, sorted. Every row carries every column.
func normalizeTable(name string, t *Table) *Table {
	out := &Table{Name: name, Rows: make([]Row, 0, len(t.Rows))}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		c = normalizeName(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out.Columns = append(out.Columns, c)
	}
	var extra []string
	for _, r := range t.Rows {
		for k := range r {
			k = normalizeName(k)
			if k != "" && !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	out.Columns = append(out.Columns, extra...)

	for _, r := range t.Rows {
		row := make(Row, len(out.Columns))
		for _, c := range out.Columns {
			row[c] = ""
		}
		for k, v := range r {
			if k = normalizeName(k); k != "" {
				row[k] = normalizeCell(v)
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

var nanTokens = map[string]bool{
	"nan":  true,
	"null": true,
	"none": true,
}

func normalizeCell(v string) string {
	v = strings.TrimSpace(v)
	if nanTokens[strings.ToLower(v)] {
		return ""
	}
	return v
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Table returns the named table, or an empty one if the workbook lacks it.
func (d *Dataset) Table(name string) *Table {
	if t, ok := d.tables[normalizeName(name)]; ok {
		return t
	}
	return &Table{Name: normalizeName(name)}
}

// TechniquesFor returns the technique codes owned by a tactic, in table order.
// Tactics without techniques get an empty, non-nil list.
func (d *Dataset) TechniquesFor(tacticCode string) []string {
	codes := d.tacticTechniques[tacticCode]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// Names returns the code -> display name index of a table. The first row wins
// when a code repeats.
func (d *Dataset) Names(table string) map[string]string {
	table = normalizeName(table)
	if idx, ok := d.names[table]; ok {
		return idx
	}
	idx := make(map[string]string)
	for _, row := range d.Table(table).Rows {
		code := row.Get(ColID)
		if code == "" {
			continue
		}
		if _, dup := idx[code]; !dup {
			idx[code] = row.Get(ColName)
		}
	}
	d.names[table] = idx
	return idx
}
