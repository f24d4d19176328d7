package stixcore

import (
	"errors"
	"strings"

	"stixgraph/internal/logger"
)

// ExpandedRelationship is one (source, target) pair cut from a relationship row.
type ExpandedRelationship struct {
	ID          string
	Source      string
	Target      string
	Type        string
	SourceKind  Kind
	TargetKind  Kind
	SourceName  string
	TargetName  string
	Description string
}

// ExpandRelationships splits each row's target cell on commas and emits one
// row per non-empty, trimmed code. Endpoint kinds come from the source_type and
// target_type columns when present, else from scheme.
func ExpandRelationships(table *Table, scheme *CodeScheme) []ExpandedRelationship {
	if scheme == nil {
		scheme = DefaultCodeScheme()
	}
	var out []ExpandedRelationship
	for _, row := range table.Rows {
		source := row.Get(ColSource)
		base := ExpandedRelationship{
			ID:          row.Get(ColID),
			Source:      source,
			Type:        row.Get(ColRelationship),
			SourceKind:  endpointKind(row.Get(ColSourceType), source, scheme),
			Description: description(row),
		}
		explicitTarget := row.Get(ColTargetType)
		for _, target := range strings.Split(row.Get(ColTarget), ",") {
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			rel := base
			rel.Target = target
			rel.TargetKind = endpointKind(explicitTarget, target, scheme)
			out = append(out, rel)
		}
	}
	return out
}

func endpointKind(explicit, code string, scheme *CodeScheme) Kind {
	if explicit != "" {
		if k, err := ParseKind(explicit); err == nil {
			return k
		}
	}
	k, _ := scheme.KindOf(code)
	return k
}

// EnrichRelationships joins both endpoints against the entity tables to pick up
// their display names. Rows with an endpoint missing from its table are
// dropped; the count of dropped rows is returned alongside.
func EnrichRelationships(rows []ExpandedRelationship, ds *Dataset) ([]ExpandedRelationship, int) {
	out := make([]ExpandedRelationship, 0, len(rows))
	dropped := 0
	for _, rel := range rows {
		sourceKind, sourceName, ok := lookupName(ds, rel.SourceKind, rel.Source)
		if !ok {
			dropped++
			continue
		}
		targetKind, targetName, ok := lookupName(ds, rel.TargetKind, rel.Target)
		if !ok {
			dropped++
			continue
		}
		rel.SourceKind, rel.SourceName = sourceKind, sourceName
		rel.TargetKind, rel.TargetName = targetKind, targetName
		out = append(out, rel)
	}
	return out, dropped
}

// lookupName finds code in the table of kind. With no kind it scans every
// entity table; a code found in exactly one table also fixes the kind.
func lookupName(ds *Dataset, kind Kind, code string) (Kind, string, bool) {
	if kind != "" {
		name, ok := ds.Names(kind.Table())[code]
		return kind, name, ok
	}
	var (
		found Kind
		name  string
		hits  int
	)
	for _, k := range Kinds {
		if n, ok := ds.Names(k.Table())[code]; ok {
			if hits == 0 {
				found, name = k, n
			}
			hits++
		}
	}
	if hits == 0 {
		return "", "", false
	}
	if hits > 1 {
		return "", name, true
	}
	return found, name, true
}

// LinkStats counts what happened to each expanded row.
type LinkStats struct {
	Rows         int
	Edges        int
	Placeholders int
	Unresolved   int
	Ambiguous    int
}

// Linker resolves expanded rows into edges.
type Linker struct {
	reg *Registry
	log *logger.Logger
}

func NewLinker(reg *Registry, log *logger.Logger) *Linker {
	if log == nil {
		log = logger.Nop()
	}
	return &Linker{reg: reg, log: log.With("component", "Linker")}
}

// Link emits an edge for every row whose endpoints both resolve, each scoped to
// its own kind. Rows with a sentinel relationship id (R000) are skipped and
// unresolvable rows are dropped. A row without an id still links.
func (l *Linker) Link(rows []ExpandedRelationship) ([]Edge, LinkStats) {
	stats := LinkStats{Rows: len(rows)}
	var edges []Edge
	for _, rel := range rows {
		if isPlaceholderRelationship(rel.ID) {
			stats.Placeholders++
			continue
		}
		var (
			targetID   string
			targetKind Kind
		)
		sourceID, sourceKind, err := l.resolve(rel.SourceKind, rel.Source)
		if err == nil {
			targetID, targetKind, err = l.resolve(rel.TargetKind, rel.Target)
		}
		if err != nil {
			if errors.Is(err, ErrAmbiguousReference) {
				stats.Ambiguous++
			} else {
				stats.Unresolved++
			}
			l.log.Debug("dropping relationship", "id", rel.ID, "source", rel.Source, "target", rel.Target, "error", err)
			continue
		}
		edges = append(edges, Edge{
			ID:          l.reg.Mint(),
			Code:        rel.ID,
			Type:        rel.Type,
			SourceID:    sourceID,
			SourceKind:  sourceKind,
			TargetID:    targetID,
			TargetKind:  targetKind,
			Description: rel.Description,
		})
	}
	stats.Edges = len(edges)
	return edges, stats
}

// isPlaceholderRelationship matches sentinel ids only. An empty id means the
// sheet has no id column, not that the row is a placeholder.
func isPlaceholderRelationship(id string) bool {
	return strings.TrimSpace(id) != "" && IsPlaceholder(id)
}

func (l *Linker) resolve(kind Kind, code string) (string, Kind, error) {
	if kind == "" {
		return l.reg.ResolveAny(code)
	}
	id, err := l.reg.Resolve(kind, code)
	return id, kind, err
}

// LinkRelationships is Link with a throwaway logger.
func LinkRelationships(rows []ExpandedRelationship, reg *Registry) ([]Edge, LinkStats) {
	return NewLinker(reg, nil).Link(rows)
}
