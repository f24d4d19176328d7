package stixcore

import (
	"fmt"
	"strings"
	"time"

	"stixgraph/internal/logger"
)

// DateLayout is the only accepted layout for created and first_seen cells.
const DateLayout = "2006-01-02"

// BuilderOptions controls the fields the entity builder derives.
type BuilderOptions struct {
	// SourceName and ReferenceBaseURL form each entity's canonical reference.
	// An empty ReferenceBaseURL disables it.
	SourceName       string
	ReferenceBaseURL string

	// DefaultPlatforms is used for techniques without a platforms cell.
	DefaultPlatforms []string

	// Now replaces created timestamps that fail to parse. Zero means time.Now().
	Now time.Time
}

// EntityBuilder turns normalized rows into entities and registers each one.
type EntityBuilder struct {
	reg  *Registry
	log  *logger.Logger
	opts BuilderOptions
	now  time.Time
}

// NewEntityBuilder wires a builder to the registry it populates.
func NewEntityBuilder(reg *Registry, log *logger.Logger, opts BuilderOptions) *EntityBuilder {
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &EntityBuilder{
		reg:  reg,
		log:  log.With("component", "EntityBuilder"),
		opts: opts,
		now:  now.UTC(),
	}
}

// Build walks every entity table once, in Kinds order. A duplicate natural code
// inside a table aborts the build; every other defect is absorbed.
func (b *EntityBuilder) Build(ds *Dataset) ([]*Entity, error) {
	var out []*Entity
	for _, kind := range Kinds {
		entities, err := b.BuildKind(ds, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

// BuildKind processes the table of a single kind.
func (b *EntityBuilder) BuildKind(ds *Dataset, kind Kind) ([]*Entity, error) {
	table := ds.Table(kind.Table())
	var (
		out                     []*Entity
		placeholders, blankRows int
	)
	for i, row := range table.Rows {
		code := row.Get(ColID)
		if IsPlaceholder(code) {
			placeholders++
			continue
		}
		if kind == KindTechnique && isBlankTechnique(row) {
			blankRows++
			continue
		}

		e := b.newEntity(ds, kind, code, row)

		id, err := b.reg.Assign(kind, code)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", table.Name, i+1, err)
		}
		e.ID = id
		out = append(out, e)
	}
	b.log.Debug("built entities",
		"kind", kind,
		"rows", len(table.Rows),
		"entities", len(out),
		"placeholders", placeholders,
		"blank_rows", blankRows,
	)
	return out, nil
}

// isBlankTechnique reports a padding row. Cells are already NaN-coerced by the
// normalizer, so an all-empty check is meaningful here.
func isBlankTechnique(row Row) bool {
	return row.Get(ColName) == "" && row.Get(ColTactic) == "" && description(row) == ""
}

func description(row Row) string {
	return row.First(ColSummary, ColDescription)
}

func (b *EntityBuilder) newEntity(ds *Dataset, kind Kind, code string, row Row) *Entity {
	e := &Entity{
		Kind:        kind,
		Code:        code,
		Name:        row.Get(ColName),
		Description: description(row),
		Created:     b.created(kind, code, row.Get(ColCreated)),
		References:  b.references(kind, code, row.Get(ColReferences)),
	}

	switch kind {
	case KindTactic:
		e.ShortName = ShortName(e.Name)
		e.Techniques = ds.TechniquesFor(code)
	case KindTechnique:
		e.TacticCode = row.Get(ColTactic)
		if e.TacticCode != "" {
			if name, ok := ds.Names(TableTactics)[e.TacticCode]; ok && name != "" {
				e.Phases = []string{ShortName(name)}
			} else {
				b.log.Warn("technique references unknown tactic", "technique", code, "tactic", e.TacticCode)
			}
		}
		e.Platforms = splitList(row.Get(ColPlatforms))
		if len(e.Platforms) == 0 {
			e.Platforms = append([]string(nil), b.opts.DefaultPlatforms...)
		}
	case KindIdentity:
		e.IdentityClass = row.Get(ColIdentityClass)
		if e.IdentityClass == "" {
			e.IdentityClass = "organization"
		}
	}

	switch kind {
	case KindIncident, KindCampaign, KindIntrusionSet:
		if v := row.Get(ColFirstSeen); v != "" {
			if t, err := ParseDate(v); err == nil {
				e.FirstSeen = &t
			} else {
				b.log.Debug("dropping first_seen", "kind", kind, "code", code, "error", err)
			}
		}
	}

	switch kind {
	case KindActor, KindIntrusionSet:
		e.Aliases = splitList(row.Get(ColAliases))
	}
	return e
}

func (b *EntityBuilder) created(kind Kind, code, cell string) time.Time {
	if cell == "" {
		return b.now
	}
	t, err := ParseDate(cell)
	if err != nil {
		b.log.Debug("falling back to run timestamp", "kind", kind, "code", code, "error", err)
		return b.now
	}
	return t
}

func (b *EntityBuilder) references(kind Kind, code, cell string) []Reference {
	var refs []Reference
	if b.opts.ReferenceBaseURL != "" {
		refs = append(refs, Reference{
			ExternalID: code,
			SourceName: b.opts.SourceName,
			URL:        fmt.Sprintf("%s/%s/%s.md", strings.TrimRight(b.opts.ReferenceBaseURL, "/"), kind.Table(), code),
		})
	}
	parsed, dropped := parseReferences(cell)
	for _, err := range dropped {
		b.log.Debug("dropping reference", "kind", kind, "code", code, "error", err)
	}
	return append(refs, parsed...)
}

// ParseDate parses a strict YYYY-MM-DD cell.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableTimestamp, s)
	}
	return t, nil
}

// ShortName lowercases a display name and joins its words with hyphens:
// "Strategic Planning" -> "strategic-planning".
func ShortName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
