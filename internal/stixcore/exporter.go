package stixcore

import (
	"fmt"
	"time"
)

// Framework names the dataset and the organization publishing it.
type Framework struct {
	Name             string
	Description      string
	SourceName       string
	URL              string
	Author           string
	MarkingStatement string
	KillChainName    string
}

// Graph is everything the exporter consumes.
type Graph struct {
	Entities  []*Entity
	Edges     []Edge
	TacticIDs []string
}

// Exporter assembles the aggregate bundle: author identity, marking
// definition, entities, relationships and the matrix, in that order.
type Exporter struct {
	schema SchemaAdapter
	reg    *Registry
	fw     Framework
	now    time.Time
}

func NewExporter(schema SchemaAdapter, reg *Registry, fw Framework, now time.Time) *Exporter {
	if now.IsZero() {
		now = time.Now()
	}
	return &Exporter{schema: schema, reg: reg, fw: fw, now: now.UTC()}
}

// Schema returns the adapter the exporter renders with.
func (x *Exporter) Schema() SchemaAdapter {
	return x.schema
}

// Export renders g. It fails only when an entity or edge has a kind the schema
// cannot name.
func (x *Exporter) Export(g *Graph) (*Bundle, error) {
	authorID, markingID, matrixID := x.reg.Mint(), x.reg.Mint(), x.reg.Mint()
	meta := &ExportMeta{
		Framework:  x.fw,
		Timestamp:  x.now,
		AuthorRef:  x.schema.Ref(TypeIdentity, authorID),
		MarkingRef: x.schema.Ref(TypeMarking, markingID),
	}

	objects := make([]Object, 0, len(g.Entities)+len(g.Edges)+3)
	objects = append(objects, x.schema.Identity(authorID, meta), x.schema.MarkingDefinition(markingID, meta))
	for _, e := range g.Entities {
		o, err := x.schema.Entity(e, meta)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s %s: %w", e.Kind, e.Code, err)
		}
		objects = append(objects, o)
	}
	for _, edge := range g.Edges {
		o, err := x.schema.Relationship(edge, meta)
		if err != nil {
			return nil, fmt.Errorf("failed to render relationship %s: %w", edge.Code, err)
		}
		objects = append(objects, o)
	}
	objects = append(objects, x.schema.Matrix(matrixID, g.TacticIDs, meta))

	return x.schema.Bundle(x.reg.Mint(), objects), nil
}

// Split wraps every object of b in a bundle of its own, for per-object
// documents.
func (x *Exporter) Split(b *Bundle) []*Bundle {
	out := make([]*Bundle, 0, len(b.Objects))
	for _, o := range b.Objects {
		out = append(out, x.schema.Bundle(x.reg.Mint(), []Object{o}))
	}
	return out
}
