package stixcore

import (
	"fmt"
	"time"

	"stixgraph/internal/logger"
)

// PipelineOptions configures one conversion run.
type PipelineOptions struct {
	Framework        Framework
	Schema           SchemaAdapter
	Scheme           *CodeScheme
	ReferenceBaseURL string
	DefaultPlatforms []string
	RegistryOptions  []RegistryOption
	Now              time.Time
}

// Stats summarizes a run.
type Stats struct {
	Entities      map[Kind]int
	Relationships int
	Expanded      int
	Unjoined      int
	Link          LinkStats
	Objects       int
}

// Result holds every intermediate product of a run.
type Result struct {
	Dataset       *Dataset
	Registry      *Registry
	Entities      []*Entity
	Relationships []ExpandedRelationship
	Edges         []Edge
	Bundle        *Bundle
	Matrix        *Matrix
	Exporter      *Exporter
	Stats         Stats
}

// Pipeline wires the core stages together. Each Run starts a fresh registry,
// so identifiers never carry over between runs.
type Pipeline struct {
	opts PipelineOptions
	log  *logger.Logger
}

func NewPipeline(opts PipelineOptions, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Schema == nil {
		opts.Schema = STIX20()
	}
	if opts.Scheme == nil {
		opts.Scheme = DefaultCodeScheme()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	return &Pipeline{opts: opts, log: log.With("component", "Pipeline")}
}

// Run converts raw workbook tables into a bundle.
func (p *Pipeline) Run(raw map[string]*Table) (*Result, error) {
	res := &Result{
		Dataset:  NormalizeTables(raw),
		Registry: NewRegistry(p.opts.RegistryOptions...),
		Stats:    Stats{Entities: make(map[Kind]int)},
	}

	builder := NewEntityBuilder(res.Registry, p.log, BuilderOptions{
		SourceName:       p.opts.Framework.SourceName,
		ReferenceBaseURL: p.opts.ReferenceBaseURL,
		DefaultPlatforms: p.opts.DefaultPlatforms,
		Now:              p.opts.Now,
	})
	entities, err := builder.Build(res.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to build entities: %w", err)
	}
	res.Entities = entities
	for _, k := range Kinds {
		res.Stats.Entities[k] = res.Registry.Len(k)
	}
	p.log.Info("entities built", "count", len(entities))

	relTable := res.Dataset.Table(TableRelationships)
	res.Stats.Relationships = len(relTable.Rows)
	expanded := ExpandRelationships(relTable, p.opts.Scheme)
	res.Stats.Expanded = len(expanded)
	res.Relationships, res.Stats.Unjoined = EnrichRelationships(expanded, res.Dataset)

	res.Edges, res.Stats.Link = NewLinker(res.Registry, p.log).Link(res.Relationships)
	p.log.Info("relationships linked",
		"rows", res.Stats.Relationships,
		"expanded", res.Stats.Expanded,
		"unjoined", res.Stats.Unjoined,
		"edges", res.Stats.Link.Edges,
		"unresolved", res.Stats.Link.Unresolved,
		"ambiguous", res.Stats.Link.Ambiguous,
	)

	res.Exporter = NewExporter(p.opts.Schema, res.Registry, p.opts.Framework, p.opts.Now)
	res.Bundle, err = res.Exporter.Export(&Graph{
		Entities:  res.Entities,
		Edges:     res.Edges,
		TacticIDs: res.Registry.All(KindTactic),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export graph: %w", err)
	}
	res.Stats.Objects = len(res.Bundle.Objects)
	res.Matrix = BuildMatrix(p.opts.Framework.Name, res.Entities)

	p.log.Info("bundle exported", "schema", p.opts.Schema.Name(), "objects", res.Stats.Objects)
	return res, nil
}
