// Package search indexes exported STIX objects in bleve and serves queries.
package search

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"stixgraph/internal/logger"
	"stixgraph/internal/stixcore"
)

// DocType is the bleve document type every indexed object is mapped under.
const DocType = "stix_object"

const batchSize = 100

// Document is the searchable projection of one STIX object.
type Document struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ExternalID  string   `json:"external_id"`
	Phases      []string `json:"phases"`
	Aliases     []string `json:"aliases"`
}

// BleveType routes every document to the DocType mapping.
func (Document) BleveType() string {
	return DocType
}

// NewDocument projects o onto the indexed fields. It works on objects fresh
// from the exporter and on objects decoded from JSON.
func NewDocument(o stixcore.Object) Document {
	d := Document{
		Type:        o.Type(),
		Name:        stringProp(o, "name"),
		Description: stringProp(o, "description"),
		Aliases:     stringList(o["aliases"]),
	}
	for _, ref := range mapList(o["external_references"]) {
		if id, _ := ref["external_id"].(string); id != "" {
			d.ExternalID = id
			break
		}
	}
	for _, phase := range mapList(o["kill_chain_phases"]) {
		if name, _ := phase["phase_name"].(string); name != "" {
			d.Phases = append(d.Phases, name)
		}
	}
	return d
}

// NewMapping builds the index mapping: exact-match keywords for type, id and
// phase fields, analyzed text for name and description.
func NewMapping() *mapping.IndexMappingImpl {
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	textFieldMapping := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("type", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("external_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("phases", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("aliases", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping(DocType, docMapping)
	return indexMapping
}

// Index wraps a bleve index of STIX objects.
type Index struct {
	idx bleve.Index
	log *logger.Logger
}

// Open opens the index at path, creating it when it does not exist yet.
func Open(path string, log *logger.Logger) (*Index, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "SearchIndex", "path", path)

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		log.Info("creating new bleve index")
		idx, err = bleve.New(path, NewMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index %s: %w", path, err)
	}
	return &Index{idx: idx, log: log}, nil
}

// Recreate deletes any index at path and creates an empty one.
func Recreate(path string, log *logger.Logger) (*Index, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove existing index: %w", err)
	}
	return Open(path, log)
}

func (ix *Index) Close() error {
	return ix.idx.Close()
}

// IndexObjects indexes objects in batches, keyed by STIX id. Objects without
// an id are skipped.
func (ix *Index) IndexObjects(objects []stixcore.Object) (int, error) {
	batch := ix.idx.NewBatch()
	count := 0
	for _, o := range objects {
		id := o.ID()
		if id == "" {
			continue
		}
		if err := batch.Index(id, NewDocument(o)); err != nil {
			return count, fmt.Errorf("failed to add %s to batch: %w", id, err)
		}
		count++
		if batch.Size() >= batchSize {
			if err := ix.idx.Batch(batch); err != nil {
				return count, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = ix.idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := ix.idx.Batch(batch); err != nil {
			return count, fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	ix.log.Debug("indexed objects", "count", count)
	return count, nil
}

// IndexObject indexes a single object.
func (ix *Index) IndexObject(o stixcore.Object) error {
	if o.ID() == "" {
		return fmt.Errorf("object has no id")
	}
	return ix.idx.Index(o.ID(), NewDocument(o))
}

// Count returns the number of indexed documents.
func (ix *Index) Count() (uint64, error) {
	return ix.idx.DocCount()
}

// Result is one search hit.
type Result struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	ExternalID string  `json:"external_id,omitempty"`
	Score      float64 `json:"score"`
}

// Search runs a query-string query ("phishing", "type:attack-pattern",
// "+phases:strategic-planning") and returns at most size hits.
func (ix *Index) Search(query string, size int) ([]Result, uint64, error) {
	if size <= 0 {
		size = 10
	}
	req := bleve.NewSearchRequest(bleve.NewQueryStringQuery(query))
	req.Fields = []string{"type", "name", "external_id"}
	req.Size = size

	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}
	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, Result{
			ID:         hit.ID,
			Type:       fieldString(hit.Fields["type"]),
			Name:       fieldString(hit.Fields["name"]),
			ExternalID: fieldString(hit.Fields["external_id"]),
			Score:      hit.Score,
		})
	}
	return results, res.Total, nil
}

// fieldString unwraps a stored field, which bleve returns as a string for one
// value and a slice for several.
func fieldString(v interface{}) string {
	switch f := v.(type) {
	case string:
		return f
	case []interface{}:
		if len(f) > 0 {
			if s, ok := f[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func stringProp(o stixcore.Object, key string) string {
	s, _ := o[key].(string)
	return s
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mapList(v any) []map[string]any {
	switch l := v.(type) {
	case []map[string]any:
		return l
	case []any:
		out := make([]map[string]any, 0, len(l))
		for _, item := range l {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
