package stixcore

import (
	"fmt"
	"sort"
	"time"
)

// Object is one rendered STIX object. It is a map so that encoding/json emits
// its keys sorted.
type Object map[string]any

// Type returns the object's "type" property.
func (o Object) Type() string {
	s, _ := o["type"].(string)
	return s
}

// ID returns the object's "id" property.
func (o Object) ID() string {
	s, _ := o["id"].(string)
	return s
}

// Bundle is a STIX bundle.
type Bundle struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	SpecVersion string   `json:"spec_version,omitempty"`
	Objects     []Object `json:"objects"`
}

// ExportMeta carries the run-wide values every rendered object shares.
type ExportMeta struct {
	Framework  Framework
	Timestamp  time.Time
	AuthorRef  string
	MarkingRef string
}

// SchemaAdapter renders core entities and edges in one output schema.
type SchemaAdapter interface {
	Name() string
	TypeOf(kind Kind) (string, bool)
	Ref(stixType, id string) string
	Bundle(id string, objects []Object) *Bundle
	Identity(id string, m *ExportMeta) Object
	MarkingDefinition(id string, m *ExportMeta) Object
	Entity(e *Entity, m *ExportMeta) (Object, error)
	Relationship(edge Edge, m *ExportMeta) (Object, error)
	Matrix(id string, tacticIDs []string, m *ExportMeta) Object
}

// STIX object types that do not come from a workbook table.
const (
	TypeBundle       = "bundle"
	TypeIdentity     = "identity"
	TypeMarking      = "marking-definition"
	TypeRelationship = "relationship"
	TypeMatrix       = "x-mitre-matrix"
	TypeTactic       = "x-mitre-tactic"
	TypeAttack       = "attack-pattern"
)

// stixSchema covers both STIX 2.0 and 2.1; the versions differ in where
// spec_version lives and in a few type names.
type stixSchema struct {
	name          string
	specVersion   string
	perObjectSpec bool
	types         map[Kind]string
}

// STIX20 renders ATT&CK-style STIX 2.0: spec_version on the bundle, custom
// x-amitt-incident objects.
func STIX20() SchemaAdapter {
	return &stixSchema{
		name:        "stix-2.0",
		specVersion: "2.0",
		types: map[Kind]string{
			KindTactic:       TypeTactic,
			KindTechnique:    TypeAttack,
			KindIncident:     "x-amitt-incident",
			KindCampaign:     "campaign",
			KindActor:        "threat-actor",
			KindIntrusionSet: "intrusion-set",
			KindIdentity:     TypeIdentity,
		},
	}
}

// STIX21 renders STIX 2.1: spec_version on every object, native incident type.
func STIX21() SchemaAdapter {
	return &stixSchema{
		name:          "stix-2.1",
		specVersion:   "2.1",
		perObjectSpec: true,
		types: map[Kind]string{
			KindTactic:       TypeTactic,
			KindTechnique:    TypeAttack,
			KindIncident:     "incident",
			KindCampaign:     "campaign",
			KindActor:        "threat-actor",
			KindIntrusionSet: "intrusion-set",
			KindIdentity:     TypeIdentity,
		},
	}
}

var schemas = map[string]func() SchemaAdapter{
	"stix-2.0": STIX20,
	"stix-2.1": STIX21,
}

// SchemaByName selects an adapter by its configured name.
func SchemaByName(name string) (SchemaAdapter, error) {
	fn, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown output schema %q (have %v)", name, SchemaNames())
	}
	return fn(), nil
}

// SchemaNames lists the registered adapter names, sorted.
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *stixSchema) Name() string { return s.name }

func (s *stixSchema) TypeOf(kind Kind) (string, bool) {
	t, ok := s.types[kind]
	return t, ok
}

func (s *stixSchema) Ref(stixType, id string) string {
	return stixType + "--" + id
}

func (s *stixSchema) Bundle(id string, objects []Object) *Bundle {
	b := &Bundle{Type: TypeBundle, ID: s.Ref(TypeBundle, id), Objects: objects}
	if !s.perObjectSpec {
		b.SpecVersion = s.specVersion
	}
	if b.Objects == nil {
		b.Objects = []Object{}
	}
	return b
}

func (s *stixSchema) base(stixType, id string, m *ExportMeta) Object {
	o := Object{
		"type": stixType,
		"id":   s.Ref(stixType, id),
	}
	if s.perObjectSpec {
		o["spec_version"] = s.specVersion
	}
	if m.MarkingRef != "" {
		o["object_marking_refs"] = []string{m.MarkingRef}
	}
	return o
}

func (s *stixSchema) Identity(id string, m *ExportMeta) Object {
	o := s.base(TypeIdentity, id, m)
	ts := formatTime(m.Timestamp)
	o["created"] = ts
	o["modified"] = ts
	o["name"] = m.Framework.Author
	o["identity_class"] = "organization"
	return o
}

func (s *stixSchema) MarkingDefinition(id string, m *ExportMeta) Object {
	o := Object{
		"type":            TypeMarking,
		"id":              s.Ref(TypeMarking, id),
		"created":         formatTime(m.Timestamp),
		"definition_type": "statement",
		"definition":      map[string]any{"statement": m.Framework.MarkingStatement},
	}
	if s.perObjectSpec {
		o["spec_version"] = s.specVersion
	}
	if m.AuthorRef != "" {
		o["created_by_ref"] = m.AuthorRef
	}
	return o
}

func (s *stixSchema) Entity(e *Entity, m *ExportMeta) (Object, error) {
	stixType, ok := s.types[e.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: no object type for kind %q", s.name, e.Kind)
	}
	o := s.base(stixType, e.ID, m)
	o["name"] = e.Name
	o["description"] = e.Description
	o["created"] = formatTime(e.Created)
	o["modified"] = formatTime(m.Timestamp)
	if m.AuthorRef != "" {
		o["created_by_ref"] = m.AuthorRef
	}
	if len(e.References) > 0 {
		o["external_references"] = renderReferences(e.References)
	}

	switch e.Kind {
	case KindTactic:
		o["x_mitre_shortname"] = e.ShortName
	case KindTechnique:
		if len(e.Phases) > 0 {
			phases := make([]map[string]any, 0, len(e.Phases))
			for _, p := range e.Phases {
				phases = append(phases, map[string]any{
					"kill_chain_name": m.Framework.KillChainName,
					"phase_name":      p,
				})
			}
			o["kill_chain_phases"] = phases
		}
		o["x_mitre_platforms"] = e.Platforms
		o["x_mitre_version"] = "1.0"
	case KindIdentity:
		o["identity_class"] = e.IdentityClass
	}
	if e.FirstSeen != nil {
		o["first_seen"] = formatTime(*e.FirstSeen)
	}
	if len(e.Aliases) > 0 {
		o["aliases"] = e.Aliases
	}
	if e.Kind == KindActor {
		// 2.1 renamed the required open-vocabulary property.
		if s.perObjectSpec {
			o["threat_actor_types"] = []string{"unknown"}
		} else {
			o["labels"] = []string{"unknown"}
		}
	}
	return o, nil
}

func (s *stixSchema) Relationship(edge Edge, m *ExportMeta) (Object, error) {
	sourceType, ok := s.types[edge.SourceKind]
	if !ok {
		return nil, fmt.Errorf("%s: no object type for source kind %q", s.name, edge.SourceKind)
	}
	targetType, ok := s.types[edge.TargetKind]
	if !ok {
		return nil, fmt.Errorf("%s: no object type for target kind %q", s.name, edge.TargetKind)
	}
	o := s.base(TypeRelationship, edge.ID, m)
	ts := formatTime(m.Timestamp)
	o["created"] = ts
	o["modified"] = ts
	o["relationship_type"] = edge.Type
	o["source_ref"] = s.Ref(sourceType, edge.SourceID)
	o["target_ref"] = s.Ref(targetType, edge.TargetID)
	if edge.Description != "" {
		o["description"] = edge.Description
	}
	if m.AuthorRef != "" {
		o["created_by_ref"] = m.AuthorRef
	}
	if edge.Code != "" {
		o["external_references"] = []map[string]any{{
			"external_id": edge.Code,
			"source_name": m.Framework.SourceName,
		}}
	}
	return o, nil
}

func (s *stixSchema) Matrix(id string, tacticIDs []string, m *ExportMeta) Object {
	o := s.base(TypeMatrix, id, m)
	ts := formatTime(m.Timestamp)
	o["created"] = ts
	o["modified"] = ts
	o["name"] = m.Framework.Name
	o["description"] = m.Framework.Description
	if m.AuthorRef != "" {
		o["created_by_ref"] = m.AuthorRef
	}
	refs := make([]string, 0, len(tacticIDs))
	for _, id := range tacticIDs {
		refs = append(refs, s.Ref(s.types[KindTactic], id))
	}
	o["tactic_refs"] = refs
	o["external_references"] = []map[string]any{{
		"external_id": m.Framework.SourceName,
		"source_name": m.Framework.SourceName,
		"url":         m.Framework.URL,
	}}
	return o
}

func renderReferences(refs []Reference) []map[string]any {
	out := make([]map[string]any, 0, len(refs))
	for _, r := range refs {
		ref := map[string]any{
			"external_id": r.ExternalID,
			"source_name": r.SourceName,
		}
		if r.URL != "" {
			ref["url"] = r.URL
		}
		out = append(out, ref)
	}
	return out
}

// TimestampLayout is the STIX timestamp layout, always UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
