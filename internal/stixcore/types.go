package stixcore

import (
	"fmt"
	"strings"
	"time"
)

// Kind is one of the seven entity types carried by the workbook.
type Kind string

const (
	KindTactic       Kind = "tactic"
	KindTechnique    Kind = "technique"
	KindIncident     Kind = "incident"
	KindCampaign     Kind = "campaign"
	KindActor        Kind = "actor"
	KindIdentity     Kind = "identity"
	KindIntrusionSet Kind = "intrusion-set"
)

// Kinds lists every entity kind in the order the builder processes their tables.
var Kinds = []Kind{
	KindTactic,
	KindTechnique,
	KindIncident,
	KindCampaign,
	KindActor,
	KindIntrusionSet,
	KindIdentity,
}

// Workbook table names.
const (
	TableTactics       = "tactics"
	TableTechniques    = "techniques"
	TableIncidents     = "incidents"
	TableCampaigns     = "campaigns"
	TableActors        = "actors"
	TableIntrusionSets = "intrusionsets"
	TableIdentities    = "identities"
	TableRelationships = "relationships"
)

var kindTables = map[Kind]string{
	KindTactic:       TableTactics,
	KindTechnique:    TableTechniques,
	KindIncident:     TableIncidents,
	KindCampaign:     TableCampaigns,
	KindActor:        TableActors,
	KindIntrusionSet: TableIntrusionSets,
	KindIdentity:     TableIdentities,
}

// Table returns the workbook table holding entities of this kind.
func (k Kind) Table() string {
	return kindTables[k]
}

// ParseKind accepts a kind name or its table name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if s == string(k) || s == k.Table() {
			return k, nil
		}
	}
	switch s {
	case "intrusionset", "intrusion_set":
		return KindIntrusionSet, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Column names read from the workbook. Unknown extra columns are ignored.
const (
	ColID            = "id"
	ColName          = "name"
	ColSummary       = "summary"
	ColDescription   = "description"
	ColTactic        = "tactic"
	ColReferences    = "references"
	ColCreated       = "created"
	ColFirstSeen     = "first_seen"
	ColPlatforms     = "platforms"
	ColAliases       = "aliases"
	ColIdentityClass = "identity_class"

	ColSource       = "source"
	ColTarget       = "target"
	ColRelationship = "relationship"
	ColSourceType   = "source_type"
	ColTargetType   = "target_type"
)

// Row is one named-field workbook row.
type Row map[string]string

// Get returns the cell for col, or "" when the column is absent.
func (r Row) Get(col string) string {
	return r[col]
}

// First returns the first non-empty cell among cols.
func (r Row) First(cols ...string) string {
	for _, c := range cols {
		if v := r[c]; v != "" {
			return v
		}
	}
	return ""
}

// Table is an ordered sequence of rows from one workbook sheet.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Reference is an external reference attached to an entity.
type Reference struct {
	ExternalID string `json:"external_id"`
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
}

// Entity is the canonical in-memory record built from one workbook row.
type Entity struct {
	Kind        Kind
	ID          string
	Code        string
	Name        string
	Description string
	Created     time.Time
	References  []Reference

	// tactic
	ShortName  string
	Techniques []string

	// technique
	TacticCode string
	Phases     []string
	Platforms  []string

	// incident, campaign, intrusion-set
	FirstSeen *time.Time

	// actor, intrusion-set
	Aliases []string

	// identity
	IdentityClass string
}

// Edge is a typed, directed link between two registered entities.
type Edge struct {
	ID          string
	Code        string
	Type        string
	SourceID    string
	SourceKind  Kind
	TargetID    string
	TargetKind  Kind
	Description string
}
