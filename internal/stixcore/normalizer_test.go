package stixcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTablesCoercesCells(t *testing.T) {
	ds := NormalizeTables(sampleTables())

	techniques := ds.Table(TableTechniques)
	require.Len(t, techniques.Rows, 5)

	blank := techniques.Rows[3]
	assert.Equal(t, "T0003", blank.Get(ColID))
	assert.Equal(t, "", blank.Get(ColName))
	assert.Equal(t, "", blank.Get(ColTactic))
	assert.Equal(t, "", blank.Get(ColSummary))

	// whitespace-only cells become empty too
	assert.Equal(t, "", techniques.Rows[2].Get(ColSummary))
}

func TestNormalizeTablesFillsMissingColumns(t *testing.T) {
	raw := map[string]*Table{
		"actors": {
			Name:    "actors",
			Columns: []string{" ID ", "Name"},
			Rows: []Row{
				{"ID": "A001"},
				{"ID": "A002", "Name": "Bots", "Zeta": "z", "Extra": "x"},
			},
		},
	}
	ds := NormalizeTables(raw)
	actors := ds.Table("ACTORS")
	require.Len(t, actors.Rows, 2)
	assert.Equal(t, []string{"id", "name", "extra", "zeta"}, actors.Columns)

	for _, row := range actors.Rows {
		for _, col := range actors.Columns {
			assert.Contains(t, row, col)
		}
	}
	assert.Equal(t, "", actors.Rows[0]["name"])
	assert.Equal(t, "", actors.Rows[0]["extra"])
	assert.Equal(t, "Bots", actors.Rows[1]["name"])
	assert.Equal(t, "x", actors.Rows[1]["extra"])
}

func TestNormalizeTablesColumnOrderIsStable(t *testing.T) {
	raw := func() map[string]*Table {
		return map[string]*Table{
			"campaigns": {
				Columns: []string{"id"},
				Rows:    []Row{{"id": "C0001", "c": "3", "a": "1", "b": "2"}},
			},
		}
	}
	first := NormalizeTables(raw()).Table(TableCampaigns).Columns
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, NormalizeTables(raw()).Table(TableCampaigns).Columns)
	}
	assert.Equal(t, []string{"id", "a", "b", "c"}, first)
}

func TestNormalizeTablesGroupsTechniquesByTactic(t *testing.T) {
	ds := NormalizeTables(sampleTables())

	assert.Equal(t, []string{"T0001", "T0004"}, ds.TechniquesFor("TA01"))
	assert.Equal(t, []string{"T0002"}, ds.TechniquesFor("TA02"))

	none := ds.TechniquesFor("TA03")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestNormalizeTablesMissingTable(t *testing.T) {
	ds := NormalizeTables(map[string]*Table{})
	got := ds.Table(TableIncidents)
	require.NotNil(t, got)
	assert.Empty(t, got.Rows)
	assert.Empty(t, ds.Names(TableIncidents))
}

func TestDatasetNames(t *testing.T) {
	ds := NormalizeTables(sampleTables())
	names := ds.Names(TableTactics)
	assert.Equal(t, "Strategic Planning", names["TA01"])
	assert.Equal(t, "Develop People", names["TA03"])
	assert.Contains(t, names, "TA00")
}
