package workbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stixgraph/internal/stixcore"
)

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	path := filepath.Join(t.TempDir(), "framework.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXTables(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"tactics": {
			{"id", "name", "summary"},
			{"TA01", "Strategic Planning", "Defining the desired end state"},
			{"TA02", "Objective Planning"},
		},
		"techniques": {
			{"id", "name", "tactic"},
			{"T0001", "5Ds", "TA01"},
		},
	})

	tables, err := XLSX{Path: path}.Tables(context.Background())
	require.NoError(t, err)
	require.Contains(t, tables, "tactics")
	require.Contains(t, tables, "techniques")

	tactics := tables["tactics"]
	assert.Equal(t, []string{"id", "name", "summary"}, tactics.Columns)
	require.Len(t, tactics.Rows, 2)
	assert.Equal(t, "Strategic Planning", tactics.Rows[0]["name"])
	assert.Equal(t, "Defining the desired end state", tactics.Rows[0]["summary"])
	// short rows leave trailing cells unset
	_, ok := tactics.Rows[1]["summary"]
	assert.False(t, ok)

	assert.Equal(t, "TA01", tables["techniques"].Rows[0]["tactic"])
}

func TestXLSXMissingFile(t *testing.T) {
	_, err := XLSX{Path: filepath.Join(t.TempDir(), "nope.xlsx")}.Tables(context.Background())
	assert.Error(t, err)
}

func TestToTableIgnoresBlankHeaders(t *testing.T) {
	table := toTable("actors", [][]string{
		{"id", "", "name"},
		{"A001", "ignored", "Troll farm"},
	})
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Troll farm", table.Rows[0]["name"])
	assert.NotContains(t, table.Rows[0], "")
}

func TestToTableEmptySheet(t *testing.T) {
	table := toTable("incidents", nil)
	assert.Equal(t, "incidents", table.Name)
	assert.Empty(t, table.Rows)
}

func TestReadXLSXFeedsPipeline(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"Tactics": {
			{"ID", "Name", "Summary"},
			{"TA01", "Strategic Planning", "Defining the desired end state"},
		},
		"Techniques": {
			{"ID", "Name", "Tactic", "Summary"},
			{"T0001", "5Ds", "TA01", "nan"},
		},
		"Relationships": {
			{"ID", "Source", "Target", "Relationship"},
			{"R001", "T0001", "TA01", "uses"},
		},
	})
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tables, err := ReadXLSX(context.Background(), f)
	require.NoError(t, err)

	res, err := stixcore.NewPipeline(stixcore.PipelineOptions{}, nil).Run(tables)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Entities[stixcore.KindTechnique])
	assert.Equal(t, 1, res.Stats.Link.Edges)
	assert.Equal(t, []string{"strategic-planning"}, res.Entities[1].Phases)
}

func TestMemorySource(t *testing.T) {
	var src Source = Memory{"tactics": {Name: "tactics"}}
	tables, err := src.Tables(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tables, "tactics")
}

func TestXLSXDateCellsKeepTheirDate(t *testing.T) {
	created := time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
	path := writeWorkbook(t, map[string][][]interface{}{
		"incidents": {
			{"id", "name", "created", "first_seen"},
			{"I00001", "Brexit vote", created, time.Date(2016, 6, 23, 0, 0, 0, 0, time.UTC)},
			{"I00002", "Typed as text", "2018-05-04", ""},
		},
	})

	tables, err := XLSX{Path: path}.Tables(context.Background())
	require.NoError(t, err)
	rows := tables["incidents"].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "2019-02-01", rows[0]["created"])
	assert.Equal(t, "2016-06-23", rows[0]["first_seen"])
	assert.Equal(t, "2018-05-04", rows[1]["created"])

	runAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := stixcore.NewPipeline(stixcore.PipelineOptions{Now: runAt}, nil).Run(tables)
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)
	assert.Equal(t, created, res.Entities[0].Created)
	require.NotNil(t, res.Entities[0].FirstSeen)
	assert.Equal(t, time.Date(2016, 6, 23, 0, 0, 0, 0, time.UTC), *res.Entities[0].FirstSeen)
}

func TestXLSXCustomDateFormat(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"id", "created", "count"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"T0001", 43497, 43497}))

	format := "dd-mmm-yyyy"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B2", style))
	path := filepath.Join(t.TempDir(), "custom.xlsx")
	require.NoError(t, f.SaveAs(path))

	tables, err := XLSX{Path: path}.Tables(context.Background())
	require.NoError(t, err)
	row := tables["Sheet1"].Rows[0]
	assert.Equal(t, "2019-02-01", row["created"])
	assert.Equal(t, "43497", row["count"], "plain numbers are not dates")
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }
	tests := []struct {
		name   string
		numFmt int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"builtin date", 14, nil, true},
		{"builtin datetime", 22, nil, true},
		{"builtin time only", 20, nil, false},
		{"builtin percent", 10, nil, false},
		{"custom iso", 0, custom("yyyy-mm-dd"), true},
		{"custom minutes", 0, custom("mm:ss"), false},
		{"custom quoted literal", 0, custom(`0 "days"`), false},
		{"custom locale prefix", 0, custom("[$-409]d-mmm-yy"), true},
		{"custom color", 0, custom("[Red]0.00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormat(tt.numFmt, tt.custom))
		})
	}
}
