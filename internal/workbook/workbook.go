// Package workbook loads the framework's tables from a spreadsheet.
package workbook

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"stixgraph/internal/stixcore"
)

// Source yields the named tables of a workbook.
type Source interface {
	Tables(ctx context.Context) (map[string]*stixcore.Table, error)
}

// XLSX reads every sheet of an .xlsx file. The first row of a sheet is its
// header; sheet and column names are matched case-insensitively downstream.
type XLSX struct {
	Path string
}

func (x XLSX) Tables(ctx context.Context) (map[string]*stixcore.Table, error) {
	f, err := excelize.OpenFile(x.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", x.Path, err)
	}
	defer f.Close()
	return readSheets(ctx, f)
}

// ReadXLSX parses a workbook from r.
func ReadXLSX(ctx context.Context, r io.Reader) (map[string]*stixcore.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()
	return readSheets(ctx, f)
}

func readSheets(ctx context.Context, f *excelize.File) (map[string]*stixcore.Table, error) {
	dates := newDateCells(f)
	tables := make(map[string]*stixcore.Table)
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read raw values of sheet %s: %w", sheet, err)
		}
		dates.rewrite(sheet, rows, raw)
		tables[sheet] = toTable(sheet, rows)
	}
	return tables, nil
}

// dateCells rewrites date-formatted cells as stixcore.DateLayout. The
// formatted text of such a cell follows the workbook's number format
// ("2/1/19 00:00"), so the raw serial is converted instead.
type dateCells struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File) *dateCells {
	d := &dateCells{f: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// rewrite updates rows in place. The header row is left alone.
func (d *dateCells) rewrite(sheet string, rows, raw [][]string) {
	for r := 1; r < len(rows) && r < len(raw); r++ {
		for c := 0; c < len(rows[r]) && c < len(raw[r]); c++ {
			if raw[r][c] == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil || !d.isDate(sheet, cell) {
				continue
			}
			serial, err := strconv.ParseFloat(raw[r][c], 64)
			if err != nil {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, d.date1904)
			if err != nil {
				continue
			}
			rows[r][c] = t.Format(stixcore.DateLayout)
		}
	}
}

func (d *dateCells) isDate(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if isDate, ok := d.styles[id]; ok {
		return isDate
	}
	isDate := false
	if style, err := d.f.GetStyle(id); err == nil && style != nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	d.styles[id] = isDate
	return isDate
}

// isDateFormat reports whether a number format renders a calendar date:
// one of the built-in date formats, or a custom code with a year or day token.
func isDateFormat(numFmt int, custom *string) bool {
	if custom != nil {
		return hasDateToken(*custom)
	}
	switch {
	case numFmt >= 14 && numFmt <= 17, numFmt == 22:
		return true
	case numFmt >= 27 && numFmt <= 36, numFmt >= 50 && numFmt <= 58:
		return true
	}
	return false
}

// hasDateToken scans a format code, skipping quoted literals, escaped
// characters and bracketed sections such as [Red] or [$-409].
func hasDateToken(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\':
			i++
		default:
			switch strings.ToLower(string(ch)) {
			case "y", "d":
				return true
			}
		}
	}
	return false
}

// toTable turns raw sheet rows into a Table. Short rows are padded by the
// normalizer; columns with an empty header are ignored.
func toTable(name string, rows [][]string) *stixcore.Table {
	t := &stixcore.Table{Name: name}
	if len(rows) == 0 {
		return t
	}
	t.Columns = append(t.Columns, rows[0]...)
	for _, cells := range rows[1:] {
		row := make(stixcore.Row, len(t.Columns))
		for i, col := range t.Columns {
			if col == "" || i >= len(cells) {
				continue
			}
			row[col] = cells[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Memory is a Source backed by tables already in memory.
type Memory map[string]*stixcore.Table

func (m Memory) Tables(ctx context.Context) (map[string]*stixcore.Table, error) {
	return m, nil
}
