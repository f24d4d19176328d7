package stixcore

import (
	"fmt"
	"time"
)

var testNow = time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)

// sequentialIDs yields id-0001, id-0002, ... so assertions can name identifiers.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%04d", n)
	}
}

func table(name string, columns []string, rows ...[]string) *Table {
	t := &Table{Name: name, Columns: columns}
	for _, cells := range rows {
		row := make(Row)
		for i, c := range columns {
			if i < len(cells) {
				row[c] = cells[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func sampleTables() map[string]*Table {
	return map[string]*Table{
		"Tactics": table("Tactics", []string{"id", "name", "summary", "created"},
			[]string{"TA00", "", ""},
			[]string{"TA01", "Strategic Planning", "Defining the desired end state", "2019-02-01"},
			[]string{"TA02", "Objective Planning", "Set objectives", "not a date"},
			[]string{"TA03", "Develop People", ""},
		),
		"techniques": table("techniques", []string{"id", "name", "tactic", "summary", "references"},
			[]string{"T0000", "", "", ""},
			[]string{"T0001", "5Ds", "TA01", "4Ds of propaganda", "(R001, mitre-attack, http://x)(bad)"},
			[]string{"T0002", "Facilitate State Propaganda", "TA02", " "},
			[]string{"T0003", "NaN", "nan", "  nan "},
			[]string{"T0004", "Leverage Conspiracy Theories", "TA01", "Use conspiracies"},
		),
		"incidents": table("incidents", []string{"id", "name", "first_seen", "created"},
			[]string{"I00000", "", "", ""},
			[]string{"I00001", "Brexit vote", "2016-06-23", "2019-01-01"},
			[]string{"I00002", "Other", "June 2016", "oops"},
		),
		"campaigns": table("campaigns", []string{"id", "name", "summary"},
			[]string{"C0001", "Internet Research Agency", "Long running"},
		),
		"actors": table("actors", []string{"id", "name", "aliases"},
			[]string{"A001", "Troll farm", "IRA, Glavset"},
		),
		"intrusionsets": table("intrusionsets", []string{"id", "name", "first_seen"},
			[]string{"IS01", "Secondary Infektion", "2014-01-01"},
		),
		"identities": table("identities", []string{"id", "name", "identity_class"},
			[]string{"ID01", "Some newsroom", ""},
		),
		"relationships": table("relationships", []string{"id", "source", "target", "relationship"},
			[]string{"R000", "TA01", "T0001", "uses"},
			[]string{"R001", "I00001", "T0001, T0002 ,", "uses"},
			[]string{"R002", "A001", "I00001", "attributed-to"},
			[]string{"R003", "I00001", "T9999", "uses"},
			[]string{"R004", "I00001", "T0003", "uses"},
		),
	}
}
