package calc

import (
	"encoding/json"
	"fmt"
)

// Fixed result headers.
const (
	ColSample  = "樣品名稱"
	ColIntake  = "攝取量(g)"
	TotalLabel = "總和"
)

// Table is the assembled result: per-entry rows followed by one total row.
type Table struct {
	Nutrients []string
	Rows      []Row
}

// Columns returns the full header: sample, intake, then nutrients.
func (t *Table) Columns() []string {
	return append([]string{ColSample, ColIntake}, t.Nutrients...)
}

// Assemble appends the total to rows and checks that every row carries one
// value per nutrient. Short rows are padded with empty markers.
func Assemble(nutrients []string, rows []Row, total Row) (*Table, error) {
	nutrients = Dedupe(nutrients)
	if !total.Total {
		return nil, fmt.Errorf("assemble: last row is not a total row")
	}

	all := make([]Row, 0, len(rows)+1)
	all = append(all, rows...)
	all = append(all, total)

	out := make([]Row, 0, len(all))
	for i, r := range all {
		if r.Total && i != len(rows) {
			return nil, fmt.Errorf("assemble: total row at position %d", i)
		}
		if len(r.Values) > len(nutrients) {
			return nil, fmt.Errorf("assemble: row %d has %d values for %d nutrients", i, len(r.Values), len(nutrients))
		}
		vals := make([]Value, len(nutrients))
		copy(vals, r.Values)
		for j := len(r.Values); j < len(vals); j++ {
			vals[j] = EmptyValue()
		}
		r.Values = vals
		out = append(out, r)
	}
	return &Table{Nutrients: nutrients, Rows: out}, nil
}

// Total returns the trailing total row.
func (t *Table) Total() Row { return t.Rows[len(t.Rows)-1] }

// Entries returns the rows before the total.
func (t *Table) Entries() []Row { return t.Rows[:len(t.Rows)-1] }

// Cells flattens a row in column order.
func (r Row) Cells() []any {
	out := make([]any, 0, len(r.Values)+2)
	out = append(out, r.SampleName, r.Grams)
	for _, v := range r.Values {
		out = append(out, v)
	}
	return out
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON renders the table as a header plus positional rows.
func (t *Table) MarshalJSON() ([]byte, error) {
	tj := tableJSON{Columns: t.Columns(), Rows: make([][]any, len(t.Rows))}
	for i, r := range t.Rows {
		tj.Rows[i] = r.Cells()
	}
	return json.Marshal(tj)
}
