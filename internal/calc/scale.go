package calc

import (
	"fmt"

	"github.com/korjavin/dricalc/internal/dataset"
)

// Row is one line of the result: a sample (or the total) with its intake
// weight and one value per requested nutrient.
type Row struct {
	SampleName string
	Grams      float64
	Values     []Value
	Total      bool
}

// Scale computes weight-scaled nutrient values for every selection that has
// a sample, plus the total row. Stored values are per 100 g. A nutrient the
// dataset does not have scales as zero; a non-numeric cell gives an empty
// marker, which the total counts as zero.
func Scale(ds *dataset.Dataset, sels []Selection, nutrients []string) ([]Row, Row, error) {
	nutrients = Dedupe(nutrients)
	total := Row{SampleName: TotalLabel, Values: make([]Value, len(nutrients)), Total: true}

	var rows []Row
	for _, sel := range sels {
		if sel.Sample == "" {
			continue
		}
		rec, ok := ds.Lookup(sel.Sample)
		if !ok {
			return nil, Row{}, fmt.Errorf("%w: %q not in dataset", ErrUnknownChoice, sel.Sample)
		}

		row := Row{SampleName: rec.SampleName, Grams: sel.Grams, Values: make([]Value, len(nutrients))}
		for i, n := range nutrients {
			row.Values[i] = scaleCell(ds.Cell(rec, n), sel.Grams)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, Row{}, ErrNoUsableEntries
	}

	for _, r := range rows {
		total.Grams += r.Grams
		for i, v := range r.Values {
			total.Values[i].Num += v.OrZero()
		}
	}
	return rows, total, nil
}

func scaleCell(c dataset.Cell, grams float64) Value {
	if !c.Numeric() {
		return EmptyValue()
	}
	return Num(Round2(c.Num * grams / 100))
}

// Dedupe drops repeated names, keeping the first occurrence.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
