package dataset

import "slices"

// Key column headers every source is expected to carry.
const (
	ColSampleName = "樣品名稱"
	ColCommonName = "俗名"
)

// descriptiveCols are source columns that describe a sample rather than
// measure a nutrient. They are kept on the record but never offered as
// nutrients.
var descriptiveCols = []string{"整合編號", "食品分類", ColSampleName, "內容物描述", ColCommonName, "廢棄率(%)"}

// CellKind tells how a cell value came to be.
type CellKind uint8

const (
	// Blank is an empty cell in the source.
	Blank CellKind = iota
	// Measured is a numeric value read from the source.
	Measured
	// Text is non-numeric content in the source.
	Text
	// Filled is a zero written for a column the row's source does not have.
	Filled
)

func (k CellKind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Measured:
		return "measured"
	case Text:
		return "text"
	case Filled:
		return "filled"
	}
	return "unknown"
}

// Cell is one value of a record. Num is meaningful only when Numeric reports
// true; Raw holds the trimmed source text for Text cells.
type Cell struct {
	Kind CellKind
	Num  float64
	Raw  string
}

// Numeric reports whether the cell carries a number. Filled cells count as
// numeric zero even though the source never measured them.
func (c Cell) Numeric() bool {
	return c.Kind == Measured || c.Kind == Filled
}

// Record is one sample row of the reconciled dataset. Cells is aligned with
// the owning Dataset's Columns.
type Record struct {
	SampleName string
	CommonName string
	Source     string
	Cells      []Cell
}

// Dataset is the immutable, column-reconciled record set.
type Dataset struct {
	columns []string
	colIdx  map[string]int
	records []Record
	sources []string
	byName  map[string]int
}

func newDataset(columns []string, records []Record, sources []string) *Dataset {
	ds := &Dataset{
		columns: columns,
		colIdx:  make(map[string]int, len(columns)),
		records: records,
		sources: sources,
		byName:  make(map[string]int, len(records)),
	}
	for i, c := range columns {
		ds.colIdx[c] = i
	}
	for i, r := range records {
		// first occurrence wins for duplicate sample names
		if _, ok := ds.byName[r.SampleName]; !ok {
			ds.byName[r.SampleName] = i
		}
	}
	return ds
}

// Restore rebuilds a Dataset from previously reconciled parts, e.g. a stored
// snapshot. Every record must have one cell per column.
func Restore(columns []string, records []Record, sources []string) (*Dataset, error) {
	for i, r := range records {
		if len(r.Cells) != len(columns) {
			return nil, &ShapeError{Row: i, Got: len(r.Cells), Want: len(columns)}
		}
	}
	return newDataset(slices.Clone(columns), records, slices.Clone(sources)), nil
}

// Columns returns the canonical column order, key columns excluded.
func (d *Dataset) Columns() []string { return slices.Clone(d.columns) }

// NutrientColumns returns the columns that can be requested for scaling.
func (d *Dataset) NutrientColumns() []string {
	out := make([]string, 0, len(d.columns))
	for _, c := range d.columns {
		if !slices.Contains(descriptiveCols, c) {
			out = append(out, c)
		}
	}
	return out
}

// Records returns the records in load order. Callers must not modify them.
func (d *Dataset) Records() []Record { return d.records }

// Sources returns the provenance tags in load order.
func (d *Dataset) Sources() []string { return slices.Clone(d.sources) }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Lookup returns the first record whose sample name equals name exactly.
func (d *Dataset) Lookup(name string) (Record, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Record{}, false
	}
	return d.records[i], true
}

// Cell returns the record's value for col. A column the dataset does not
// know reads as a filled zero.
func (d *Dataset) Cell(r Record, col string) Cell {
	i, ok := d.colIdx[col]
	if !ok || i >= len(r.Cells) {
		return Cell{Kind: Filled}
	}
	return r.Cells[i]
}
