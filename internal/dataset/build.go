package dataset

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// naTokens are cell contents read as "no value", mirroring what common
// spreadsheet exports write for missing data.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// Stats summarizes a load.
type Stats struct {
	Records int64
	Skipped map[string]int64
}

// SkippedTotal sums Skipped over all reasons.
func (s *Stats) SkippedTotal() int64 {
	var n int64
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// Load reads every source and reconciles them into one dataset.
func Load(srcs []Source) (*Dataset, *Stats, error) {
	if len(srcs) == 0 {
		return nil, nil, ErrNoSources
	}
	tables := make([]*Table, 0, len(srcs))
	for _, src := range srcs {
		t, err := ReadTable(src)
		if err != nil {
			return nil, nil, fmt.Errorf("load source %s: %w", src.Path, err)
		}
		tables = append(tables, t)
	}

	ds, err := Build(tables)
	if err != nil {
		return nil, nil, err
	}

	stats := &Stats{Records: int64(ds.Len()), Skipped: make(map[string]int64)}
	for _, t := range tables {
		for reason, n := range t.Skipped {
			stats.Skipped[reason] += n
		}
	}
	return ds, stats, nil
}

// Build reconciles raw tables into one Dataset. The column set is the union
// of all headers in first-seen order; a column a table lacks is zero-filled
// for that table's rows and marked Filled.
func Build(tables []*Table) (*Dataset, error) {
	if len(tables) == 0 {
		return nil, ErrNoSources
	}

	var (
		columns   []string
		hasSample bool
		hasCommon bool
	)
	for _, t := range tables {
		for _, h := range t.Header {
			switch h {
			case ColSampleName:
				hasSample = true
			case ColCommonName:
				hasCommon = true
			default:
				if !slices.Contains(columns, h) {
					columns = append(columns, h)
				}
			}
		}
	}
	if !hasSample {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyColumn, ColSampleName)
	}
	if !hasCommon {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyColumn, ColCommonName)
	}

	var (
		records []Record
		sources []string
	)
	for _, t := range tables {
		if !slices.Contains(sources, t.Tag) {
			sources = append(sources, t.Tag)
		}

		pos := make(map[string]int, len(t.Header))
		for i, h := range t.Header {
			pos[h] = i
		}
		// colMap[i] is the table position of canonical column i, or -1.
		colMap := make([]int, len(columns))
		for i, c := range columns {
			if j, ok := pos[c]; ok {
				colMap[i] = j
			} else {
				colMap[i] = -1
			}
		}
		sampleAt, sampleOK := pos[ColSampleName]
		commonAt, commonOK := pos[ColCommonName]

		for _, row := range t.Rows {
			rec := Record{Source: t.Tag, Cells: make([]Cell, len(columns))}
			if sampleOK {
				rec.SampleName = keyText(row[sampleAt])
			}
			if commonOK {
				rec.CommonName = keyText(row[commonAt])
			}
			for i, j := range colMap {
				if j < 0 {
					rec.Cells[i] = Cell{Kind: Filled}
					continue
				}
				rec.Cells[i] = ParseCell(row[j])
			}
			records = append(records, rec)
		}
	}

	return newDataset(columns, records, sources), nil
}

// ParseCell classifies raw cell text.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{Kind: Blank}
	}
	if _, na := naTokens[s]; na {
		return Cell{Kind: Blank}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{Kind: Text, Raw: s}
	}
	return Cell{Kind: Measured, Num: f}
}

func keyText(raw string) string {
	s := strings.TrimSpace(raw)
	if _, na := naTokens[s]; na {
		return ""
	}
	return s
}
