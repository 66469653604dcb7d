package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Source describes one tabular nutrient file.
type Source struct {
	Path string `yaml:"path"`
	// Sheet selects the worksheet of a spreadsheet; empty means the first.
	Sheet string `yaml:"sheet"`
	// HeaderRow is the 1-based row holding column names. Rows above it are
	// ignored.
	HeaderRow int    `yaml:"header_row"`
	Tag       string `yaml:"tag"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSourcesFile reads a YAML sources file. Relative paths are resolved
// against the file's own directory.
func LoadSourcesFile(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var sf sourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(sf.Sources) == 0 {
		return nil, ErrNoSources
	}

	base := filepath.Dir(path)
	for i := range sf.Sources {
		s := &sf.Sources[i]
		if s.Path == "" {
			return nil, fmt.Errorf("source %d: empty path", i)
		}
		if !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(base, s.Path)
		}
		if err := s.normalize(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
	}
	return sf.Sources, nil
}

func (s *Source) normalize() error {
	if s.HeaderRow < 0 {
		return fmt.Errorf("header_row %d must be positive", s.HeaderRow)
	}
	if s.HeaderRow == 0 {
		s.HeaderRow = 1
	}
	if s.Tag == "" {
		name := filepath.Base(s.Path)
		s.Tag = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return nil
}

// Table is the raw content of one source: a header and string cells, before
// any reconciliation with other sources.
type Table struct {
	Tag    string
	Header []string
	Rows   [][]string
	// Skipped counts dropped rows by reason.
	Skipped map[string]int64
}

// ReadTable reads a source file, choosing the reader by extension.
func ReadTable(src Source) (*Table, error) {
	if err := src.normalize(); err != nil {
		return nil, err
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(src.Path, src.Sheet)
	case ".csv":
		rows, err = readCSVFile(src.Path)
	default:
		return nil, fmt.Errorf("unsupported source type %q", src.Path)
	}
	if err != nil {
		return nil, err
	}
	return newTable(src, rows)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// newTable cuts the header out of raw rows and squares the remaining rows
// up to the widest row seen.
func newTable(src Source, raw [][]string) (*Table, error) {
	hr := src.HeaderRow - 1
	if hr >= len(raw) {
		return nil, fmt.Errorf("source %s: header row %d beyond last row %d", src.Path, src.HeaderRow, len(raw))
	}

	width := 0
	for _, row := range raw[hr:] {
		width = max(width, len(row))
	}

	t := &Table{
		Tag:     src.Tag,
		Header:  headerNames(raw[hr], width),
		Skipped: make(map[string]int64),
	}
	for _, row := range raw[hr+1:] {
		if blankRow(row) {
			t.Skipped["blank_row"]++
			continue
		}
		cells := make([]string, width)
		copy(cells, row)
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// headerNames trims header cells, names blank ones "Unnamed: <i>" and
// suffixes repeats with ".<n>".
func headerNames(row []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := range names {
		var name string
		if i < len(row) {
			name = strings.TrimSpace(row[i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
