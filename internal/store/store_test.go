package store

import (
	"reflect"
	"slices"
	"testing"

	"github.com/korjavin/dricalc/internal/dataset"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Build([]*dataset.Table{
		{
			Tag:    "tfda",
			Header: []string{dataset.ColSampleName, dataset.ColCommonName, "熱量", "鈉"},
			Rows: [][]string{
				{"地瓜(生)", "番薯", "120", ""},
				{"板豆腐", "傳統豆腐", "88", "微量"},
				{"Tofu Skin", "yuba", "230", "12"},
				{"板豆腐", "", "90", "1"},
			},
		},
		{
			Tag:    "extra",
			Header: []string{dataset.ColSampleName, dataset.ColCommonName, "鈣"},
			Rows:   [][]string{{"芭樂", "番石榴", "4"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ds
}

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMem()
	if err != nil {
		t.Fatalf("OpenMem: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordCodec(t *testing.T) {
	in := dataset.Record{
		SampleName: "地瓜",
		CommonName: "番薯",
		Source:     "tfda",
		Cells: []dataset.Cell{
			{Kind: dataset.Measured, Num: 120.5},
			{Kind: dataset.Blank},
			{Kind: dataset.Text, Raw: "微量"},
			{Kind: dataset.Filled},
		},
	}
	out, err := decodeRecord(encodeRecord(in))
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("decoded %+v; want %+v", out, in)
	}

	if _, err := decodeRecord([]byte{9}); err == nil {
		t.Error("unknown version should fail")
	}
	blob := encodeRecord(in)
	if _, err := decodeRecord(blob[:len(blob)-3]); err == nil {
		t.Error("truncated blob should fail")
	}
}

func TestPutLoadDataset(t *testing.T) {
	ds := testDataset(t)
	s := openMem(t)

	if err := s.PutDataset(ds); err != nil {
		t.Fatalf("PutDataset: %v", err)
	}
	got, err := s.LoadDataset()
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}

	if !reflect.DeepEqual(got.Columns(), ds.Columns()) {
		t.Errorf("Columns() = %q; want %q", got.Columns(), ds.Columns())
	}
	if !reflect.DeepEqual(got.Sources(), ds.Sources()) {
		t.Errorf("Sources() = %q; want %q", got.Sources(), ds.Sources())
	}
	if !reflect.DeepEqual(got.Records(), ds.Records()) {
		t.Errorf("records differ after round trip")
	}
	r, ok := got.Lookup("板豆腐")
	if !ok || got.Cell(r, "熱量").Num != 88 {
		t.Errorf("Lookup after restore = %+v, %v; want first 板豆腐", r, ok)
	}
}

func TestLoadDataset_Empty(t *testing.T) {
	s := openMem(t)
	if _, err := s.LoadDataset(); err == nil {
		t.Error("LoadDataset on an empty store should fail")
	}
}

func TestSuggest(t *testing.T) {
	s := openMem(t)
	if err := s.PutDataset(testDataset(t)); err != nil {
		t.Fatalf("PutDataset: %v", err)
	}

	tests := []struct {
		q    string
		want string
	}{
		{"地瓜", "地瓜(生)"},
		{"番石榴", "芭樂"},
		{"tofo", "Tofu Skin"},
		{"YUBA", "Tofu Skin"},
	}
	for _, tc := range tests {
		got, err := s.Suggest(tc.q, 5)
		if err != nil {
			t.Fatalf("Suggest(%q): %v", tc.q, err)
		}
		if !slices.Contains(got, tc.want) {
			t.Errorf("Suggest(%q) = %q; want it to contain %q", tc.q, got, tc.want)
		}
	}

	got, err := s.Suggest("板豆腐", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	n := 0
	for _, name := range got {
		if name == "板豆腐" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("Suggest(板豆腐) = %q; want the duplicate name once", got)
	}

	if got, _ := s.Suggest("  ", 5); len(got) != 0 {
		t.Errorf("blank query = %q; want nothing", got)
	}
}
