package match

import (
	"reflect"
	"strings"
	"testing"

	"github.com/korjavin/dricalc/internal/dataset"
	"github.com/korjavin/dricalc/internal/intake"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Build([]*dataset.Table{{
		Tag:    "t",
		Header: []string{dataset.ColSampleName, dataset.ColCommonName, "熱量"},
		Rows: [][]string{
			{"板豆腐", "傳統豆腐", "88"},
			{"嫩豆腐", "", "51"},
			{"豆漿", "豆腐漿", "35"},
			{"板豆腐", "", "90"},
			{"地瓜", "番薯", "120"},
			{"Tofu Skin", "yuba", "230"},
			{"凍豆腐", "", "140"},
		},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ds
}

func TestMatch_SubstringBothFields(t *testing.T) {
	m := New(testDataset(t))

	got := m.Match("豆腐")
	want := []string{"板豆腐", "嫩豆腐", "豆漿", "凍豆腐"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match(豆腐) = %q; want %q", got, want)
	}

	if got := m.Match("番薯"); !reflect.DeepEqual(got, []string{"地瓜"}) {
		t.Errorf("Match(番薯) = %q; want [地瓜] via common name", got)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	m := New(testDataset(t))
	for _, q := range []string{"tofu", "TOFU", "Skin", "YUBA"} {
		if got := m.Match(q); !reflect.DeepEqual(got, []string{"Tofu Skin"}) {
			t.Errorf("Match(%q) = %q; want [Tofu Skin]", q, got)
		}
	}
}

func TestMatch_EveryContainingRecordIsACandidate(t *testing.T) {
	ds := testDataset(t)
	m := New(ds)
	q := "豆"
	got := make(map[string]bool)
	for _, s := range m.Match(q) {
		got[s] = true
	}
	for _, r := range ds.Records() {
		if strings.Contains(r.SampleName, q) || strings.Contains(r.CommonName, q) {
			if !got[r.SampleName] {
				t.Errorf("record %q contains %q but is not a candidate", r.SampleName, q)
			}
		}
	}
}

func TestMatch_NoCandidates(t *testing.T) {
	m := New(testDataset(t))
	for _, q := range []string{"不存在食物", "", "   "} {
		if got := m.Match(q); len(got) != 0 {
			t.Errorf("Match(%q) = %q; want none", q, got)
		}
	}
}

func TestMatchAll(t *testing.T) {
	m := New(testDataset(t))
	got := m.MatchAll([]intake.Entry{{Name: "地瓜", Grams: 150}, {Name: "不存在食物", Grams: 100}})
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if got[0].Entry.Grams != 150 || !reflect.DeepEqual(got[0].Samples, []string{"地瓜"}) {
		t.Errorf("first = %+v", got[0])
	}
	if len(got[1].Samples) != 0 {
		t.Errorf("second = %+v; want no candidates", got[1])
	}
}

func TestMatch_IgnoresWidth(t *testing.T) {
	ds, err := dataset.Build([]*dataset.Table{{
		Tag:    "t",
		Header: []string{dataset.ColSampleName, dataset.ColCommonName, "熱量"},
		Rows: [][]string{
			{"豆腐（板豆腐）", "", "88"},
			{"ＢＢ蛋糕", "", "350"},
			{"Cola 330ml", "", "42"},
		},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := New(ds)

	tests := []struct {
		line string
		want []string
	}{
		{"豆腐（板 100g", []string{"豆腐（板豆腐）"}},
		{"豆腐(板豆腐) 100g", []string{"豆腐（板豆腐）"}},
		{"ＢＢ蛋糕 50g", []string{"ＢＢ蛋糕"}},
		{"bb蛋糕 50g", []string{"ＢＢ蛋糕"}},
		{"ＣＯＬＡ 330g", []string{"Cola 330ml"}},
	}
	for _, tc := range tests {
		res := intake.Parse(tc.line)
		if len(res.Entries) != 1 {
			t.Fatalf("Parse(%q) = %+v; want one entry", tc.line, res.Entries)
		}
		if got := m.Match(res.Entries[0].Name); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Match(%q) = %q; want %q", res.Entries[0].Name, got, tc.want)
		}
	}
}

func TestMatch_SkipsRecordsWithoutSampleName(t *testing.T) {
	ds, err := dataset.Build([]*dataset.Table{
		{
			Tag:    "main",
			Header: []string{dataset.ColSampleName, dataset.ColCommonName, "熱量"},
			Rows:   [][]string{{"地瓜", "番薯", "120"}},
		},
		{
			Tag:    "common-only",
			Header: []string{dataset.ColCommonName, "熱量"},
			Rows:   [][]string{{"芭樂", "38"}, {"紅番薯", "130"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := New(ds)

	if got := m.Match("芭樂"); len(got) != 0 {
		t.Errorf("Match(芭樂) = %q; want none", got)
	}
	if got := m.Match("番薯"); !reflect.DeepEqual(got, []string{"地瓜"}) {
		t.Errorf("Match(番薯) = %q; want [地瓜]", got)
	}
}
