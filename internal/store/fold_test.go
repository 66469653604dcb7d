package store

import "testing"

func TestFoldName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello world"},
		// punctuation around CJK names becomes a separator
		{"地瓜(生)", "地瓜 生"},
		{"雞胸肉，去皮", "雞胸肉 去皮"},
		// full-width Latin and digits
		{"ＡＢＣ１２３", "abc123"},
		{"豆腐（嫩）", "豆腐 嫩"},
		// accents stripped
		{"Crème Brûlée", "creme brulee"},
		{"  lots   of   spaces  ", "lots of spaces"},
		{"Vitamin B12", "vitamin b12"},
		{"", ""},
	}

	for _, tc := range tests {
		got := FoldName(tc.input)
		if got != tc.want {
			t.Errorf("FoldName(%q) = %q; want %q", tc.input, got, tc.want)
		}
	}
}
