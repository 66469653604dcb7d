package store

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// stripCombining is a transform.Transformer that removes Unicode
// combining marks (category M) after NFD decomposition.
type stripCombining struct{ transform.NopResetter }

func (stripCombining) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if unicode.Is(unicode.M, r) {
			nSrc += size
			continue
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		copy(dst[nDst:], src[nSrc:nSrc+size])
		nDst += size
		nSrc += size
	}
	return nDst, nSrc, nil
}

// FoldName normalises a sample name for indexing and querying:
//  1. Full-width forms to their narrow equivalents (Ａ→A, （→()
//  2. Unicode case folding
//  3. NFD decomposition, then strip combining marks
//  4. Replace non-letter/non-digit with space, so "地瓜(生)" indexes as "地瓜 生"
//  5. Collapse runs of spaces, trim
func FoldName(s string) string {
	t := transform.Chain(width.Fold, cases.Fold(), norm.NFD, stripCombining{}, norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = strings.ToLower(s) // fallback: lowercase only
	}

	var sb strings.Builder
	sb.Grow(len(result))
	for _, r := range result {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
