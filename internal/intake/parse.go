// Package intake turns free-form "name + grams" text into entries.
package intake

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// ErrNoEntries means no line of the input could be parsed. The caller should
// ask for corrected input.
var ErrNoEntries = errors.New("no valid entries, expected lines like: 地瓜 150g")

// lineRe is anchored at the start only: text after the gram suffix is
// ignored. The name is the shortest prefix that lets the rest match.
var lineRe = regexp.MustCompile(`^(.+?)\s*(\d+(?:\.\d+)?)\s*g`)

// Entry is one intake line.
type Entry struct {
	Name  string  `json:"name"`
	Grams float64 `json:"grams"`
}

// Result holds parsed entries in input order. Dropped counts non-blank lines
// that did not parse; it is informational only.
type Result struct {
	Entries []Entry
	Dropped int
}

// Parse splits text into lines and parses each one. Lines that do not match
// are skipped silently. Parse never fails; an empty Entries is for the
// caller to handle.
func Parse(text string) Result {
	var res Result
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(width.Narrow.String(line))
		if line == "" {
			continue
		}
		e, ok := ParseLine(line)
		if !ok {
			res.Dropped++
			continue
		}
		res.Entries = append(res.Entries, e)
	}
	return res
}

// ParseLine parses a single trimmed line.
func ParseLine(line string) (Entry, bool) {
	m := lineRe.FindStringSubmatchIndex(line)
	if m == nil {
		return Entry{}, false
	}
	name := strings.TrimSpace(line[m[2]:m[3]])
	if name == "" || splitsNumber(line, m[3]) {
		return Entry{}, false
	}
	grams, err := strconv.ParseFloat(line[m[4]:m[5]], 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Name: name, Grams: grams}, true
}

// splitsNumber reports whether the name ends inside the quantity, as in
// "150g" where the shortest name would be "1". Such a line has no name.
func splitsNumber(line string, end int) bool {
	if end == 0 || end >= len(line) {
		return false
	}
	last, next := line[end-1], line[end]
	return (isDigit(last) || last == '.') && isDigit(next)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
