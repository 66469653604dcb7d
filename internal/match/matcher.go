// Package match finds dataset samples whose names contain a query.
package match

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"

	"github.com/korjavin/dricalc/internal/dataset"
	"github.com/korjavin/dricalc/internal/intake"
)

// Matcher does substring matching against the sample name and common name of
// every record, ignoring case and character width. Records without a sample
// name are never candidates since nothing can look them up. It does no
// ranking; ties are left for the caller to resolve.
type Matcher struct {
	samples []string
	folded  []foldedNames
}

type foldedNames struct {
	sample string
	common string
}

// Candidates pairs an entry with the sample names that match it.
type Candidates struct {
	Entry   intake.Entry `json:"entry"`
	Samples []string     `json:"candidates"`
}

// New builds a Matcher over ds. The dataset is read once; the Matcher keeps
// its own folded copies of the key fields.
func New(ds *dataset.Dataset) *Matcher {
	recs := ds.Records()
	m := &Matcher{
		samples: make([]string, 0, len(recs)),
		folded:  make([]foldedNames, 0, len(recs)),
	}
	for _, r := range recs {
		if r.SampleName == "" {
			continue
		}
		m.samples = append(m.samples, r.SampleName)
		m.folded = append(m.folded, foldedNames{sample: fold(r.SampleName), common: fold(r.CommonName)})
	}
	return m
}

// fold maps full-width forms to their narrow counterparts, then folds case.
func fold(s string) string {
	return cases.Fold().String(width.Fold.String(s))
}

// Match returns the unique sample names, in record order, whose sample or
// common name contains name ignoring case and width.
func (m *Matcher) Match(name string) []string {
	q := fold(strings.TrimSpace(name))
	if q == "" {
		return nil
	}
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	for i, f := range m.folded {
		if !strings.Contains(f.sample, q) && !strings.Contains(f.common, q) {
			continue
		}
		s := m.samples[i]
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// MatchAll matches every entry independently, keeping entry order.
func (m *Matcher) MatchAll(entries []intake.Entry) []Candidates {
	out := make([]Candidates, len(entries))
	for i, e := range entries {
		out[i] = Candidates{Entry: e, Samples: m.Match(e.Name)}
	}
	return out
}
