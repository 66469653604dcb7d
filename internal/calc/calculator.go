// Package calc resolves intake entries to samples and scales their
// nutrient values by weight.
package calc

import (
	"github.com/korjavin/dricalc/internal/dataset"
	"github.com/korjavin/dricalc/internal/intake"
	"github.com/korjavin/dricalc/internal/match"
)

// Calculator runs the two request/response phases over one dataset. It holds
// no per-query state and is safe for concurrent use.
type Calculator struct {
	ds *dataset.Dataset
	m  *match.Matcher
}

// Prepared is the outcome of the first phase.
type Prepared struct {
	Entries []match.Candidates
	// Dropped counts input lines that did not parse.
	Dropped int
}

// New returns a Calculator over ds.
func New(ds *dataset.Dataset) *Calculator {
	return &Calculator{ds: ds, m: match.New(ds)}
}

// Dataset returns the underlying dataset.
func (c *Calculator) Dataset() *dataset.Dataset { return c.ds }

// Nutrients lists the columns that can be requested.
func (c *Calculator) Nutrients() []string { return c.ds.NutrientColumns() }

// Prepare parses text and finds candidates for every entry.
func (c *Calculator) Prepare(text string) (*Prepared, error) {
	res := intake.Parse(text)
	if len(res.Entries) == 0 {
		return nil, intake.ErrNoEntries
	}
	return &Prepared{Entries: c.m.MatchAll(res.Entries), Dropped: res.Dropped}, nil
}

// Calculate is the second phase. It re-derives the candidates from text,
// applies choices (one per entry, by index), scales the requested nutrients
// and assembles the result table.
func (c *Calculator) Calculate(text string, choices, nutrients []string) (*Table, error) {
	p, err := c.Prepare(text)
	if err != nil {
		return nil, err
	}
	sels, err := Resolve(p.Entries, choices)
	if err != nil {
		return nil, err
	}
	return c.Compute(sels, nutrients)
}

// Compute scales already-resolved selections and assembles the table.
func (c *Calculator) Compute(sels []Selection, nutrients []string) (*Table, error) {
	rows, total, err := Scale(c.ds, sels, nutrients)
	if err != nil {
		return nil, err
	}
	return Assemble(nutrients, rows, total)
}
