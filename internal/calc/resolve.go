package calc

import (
	"errors"
	"fmt"
	"slices"

	"github.com/korjavin/dricalc/internal/match"
)

var (
	// ErrNoUsableEntries means every entry was left without a sample.
	ErrNoUsableEntries = errors.New("no entry matched a sample, check the selections")
	// ErrSelectionMissing means an entry with candidates got no choice.
	ErrSelectionMissing = errors.New("sample choice missing")
	// ErrUnknownChoice means a choice is not among the entry's candidates.
	ErrUnknownChoice = errors.New("sample choice is not a candidate")
)

// Selection is an entry after disambiguation. An empty Sample means the
// entry had no candidates and is left out of the calculation.
type Selection struct {
	Sample string  `json:"sample"`
	Grams  float64 `json:"grams"`
}

// Resolve applies one external choice per entry, aligned by index. Entries
// without candidates resolve to no sample whatever was chosen; every other
// entry needs a choice from its own candidate list.
func Resolve(cands []match.Candidates, choices []string) ([]Selection, error) {
	out := make([]Selection, len(cands))
	for i, c := range cands {
		out[i].Grams = c.Entry.Grams
		if len(c.Samples) == 0 {
			continue
		}
		var choice string
		if i < len(choices) {
			choice = choices[i]
		}
		if choice == "" {
			return nil, fmt.Errorf("%w for entry %d (%s)", ErrSelectionMissing, i+1, c.Entry.Name)
		}
		if !slices.Contains(c.Samples, choice) {
			return nil, fmt.Errorf("%w for entry %d (%s): %q", ErrUnknownChoice, i+1, c.Entry.Name, choice)
		}
		out[i].Sample = choice
	}
	return out, nil
}
