package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKeyColumn means no source carries a required key column, so
	// no lookup by name is possible.
	ErrMissingKeyColumn = errors.New("required key column missing from every source")
	// ErrNoSources means the loader was given nothing to read.
	ErrNoSources = errors.New("no dataset sources configured")
)

// ShapeError reports a record whose cell count disagrees with the column set.
type ShapeError struct {
	Row       int
	Got, Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("record %d has %d cells, want %d", e.Row, e.Got, e.Want)
}
