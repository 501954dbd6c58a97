package datamapper

import (
	"errors"
	"fmt"
	"strings"

	boardlist "github.com/goliatone/go-boardlist"
)

var (
	// ErrNotFound is returned for ids the mapper does not hold.
	ErrNotFound = errors.New("datamapper: query not found")
	// ErrEmptyPatch is returned for patches that change nothing.
	ErrEmptyPatch = errors.New("datamapper: patch changes nothing")
)

func notFound(id boardlist.Identifier) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

func validateID(id boardlist.Identifier) error {
	if strings.TrimSpace(id.String()) == "" {
		return fmt.Errorf("datamapper: query id must not be empty")
	}
	return nil
}

// project returns a copy of q carrying the projection's columns.
func project(q boardlist.QueryEntity, projection boardlist.Projection) *boardlist.QueryEntity {
	out := q.Clone()
	out.Columns = projection.Clone().Columns
	return out
}
