package layering

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrEmptySource is returned for sources without a name.
	ErrEmptySource = errors.New("layering: source name must not be empty")
	// ErrDuplicateSource is returned when two sources share a name.
	ErrDuplicateSource = errors.New("layering: duplicate source")
	// ErrDuplicatePriority is returned when two sources share a priority.
	ErrDuplicatePriority = errors.New("layering: duplicate priority")
)

// Source names a snapshot within a layering chain. Higher priorities
// override lower ones.
type Source struct {
	Name     string
	Priority int
}

func (s Source) String() string {
	return fmt.Sprintf("%s(%d)", s.Name, s.Priority)
}

// Chain is a validated layering order from strongest to weakest.
type Chain struct {
	ordered []Source
}

// NewChain validates sources and orders them strongest first. Names must be
// unique and priorities strictly ordered so the merge result never depends
// on argument order.
func NewChain(sources ...Source) (Chain, error) {
	names := map[string]struct{}{}
	priorities := map[int]string{}
	ordered := make([]Source, 0, len(sources))

	for _, source := range sources {
		source.Name = strings.TrimSpace(source.Name)
		if source.Name == "" {
			return Chain{}, ErrEmptySource
		}
		if _, exists := names[source.Name]; exists {
			return Chain{}, fmt.Errorf("%w: %q", ErrDuplicateSource, source.Name)
		}
		if other, exists := priorities[source.Priority]; exists {
			return Chain{}, fmt.Errorf("%w: %q and %q both use %d", ErrDuplicatePriority, other, source.Name, source.Priority)
		}
		names[source.Name] = struct{}{}
		priorities[source.Priority] = source.Name
		ordered = append(ordered, source)
	}

	slices.SortFunc(ordered, func(a, b Source) int {
		return b.Priority - a.Priority
	})
	return Chain{ordered: ordered}, nil
}

// Ordered returns the layering sequence from strongest (index 0) to weakest.
func (c Chain) Ordered() []Source {
	return slices.Clone(c.ordered)
}

// Strongest returns the first source in the chain (zero source if empty).
func (c Chain) Strongest() Source {
	if len(c.ordered) == 0 {
		return Source{}
	}
	return c.ordered[0]
}

// Weakest returns the final source in the chain (zero source if empty).
func (c Chain) Weakest() Source {
	if len(c.ordered) == 0 {
		return Source{}
	}
	return c.ordered[len(c.ordered)-1]
}
