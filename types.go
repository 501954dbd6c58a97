package boardlist

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-boardlist/pkg/indicator"
)

// Identifier is the stable id of a query resource.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// QueryEntity is the resolved query behind a board list.
type QueryEntity struct {
	ID        Identifier `json:"id"`
	Name      string     `json:"name"`
	Columns   []string   `json:"columns,omitempty"`
	Revision  string     `json:"revision,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of q.
func (q *QueryEntity) Clone() *QueryEntity {
	if q == nil {
		return nil
	}
	clone := *q
	clone.Columns = slices.Clone(q.Columns)
	return &clone
}

// Projection selects what a fetch returns.
type Projection struct {
	Columns         []string `json:"columns,omitempty"`
	ShowHierarchies bool     `json:"show_hierarchies,omitempty"`
	PageSize        int      `json:"page_size,omitempty"`
}

// DefaultProjection is the projection used for board lists: id and subject
// columns, no hierarchies, 500 rows per page.
func DefaultProjection() Projection {
	return Projection{
		Columns:         []string{"id", "subject"},
		ShowHierarchies: false,
		PageSize:        500,
	}
}

// Clone returns a copy of p with detached columns.
func (p Projection) Clone() Projection {
	p.Columns = slices.Clone(p.Columns)
	return p
}

// Validate reports projection misconfiguration.
func (p Projection) Validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("boardlist: projection requires at least one column")
	}
	for _, column := range p.Columns {
		if strings.TrimSpace(column) == "" {
			return fmt.Errorf("boardlist: projection columns must not be blank")
		}
	}
	if p.PageSize <= 0 {
		return fmt.Errorf("boardlist: projection page size must be positive, got %d", p.PageSize)
	}
	return nil
}

// QueryPatch carries the fields changed by a partial update.
type QueryPatch struct {
	Name *string `json:"name,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p QueryPatch) Empty() bool {
	return p.Name == nil
}

// Apply writes the patch onto q.
func (p QueryPatch) Apply(q *QueryEntity) {
	if q == nil {
		return
	}
	if p.Name != nil {
		q.Name = *p.Name
	}
}

// Input is what a List is bound to: a materialized query or a bare id.
type Input struct {
	Query *QueryEntity
	ID    Identifier
}

// FromQuery binds a list to an already resolved query.
func FromQuery(q *QueryEntity) Input {
	return Input{Query: q}
}

// FromID binds a list to a query that must be fetched.
func FromID(id Identifier) Input {
	return Input{ID: id}
}

// Validate ensures exactly one of Query and ID is set.
func (in Input) Validate() error {
	hasQuery := in.Query != nil
	hasID := strings.TrimSpace(string(in.ID)) != ""
	switch {
	case hasQuery && hasID:
		return fmt.Errorf("%w: both query and id set", ErrInvalidInput)
	case !hasQuery && !hasID:
		return fmt.Errorf("%w: neither query nor id set", ErrInvalidInput)
	case hasQuery && strings.TrimSpace(string(in.Query.ID)) == "":
		return fmt.Errorf("%w: query has no id", ErrInvalidInput)
	}
	return nil
}

// DataMapper loads and patches query resources.
type DataMapper interface {
	Stream(ctx context.Context, projection Projection, id Identifier) (*QueryEntity, error)
	Patch(ctx context.Context, id Identifier, patch QueryPatch) error
}

// IndicatorService hands out loading indicators for a render target.
type IndicatorService interface {
	Indicator(target string) indicator.Handle
}

// TableConfiguration is handed to the table renderer of a board list.
type TableConfiguration struct {
	HierarchyToggleEnabled bool `json:"hierarchy_toggle_enabled"`
	ColumnMenuEnabled      bool `json:"column_menu_enabled"`
	ActionsColumnEnabled   bool `json:"actions_column_enabled"`
	DragAndDropEnabled     bool `json:"drag_and_drop_enabled"`
	IsEmbedded             bool `json:"is_embedded"`
	IsCardView             bool `json:"is_card_view"`
}

// BoardTableConfiguration is the embedded table setup used by board lists.
func BoardTableConfiguration() TableConfiguration {
	return TableConfiguration{
		DragAndDropEnabled: true,
		IsEmbedded:         true,
	}
}
