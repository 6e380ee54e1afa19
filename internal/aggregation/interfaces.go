package aggregation

import "context"

// Row is one emitted index row. Value is a scalar for raw views and a
// map[string]any of named statistics for reduced views.
type Row struct {
	Key   Key `json:"key"`
	Value any `json:"value"`
}

// ViewQuery selects rows from a view. StartKey and EndKey are inclusive; a nil
// bound leaves that side open. When Reduce is set, rows are grouped by their
// first GroupLevel key elements (or by the full key when Group is set) and
// replaced by the view's reduced value. Without Reduce, GroupLevel and Group
// are ignored.
type ViewQuery struct {
	StartKey   Key
	EndKey     Key
	GroupLevel int
	Group      bool
	Reduce     bool
}

// RowSource is the only I/O boundary of the engine.
//
// Implementations must return rows in ascending key order. Within one key,
// rows must be returned in the order they were recorded.
type RowSource interface {
	LoadAllRowsInView(ctx context.Context, view string, q ViewQuery) ([]Row, error)
}

// FormInfo is the part of a form model the engine needs.
type FormInfo struct {
	FormCode   string
	EntityType string
}

// FormLookup resolves a form code to its owning entity type.
type FormLookup interface {
	LookupForm(ctx context.Context, formCode string) (FormInfo, error)
}

// LocationFilter restricts results to a location path, e.g. ["India", "MH"].
type LocationFilter struct {
	Location []string `json:"location"`
}
