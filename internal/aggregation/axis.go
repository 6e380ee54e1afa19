package aggregation

import "fmt"

// GeoAggregationType is the aggregation path name under which entity
// locations are indexed.
const GeoAggregationType = "_geo"

// Axis is the dimension results are grouped along. The set of axes is closed:
// EntityAxis, LocationAxis, HierarchyAxis and FormCodeTimeAxis.
type Axis interface {
	fmt.Stringer
	axis()
}

// EntityAxis groups by entity id.
type EntityAxis struct{}

// LocationAxis groups by the first Level components of entity locations.
type LocationAxis struct {
	Level int
}

// HierarchyAxis groups by the first Level components of the named
// aggregation path.
type HierarchyAxis struct {
	Name  string
	Level int
}

// FormCodeTimeAxis groups submissions of one form inside a time window.
type FormCodeTimeAxis struct{}

func (EntityAxis) axis()       {}
func (LocationAxis) axis()     {}
func (HierarchyAxis) axis()    {}
func (FormCodeTimeAxis) axis() {}

func (EntityAxis) String() string       { return "entity" }
func (a LocationAxis) String() string   { return fmt.Sprintf("location(%d)", a.Level) }
func (a HierarchyAxis) String() string  { return fmt.Sprintf("hierarchy(%s,%d)", a.Name, a.Level) }
func (FormCodeTimeAxis) String() string { return "form_code_time" }

// pathAxis returns the aggregation type and level of a path based axis.
func pathAxis(a Axis) (aggregationType string, level int, ok bool) {
	switch v := a.(type) {
	case LocationAxis:
		return GeoAggregationType, v.Level, true
	case HierarchyAxis:
		return v.Name, v.Level, true
	}
	return "", 0, false
}

func validateAxis(a Axis) error {
	switch v := a.(type) {
	case nil, EntityAxis, FormCodeTimeAxis:
		return nil
	case LocationAxis:
		if v.Level < 1 {
			return fmt.Errorf("%w: location level must be positive, got %d", ErrUnsupportedAxis, v.Level)
		}
		return nil
	case HierarchyAxis:
		if v.Name == "" {
			return fmt.Errorf("%w: hierarchy name is required", ErrUnsupportedAxis)
		}
		if v.Level < 1 {
			return fmt.Errorf("%w: hierarchy level must be positive, got %d", ErrUnsupportedAxis, v.Level)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedAxis, a)
	}
}
