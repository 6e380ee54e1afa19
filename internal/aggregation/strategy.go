package aggregation

import "fmt"

// planLive selects the view and key range for a live aggregation over the
// raw views. formCode is empty unless the request is scoped to one form; a
// scoped request reads the same range and the adapter keeps only rows of
// that form.
//
// Live plans never set Reduce: GroupLevel records the grouping depth of the
// plan, but rows come back unreduced and are grouped by the adapter.
func (e *Engine) planLive(entityType, formCode string, axis Axis, req Request) (plan, error) {
	window := newTimeWindow(req.StartTime, req.EndTime)

	switch a := axis.(type) {
	case nil, EntityAxis:
		l := e.layout.ByValues
		level := l.Field + 1
		if formCode != "" {
			level = l.FormCode + 1
		}
		return plan{
			view: l.View,
			query: ViewQuery{
				StartKey:   Key{entityType},
				EndKey:     Key{entityType, MaxKey},
				GroupLevel: level,
			},
			shape:  ShapeByValues,
			window: window,
		}, nil

	case LocationAxis, HierarchyAxis:
		aggregationType, level, _ := pathAxis(a)
		l := e.layout.ByAggregationPath
		start := Key{entityType, aggregationType}
		return plan{
			view: l.View,
			query: ViewQuery{
				StartKey:   start,
				EndKey:     start.Append(MaxKey),
				GroupLevel: l.PathStart + level,
			},
			shape:  ShapeByAggregationPath,
			level:  level,
			window: window,
		}, nil

	case FormCodeTimeAxis:
		return plan{}, fmt.Errorf("%w: %s requires a form code time filter", ErrUnsupportedAxis, a)

	default:
		return plan{}, fmt.Errorf("%w: %T", ErrUnsupportedAxis, axis)
	}
}

// planFormCodeTime selects the by_form_code_time range for one form. The
// time bounds become key bounds so the scan returns only matching rows.
func (e *Engine) planFormCodeTime(formCode string, req Request) plan {
	l := e.layout.ByFormCodeTime
	start := Key{formCode}
	if req.StartTime != nil {
		start = start.Append(EventTimeKey(*req.StartTime))
	}
	end := Key{formCode, MaxKey}
	if req.EndTime != nil {
		end = Key{formCode, EventTimeKey(*req.EndTime), MaxKey}
	}
	return plan{
		view: l.View,
		query: ViewQuery{
			StartKey:   start,
			EndKey:     end,
			GroupLevel: l.Field + 1,
		},
		shape: ShapeByFormCodeTime,
	}
}

// planPeriod selects the exact-group range of a period view for one form.
func planPeriod(view string, period Period, form FormInfo) plan {
	start := period.KeyPrefix().Append(form.FormCode, form.EntityType)
	return plan{
		view: view,
		query: ViewQuery{
			StartKey: start,
			EndKey:   start.Append(MaxKey),
			Group:    true,
			Reduce:   true,
		},
		shape: ShapePeriod,
	}
}
