package aggregation

import (
	"context"
	"sort"
	"time"
)

// GroupedValues maps a group key and field to the values recorded for it,
// oldest first.
type GroupedValues map[GroupKey]map[string][]any

// timeWindow bounds event times in milliseconds, both ends inclusive.
type timeWindow struct {
	start, end       float64
	hasStart, hasEnd bool
}

func newTimeWindow(start, end *time.Time) timeWindow {
	var w timeWindow
	if start != nil {
		w.start, w.hasStart = EventTimeKey(*start), true
	}
	if end != nil {
		w.end, w.hasEnd = EventTimeKey(*end), true
	}
	return w
}

func (w timeWindow) contains(r decodedRow) bool {
	if !r.timed {
		return !w.hasStart && !w.hasEnd
	}
	if w.hasStart && r.eventTime < w.start {
		return false
	}
	if w.hasEnd && r.eventTime > w.end {
		return false
	}
	return true
}

// plan is the output of the strategy selector: which rows to fetch and how
// to read them.
type plan struct {
	view   string
	query  ViewQuery
	shape  RowKeyShape
	level  int
	window timeWindow
}

type timedValue struct {
	at    float64
	value any
}

// loadGrouped fetches the rows of p and groups the admitted ones. Values of
// every group are stable sorted by event time when the shape carries one.
func (e *Engine) loadGrouped(ctx context.Context, p plan, aggregates Aggregates, in interest) (GroupedValues, error) {
	rows, err := e.source.LoadAllRowsInView(ctx, p.view, p.query)
	if err != nil {
		return nil, err
	}
	decode, err := e.layout.decoder(p.shape, p.level)
	if err != nil {
		return nil, err
	}

	decoded := make([]decodedRow, 0, len(rows))
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		d, ok, err := decode(row.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		decoded = append(decoded, d)
		values = append(values, row.Value)
	}
	in = in.resolveForms(decoded)

	buckets := make(map[GroupKey]map[string][]timedValue)
	for i, d := range decoded {
		if !p.window.contains(d) {
			continue
		}
		if !in.admits(d) {
			continue
		}
		if _, ok := aggregates.KindFor(d.field); !ok {
			continue
		}
		fields, ok := buckets[d.group]
		if !ok {
			fields = make(map[string][]timedValue)
			buckets[d.group] = fields
		}
		fields[d.field] = append(fields[d.field], timedValue{at: d.eventTime, value: values[i]})
	}

	e.logger.Debug("Grouped view rows",
		"view", p.view,
		"rows", len(rows),
		"groups", len(buckets))

	return flatten(buckets, p.shape), nil
}

func flatten(buckets map[GroupKey]map[string][]timedValue, shape RowKeyShape) GroupedValues {
	out := make(GroupedValues, len(buckets))
	for key, fields := range buckets {
		grouped := make(map[string][]any, len(fields))
		for field, values := range fields {
			if shapeHasEventTime(shape) {
				sort.SliceStable(values, func(i, j int) bool { return values[i].at < values[j].at })
			}
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v.value
			}
			grouped[field] = list
		}
		out[key] = grouped
	}
	return out
}

func shapeHasEventTime(shape RowKeyShape) bool {
	switch shape {
	case ShapeByValues, ShapeByFormCodeTime, ShapeByAggregationPath:
		return true
	}
	return false
}
