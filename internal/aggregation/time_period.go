package aggregation

import (
	"context"
	"fmt"
)

// AggregateForTimePeriod reads pre-reduced per-period rows of one form and
// keys the result by entity short code. Latest kinds are served from the
// period's latest view and every other kind from its stats view; an entity
// present in either view appears in the result.
func (e *Engine) AggregateForTimePeriod(ctx context.Context, formCode string, period Period, req Request) (Result, error) {
	if formCode == "" {
		return nil, ErrFormCodeRequired
	}
	if period == nil {
		return nil, fmt.Errorf("%w: no period given", ErrInvalidPeriod)
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	switch req.On.(type) {
	case nil, EntityAxis:
	default:
		return nil, fmt.Errorf("%w: %s over a time period", ErrUnsupportedAxis, req.On)
	}
	if err := e.validateAggregates(req.Aggregates); err != nil {
		return nil, err
	}

	form, err := e.forms.LookupForm(ctx, formCode)
	if err != nil {
		return nil, err
	}
	in, err := e.shortCodesAt(ctx, form.EntityType, req.Filter)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Aggregating time period",
		"form_code", form.FormCode,
		"period", period.String())

	result, err := e.periodResult(ctx, planPeriod(period.StatsView(), period, form), req.Aggregates, in, false)
	if err != nil {
		return nil, err
	}

	if req.Aggregates.HasKind(KindLatest) {
		latest, err := e.periodResult(ctx, planPeriod(period.LatestView(), period, form), req.Aggregates, in, true)
		if err != nil {
			return nil, err
		}
		result = mergeLatest(latest, result)
	}

	if req.IncludeGrandTotals {
		addGrandTotals(result)
	}
	return result, nil
}

// periodResult picks the requested statistic out of each reduced row. The
// latest view serves Latest kinds only and the stats view everything else.
func (e *Engine) periodResult(ctx context.Context, p plan, aggregates Aggregates, in interest, latestView bool) (Result, error) {
	rows, err := e.source.LoadAllRowsInView(ctx, p.view, p.query)
	if err != nil {
		return nil, err
	}

	result := make(Result)
	for _, row := range rows {
		d, _, err := e.layout.decodePeriod(row.Key)
		if err != nil {
			return nil, err
		}
		if !in.admits(d) {
			continue
		}
		kind, ok := aggregates.KindFor(d.field)
		if !ok {
			continue
		}
		if (kind == KindLatest) != latestView {
			continue
		}
		stats, ok := row.Value.(map[string]any)
		if !ok {
			return nil, notSupported(d.field, kind, fmt.Errorf("%s row value is %T", p.view, row.Value))
		}
		v, ok := stats[statFor(kind)]
		if !ok {
			return nil, notSupported(d.field, kind, nil)
		}
		result.set(d.group, d.field, v)
	}
	return result, nil
}

// mergeLatest uses latest as the base and lets stats overwrite or extend it
// per entity.
func mergeLatest(latest, stats Result) Result {
	merged := make(Result, len(latest)+len(stats))
	for key, row := range latest {
		for field, v := range row {
			merged.set(key, field, v)
		}
	}
	for key, row := range stats {
		for field, v := range row {
			merged.set(key, field, v)
		}
	}
	return merged
}
