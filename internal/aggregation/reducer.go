package aggregation

import (
	"errors"

	"github.com/mangrove/mangrove/internal/utils"
)

// reduce applies the requested reduce function to every group and field.
// Fields with no requested kind are skipped.
func (e *Engine) reduce(grouped GroupedValues, aggregates Aggregates) (Result, error) {
	result := make(Result, len(grouped))
	for key, fields := range grouped {
		for field, values := range fields {
			kind, ok := aggregates.KindFor(field)
			if !ok {
				continue
			}
			fn, err := e.registry.New(kind, field)
			if err != nil {
				return nil, err
			}
			reduced, err := fn.Reduce(values)
			if err != nil {
				if errors.Is(err, ErrEmptyGroup) {
					return nil, err
				}
				return nil, notSupported(field, kind, err)
			}
			result.set(key, field, reduced)
		}
	}
	return result, nil
}

// addGrandTotals sums every numeric value of every field across the result
// rows into the GrandTotals row. Non-numeric values are left out; a field
// with no numeric value gets no entry.
func addGrandTotals(result Result) {
	sums := make(map[string]float64)
	for key, row := range result {
		if key.IsGrandTotals() {
			continue
		}
		for field, v := range row {
			if f, ok := utils.ToFloat64(v); ok {
				sums[field] += f
			}
		}
	}
	totals := make(map[string]any, len(sums))
	for field, s := range sums {
		totals[field] = s
	}
	result[GrandTotalsKey] = totals
}

// validateAggregates rejects kinds the registry cannot build.
func (e *Engine) validateAggregates(aggregates Aggregates) error {
	for field, kind := range aggregates {
		if _, err := e.registry.New(kind, field); err != nil {
			return err
		}
	}
	return nil
}
