package datastore

import (
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/utils"
)

type reducerKind int8

const (
	reduceNone reducerKind = iota
	reduceStats
	reduceLatest
)

// view is a materialized index over one document kind. Exactly one of
// mapRecord and mapEntity is set.
type view struct {
	name      string
	reducer   reducerKind
	mapRecord func(s *Store, r *DataRecord) []aggregation.Row
	mapEntity func(e *Entity) []aggregation.Row
}

var views = buildViews()

func buildViews() map[string]view {
	out := map[string]view{
		aggregation.ViewByValues:          {name: aggregation.ViewByValues, reducer: reduceStats, mapRecord: mapByValues},
		aggregation.ViewByFormCodeTime:    {name: aggregation.ViewByFormCodeTime, mapRecord: mapByFormCodeTime},
		aggregation.ViewByAggregationPath: {name: aggregation.ViewByAggregationPath, reducer: reduceStats, mapRecord: mapByAggregationPath},
		aggregation.ViewByLocation:        {name: aggregation.ViewByLocation, mapEntity: mapByLocation},
		aggregation.ViewEntityLatest:      {name: aggregation.ViewEntityLatest, reducer: reduceLatest, mapRecord: mapEntityLatest},
	}
	// each period view reads the period at the same position of PeriodsOf
	for i, p := range aggregation.PeriodsOf(time.Unix(0, 0).UTC()) {
		out[p.StatsView()] = view{
			name:    p.StatsView(),
			reducer: reduceStats,
			mapRecord: func(s *Store, r *DataRecord) []aggregation.Row {
				return mapPeriodStats(s.periodOf(r, i), r)
			},
		}
		out[p.LatestView()] = view{
			name:    p.LatestView(),
			reducer: reduceLatest,
			mapRecord: func(s *Store, r *DataRecord) []aggregation.Row {
				return mapPeriodLatest(s.periodOf(r, i), r)
			},
		}
	}
	return out
}

// ViewNames lists every view the store maintains, sorted.
func ViewNames() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// periodOf returns the i-th period of aggregation.PeriodsOf for the record's
// event time in the store timezone.
func (s *Store) periodOf(r *DataRecord, i int) aggregation.Period {
	return aggregation.PeriodsOf(r.EventTime.In(s.location))[i]
}

// sortedFields iterates data fields in a stable order so emitted rows are
// deterministic.
func sortedFields(data map[string]any) []string {
	fields := make([]string, 0, len(data))
	for f := range data {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func mapByValues(_ *Store, r *DataRecord) []aggregation.Row {
	ts := aggregation.EventTimeKey(r.EventTime)
	var rows []aggregation.Row
	for _, field := range sortedFields(r.Data) {
		v, ok := utils.ToFloat64(r.Data[field])
		if !ok {
			continue
		}
		rows = append(rows, aggregation.Row{
			Key:   aggregation.Key{r.EntityType, r.EntityID, field, r.FormCode, ts},
			Value: v,
		})
	}
	return rows
}

func mapByFormCodeTime(_ *Store, r *DataRecord) []aggregation.Row {
	ts := aggregation.EventTimeKey(r.EventTime)
	rows := make([]aggregation.Row, 0, len(r.Data))
	for _, field := range sortedFields(r.Data) {
		rows = append(rows, aggregation.Row{
			Key:   aggregation.Key{r.FormCode, ts, r.EntityID, field},
			Value: r.Data[field],
		})
	}
	return rows
}

func mapByAggregationPath(_ *Store, r *DataRecord) []aggregation.Row {
	ts := aggregation.EventTimeKey(r.EventTime)
	names := make([]string, 0, len(r.AggregationPaths))
	for name := range r.AggregationPaths {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []aggregation.Row
	for _, field := range sortedFields(r.Data) {
		v, ok := utils.ToFloat64(r.Data[field])
		if !ok {
			continue
		}
		for _, name := range names {
			key := aggregation.Key{r.EntityType, name, field}
			for _, p := range r.AggregationPaths[name] {
				key = append(key, p)
			}
			rows = append(rows, aggregation.Row{Key: key.Append(ts, r.FormCode), Value: v})
		}
	}
	return rows
}

func periodKey(p aggregation.Period, r *DataRecord, field string) aggregation.Key {
	return p.KeyPrefix().Append(r.FormCode, r.EntityType, r.ShortCode, field)
}

func mapPeriodStats(p aggregation.Period, r *DataRecord) []aggregation.Row {
	var rows []aggregation.Row
	for _, field := range sortedFields(r.Data) {
		v, ok := utils.ToFloat64(r.Data[field])
		if !ok {
			continue
		}
		rows = append(rows, aggregation.Row{Key: periodKey(p, r, field), Value: v})
	}
	return rows
}

func mapPeriodLatest(p aggregation.Period, r *DataRecord) []aggregation.Row {
	rows := make([]aggregation.Row, 0, len(r.Data))
	for _, field := range sortedFields(r.Data) {
		rows = append(rows, aggregation.Row{Key: periodKey(p, r, field), Value: latestValue(r, field)})
	}
	return rows
}

func latestValue(r *DataRecord, field string) map[string]any {
	return map[string]any{"value": r.Data[field], aggregation.StatTimestamp: aggregation.EventTimeKey(r.EventTime)}
}

func mapEntityLatest(_ *Store, r *DataRecord) []aggregation.Row {
	rows := make([]aggregation.Row, 0, len(r.Data))
	for _, field := range sortedFields(r.Data) {
		rows = append(rows, aggregation.Row{
			Key:   aggregation.Key{r.EntityType, r.ShortCode, field},
			Value: latestValue(r, field),
		})
	}
	return rows
}

func mapByLocation(e *Entity) []aggregation.Row {
	if len(e.Location) == 0 {
		return nil
	}
	key := aggregation.Key{e.Type}
	for _, l := range e.Location {
		key = append(key, l)
	}
	return []aggregation.Row{{
		Key:   key,
		Value: map[string]any{"id": e.ID, "short_code": e.ShortCode},
	}}
}

// writeRecordRows sets (or, with remove, deletes) every view row of r.
func (s *Store) writeRecordRows(txn *badger.Txn, r *DataRecord, remove bool) error {
	docID := r.ID.String()
	for _, v := range views {
		if v.mapRecord == nil {
			continue
		}
		if err := writeRows(txn, v.name, v.mapRecord(s, r), docID, remove); err != nil {
			return err
		}
	}
	return nil
}

// writeEntityRows sets (or, with remove, deletes) every view row of e.
func writeEntityRows(txn *badger.Txn, e *Entity, remove bool) error {
	for _, v := range views {
		if v.mapEntity == nil {
			continue
		}
		if err := writeRows(txn, v.name, v.mapEntity(e), e.ID, remove); err != nil {
			return err
		}
	}
	return nil
}

func writeRows(txn *badger.Txn, viewName string, rows []aggregation.Row, docID string, remove bool) error {
	for _, row := range rows {
		key, err := encodeViewKey(viewName, row.Key, docID)
		if err != nil {
			return err
		}
		if remove {
			if err := txn.Delete(key); err != nil {
				return err
			}
			continue
		}
		value, err := encodeValue(row.Value)
		if err != nil {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}
