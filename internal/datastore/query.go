package datastore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/utils"
)

// ctxCheckInterval is how many rows are scanned between context checks.
const ctxCheckInterval = 1024

// LoadAllRowsInView returns the rows of a view between q.StartKey and
// q.EndKey, both inclusive, in key order. Rows with equal keys come in the
// order their documents were written. With q.Reduce set the rows are grouped
// and replaced by the view's reduced value.
func (s *Store) LoadAllRowsInView(ctx context.Context, viewName string, q aggregation.ViewQuery) ([]aggregation.Row, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	v, ok := views[viewName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, viewName)
	}
	if q.Reduce && v.reducer == reduceNone {
		return nil, fmt.Errorf("%w: %s", ErrNoReducer, viewName)
	}

	prefix := viewPrefix(viewName)
	seek := prefix
	if q.StartKey != nil {
		var err error
		if seek, err = encodeTuple(append([]byte(nil), prefix...), q.StartKey); err != nil {
			return nil, err
		}
	}
	var end []byte
	if q.EndKey != nil {
		var err error
		if end, err = encodeTuple(nil, q.EndKey); err != nil {
			return nil, err
		}
	}

	var rows []aggregation.Row
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		scanned := 0
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			scanned++
			if scanned%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			item := it.Item()
			storageKey := item.KeyCopy(nil)
			key, rest, err := decodeTuple(storageKey[len(prefix):])
			if err != nil {
				return err
			}
			if end != nil {
				// tuple bytes exclude the terminator and the document id
				tuple := storageKey[len(prefix) : len(storageKey)-len(rest)-1]
				if bytes.Compare(tuple, end) > 0 {
					break
				}
			}

			var value any
			if err := item.Value(func(val []byte) error {
				var err error
				value, err = decodeValue(val)
				return err
			}); err != nil {
				return err
			}
			rows = append(rows, aggregation.Row{Key: key, Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !q.Reduce {
		return rows, nil
	}
	return reduceRows(rows, v.reducer, q)
}

// groupKeyOf returns the part of key rows are grouped on.
func groupKeyOf(key aggregation.Key, q aggregation.ViewQuery) aggregation.Key {
	if q.Group {
		return key
	}
	if q.GroupLevel <= 0 {
		return nil
	}
	if q.GroupLevel >= len(key) {
		return key
	}
	return key[:q.GroupLevel]
}

// reduceRows folds runs of rows sharing a group key. Rows arrive sorted, so
// every group is contiguous.
func reduceRows(rows []aggregation.Row, kind reducerKind, q aggregation.ViewQuery) ([]aggregation.Row, error) {
	var out []aggregation.Row
	var current aggregation.Key
	var stats *aggregation.FieldStats
	var latest *aggregation.LatestValue

	flush := func() {
		switch {
		case stats != nil:
			out = append(out, aggregation.Row{Key: current, Value: stats.Map()})
		case latest != nil:
			out = append(out, aggregation.Row{Key: current, Value: latest.Map()})
		}
		stats, latest = nil, nil
	}

	for i, row := range rows {
		gk := groupKeyOf(row.Key, q)
		if i > 0 && aggregation.CompareKeys(gk, current) != 0 {
			flush()
		}
		current = gk

		switch kind {
		case reduceStats:
			f, ok := utils.ToFloat64(row.Value)
			if !ok {
				return nil, fmt.Errorf("datastore: non-numeric value %T in stats view", row.Value)
			}
			if stats == nil {
				stats = aggregation.NewFieldStats(f)
			} else {
				stats.AddValue(f)
			}
		case reduceLatest:
			m, ok := row.Value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("datastore: latest view value is %T", row.Value)
			}
			ts, _ := utils.ToFloat64(m[aggregation.StatTimestamp])
			if latest == nil {
				latest = &aggregation.LatestValue{Value: m["value"], Timestamp: ts}
			} else {
				latest.Observe(m["value"], ts)
			}
		}
	}
	flush()
	return out, nil
}
