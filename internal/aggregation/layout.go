package aggregation

import (
	"fmt"
	"time"

	"github.com/mangrove/mangrove/internal/utils"
)

// View names.
const (
	ViewByValues          = "by_values"
	ViewByFormCodeTime    = "by_form_code_time"
	ViewByAggregationPath = "by_aggregation_path"
	ViewByLocation        = "by_location"
	ViewEntityLatest      = "entity_latest"
)

// RowKeyShape tags which index produced a row and therefore how its key is laid out.
type RowKeyShape int8

const (
	// ShapeByValues keys are [entity_type, entity_id, field, form_code, event_time].
	ShapeByValues RowKeyShape = iota + 1
	// ShapeByFormCodeTime keys are [form_code, event_time, entity_id, field].
	ShapeByFormCodeTime
	// ShapeByAggregationPath keys are [entity_type, aggregation_type, field, path..., event_time, form_code].
	ShapeByAggregationPath
	// ShapePeriod keys are [period..., form_code, entity_type, short_code, field].
	ShapePeriod
)

func (s RowKeyShape) String() string {
	switch s {
	case ShapeByValues:
		return ViewByValues
	case ShapeByFormCodeTime:
		return ViewByFormCodeTime
	case ShapeByAggregationPath:
		return ViewByAggregationPath
	case ShapePeriod:
		return "period"
	default:
		return "unknown"
	}
}

// ByValuesLayout holds key positions of the by_values view.
type ByValuesLayout struct {
	View       string
	EntityType int
	EntityID   int
	Field      int
	FormCode   int
	EventTime  int
}

// ByFormCodeTimeLayout holds key positions of the by_form_code_time view.
type ByFormCodeTimeLayout struct {
	View      string
	FormCode  int
	EventTime int
	EntityID  int
	Field     int
}

// ByAggregationPathLayout holds key positions of the by_aggregation_path view.
// The path occupies every position from PathStart up to the trailing event
// time and form code, which are located from the end of the key.
type ByAggregationPathLayout struct {
	View             string
	EntityType       int
	AggregationType  int
	Field            int
	PathStart        int
	EventTimeFromEnd int
	FormCodeFromEnd  int
}

// EntityLatestLayout holds key positions of the entity_latest view, whose
// rows reduce to the newest value of one field of one entity.
type EntityLatestLayout struct {
	View       string
	EntityType int
	ShortCode  int
	Field      int
}

// PeriodLayout locates the trailing elements of period view keys, counted
// from the end of the key.
type PeriodLayout struct {
	ShortCodeFromEnd int
	FieldFromEnd     int
}

// IndexLayout describes every view the engine reads.
type IndexLayout struct {
	ByValues          ByValuesLayout
	ByFormCodeTime    ByFormCodeTimeLayout
	ByAggregationPath ByAggregationPathLayout
	ByLocationView    string
	EntityLatest      EntityLatestLayout
	Period            PeriodLayout
}

// DefaultIndexLayout matches the views maintained by the datastore package.
func DefaultIndexLayout() IndexLayout {
	return IndexLayout{
		ByValues: ByValuesLayout{
			View:       ViewByValues,
			EntityType: 0,
			EntityID:   1,
			Field:      2,
			FormCode:   3,
			EventTime:  4,
		},
		ByFormCodeTime: ByFormCodeTimeLayout{
			View:      ViewByFormCodeTime,
			FormCode:  0,
			EventTime: 1,
			EntityID:  2,
			Field:     3,
		},
		ByAggregationPath: ByAggregationPathLayout{
			View:             ViewByAggregationPath,
			EntityType:       0,
			AggregationType:  1,
			Field:            2,
			PathStart:        3,
			EventTimeFromEnd: 2,
			FormCodeFromEnd:  1,
		},
		ByLocationView: ViewByLocation,
		EntityLatest: EntityLatestLayout{
			View:       ViewEntityLatest,
			EntityType: 0,
			ShortCode:  1,
			Field:      2,
		},
		Period: PeriodLayout{
			ShortCodeFromEnd: 2,
			FieldFromEnd:     1,
		},
	}
}

// decodedRow is a raw row key broken into the parts the adapter groups on.
type decodedRow struct {
	group     GroupKey
	field     string
	entityID  string
	formCode  string
	eventTime float64
	timed     bool
}

// keyDecoder turns a row key into a decodedRow. ok is false for rows that
// belong to no group, such as paths shorter than the requested level.
type keyDecoder func(key Key) (row decodedRow, ok bool, err error)

// decoder returns the decoder for shape. level is only used by path shapes.
func (l IndexLayout) decoder(shape RowKeyShape, level int) (keyDecoder, error) {
	switch shape {
	case ShapeByValues:
		return l.decodeByValues, nil
	case ShapeByFormCodeTime:
		return l.decodeByFormCodeTime, nil
	case ShapeByAggregationPath:
		return func(key Key) (decodedRow, bool, error) {
			return l.decodeByAggregationPath(key, level)
		}, nil
	case ShapePeriod:
		return l.decodePeriod, nil
	default:
		return nil, fmt.Errorf("%w: no decoder for shape %s", ErrMalformedKey, shape)
	}
}

func (l IndexLayout) decodeByValues(key Key) (decodedRow, bool, error) {
	p := l.ByValues
	if len(key) <= p.EventTime {
		return decodedRow{}, false, fmt.Errorf("%w: %s key has %d elements", ErrMalformedKey, p.View, len(key))
	}
	entityID, err := key.StringAt(p.EntityID)
	if err != nil {
		return decodedRow{}, false, err
	}
	field, err := key.StringAt(p.Field)
	if err != nil {
		return decodedRow{}, false, err
	}
	formCode, err := key.StringAt(p.FormCode)
	if err != nil {
		return decodedRow{}, false, err
	}
	ts, timed := utils.ToFloat64(key[p.EventTime])
	return decodedRow{
		group:     EntityKey(entityID),
		field:     field,
		entityID:  entityID,
		formCode:  formCode,
		eventTime: ts,
		timed:     timed,
	}, true, nil
}

func (l IndexLayout) decodeByFormCodeTime(key Key) (decodedRow, bool, error) {
	p := l.ByFormCodeTime
	if len(key) <= p.Field {
		return decodedRow{}, false, fmt.Errorf("%w: %s key has %d elements", ErrMalformedKey, p.View, len(key))
	}
	formCode, err := key.StringAt(p.FormCode)
	if err != nil {
		return decodedRow{}, false, err
	}
	entityID, err := key.StringAt(p.EntityID)
	if err != nil {
		return decodedRow{}, false, err
	}
	field, err := key.StringAt(p.Field)
	if err != nil {
		return decodedRow{}, false, err
	}
	ts, timed := utils.ToFloat64(key[p.EventTime])
	return decodedRow{
		group:     EntityKey(entityID),
		field:     field,
		entityID:  entityID,
		formCode:  formCode,
		eventTime: ts,
		timed:     timed,
	}, true, nil
}

func (l IndexLayout) decodeByAggregationPath(key Key, level int) (decodedRow, bool, error) {
	p := l.ByAggregationPath
	tail := max(p.EventTimeFromEnd, p.FormCodeFromEnd)
	if len(key) < p.PathStart+tail {
		return decodedRow{}, false, fmt.Errorf("%w: %s key has %d elements", ErrMalformedKey, p.View, len(key))
	}
	field, err := key.StringAt(p.Field)
	if err != nil {
		return decodedRow{}, false, err
	}
	formCode, err := key.StringAt(len(key) - p.FormCodeFromEnd)
	if err != nil {
		return decodedRow{}, false, err
	}
	path, err := key.Strings(p.PathStart, len(key)-tail)
	if err != nil {
		return decodedRow{}, false, err
	}
	if len(path) < level {
		return decodedRow{}, false, nil
	}
	ts, timed := utils.ToFloat64(key[len(key)-p.EventTimeFromEnd])
	return decodedRow{
		group:     PathKey(path[:level]...),
		field:     field,
		formCode:  formCode,
		eventTime: ts,
		timed:     timed,
	}, true, nil
}

func (l IndexLayout) decodePeriod(key Key) (decodedRow, bool, error) {
	p := l.Period
	if len(key) < p.ShortCodeFromEnd || len(key) < p.FieldFromEnd {
		return decodedRow{}, false, fmt.Errorf("%w: period key has %d elements", ErrMalformedKey, len(key))
	}
	shortCode, err := key.StringAt(len(key) - p.ShortCodeFromEnd)
	if err != nil {
		return decodedRow{}, false, err
	}
	field, err := key.StringAt(len(key) - p.FieldFromEnd)
	if err != nil {
		return decodedRow{}, false, err
	}
	return decodedRow{
		group:    EntityKey(shortCode),
		field:    field,
		entityID: shortCode,
	}, true, nil
}

func (l IndexLayout) decodeEntityLatest(key Key) (shortCode, field string, err error) {
	p := l.EntityLatest
	if len(key) <= max(p.ShortCode, p.Field) {
		return "", "", fmt.Errorf("%w: %s key has %d elements", ErrMalformedKey, p.View, len(key))
	}
	if shortCode, err = key.StringAt(p.ShortCode); err != nil {
		return "", "", err
	}
	if field, err = key.StringAt(p.Field); err != nil {
		return "", "", err
	}
	return shortCode, field, nil
}

// EventTimeKey converts t to the event time element stored in view keys:
// milliseconds since the Unix epoch.
func EventTimeKey(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// EventTimeFromKey reverses EventTimeKey.
func EventTimeFromKey(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
