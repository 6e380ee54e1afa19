package aggregation

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownReduceFunction is returned for a reduce function name or kind
	// that is not registered.
	ErrUnknownReduceFunction = errors.New("aggregation: unknown reduce function")

	// ErrUnsupportedAxis is returned when an operation is asked to group along
	// an axis it cannot serve.
	ErrUnsupportedAxis = errors.New("aggregation: unsupported aggregation axis")

	// ErrEmptyGroup is returned by Min and Max for an empty value list.
	ErrEmptyGroup = errors.New("aggregation: reduce over empty group")

	// ErrIncomparable is returned by Min and Max when values have no common order.
	ErrIncomparable = errors.New("aggregation: values are not comparable")

	// ErrNonNumeric is returned by Average for non-numeric values.
	ErrNonNumeric = errors.New("aggregation: values are not numeric")

	// ErrAggregationNotSupported matches every *AggregationNotSupportedError.
	ErrAggregationNotSupported = errors.New("aggregation: not supported for field")

	// ErrFormCodeRequired is returned when a form scoped operation gets no form code.
	ErrFormCodeRequired = errors.New("aggregation: form code is required")

	// ErrInvalidPeriod is returned for a calendar period that does not exist.
	ErrInvalidPeriod = errors.New("aggregation: invalid period")

	// ErrMalformedKey is returned when a row key does not have the shape its view promises.
	ErrMalformedKey = errors.New("aggregation: malformed row key")
)

// AggregationNotSupportedError reports that the configured reduce function
// cannot be applied to the values recorded for a field.
type AggregationNotSupportedError struct {
	Field       string
	Aggregation Kind
	Err         error
}

func (e *AggregationNotSupportedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aggregation %s not supported for field %q: %v", e.Aggregation, e.Field, e.Err)
	}
	return fmt.Sprintf("aggregation %s not supported for field %q", e.Aggregation, e.Field)
}

func (e *AggregationNotSupportedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAggregationNotSupported) match.
func (e *AggregationNotSupportedError) Is(target error) bool {
	return target == ErrAggregationNotSupported
}

func notSupported(field string, kind Kind, err error) error {
	return &AggregationNotSupportedError{Field: field, Aggregation: kind, Err: err}
}
