package aggregation

import (
	"fmt"
	"strings"
	"time"

	"hermannm.dev/enumnames"

	"github.com/mangrove/mangrove/internal/utils"
)

// Kind names a reduce rule.
type Kind int8

const (
	KindSum Kind = iota + 1
	KindLatest
	KindMin
	KindMax
	KindCount
	KindAverage
)

var kindNames = enumnames.NewMap(map[Kind]string{
	KindSum:     "sum",
	KindLatest:  "latest",
	KindMin:     "min",
	KindMax:     "max",
	KindCount:   "count",
	KindAverage: "average",
})

func (k Kind) IsValid() bool {
	return kindNames.ContainsEnumValue(k)
}

func (k Kind) String() string {
	return kindNames.GetNameOrFallback(k, "invalid")
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return kindNames.MarshalToNameJSON(k)
}

func (k *Kind) UnmarshalJSON(bytes []byte) error {
	return kindNames.UnmarshalFromNameJSON(bytes, k)
}

// ParseKind resolves a reduce function name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindNames.EnumValueFromName(strings.ToLower(strings.TrimSpace(name))); ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReduceFunction, name)
}

// ReduceFunction reduces the values recorded for one field to a summary.
// Implementations are immutable and pure.
type ReduceFunction interface {
	FieldName() string
	Kind() Kind
	Reduce(values []any) (any, error)
}

// Sum adds numeric values. A non-numeric element yields nil, not an error.
type Sum struct{ Field string }

func (r Sum) FieldName() string { return r.Field }
func (Sum) Kind() Kind          { return KindSum }

func (Sum) Reduce(values []any) (any, error) {
	nums, ok := utils.AllNumeric(values)
	if !ok {
		return nil, nil
	}
	total := 0.0
	for _, v := range nums {
		total += v
	}
	return total, nil
}

// Min returns the smallest value.
type Min struct{ Field string }

func (r Min) FieldName() string { return r.Field }
func (Min) Kind() Kind          { return KindMin }

func (Min) Reduce(values []any) (any, error) {
	return extremum(values, -1)
}

// Max returns the largest value.
type Max struct{ Field string }

func (r Max) FieldName() string { return r.Field }
func (Max) Kind() Kind          { return KindMax }

func (Max) Reduce(values []any) (any, error) {
	return extremum(values, 1)
}

// Latest returns the last value. Callers must supply values oldest first.
type Latest struct{ Field string }

func (r Latest) FieldName() string { return r.Field }
func (Latest) Kind() Kind          { return KindLatest }

func (Latest) Reduce(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return values[len(values)-1], nil
}

// Count returns the number of values.
type Count struct{ Field string }

func (r Count) FieldName() string { return r.Field }
func (Count) Kind() Kind          { return KindCount }

func (Count) Reduce(values []any) (any, error) {
	return len(values), nil
}

// Average returns the arithmetic mean, or nil for no values.
type Average struct{ Field string }

func (r Average) FieldName() string { return r.Field }
func (Average) Kind() Kind          { return KindAverage }

func (Average) Reduce(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	nums, ok := utils.AllNumeric(values)
	if !ok {
		return nil, ErrNonNumeric
	}
	total := 0.0
	for _, v := range nums {
		total += v
	}
	return total / float64(len(nums)), nil
}

// extremum keeps the first element that no later element beats in the
// direction of sign.
func extremum(values []any, sign int) (any, error) {
	if len(values) == 0 {
		return nil, ErrEmptyGroup
	}
	best := values[0]
	for _, v := range values[1:] {
		c, err := compareValues(v, best)
		if err != nil {
			return nil, err
		}
		if c == sign {
			best = v
		}
	}
	return best, nil
}

// compareValues orders two numbers, two strings or two times.
func compareValues(a, b any) (int, error) {
	if fa, ok := utils.ToFloat64(a); ok {
		fb, ok := utils.ToFloat64(b)
		if !ok {
			return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
		}
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		}
		return 0, nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
		}
		return strings.Compare(av, bv), nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("%w: %T and %T", ErrIncomparable, a, b)
		}
		return av.Compare(bv), nil
	}
	return 0, fmt.Errorf("%w: %T", ErrIncomparable, a)
}

// Constructor builds a reduce function bound to a field.
type Constructor func(field string) ReduceFunction

// Registry maps reduce kinds to constructors.
type Registry struct {
	constructors map[Kind]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[Kind]Constructor)}
}

// DefaultRegistry returns a registry holding the six built-in reducers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindSum, func(f string) ReduceFunction { return Sum{Field: f} })
	r.Register(KindLatest, func(f string) ReduceFunction { return Latest{Field: f} })
	r.Register(KindMin, func(f string) ReduceFunction { return Min{Field: f} })
	r.Register(KindMax, func(f string) ReduceFunction { return Max{Field: f} })
	r.Register(KindCount, func(f string) ReduceFunction { return Count{Field: f} })
	r.Register(KindAverage, func(f string) ReduceFunction { return Average{Field: f} })
	return r
}

// Register adds or replaces the constructor for kind.
func (r *Registry) Register(kind Kind, ctor Constructor) {
	r.constructors[kind] = ctor
}

// New builds the reduce function of kind for field.
func (r *Registry) New(kind Kind, field string) (ReduceFunction, error) {
	ctor, ok := r.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReduceFunction, kind)
	}
	return ctor(field), nil
}

// NewByName is New with the kind given by name.
func (r *Registry) NewByName(name, field string) (ReduceFunction, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return r.New(kind, field)
}

// Wildcard is the Aggregates key that applies to every field.
const Wildcard = "*"

// Aggregates maps field names to the reduce kind requested for them.
type Aggregates map[string]Kind

// FieldAggregates builds Aggregates from reduce function values, e.g.
// FieldAggregates(Sum{"patients"}, Max{"beds"}).
func FieldAggregates(fns ...ReduceFunction) Aggregates {
	out := make(Aggregates, len(fns))
	for _, fn := range fns {
		out[fn.FieldName()] = fn.Kind()
	}
	return out
}

// KindFor resolves the kind for field. The wildcard wins over a field entry.
func (a Aggregates) KindFor(field string) (Kind, bool) {
	if k, ok := a[Wildcard]; ok {
		return k, true
	}
	k, ok := a[field]
	return k, ok
}

// HasKind reports whether any entry requests kind.
func (a Aggregates) HasKind(kind Kind) bool {
	for _, k := range a {
		if k == kind {
			return true
		}
	}
	return false
}
