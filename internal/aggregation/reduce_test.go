package aggregation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReducers(t *testing.T) {
	jan := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2010, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		fn      ReduceFunction
		values  []any
		want    any
		wantErr error
	}{
		{"sum", Sum{"patients"}, []any{10.0, 20, int64(5)}, 35.0, nil},
		{"sum empty", Sum{"patients"}, []any{}, 0.0, nil},
		{"sum of strings", Sum{"director"}, []any{"Dr. A", "Dr. B"}, nil, nil},
		{"sum mixed", Sum{"patients"}, []any{1.0, "x"}, nil, nil},
		{"min numbers", Min{"meds"}, []any{20.0, 50.0, 5}, 5, nil},
		{"max numbers", Max{"beds"}, []any{300.0, 500.0, 100.0}, 500.0, nil},
		{"max strings", Max{"director"}, []any{"Dr. A", "Dr. C", "Dr. B"}, "Dr. C", nil},
		{"min times", Min{"visited"}, []any{feb, jan}, jan, nil},
		{"min single", Min{"flag"}, []any{true}, true, nil},
		{"min empty", Min{"meds"}, []any{}, nil, ErrEmptyGroup},
		{"max empty", Max{"beds"}, nil, nil, ErrEmptyGroup},
		{"max mixed", Max{"beds"}, []any{1.0, "a"}, nil, ErrIncomparable},
		{"max bools", Max{"flag"}, []any{true, false}, nil, ErrIncomparable},
		{"latest", Latest{"director"}, []any{"Dr. A", "Dr. B"}, "Dr. B", nil},
		{"latest empty", Latest{"director"}, []any{}, nil, nil},
		{"count", Count{"patients"}, []any{1.0, "x", nil}, 3, nil},
		{"count empty", Count{"patients"}, nil, 0, nil},
		{"average", Average{"patients"}, []any{10.0, 20.0}, 15.0, nil},
		{"average empty", Average{"patients"}, []any{}, nil, nil},
		{"average strings", Average{"director"}, []any{"Dr. A"}, nil, ErrNonNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn.Reduce(tt.values)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReducersArePure(t *testing.T) {
	values := []any{3.0, 1.0, 2.0}
	for _, fn := range []ReduceFunction{Sum{"f"}, Min{"f"}, Max{"f"}, Latest{"f"}, Count{"f"}, Average{"f"}} {
		first, err := fn.Reduce(values)
		require.NoError(t, err)
		second, err := fn.Reduce(values)
		require.NoError(t, err)
		assert.Equal(t, first, second, fn.Kind().String())
	}
	assert.Equal(t, []any{3.0, 1.0, 2.0}, values, "input must not be modified")
}

func TestAverageIsSumOverCount(t *testing.T) {
	lists := [][]any{
		{1.0},
		{10.0, 20.0, 30.0},
		{0.1, 0.2, 0.3, 0.4},
		{-5, 5, 7.5},
	}
	for _, values := range lists {
		sum, _ := Sum{"f"}.Reduce(values)
		count, _ := Count{"f"}.Reduce(values)
		avg, err := Average{"f"}.Reduce(values)
		require.NoError(t, err)
		assert.InDelta(t, sum.(float64)/float64(count.(int)), avg.(float64), 1e-9)
	}
}

func TestLatestIsLastObserved(t *testing.T) {
	got, err := Latest{"f"}.Reduce([]any{"v1", "v2", "v3"})
	require.NoError(t, err)
	assert.Equal(t, "v3", got)
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"sum", "latest", "min", "max", "count", "average"} {
		kind, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, kind.String())
	}

	kind, err := ParseKind(" MAX ")
	require.NoError(t, err)
	assert.Equal(t, KindMax, kind)

	_, err = ParseKind("median")
	assert.ErrorIs(t, err, ErrUnknownReduceFunction)
}

func TestKindIsValid(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindSum, true},
		{KindAverage, true},
		{Kind(0), false},
		{Kind(99), false},
		{Kind(-1), false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsValid())
		})
	}
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Kind{"patients": KindSum})
	require.NoError(t, err)
	assert.JSONEq(t, `{"patients":"sum"}`, string(data))

	var decoded Aggregates
	require.NoError(t, json.Unmarshal([]byte(`{"beds":"max","*":"latest"}`), &decoded))
	assert.Equal(t, Aggregates{"beds": KindMax, "*": KindLatest}, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"beds":"median"}`), &decoded))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	fn, err := r.New(KindAverage, "patients")
	require.NoError(t, err)
	assert.Equal(t, Average{Field: "patients"}, fn)

	fn, err = r.NewByName("latest", "director")
	require.NoError(t, err)
	assert.Equal(t, "director", fn.FieldName())
	assert.Equal(t, KindLatest, fn.Kind())

	_, err = r.New(Kind(42), "patients")
	assert.ErrorIs(t, err, ErrUnknownReduceFunction)

	empty := NewRegistry()
	_, err = empty.New(KindSum, "patients")
	assert.True(t, errors.Is(err, ErrUnknownReduceFunction))
}

func TestAggregatesKindFor(t *testing.T) {
	aggs := FieldAggregates(Sum{"patients"}, Max{"beds"})
	assert.Equal(t, Aggregates{"patients": KindSum, "beds": KindMax}, aggs)

	kind, ok := aggs.KindFor("beds")
	assert.True(t, ok)
	assert.Equal(t, KindMax, kind)

	_, ok = aggs.KindFor("meds")
	assert.False(t, ok)

	aggs[Wildcard] = KindCount
	for _, field := range []string{"patients", "beds", "meds"} {
		kind, ok := aggs.KindFor(field)
		assert.True(t, ok)
		assert.Equal(t, KindCount, kind, field)
	}
	assert.True(t, aggs.HasKind(KindCount))
	assert.False(t, aggs.HasKind(KindLatest))
}
