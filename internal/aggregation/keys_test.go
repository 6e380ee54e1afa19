package aggregation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareKeys(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"equal", Key{"clinic", 1.0}, Key{"clinic", 1.0}, 0},
		{"prefix first", Key{"clinic"}, Key{"clinic", "id"}, -1},
		{"null before bool", Key{nil}, Key{false}, -1},
		{"false before true", Key{false}, Key{true}, -1},
		{"bool before number", Key{true}, Key{-100.0}, -1},
		{"number before string", Key{1e12}, Key{""}, -1},
		{"string before max", Key{"zzz"}, Key{MaxKey}, -1},
		{"numbers by value", Key{2}, Key{10.0}, -1},
		{"strings lexically", Key{"India", "MH"}, Key{"India", "KA"}, 1},
		{"max closes range", Key{"clinic", "1", "patients"}, Key{"clinic", MaxKey}, -1},
		{"max after longer key", Key{"clinic", MaxKey}, Key{"clinic", "zz", "zz"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareKeys(tt.a, tt.b))
			assert.Equal(t, -tt.want, CompareKeys(tt.b, tt.a))
		})
	}
}

func TestKeyAccessors(t *testing.T) {
	k := Key{"clinic", "_geo", "patients", "India", "MH", 1265068800000.0}

	s, err := k.StringAt(1)
	require.NoError(t, err)
	assert.Equal(t, "_geo", s)

	_, err = k.StringAt(5)
	assert.ErrorIs(t, err, ErrMalformedKey)
	_, err = k.StringAt(9)
	assert.ErrorIs(t, err, ErrMalformedKey)

	path, err := k.Strings(3, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"India", "MH"}, path)

	extended := k[:2].Append(MaxKey)
	assert.Equal(t, Key{"clinic", "_geo", MaxKey}, extended)
	assert.Len(t, k, 6, "Append must not modify the receiver")
}

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "India/MH", PathKey("India", "MH").String())
	assert.Equal(t, []string{"India", "MH"}, PathKey("India", "MH").Path())
	assert.Equal(t, PathKey("India", "MH"), PathKey("India", "MH"))
	assert.NotEqual(t, PathKey("India/MH"), PathKey("India", "MH"))
	assert.NotEqual(t, EntityKey("GrandTotals"), GrandTotalsKey)
	assert.True(t, GrandTotalsKey.IsGrandTotals())
	assert.Equal(t, "1", EntityKey("1").EntityID())
	assert.Nil(t, EntityKey("1").Path())
	assert.Equal(t, "1@CL1", EntityFormKey("1", "CL1").String())
}

func TestGroupKeyStringEscapesSeparator(t *testing.T) {
	tests := []struct {
		key  GroupKey
		want string
	}{
		{PathKey("India", "MH"), "India/MH"},
		{PathKey("A/B", "C"), "A%2FB/C"},
		{PathKey("A", "B/C"), "A/B%2FC"},
		{PathKey("50%", "x"), "50%25/x"},
		{PathKey("%2F"), "%252F"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
	assert.NotEqual(t, PathKey("A/B", "C").String(), PathKey("A", "B/C").String())
	assert.NotEqual(t, PathKey("A/B").String(), PathKey("A", "B").String())
}

func TestResultJSON(t *testing.T) {
	r := Result{
		PathKey("India", "MH"): {"patients": 200.0},
		GrandTotalsKey:         {"patients": 200.0},
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"India/MH":{"patients":200},"GrandTotals":{"patients":200}}`, string(data))

	v, ok := r.Get(PathKey("India", "MH"), "patients")
	assert.True(t, ok)
	assert.Equal(t, 200.0, v)
	_, ok = r.Get(EntityKey("1"), "patients")
	assert.False(t, ok)
}
