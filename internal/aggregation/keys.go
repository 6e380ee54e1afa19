package aggregation

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mangrove/mangrove/internal/utils"
)

// Key is a composite view key. Elements are nil, bool, float64 (any Go
// number is accepted when building keys), string or MaxKey.
type Key []any

// maxKey sorts after every other key element.
type maxKey struct{}

// MaxKey is the high sentinel used to close a range, e.g. [type, MaxKey]
// matches every key starting with type.
var MaxKey = maxKey{}

func (maxKey) String() string { return "{}" }

func (maxKey) MarshalJSON() ([]byte, error) { return []byte("{}"), nil }

// Append returns a copy of k with elems added.
func (k Key) Append(elems ...any) Key {
	out := make(Key, 0, len(k)+len(elems))
	out = append(out, k...)
	return append(out, elems...)
}

// StringAt returns the element at i as a string.
func (k Key) StringAt(i int) (string, error) {
	if i < 0 || i >= len(k) {
		return "", fmt.Errorf("%w: index %d out of range for %d elements", ErrMalformedKey, i, len(k))
	}
	s, ok := k[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: element %d is %T, want string", ErrMalformedKey, i, k[i])
	}
	return s, nil
}

// Strings converts k[from:to] into strings.
func (k Key) Strings(from, to int) ([]string, error) {
	if from < 0 || to > len(k) || from > to {
		return nil, fmt.Errorf("%w: range [%d:%d] out of bounds for %d elements", ErrMalformedKey, from, to, len(k))
	}
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		s, err := k.StringAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// rank orders element types: nil < false < true < numbers < strings < MaxKey.
func rank(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 2
		}
		return 1
	case string:
		return 4
	case maxKey:
		return 5
	}
	if utils.IsNumeric(v) {
		return 3
	}
	return 6
}

// CompareKeys orders keys element by element. A key sorts before every
// longer key it is a prefix of.
func CompareKeys(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareElems(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareElems(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 3:
		fa, _ := utils.ToFloat64(a)
		fb, _ := utils.ToFloat64(b)
		return cmp.Compare(fa, fb)
	case 4:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

type groupKind uint8

const (
	groupEntity groupKind = iota + 1
	groupPath
	groupEntityForm
	groupGrandTotals
)

// pathSep never appears in user supplied names; it only separates path
// components inside a GroupKey.
const pathSep = "\x1f"

// GrandTotalsName is the result key holding grand totals.
const GrandTotalsName = "GrandTotals"

// GroupKey identifies one row of an aggregation result: an entity id, a
// location or hierarchy path prefix, an (entity id, form code) pair or the
// grand totals row. GroupKey is comparable and marshals to text, so a Result
// encodes as a JSON object.
type GroupKey struct {
	kind groupKind
	id   string
	path string
}

// EntityKey returns the group key for a single entity.
func EntityKey(id string) GroupKey {
	return GroupKey{kind: groupEntity, id: id}
}

// PathKey returns the group key for a hierarchy path prefix.
func PathKey(path ...string) GroupKey {
	return GroupKey{kind: groupPath, path: strings.Join(path, pathSep)}
}

// EntityFormKey pairs an entity with a form code.
func EntityFormKey(entityID, formCode string) GroupKey {
	return GroupKey{kind: groupEntityForm, id: entityID, path: formCode}
}

// GrandTotalsKey is the synthetic grand totals row.
var GrandTotalsKey = GroupKey{kind: groupGrandTotals, id: GrandTotalsName}

// IsGrandTotals reports whether k is the grand totals row.
func (k GroupKey) IsGrandTotals() bool { return k.kind == groupGrandTotals }

// IsPath reports whether k is a path prefix.
func (k GroupKey) IsPath() bool { return k.kind == groupPath }

// EntityID returns the entity id for entity and entity/form keys.
func (k GroupKey) EntityID() string { return k.id }

// Path returns the path components of a path key.
func (k GroupKey) Path() []string {
	if k.kind != groupPath {
		return nil
	}
	if k.path == "" {
		return []string{}
	}
	return strings.Split(k.path, pathSep)
}

// pathEscaper keeps "/" unambiguous as the component separator of rendered
// path keys.
var pathEscaper = strings.NewReplacer("%", "%25", "/", "%2F")

// String renders path keys as "/"-joined components, with "%" and "/" inside
// a component percent-escaped.
func (k GroupKey) String() string {
	switch k.kind {
	case groupPath:
		path := k.Path()
		for i, p := range path {
			path[i] = pathEscaper.Replace(p)
		}
		return strings.Join(path, "/")
	case groupEntityForm:
		return k.id + "@" + k.path
	default:
		return k.id
	}
}

// MarshalText renders the key as it appears in JSON results.
func (k GroupKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result maps group keys to per-field reduced values.
type Result map[GroupKey]map[string]any

func (r Result) set(key GroupKey, field string, value any) {
	row, ok := r[key]
	if !ok {
		row = make(map[string]any)
		r[key] = row
	}
	row[field] = value
}

// Get returns the reduced value of field for key.
func (r Result) Get(key GroupKey, field string) (any, bool) {
	row, ok := r[key]
	if !ok {
		return nil, false
	}
	v, ok := row[field]
	return v, ok
}

// MarshalJSON keeps the GrandTotals row name stable regardless of key kinds.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]any, len(r))
	for k, row := range r {
		out[k.String()] = row
	}
	return json.Marshal(out)
}
