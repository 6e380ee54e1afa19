package aggregation

// Statistic names carried by reduced period rows.
const (
	StatSum       = "sum"
	StatMin       = "min"
	StatMax       = "max"
	StatCount     = "count"
	StatAverage   = "average"
	StatLatest    = "latest"
	StatTimestamp = "timestamp"
)

// FieldStats is the running reduction of a stats view: numeric values only.
type FieldStats struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"average"`
}

// NewFieldStats starts a reduction from a single value.
func NewFieldStats(value float64) *FieldStats {
	return &FieldStats{
		Count: 1,
		Sum:   value,
		Min:   value,
		Max:   value,
		Avg:   value,
	}
}

// AddValue folds one more value in.
func (s *FieldStats) AddValue(value float64) {
	s.Count++
	s.Sum += value
	if value < s.Min {
		s.Min = value
	}
	if value > s.Max {
		s.Max = value
	}
	s.Avg = s.Sum / float64(s.Count)
}

// Merge combines another reduction into this one.
func (s *FieldStats) Merge(other *FieldStats) {
	if other == nil || other.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = *other
		return
	}
	s.Count += other.Count
	s.Sum += other.Sum
	if other.Min < s.Min {
		s.Min = other.Min
	}
	if other.Max > s.Max {
		s.Max = other.Max
	}
	s.Avg = s.Sum / float64(s.Count)
}

// Map renders the reduction as a reduced row value.
func (s *FieldStats) Map() map[string]any {
	return map[string]any{
		StatSum:     s.Sum,
		StatMin:     s.Min,
		StatMax:     s.Max,
		StatCount:   s.Count,
		StatAverage: s.Avg,
	}
}

// LatestValue is the running reduction of a latest view.
type LatestValue struct {
	Value     any     `json:"latest"`
	Timestamp float64 `json:"timestamp"`
}

// Observe keeps value if it is not older than the current one. Equal
// timestamps keep the later observation.
func (l *LatestValue) Observe(value any, timestamp float64) {
	if timestamp >= l.Timestamp {
		l.Value = value
		l.Timestamp = timestamp
	}
}

// Merge keeps whichever of the two is newer.
func (l *LatestValue) Merge(other LatestValue) {
	l.Observe(other.Value, other.Timestamp)
}

// Map renders the reduction as a reduced row value.
func (l *LatestValue) Map() map[string]any {
	return map[string]any{
		StatLatest:    l.Value,
		StatTimestamp: l.Timestamp,
	}
}

// statFor picks the statistic a kind reads from a reduced row.
func statFor(kind Kind) string {
	switch kind {
	case KindSum:
		return StatSum
	case KindMin:
		return StatMin
	case KindMax:
		return StatMax
	case KindCount:
		return StatCount
	case KindAverage:
		return StatAverage
	case KindLatest:
		return StatLatest
	}
	return ""
}
