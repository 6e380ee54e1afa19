package aggregation

import (
	"fmt"
	"time"
)

// Period is a calendar window backed by a pair of pre-reduced views.
type Period interface {
	fmt.Stringer
	// StatsView holds {sum, min, max, count, average} per key.
	StatsView() string
	// LatestView holds {latest, timestamp} per key.
	LatestView() string
	// KeyPrefix is the leading part of every key in both views.
	KeyPrefix() Key
	Validate() error
}

// Period view names.
const (
	ViewDailyStats    = "daily_aggregate_stats"
	ViewDailyLatest   = "daily_aggregate_latest"
	ViewWeeklyStats   = "weekly_aggregate_stats"
	ViewWeeklyLatest  = "weekly_aggregate_latest"
	ViewMonthlyStats  = "monthly_aggregate_stats"
	ViewMonthlyLatest = "monthly_aggregate_latest"
	ViewYearlyStats   = "yearly_aggregate_stats"
	ViewYearlyLatest  = "yearly_aggregate_latest"
)

// Day is a calendar day.
type Day struct {
	Day   int
	Month int
	Year  int
}

// Week is an ISO 8601 week of an ISO year.
type Week struct {
	Week int
	Year int
}

// Month is a calendar month.
type Month struct {
	Month int
	Year  int
}

// Year is a calendar year.
type Year struct {
	Year int
}

func (Day) StatsView() string    { return ViewDailyStats }
func (Day) LatestView() string   { return ViewDailyLatest }
func (Week) StatsView() string   { return ViewWeeklyStats }
func (Week) LatestView() string  { return ViewWeeklyLatest }
func (Month) StatsView() string  { return ViewMonthlyStats }
func (Month) LatestView() string { return ViewMonthlyLatest }
func (Year) StatsView() string   { return ViewYearlyStats }
func (Year) LatestView() string  { return ViewYearlyLatest }

func (p Day) KeyPrefix() Key   { return Key{float64(p.Year), float64(p.Month), float64(p.Day)} }
func (p Week) KeyPrefix() Key  { return Key{float64(p.Year), float64(p.Week)} }
func (p Month) KeyPrefix() Key { return Key{float64(p.Year), float64(p.Month)} }
func (p Year) KeyPrefix() Key  { return Key{float64(p.Year)} }

func (p Day) String() string   { return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day) }
func (p Week) String() string  { return fmt.Sprintf("%04d-W%02d", p.Year, p.Week) }
func (p Month) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }
func (p Year) String() string  { return fmt.Sprintf("%04d", p.Year) }

func (p Day) Validate() error {
	if err := validateMonth(p.Month, p.Year); err != nil {
		return err
	}
	t := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
	if p.Day < 1 || t.Day() != p.Day {
		return fmt.Errorf("%w: day %d of %04d-%02d", ErrInvalidPeriod, p.Day, p.Year, p.Month)
	}
	return nil
}

func (p Week) Validate() error {
	if p.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	// 28 December always falls in the last ISO week of its year
	_, last := time.Date(p.Year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	if p.Week < 1 || p.Week > last {
		return fmt.Errorf("%w: week %d of %04d", ErrInvalidPeriod, p.Week, p.Year)
	}
	return nil
}

func (p Month) Validate() error {
	return validateMonth(p.Month, p.Year)
}

func (p Year) Validate() error {
	if p.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

func validateMonth(month, year int) error {
	if year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	return nil
}

// PeriodsOf returns the day, ISO week, month and year t falls in, evaluated
// in t's location.
func PeriodsOf(t time.Time) []Period {
	isoYear, isoWeek := t.ISOWeek()
	return []Period{
		Day{Day: t.Day(), Month: int(t.Month()), Year: t.Year()},
		Week{Week: isoWeek, Year: isoYear},
		Month{Month: int(t.Month()), Year: t.Year()},
		Year{Year: t.Year()},
	}
}
