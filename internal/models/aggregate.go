package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mangrove/mangrove/internal/aggregation"
)

// Axis types accepted in aggregate_on.type
const (
	AxisEntity       = "entity"
	AxisLocation     = "location"
	AxisHierarchy    = "hierarchy"
	AxisFormCodeTime = "form_code_time"
)

// AxisSpec selects what results are grouped by
type AxisSpec struct {
	Type  string `json:"type"`
	Level int    `json:"level,omitempty"`
	Name  string `json:"name,omitempty"` // hierarchy name
}

// PeriodSpec names a calendar period
type PeriodSpec struct {
	Type  string `json:"type"` // day, week, month, year
	Day   int    `json:"day,omitempty"`
	Week  int    `json:"week,omitempty"`
	Month int    `json:"month,omitempty"`
	Year  int    `json:"year"`
}

// AggregateRequest is the body of every aggregate route
type AggregateRequest struct {
	Aggregates         map[string]string           `json:"aggregates"` // field (or "*") -> sum, min, max, latest, count, average
	AggregateOn        *AxisSpec                   `json:"aggregate_on,omitempty"`
	Filter             *aggregation.LocationFilter `json:"filter,omitempty"`
	StartTime          string                      `json:"start_time,omitempty"` // RFC3339
	EndTime            string                      `json:"end_time,omitempty"`   // RFC3339
	Period             *PeriodSpec                 `json:"period,omitempty"`
	IncludeGrandTotals bool                        `json:"include_grand_totals"`

	StartTimeParsed *time.Time         `json:"-"`
	EndTimeParsed   *time.Time         `json:"-"`
	Axis            aggregation.Axis   `json:"-"`
	PeriodParsed    aggregation.Period `json:"-"`
}

// Validate parses times, axis and period into their parsed fields.
// Aggregate kinds are resolved by the service.
func (r *AggregateRequest) Validate() error {
	if len(r.Aggregates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "'aggregates' must not be empty")
	}
	return r.parse()
}

// ValidateTimeFilter is Validate for the time-filter route. Without
// aggregate_on, empty aggregates are allowed and sum every field into
// grand totals.
func (r *AggregateRequest) ValidateTimeFilter() error {
	if len(r.Aggregates) == 0 && r.AggregateOn != nil {
		return fiber.NewError(fiber.StatusBadRequest, "'aggregates' must not be empty when 'aggregate_on' is set")
	}
	return r.parse()
}

func (r *AggregateRequest) parse() error {

	start, err := parseOptionalTime("start_time", r.StartTime)
	if err != nil {
		return err
	}
	end, err := parseOptionalTime("end_time", r.EndTime)
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return fiber.NewError(fiber.StatusBadRequest, "end_time must be after start_time")
	}
	r.StartTimeParsed, r.EndTimeParsed = start, end

	if r.AggregateOn != nil {
		axis, err := r.AggregateOn.parse()
		if err != nil {
			return err
		}
		r.Axis = axis
	}

	if r.Period != nil {
		period, err := r.Period.parse()
		if err != nil {
			return err
		}
		r.PeriodParsed = period
	}

	if r.Filter != nil && len(r.Filter.Location) == 0 {
		r.Filter = nil
	}
	return nil
}

func parseOptionalTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%s must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)", name))
	}
	return &t, nil
}

func (a *AxisSpec) parse() (aggregation.Axis, error) {
	switch strings.ToLower(a.Type) {
	case "", AxisEntity:
		return aggregation.EntityAxis{}, nil
	case AxisLocation:
		if a.Level < 1 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "aggregate_on.level must be at least 1")
		}
		return aggregation.LocationAxis{Level: a.Level}, nil
	case AxisHierarchy:
		if a.Name == "" {
			return nil, fiber.NewError(fiber.StatusBadRequest, "aggregate_on.name is required for hierarchy")
		}
		if a.Level < 1 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "aggregate_on.level must be at least 1")
		}
		return aggregation.HierarchyAxis{Name: a.Name, Level: a.Level}, nil
	case AxisFormCodeTime:
		return aggregation.FormCodeTimeAxis{}, nil
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("aggregate_on.type %q is not one of entity, location, hierarchy, form_code_time", a.Type))
	}
}

func (p *PeriodSpec) parse() (aggregation.Period, error) {
	var period aggregation.Period
	switch strings.ToLower(p.Type) {
	case "day":
		period = aggregation.Day{Day: p.Day, Month: p.Month, Year: p.Year}
	case "week":
		period = aggregation.Week{Week: p.Week, Year: p.Year}
	case "month":
		period = aggregation.Month{Month: p.Month, Year: p.Year}
	case "year":
		period = aggregation.Year{Year: p.Year}
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("period.type %q is not one of day, week, month, year", p.Type))
	}
	if err := period.Validate(); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return period, nil
}
