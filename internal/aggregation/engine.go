package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/mangrove/mangrove/internal/logging"
)

// Config holds the collaborators an Engine is built with.
type Config struct {
	Layout   IndexLayout
	Registry *Registry
	Logger   *logging.Logger
}

// DefaultConfig returns the layout of the datastore views and the built-in reducers.
func DefaultConfig() Config {
	return Config{
		Layout:   DefaultIndexLayout(),
		Registry: DefaultRegistry(),
	}
}

// Request describes one aggregation.
type Request struct {
	// Aggregates maps fields, or Wildcard, to the reduce kind applied to them.
	Aggregates Aggregates
	// On is the grouping axis. nil groups by entity, except for
	// AggregateByFormCodeWithTimeFilter where it yields grand totals only.
	On     Axis
	Filter *LocationFilter
	// StartTime and EndTime bound event times, both inclusive.
	StartTime          *time.Time
	EndTime            *time.Time
	IncludeGrandTotals bool
}

// Engine reduces view rows into aggregation results. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	source   RowSource
	forms    FormLookup
	layout   IndexLayout
	registry *Registry
	logger   *logging.Logger
}

// NewEngine creates an engine reading from source. Zero fields of cfg fall
// back to DefaultConfig.
func NewEngine(source RowSource, forms FormLookup, cfg Config) *Engine {
	if cfg.Layout == (IndexLayout{}) {
		cfg.Layout = DefaultIndexLayout()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Global().With("component", "aggregation")
	}
	return &Engine{
		source:   source,
		forms:    forms,
		layout:   cfg.Layout,
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}
}

func (e *Engine) validate(req Request) error {
	if err := validateAxis(req.On); err != nil {
		return err
	}
	return e.validateAggregates(req.Aggregates)
}

// Aggregate reduces the values recorded for entities of entityType, grouped
// along req.On.
func (e *Engine) Aggregate(ctx context.Context, entityType string, req Request) (Result, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}
	return e.aggregateLive(ctx, entityType, "", req)
}

// AggregateForForm is Aggregate restricted to values submitted through one form.
func (e *Engine) AggregateForForm(ctx context.Context, formCode string, req Request) (Result, error) {
	if formCode == "" {
		return nil, ErrFormCodeRequired
	}
	if err := e.validate(req); err != nil {
		return nil, err
	}
	form, err := e.forms.LookupForm(ctx, formCode)
	if err != nil {
		return nil, err
	}
	return e.aggregateLive(ctx, form.EntityType, form.FormCode, req)
}

func (e *Engine) aggregateLive(ctx context.Context, entityType, formCode string, req Request) (Result, error) {
	p, err := e.planLive(entityType, formCode, req.On, req)
	if err != nil {
		return nil, err
	}
	in, err := e.locationInterest(ctx, entityType, req.On, req.Filter)
	if err != nil {
		return nil, err
	}
	in.formCode = formCode

	e.logger.Debug("Aggregating",
		"entity_type", entityType,
		"form_code", formCode,
		"axis", axisName(req.On),
		"view", p.view)

	grouped, err := e.loadGrouped(ctx, p, req.Aggregates, in)
	if err != nil {
		return nil, err
	}
	result, err := e.reduce(grouped, req.Aggregates)
	if err != nil {
		return nil, err
	}
	if req.IncludeGrandTotals {
		addGrandTotals(result)
	}
	return result, nil
}

// AggregateByFormCodeWithTimeFilter reduces the values submitted through one
// form between req.StartTime and req.EndTime. With a nil axis only the
// GrandTotals row is returned; with EntityAxis or FormCodeTimeAxis one row
// per entity is returned. A nil axis with no aggregates sums every field.
func (e *Engine) AggregateByFormCodeWithTimeFilter(ctx context.Context, formCode string, req Request) (Result, error) {
	if formCode == "" {
		return nil, ErrFormCodeRequired
	}
	if err := e.validate(req); err != nil {
		return nil, err
	}
	totalsOnly := false
	switch req.On.(type) {
	case nil:
		totalsOnly = true
	case EntityAxis, FormCodeTimeAxis:
	default:
		return nil, fmt.Errorf("%w: %s over a form code time window", ErrUnsupportedAxis, req.On)
	}

	form, err := e.forms.LookupForm(ctx, formCode)
	if err != nil {
		return nil, err
	}
	in, err := e.locationInterest(ctx, form.EntityType, EntityAxis{}, req.Filter)
	if err != nil {
		return nil, err
	}

	aggregates := req.Aggregates
	if totalsOnly && len(aggregates) == 0 {
		aggregates = Aggregates{Wildcard: KindSum}
	}

	p := e.planFormCodeTime(form.FormCode, req)
	grouped, err := e.loadGrouped(ctx, p, aggregates, in)
	if err != nil {
		return nil, err
	}
	result, err := e.reduce(grouped, aggregates)
	if err != nil {
		return nil, err
	}

	if totalsOnly {
		addGrandTotals(result)
		return Result{GrandTotalsKey: result[GrandTotalsKey]}, nil
	}
	if req.IncludeGrandTotals {
		addGrandTotals(result)
	}
	return result, nil
}

// GetLatest returns, per entity short code, the most recent value of every
// field recorded for entities of entityType. Values of any type are kept.
func (e *Engine) GetLatest(ctx context.Context, entityType string) (Result, error) {
	l := e.layout.EntityLatest
	rows, err := e.source.LoadAllRowsInView(ctx, l.View, ViewQuery{
		StartKey: Key{entityType},
		EndKey:   Key{entityType, MaxKey},
		Group:    true,
		Reduce:   true,
	})
	if err != nil {
		return nil, err
	}

	result := make(Result)
	for _, row := range rows {
		shortCode, field, err := e.layout.decodeEntityLatest(row.Key)
		if err != nil {
			return nil, err
		}
		latest, ok := row.Value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s value is %T", ErrMalformedKey, l.View, row.Value)
		}
		result.set(EntityKey(shortCode), field, latest[StatLatest])
	}

	e.logger.Debug("Loaded latest values",
		"entity_type", entityType,
		"entities", len(result))
	return result, nil
}

func axisName(a Axis) string {
	if a == nil {
		return "none"
	}
	return a.String()
}
