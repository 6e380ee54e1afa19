package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
	"github.com/mangrove/mangrove/internal/utils"
)

// Aggregator is the part of the aggregation engine the service drives.
type Aggregator interface {
	Aggregate(ctx context.Context, entityType string, req aggregation.Request) (aggregation.Result, error)
	AggregateForForm(ctx context.Context, formCode string, req aggregation.Request) (aggregation.Result, error)
	AggregateByFormCodeWithTimeFilter(ctx context.Context, formCode string, req aggregation.Request) (aggregation.Result, error)
	AggregateForTimePeriod(ctx context.Context, formCode string, period aggregation.Period, req aggregation.Request) (aggregation.Result, error)
	GetLatest(ctx context.Context, entityType string) (aggregation.Result, error)
}

// AggregationService handles aggregation business logic
type AggregationService struct {
	logger  *logging.Logger
	engine  Aggregator
	timeout time.Duration
}

// NewAggregationService creates a new AggregationService
func NewAggregationService(logger *logging.Logger, engine Aggregator) *AggregationService {
	return &AggregationService{
		logger:  logger,
		engine:  engine,
		timeout: utils.AggregationTimeout,
	}
}

// AggregateByEntityType groups the values of every form about entityType.
func (s *AggregationService) AggregateByEntityType(ctx context.Context, entityType string, input *models.AggregateRequest) (aggregation.Result, error) {
	return s.run(ctx, "entity_type", entityType, input, func(ctx context.Context, req aggregation.Request) (aggregation.Result, error) {
		return s.engine.Aggregate(ctx, entityType, req)
	})
}

// AggregateForForm groups the values submitted through one form.
func (s *AggregationService) AggregateForForm(ctx context.Context, formCode string, input *models.AggregateRequest) (aggregation.Result, error) {
	return s.run(ctx, "form_code", formCode, input, func(ctx context.Context, req aggregation.Request) (aggregation.Result, error) {
		return s.engine.AggregateForForm(ctx, formCode, req)
	})
}

// AggregateWithTimeFilter reduces one form's values between the request's
// start and end times.
func (s *AggregationService) AggregateWithTimeFilter(ctx context.Context, formCode string, input *models.AggregateRequest) (aggregation.Result, error) {
	return s.run(ctx, "form_code", formCode, input, func(ctx context.Context, req aggregation.Request) (aggregation.Result, error) {
		return s.engine.AggregateByFormCodeWithTimeFilter(ctx, formCode, req)
	})
}

// AggregateForPeriod reads one form's pre-reduced values for the request's period.
func (s *AggregationService) AggregateForPeriod(ctx context.Context, formCode string, input *models.AggregateRequest) (aggregation.Result, error) {
	if input.PeriodParsed == nil {
		return nil, NewServiceError(CodeInvalidAggregate, "'period' is required")
	}
	return s.run(ctx, "form_code", formCode, input, func(ctx context.Context, req aggregation.Request) (aggregation.Result, error) {
		return s.engine.AggregateForTimePeriod(ctx, formCode, input.PeriodParsed, req)
	})
}

// Latest returns, per short code, the most recent value of every field of
// entities of entityType.
func (s *AggregationService) Latest(ctx context.Context, entityType string) (aggregation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values, err := s.engine.GetLatest(ctx, entityType)
	if err != nil {
		s.logger.Error("Latest lookup failed", "entity_type", entityType, "error", err)
		return nil, s.mapError(err)
	}
	return values, nil
}

func (s *AggregationService) run(
	ctx context.Context,
	scope, target string,
	input *models.AggregateRequest,
	call func(context.Context, aggregation.Request) (aggregation.Result, error),
) (aggregation.Result, error) {
	startTime := time.Now()

	req, err := buildRequest(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := s.logger.WithContext(ctx)
	result, err := call(ctx, req)
	latency := time.Since(startTime)
	if err != nil {
		logger.Error("Aggregation failed",
			scope, target,
			"error", err,
			"latency_ms", latency.Milliseconds())
		return nil, s.mapError(err)
	}

	logger.Info("Aggregation completed",
		scope, target,
		"groups", len(result),
		"latency_ms", latency.Milliseconds())
	return result, nil
}

func buildRequest(input *models.AggregateRequest) (aggregation.Request, error) {
	aggregates := make(aggregation.Aggregates, len(input.Aggregates))
	for field, name := range input.Aggregates {
		kind, err := aggregation.ParseKind(name)
		if err != nil {
			return aggregation.Request{}, NewServiceErrorWithDetails(CodeInvalidAggregate,
				fmt.Sprintf("unknown aggregate %q for field %q", name, field),
				map[string]interface{}{"field": field})
		}
		aggregates[field] = kind
	}
	return aggregation.Request{
		Aggregates:         aggregates,
		On:                 input.Axis,
		Filter:             input.Filter,
		StartTime:          input.StartTimeParsed,
		EndTime:            input.EndTimeParsed,
		IncludeGrandTotals: input.IncludeGrandTotals,
	}, nil
}

func (s *AggregationService) mapError(err error) *ServiceError {
	var notSupported *aggregation.AggregationNotSupportedError
	switch {
	case errors.Is(err, datastore.ErrFormModelNotFound):
		return wrapError(CodeFormModelNotFound, err)
	case errors.As(err, &notSupported):
		return &ServiceError{
			Code:    CodeAggregationNotSupported,
			Message: err.Error(),
			Details: map[string]interface{}{
				"field":       notSupported.Field,
				"aggregation": notSupported.Aggregation.String(),
			},
			cause: err,
		}
	case errors.Is(err, aggregation.ErrUnsupportedAxis),
		errors.Is(err, aggregation.ErrInvalidPeriod),
		errors.Is(err, aggregation.ErrFormCodeRequired),
		errors.Is(err, aggregation.ErrUnknownReduceFunction):
		return wrapError(CodeInvalidAggregate, err)
	default:
		return &ServiceError{
			Code:    CodeAggregationFailed,
			Message: "Failed to execute aggregation",
			Details: map[string]interface{}{"error": err.Error()},
			cause:   err,
		}
	}
}
