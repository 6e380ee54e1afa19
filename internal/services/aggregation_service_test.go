package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
)

func newAggregationService(t *testing.T) *AggregationService {
	t.Helper()
	s := newClinicStore(t)
	engine := aggregation.NewEngine(s, s, aggregation.Config{Logger: logging.NewNop()})
	return NewAggregationService(logging.NewNop(), engine)
}

func validRequest(t *testing.T, req models.AggregateRequest) *models.AggregateRequest {
	t.Helper()
	require.NoError(t, req.Validate())
	return &req
}

func TestAggregateByEntityType(t *testing.T) {
	svc := newAggregationService(t)

	result, err := svc.AggregateByEntityType(context.Background(), "clinic", validRequest(t, models.AggregateRequest{
		Aggregates:         map[string]string{"patients": "sum", "beds": "max"},
		AggregateOn:        &models.AxisSpec{Type: models.AxisEntity},
		IncludeGrandTotals: true,
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"patients": 30.0, "beds": 500.0}, result[aggregation.EntityKey("1")])
	assert.Equal(t, map[string]any{"patients": 0.0, "beds": 100.0}, result[aggregation.EntityKey("2")])
	assert.Equal(t, map[string]any{"patients": 30.0, "beds": 600.0}, result[aggregation.GrandTotalsKey])
}

func TestAggregateForFormByLocation(t *testing.T) {
	svc := newAggregationService(t)

	result, err := svc.AggregateForForm(context.Background(), "CL1", validRequest(t, models.AggregateRequest{
		Aggregates:  map[string]string{"patients": "sum"},
		AggregateOn: &models.AxisSpec{Type: models.AxisLocation, Level: 2},
	}))
	require.NoError(t, err)
	assert.Equal(t, aggregation.Result{aggregation.PathKey("India", "MH"): {"patients": 30.0}}, result)
}

func TestAggregateWithTimeFilter(t *testing.T) {
	svc := newAggregationService(t)

	result, err := svc.AggregateWithTimeFilter(context.Background(), "CL1", validRequest(t, models.AggregateRequest{
		Aggregates: map[string]string{"patients": "sum"},
		StartTime:  "2010-02-01T00:00:00Z",
		EndTime:    "2010-02-05T23:59:59Z",
	}))
	require.NoError(t, err)
	assert.Equal(t, aggregation.Result{aggregation.GrandTotalsKey: {"patients": 10.0}}, result)
}

func TestAggregateForPeriod(t *testing.T) {
	svc := newAggregationService(t)

	result, err := svc.AggregateForPeriod(context.Background(), "CL1", validRequest(t, models.AggregateRequest{
		Aggregates: map[string]string{"patients": "sum", "beds": "max", "director": "latest"},
		Period:     &models.PeriodSpec{Type: "month", Month: 2, Year: 2010},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"patients": 30.0, "beds": 500.0, "director": "Dr. B"}, result[aggregation.EntityKey("cli1")])

	_, err = svc.AggregateForPeriod(context.Background(), "CL1", validRequest(t, models.AggregateRequest{
		Aggregates: map[string]string{"patients": "sum"},
	}))
	assertServiceError(t, err, CodeInvalidAggregate)
}

func TestLatest(t *testing.T) {
	svc := newAggregationService(t)

	latest, err := svc.Latest(context.Background(), "clinic")
	require.NoError(t, err)
	assert.Equal(t, aggregation.Result{
		aggregation.EntityKey("cli1"): {"beds": 500.0, "patients": 20.0, "director": "Dr. B"},
		aggregation.EntityKey("cli2"): {"beds": 100.0, "patients": 0.0},
	}, latest)
}

func TestAggregationServiceErrors(t *testing.T) {
	svc := newAggregationService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		wantCode string
	}{
		{
			name: "unknown aggregate",
			call: func() error {
				_, err := svc.AggregateByEntityType(ctx, "clinic", validRequest(t, models.AggregateRequest{
					Aggregates: map[string]string{"patients": "median"},
				}))
				return err
			},
			wantCode: CodeInvalidAggregate,
		},
		{
			name: "unknown form",
			call: func() error {
				_, err := svc.AggregateForForm(ctx, "NOPE", validRequest(t, models.AggregateRequest{
					Aggregates: map[string]string{"patients": "sum"},
				}))
				return err
			},
			wantCode: CodeFormModelNotFound,
		},
		{
			name: "average over text",
			call: func() error {
				_, err := svc.AggregateWithTimeFilter(ctx, "CL1", validRequest(t, models.AggregateRequest{
					Aggregates: map[string]string{"director": "average"},
				}))
				return err
			},
			wantCode: CodeAggregationNotSupported,
		},
		{
			name: "location axis over time filter",
			call: func() error {
				_, err := svc.AggregateWithTimeFilter(ctx, "CL1", validRequest(t, models.AggregateRequest{
					Aggregates:  map[string]string{"patients": "sum"},
					AggregateOn: &models.AxisSpec{Type: models.AxisLocation, Level: 1},
				}))
				return err
			},
			wantCode: CodeInvalidAggregate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertServiceError(t, tt.call(), tt.wantCode)
		})
	}
}

type brokenAggregator struct{ Aggregator }

func (brokenAggregator) Aggregate(context.Context, string, aggregation.Request) (aggregation.Result, error) {
	return nil, errors.New("disk on fire")
}

func TestAggregationFailed(t *testing.T) {
	svc := NewAggregationService(logging.NewNop(), brokenAggregator{})

	_, err := svc.AggregateByEntityType(context.Background(), "clinic", validRequest(t, models.AggregateRequest{
		Aggregates: map[string]string{"patients": "sum"},
	}))
	se := assertServiceError(t, err, CodeAggregationFailed)
	assert.Equal(t, http.StatusInternalServerError, se.Status())
	assert.Equal(t, "disk on fire", se.Details["error"])
}

func assertServiceError(t *testing.T, err error, code string) *ServiceError {
	t.Helper()
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, code, se.Code)
	return se
}
