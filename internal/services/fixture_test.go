package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/logging"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
}

// newClinicStore holds two clinics in Maharashtra and three CL1 records.
func newClinicStore(t *testing.T) *datastore.Store {
	t.Helper()
	s, err := datastore.Open(datastore.Options{InMemory: true, Logger: logging.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	_, err = s.SaveFormModel(ctx, datastore.FormModel{
		Code:       "CL1",
		EntityType: "clinic",
		Fields: []datastore.Field{
			{Name: "Beds", Code: "beds"},
			{Name: "Patients", Code: "patients"},
			{Name: "Director", Code: "director"},
		},
	})
	require.NoError(t, err)

	for _, e := range []datastore.Entity{
		{ID: "1", ShortCode: "cli1", Type: "clinic", Location: []string{"India", "MH", "Pune"}},
		{ID: "2", ShortCode: "cli2", Type: "clinic", Location: []string{"India", "MH", "Mumbai"}},
	} {
		_, err := s.SaveEntity(ctx, e)
		require.NoError(t, err)
	}

	for _, r := range []datastore.DataRecord{
		{EntityID: "1", FormCode: "CL1", EventTime: day(2010, 2, 1), Data: map[string]any{"beds": 300.0, "patients": 10.0, "director": "Dr. A"}},
		{EntityID: "1", FormCode: "CL1", EventTime: day(2010, 2, 10), Data: map[string]any{"beds": 500.0, "patients": 20.0, "director": "Dr. B"}},
		{EntityID: "2", FormCode: "CL1", EventTime: day(2010, 2, 5), Data: map[string]any{"beds": 100.0, "patients": 0.0}},
	} {
		_, err := s.AddDataRecord(ctx, r)
		require.NoError(t, err)
	}
	return s
}
