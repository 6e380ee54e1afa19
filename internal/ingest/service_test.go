package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangrove/mangrove/internal/config"
	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/queue"
)

func newMemoryQueue(t *testing.T) queue.Queue {
	t.Helper()
	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"}, queue.Options{Logger: logging.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestSubmitAndConsume(t *testing.T) {
	s := newTestStore(t)
	q := newMemoryQueue(t)
	ctx := context.Background()

	svc := NewService(q, NewProcessor(s, logging.NewNop()), "", logging.NewNop())
	require.NoError(t, svc.Start(ctx))
	defer func() { _ = svc.Stop() }()

	submitter := NewSubmitter(q, s, "", logging.NewNop())
	sub, err := submitter.Submit(ctx, Submission{
		FormCode:  "CL1",
		ShortCode: "cli1",
		EventTime: eventTime,
		Values:    map[string]any{"patients": 12.0},
		Transport: "http",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)

	require.Eventually(t, func() bool {
		log, err := s.GetSubmissionLog(ctx, sub.ID)
		return err == nil && log.Status == datastore.SubmissionAccepted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitLogsPending(t *testing.T) {
	s := newTestStore(t)
	q := newMemoryQueue(t)
	ctx := context.Background()

	submitter := NewSubmitter(q, s, "custom.subject", logging.NewNop())
	sub, err := submitter.Submit(ctx, Submission{
		ID:       "given-id",
		FormCode: "CL1",
		EntityID: "clinic-1",
		Values:   map[string]any{"patients": 1.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "given-id", sub.ID)

	log, err := s.GetSubmissionLog(ctx, "given-id")
	require.NoError(t, err)
	assert.Equal(t, datastore.SubmissionPending, log.Status)
	assert.Equal(t, 1, q.(*queue.MemoryQueue).PendingCount("custom.subject"))
}

func TestSubmitInvalid(t *testing.T) {
	s := newTestStore(t)
	q := newMemoryQueue(t)

	submitter := NewSubmitter(q, s, "", logging.NewNop())
	_, err := submitter.Submit(context.Background(), Submission{FormCode: "CL1"})
	assert.ErrorIs(t, err, ErrInvalidSubmission)
	assert.Equal(t, 0, q.(*queue.MemoryQueue).PendingCount("mangrove.submissions"))
}

type failingPublisher struct{ queue.Publisher }

func (failingPublisher) Publish(context.Context, string, []byte) error {
	return errors.New("broker down")
}

func TestSubmitPublishFailure(t *testing.T) {
	s := newTestStore(t)

	submitter := NewSubmitter(failingPublisher{}, s, "", logging.NewNop())
	_, err := submitter.Submit(context.Background(), Submission{
		FormCode: "CL1",
		EntityID: "clinic-1",
		Values:   map[string]any{"patients": 1.0},
	})
	assert.EqualError(t, err, "broker down")
}

func TestServiceStopIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	q := newMemoryQueue(t)

	svc := NewService(q, NewProcessor(s, logging.NewNop()), "", logging.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.Stop())
	assert.NoError(t, svc.Stop())

	// Subscribing again works once stopped
	require.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.Stop())
}
