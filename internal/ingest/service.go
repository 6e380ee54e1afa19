package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/queue"
	"github.com/mangrove/mangrove/internal/utils"
)

// LogStore records the state of queued submissions.
type LogStore interface {
	SaveSubmissionLog(ctx context.Context, log datastore.SubmissionLog) (*datastore.SubmissionLog, error)
}

// Submitter puts submissions on the queue.
type Submitter struct {
	publisher queue.Publisher
	logs      LogStore
	subject   string
	logger    *logging.Logger
}

// NewSubmitter creates a submitter publishing on subject.
func NewSubmitter(publisher queue.Publisher, logs LogStore, subject string, logger *logging.Logger) *Submitter {
	if subject == "" {
		subject = utils.DefaultSubmissionSubject
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Submitter{
		publisher: publisher,
		logs:      logs,
		subject:   subject,
		logger:    logger.With("component", "submitter"),
	}
}

// Submit assigns sub an id when it has none, logs it as pending and
// publishes it. The returned submission carries the id.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if err := sub.Validate(); err != nil {
		return sub, err
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return sub, fmt.Errorf("encode submission: %w", err)
	}

	_, err = s.logs.SaveSubmissionLog(ctx, datastore.SubmissionLog{
		ID:        sub.ID,
		FormCode:  sub.FormCode,
		Transport: sub.Transport,
		Source:    sub.Source,
		Values:    sub.Values,
		Status:    datastore.SubmissionPending,
	})
	if err != nil {
		return sub, fmt.Errorf("log submission: %w", err)
	}

	if err := s.publisher.Publish(ctx, s.subject, data); err != nil {
		s.logger.Error("Failed to publish submission",
			"error", err,
			"submission_id", sub.ID,
			"subject", s.subject)
		return sub, err
	}

	s.logger.Debug("Submission queued",
		"submission_id", sub.ID,
		"form_code", sub.FormCode,
		"subject", s.subject)
	return sub, nil
}

// Service consumes the submission subject and feeds the processor.
type Service struct {
	subscriber queue.Subscriber
	processor  *Processor
	subject    string
	logger     *logging.Logger
	cancel     context.CancelFunc
}

// NewService creates a consumer of subject.
func NewService(subscriber queue.Subscriber, processor *Processor, subject string, logger *logging.Logger) *Service {
	if subject == "" {
		subject = utils.DefaultSubmissionSubject
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Service{
		subscriber: subscriber,
		processor:  processor,
		subject:    subject,
		logger:     logger.With("component", "ingest"),
	}
}

// Start subscribes to the submission subject.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if err := s.subscriber.Subscribe(ctx, s.subject, s.processor.Handle); err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.cancel = cancel
	s.logger.Info("Subscribed to submission subject", "subject", s.subject)
	return nil
}

// Stop unsubscribes. Messages in flight finish on the transport's terms.
func (s *Service) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil
	if err := s.subscriber.Unsubscribe(s.subject); err != nil {
		s.logger.Debug("Unsubscribe after cancel", "error", err)
	}
	s.logger.Info("Ingest service stopped", "subject", s.subject)
	return nil
}
