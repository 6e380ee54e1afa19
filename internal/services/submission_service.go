package services

import (
	"context"
	"errors"
	"time"

	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/ingest"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
	"github.com/mangrove/mangrove/internal/utils"
)

// SubmissionLogReader loads submission logs.
type SubmissionLogReader interface {
	GetSubmissionLog(ctx context.Context, id string) (*datastore.SubmissionLog, error)
}

// SubmissionService accepts submissions for asynchronous processing
type SubmissionService struct {
	logger    *logging.Logger
	submitter *ingest.Submitter
	logs      SubmissionLogReader
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(logger *logging.Logger, submitter *ingest.Submitter, logs SubmissionLogReader) *SubmissionService {
	return &SubmissionService{
		logger:    logger,
		submitter: submitter,
		logs:      logs,
	}
}

// Submit queues input and returns the submission id.
func (s *SubmissionService) Submit(ctx context.Context, input *models.SubmissionRequest, transport string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	sub, err := s.submitter.Submit(ctx, ingest.Submission{
		FormCode:  input.FormCode,
		EntityID:  input.EntityID,
		ShortCode: input.ShortCode,
		EventTime: input.EventTimeParsed,
		Values:    input.Values,
		Transport: transport,
		Source:    input.Source,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidSubmission) {
			return "", wrapError(CodeInvalidRequest, err)
		}
		s.logger.Error("Failed to queue submission",
			"form_code", input.FormCode,
			"error", err)
		return "", &ServiceError{
			Code:    CodeQueueUnavailable,
			Message: "Failed to queue submission",
			Details: map[string]interface{}{"error": err.Error()},
			cause:   err,
		}
	}
	return sub.ID, nil
}

// SubmitBatch queues every input and returns the ids in order. It stops at
// the first failure and returns the ids queued so far.
func (s *SubmissionService) SubmitBatch(ctx context.Context, inputs []models.SubmissionRequest, transport string) ([]string, error) {
	startTime := time.Now()
	ids := make([]string, 0, len(inputs))
	for i := range inputs {
		id, err := s.Submit(ctx, &inputs[i], transport)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	s.logger.Info("Submissions queued",
		"count", len(ids),
		"latency_ms", time.Since(startTime).Milliseconds())
	return ids, nil
}

// Status returns the processing state of a submission.
func (s *SubmissionService) Status(ctx context.Context, id string) (*datastore.SubmissionLog, error) {
	log, err := s.logs.GetSubmissionLog(ctx, id)
	if err != nil {
		if errors.Is(err, datastore.ErrSubmissionLogNotFound) {
			return nil, wrapError(CodeSubmissionNotFound, err)
		}
		return nil, &ServiceError{Code: CodeInternal, Message: "Failed to load submission", cause: err}
	}
	return log, nil
}
