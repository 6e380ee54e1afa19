package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/logging"
)

// Store is the part of the datastore submissions are written through.
type Store interface {
	GetFormModelByCode(ctx context.Context, code string) (*datastore.FormModel, error)
	GetEntity(ctx context.Context, id string) (*datastore.Entity, error)
	GetEntityByShortCode(ctx context.Context, entityType, shortCode string) (*datastore.Entity, error)
	AddDataRecord(ctx context.Context, record datastore.DataRecord) (*datastore.DataRecord, error)
	SaveSubmissionLog(ctx context.Context, log datastore.SubmissionLog) (*datastore.SubmissionLog, error)
	GetSubmissionLog(ctx context.Context, id string) (*datastore.SubmissionLog, error)
}

// Processor turns submissions into data records.
type Processor struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// NewProcessor creates a processor writing to store.
func NewProcessor(store Store, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Global()
	}
	return &Processor{
		store:  store,
		logger: logger.With("component", "ingest"),
		now:    time.Now,
	}
}

// Process resolves the form and entity of sub and stores its values as a
// data record. A zero event time means now.
func (p *Processor) Process(ctx context.Context, sub Submission) (*datastore.DataRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	form, err := p.store.GetFormModelByCode(ctx, sub.FormCode)
	if errors.Is(err, datastore.ErrFormModelNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownForm, sub.FormCode)
	}
	if err != nil {
		return nil, err
	}

	entity, err := p.resolveEntity(ctx, form, sub)
	if err != nil {
		return nil, err
	}
	if entity.Type != form.EntityType {
		return nil, fmt.Errorf("%w: entity %s is a %s, form %s collects %s",
			ErrEntityTypeMismatch, entity.ID, entity.Type, form.Code, form.EntityType)
	}

	values := cleanValues(form, sub.Values)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no answers to questions of form %s", ErrInvalidSubmission, form.Code)
	}

	eventTime := sub.EventTime
	if eventTime.IsZero() {
		eventTime = p.now()
	}

	return p.store.AddDataRecord(ctx, datastore.DataRecord{
		EntityID:     entity.ID,
		FormCode:     form.Code,
		EventTime:    eventTime.UTC(),
		Data:         values,
		SubmissionID: sub.ID,
	})
}

func (p *Processor) resolveEntity(ctx context.Context, form *datastore.FormModel, sub Submission) (*datastore.Entity, error) {
	var (
		entity *datastore.Entity
		err    error
	)
	if sub.EntityID != "" {
		entity, err = p.store.GetEntity(ctx, sub.EntityID)
	} else {
		entity, err = p.store.GetEntityByShortCode(ctx, form.EntityType, sub.ShortCode)
	}
	if errors.Is(err, datastore.ErrEntityNotFound) {
		ref := sub.EntityID
		if ref == "" {
			ref = form.EntityType + "/" + sub.ShortCode
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, ref)
	}
	return entity, err
}

// Handle is the queue handler for submissions. Rejected submissions are
// logged as failed and acknowledged; storage errors are returned so the
// transport redelivers. A submission already accepted is skipped.
func (p *Processor) Handle(ctx context.Context, subject string, data []byte) error {
	var sub Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		p.logger.Error("Failed to parse submission",
			"error", err,
			"subject", subject,
			"data_preview", string(data[:min(200, len(data))]))
		return nil
	}

	logger := p.logger.With("submission_id", sub.ID, "form_code", sub.FormCode)

	if sub.ID != "" {
		existing, err := p.store.GetSubmissionLog(ctx, sub.ID)
		if err == nil && existing.Status == datastore.SubmissionAccepted {
			logger.Debug("Submission already accepted, skipping")
			return nil
		}
	}

	record, err := p.Process(ctx, sub)
	if err != nil {
		if !IsPermanent(err) {
			logger.Warn("Failed to store submission", "error", err)
			return err
		}
		logger.Warn("Submission rejected", "error", err)
		if sub.ID == "" {
			return nil
		}
		return p.saveLog(ctx, sub, datastore.SubmissionFailed, "", []string{err.Error()})
	}

	logger.Debug("Submission stored", "record_id", record.ID.String())
	// The record is written; redelivery would store it twice
	if err := p.saveLog(ctx, sub, datastore.SubmissionAccepted, record.ID.String(), nil); err != nil {
		logger.Error("Failed to mark submission accepted", "error", err)
	}
	return nil
}

func (p *Processor) saveLog(ctx context.Context, sub Submission, status datastore.SubmissionStatus, recordID string, errs []string) error {
	_, err := p.store.SaveSubmissionLog(ctx, datastore.SubmissionLog{
		ID:           sub.ID,
		FormCode:     sub.FormCode,
		Transport:    sub.Transport,
		Source:       sub.Source,
		Values:       sub.Values,
		Status:       status,
		Errors:       errs,
		DataRecordID: recordID,
	})
	if err != nil {
		return fmt.Errorf("save submission log %s: %w", sub.ID, err)
	}
	return nil
}
