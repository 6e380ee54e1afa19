package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// SaveSubmissionLog creates or updates a submission log. CreatedAt is kept
// from the stored log.
func (s *Store) SaveSubmissionLog(ctx context.Context, log SubmissionLog) (*SubmissionLog, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := log.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing SubmissionLog
		err := getDocument(txn, encodeLogKey(log.ID), &existing, ErrSubmissionLogNotFound)
		switch {
		case err == nil:
			log.CreatedAt = existing.CreatedAt
		case errors.Is(err, ErrSubmissionLogNotFound):
			log.CreatedAt = now
		default:
			return err
		}
		log.UpdatedAt = now
		return setDocument(txn, encodeLogKey(log.ID), &log)
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetSubmissionLog loads a submission log.
func (s *Store) GetSubmissionLog(ctx context.Context, id string) (*SubmissionLog, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	var log SubmissionLog
	err := s.db.View(func(txn *badger.Txn) error {
		return getDocument(txn, encodeLogKey(id), &log, ErrSubmissionLogNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}
