package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mangrove/mangrove/internal/aggregation"
)

// SaveFormModel creates a form model or replaces it with the next revision.
func (s *Store) SaveFormModel(ctx context.Context, form FormModel) (*FormModel, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := form.validate(); err != nil {
		return nil, err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing FormModel
		err := getDocument(txn, encodeFormKey(form.Code), &existing, ErrFormModelNotFound)
		switch {
		case err == nil:
			form.Revision = existing.Revision + 1
		case errors.Is(err, ErrFormModelNotFound):
			form.Revision = 1
		default:
			return err
		}
		form.UpdatedAt = time.Now().UTC()
		return setDocument(txn, encodeFormKey(form.Code), &form)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Form model saved",
		"form_code", form.Code,
		"entity_type", form.EntityType,
		"revision", form.Revision)
	return &form, nil
}

// GetFormModelByCode loads a form model.
func (s *Store) GetFormModelByCode(ctx context.Context, code string) (*FormModel, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	var form FormModel
	err := s.db.View(func(txn *badger.Txn) error {
		return getDocument(txn, encodeFormKey(code), &form, ErrFormModelNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// LookupForm resolves a form code for the aggregation engine.
func (s *Store) LookupForm(ctx context.Context, code string) (aggregation.FormInfo, error) {
	form, err := s.GetFormModelByCode(ctx, code)
	if err != nil {
		return aggregation.FormInfo{}, err
	}
	return aggregation.FormInfo{FormCode: form.Code, EntityType: form.EntityType}, nil
}
