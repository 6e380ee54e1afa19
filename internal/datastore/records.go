package datastore

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

// AddDataRecord stores a record about an existing entity and writes all of
// its view rows in the same transaction. Entity attributes are copied from
// the stored entity; ID, CreatedAt and Void are assigned by the store.
func (s *Store) AddDataRecord(ctx context.Context, record DataRecord) (*DataRecord, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := record.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		var entity Entity
		if err := getDocument(txn, encodeEntityKey(record.EntityID), &entity, ErrEntityNotFound); err != nil {
			return err
		}
		record.EntityType = entity.Type
		record.ShortCode = entity.ShortCode
		record.AggregationPaths = entity.paths()
		record.ID = s.ulids.New(now)
		record.CreatedAt = now
		record.Void = false

		if err := setDocument(txn, encodeRecordKey(record.ID), &record); err != nil {
			return err
		}
		return s.writeRecordRows(txn, &record, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Data record added",
		"record_id", record.ID.String(),
		"entity_id", record.EntityID,
		"form_code", record.FormCode,
		"fields", len(record.Data))
	return &record, nil
}

// GetDataRecord loads a data record, voided or not.
func (s *Store) GetDataRecord(ctx context.Context, id ulid.ULID) (*DataRecord, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	var record DataRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getDocument(txn, encodeRecordKey(id), &record, ErrDataRecordNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// VoidDataRecord marks a record void and removes its view rows. Voiding a
// void record is a no-op.
func (s *Store) VoidDataRecord(ctx context.Context, id ulid.ULID) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var record DataRecord
		if err := getDocument(txn, encodeRecordKey(id), &record, ErrDataRecordNotFound); err != nil {
			return err
		}
		if record.Void {
			return nil
		}
		if err := s.writeRecordRows(txn, &record, true); err != nil {
			return err
		}
		record.Void = true
		return setDocument(txn, encodeRecordKey(id), &record)
	})
}
