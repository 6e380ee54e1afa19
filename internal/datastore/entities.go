package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// SaveEntity creates or replaces an entity. A missing id is generated.
// Re-saving an entity moves its location index rows; data records already
// written keep the attributes they were written with.
func (s *Store) SaveEntity(ctx context.Context, entity Entity) (*Entity, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := entity.validate(); err != nil {
		return nil, err
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		owner, err := lookupShortCode(txn, entity.Type, entity.ShortCode)
		if err != nil && !errors.Is(err, ErrEntityNotFound) {
			return err
		}
		if err == nil && owner != entity.ID {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateShortCode, entity.Type, entity.ShortCode)
		}

		var existing Entity
		err = getDocument(txn, encodeEntityKey(entity.ID), &existing, ErrEntityNotFound)
		switch {
		case err == nil:
			entity.CreatedAt = existing.CreatedAt
			if err := writeEntityRows(txn, &existing, true); err != nil {
				return err
			}
			if err := txn.Delete(encodeShortCodeKey(existing.Type, existing.ShortCode)); err != nil {
				return err
			}
		case errors.Is(err, ErrEntityNotFound):
			if entity.CreatedAt.IsZero() {
				entity.CreatedAt = time.Now().UTC()
			}
		default:
			return err
		}

		if err := setDocument(txn, encodeEntityKey(entity.ID), &entity); err != nil {
			return err
		}
		if err := txn.Set(encodeShortCodeKey(entity.Type, entity.ShortCode), []byte(entity.ID)); err != nil {
			return err
		}
		return writeEntityRows(txn, &entity, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Entity saved",
		"entity_id", entity.ID,
		"entity_type", entity.Type,
		"short_code", entity.ShortCode)
	return &entity, nil
}

// GetEntity loads an entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (*Entity, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	var entity Entity
	err := s.db.View(func(txn *badger.Txn) error {
		return getDocument(txn, encodeEntityKey(id), &entity, ErrEntityNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetEntityByShortCode loads an entity by its short code within a type.
func (s *Store) GetEntityByShortCode(ctx context.Context, entityType, shortCode string) (*Entity, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	var entity Entity
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupShortCode(txn, entityType, shortCode)
		if err != nil {
			return err
		}
		return getDocument(txn, encodeEntityKey(id), &entity, ErrEntityNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func lookupShortCode(txn *badger.Txn, entityType, shortCode string) (string, error) {
	item, err := txn.Get(encodeShortCodeKey(entityType, shortCode))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrEntityNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}
