package services

import (
	"context"
	"errors"

	"github.com/mangrove/mangrove/internal/datastore"
	"github.com/mangrove/mangrove/internal/logging"
	"github.com/mangrove/mangrove/internal/models"
	"github.com/mangrove/mangrove/internal/utils"
)

// RegistryStore holds form models and entities.
type RegistryStore interface {
	SaveFormModel(ctx context.Context, form datastore.FormModel) (*datastore.FormModel, error)
	GetFormModelByCode(ctx context.Context, code string) (*datastore.FormModel, error)
	SaveEntity(ctx context.Context, entity datastore.Entity) (*datastore.Entity, error)
	GetEntity(ctx context.Context, id string) (*datastore.Entity, error)
	Ping(ctx context.Context) error
}

// RegistryService manages form models and entities
type RegistryService struct {
	logger *logging.Logger
	store  RegistryStore
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(logger *logging.Logger, store RegistryStore) *RegistryService {
	return &RegistryService{
		logger: logger,
		store:  store,
	}
}

// Ping checks that the registry store is reachable.
func (s *RegistryService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, utils.HealthCheckTimeout)
	defer cancel()
	return s.store.Ping(ctx)
}

// SaveFormModel creates a form model or stores its next revision.
func (s *RegistryService) SaveFormModel(ctx context.Context, input *models.CreateFormModelRequest) (*datastore.FormModel, error) {
	fields := make([]datastore.Field, 0, len(input.Fields))
	for _, f := range input.Fields {
		fields = append(fields, datastore.Field(f))
	}

	form, err := s.store.SaveFormModel(ctx, datastore.FormModel{
		Code:       input.Code,
		Name:       input.Name,
		EntityType: input.EntityType,
		Fields:     fields,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.logger.Info("Form model saved",
		"form_code", form.Code,
		"entity_type", form.EntityType,
		"revision", form.Revision)
	return form, nil
}

// GetFormModel loads a form model by code.
func (s *RegistryService) GetFormModel(ctx context.Context, code string) (*datastore.FormModel, error) {
	form, err := s.store.GetFormModelByCode(ctx, code)
	if err != nil {
		return nil, s.mapError(err)
	}
	return form, nil
}

// SaveEntity creates or replaces an entity.
func (s *RegistryService) SaveEntity(ctx context.Context, input *models.CreateEntityRequest) (*datastore.Entity, error) {
	entity, err := s.store.SaveEntity(ctx, datastore.Entity{
		ID:               input.ID,
		Type:             input.Type,
		ShortCode:        input.ShortCode,
		Location:         input.Location,
		AggregationPaths: input.AggregationPaths,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.logger.Info("Entity saved",
		"entity_id", entity.ID,
		"entity_type", entity.Type,
		"short_code", entity.ShortCode)
	return entity, nil
}

// GetEntity loads an entity by id.
func (s *RegistryService) GetEntity(ctx context.Context, id string) (*datastore.Entity, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return entity, nil
}

func (s *RegistryService) mapError(err error) *ServiceError {
	switch {
	case errors.Is(err, datastore.ErrFormModelNotFound):
		return wrapError(CodeFormModelNotFound, err)
	case errors.Is(err, datastore.ErrEntityNotFound):
		return wrapError(CodeEntityNotFound, err)
	case errors.Is(err, datastore.ErrDuplicateShortCode):
		return wrapError(CodeDuplicateShortCode, err)
	case errors.Is(err, datastore.ErrInvalidDocument):
		return wrapError(CodeInvalidRequest, err)
	default:
		s.logger.Error("Registry store failed", "error", err)
		return &ServiceError{Code: CodeInternal, Message: "Failed to access registry", cause: err}
	}
}
