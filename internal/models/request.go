package models

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// FieldDefinition represents one question of a form model
type FieldDefinition struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// CreateFormModelRequest represents create form model request
type CreateFormModelRequest struct {
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	EntityType string            `json:"entity_type"`
	Fields     []FieldDefinition `json:"fields"`
}

// Validate checks the required fields of the request
func (r *CreateFormModelRequest) Validate() error {
	if r.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "'code' is required")
	}
	if r.EntityType == "" {
		return fiber.NewError(fiber.StatusBadRequest, "'entity_type' is required")
	}
	if len(r.Fields) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "'fields' must not be empty")
	}
	for _, f := range r.Fields {
		if f.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "every field needs a 'code'")
		}
	}
	return nil
}

// CreateEntityRequest represents create entity request
type CreateEntityRequest struct {
	ID               string              `json:"id,omitempty"`
	Type             string              `json:"type"`
	ShortCode        string              `json:"short_code"`
	Location         []string            `json:"location,omitempty"`
	AggregationPaths map[string][]string `json:"aggregation_paths,omitempty"`
}

// Validate checks the required fields of the request
func (r *CreateEntityRequest) Validate() error {
	if r.Type == "" {
		return fiber.NewError(fiber.StatusBadRequest, "'type' is required")
	}
	if r.ShortCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "'short_code' is required")
	}
	return nil
}

// SubmissionRequest represents a form submission
type SubmissionRequest struct {
	FormCode  string         `json:"form_code"`
	EntityID  string         `json:"entity_id,omitempty"`
	ShortCode string         `json:"short_code,omitempty"`
	EventTime string         `json:"event_time,omitempty"` // RFC3339, defaults to processing time
	Values    map[string]any `json:"values"`
	Source    string         `json:"source,omitempty"`

	EventTimeParsed time.Time `json:"-"`
}

// Validate checks the request and parses EventTime into EventTimeParsed
func (r *SubmissionRequest) Validate() error {
	if r.FormCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "'form_code' is required")
	}
	if r.EntityID == "" && r.ShortCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "'entity_id' or 'short_code' is required")
	}
	if len(r.Values) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "'values' must not be empty")
	}
	if r.EventTime != "" {
		t, err := time.Parse(time.RFC3339, r.EventTime)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "event_time must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}
		r.EventTimeParsed = t
	}
	return nil
}

// SubmissionBatchRequest represents several submissions queued at once
type SubmissionBatchRequest struct {
	Submissions []SubmissionRequest `json:"submissions"`
}
