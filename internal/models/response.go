package models

import (
	"time"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/datastore"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"` // dependency -> "ok" or the failure
}

// FormModelResponse represents form model response
type FormModelResponse struct {
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	EntityType string            `json:"entity_type"`
	Fields     []FieldDefinition `json:"fields"`
	Revision   int               `json:"revision"`
	UpdatedAt  string            `json:"updated_at"`
}

// NewFormModelResponse converts a stored form model
func NewFormModelResponse(f *datastore.FormModel) FormModelResponse {
	fields := make([]FieldDefinition, 0, len(f.Fields))
	for _, field := range f.Fields {
		fields = append(fields, FieldDefinition(field))
	}
	return FormModelResponse{
		Code:       f.Code,
		Name:       f.Name,
		EntityType: f.EntityType,
		Fields:     fields,
		Revision:   f.Revision,
		UpdatedAt:  f.UpdatedAt.Format(time.RFC3339),
	}
}

// EntityResponse represents entity response
type EntityResponse struct {
	ID               string              `json:"id"`
	Type             string              `json:"type"`
	ShortCode        string              `json:"short_code"`
	Location         []string            `json:"location,omitempty"`
	AggregationPaths map[string][]string `json:"aggregation_paths,omitempty"`
	CreatedAt        string              `json:"created_at"`
}

// NewEntityResponse converts a stored entity
func NewEntityResponse(e *datastore.Entity) EntityResponse {
	return EntityResponse{
		ID:               e.ID,
		Type:             e.Type,
		ShortCode:        e.ShortCode,
		Location:         e.Location,
		AggregationPaths: e.AggregationPaths,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
}

// SubmissionResponse represents the state of a submission
type SubmissionResponse struct {
	ID           string   `json:"id"`
	FormCode     string   `json:"form_code"`
	Status       string   `json:"status"`
	Errors       []string `json:"errors,omitempty"`
	DataRecordID string   `json:"data_record_id,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// NewSubmissionResponse converts a stored submission log
func NewSubmissionResponse(l *datastore.SubmissionLog) SubmissionResponse {
	return SubmissionResponse{
		ID:           l.ID,
		FormCode:     l.FormCode,
		Status:       string(l.Status),
		Errors:       l.Errors,
		DataRecordID: l.DataRecordID,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    l.UpdatedAt.Format(time.RFC3339),
	}
}

// SubmissionAcceptedResponse acknowledges queued submissions
type SubmissionAcceptedResponse struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// AggregateResponse represents aggregation response. Results are keyed by
// entity id, short code, "/"-joined path or GrandTotals.
type AggregateResponse struct {
	Results aggregation.Result `json:"results"`
}

// LatestResponse represents the latest value of every field of each entity
// of a type, keyed by short code
type LatestResponse struct {
	EntityType string             `json:"entity_type"`
	Values     aggregation.Result `json:"values"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
