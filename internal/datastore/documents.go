package datastore

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mangrove/mangrove/internal/aggregation"
)

// Field is one question of a form model.
type Field struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
}

// FormModel is a versioned questionnaire definition. Every submission of a
// form is about an entity of EntityType.
type FormModel struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	EntityType string    `json:"entity_type"`
	Fields     []Field   `json:"fields"`
	Revision   int       `json:"revision"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (f *FormModel) validate() error {
	if f.Code == "" {
		return fmt.Errorf("%w: form model code is required", ErrInvalidDocument)
	}
	if f.EntityType == "" {
		return fmt.Errorf("%w: form model %s has no entity type", ErrInvalidDocument, f.Code)
	}
	seen := make(map[string]bool, len(f.Fields))
	for _, field := range f.Fields {
		if field.Code == "" {
			return fmt.Errorf("%w: form model %s has a field without code", ErrInvalidDocument, f.Code)
		}
		if seen[field.Code] {
			return fmt.Errorf("%w: form model %s repeats field %s", ErrInvalidDocument, f.Code, field.Code)
		}
		seen[field.Code] = true
	}
	return nil
}

// FieldByCode returns the field with the given code.
func (f *FormModel) FieldByCode(code string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Code == code {
			return field, true
		}
	}
	return Field{}, false
}

// Entity is a subject or reporter data is collected about. AggregationPaths
// holds named hierarchies the entity sits in; its location is indexed under
// aggregation.GeoAggregationType.
type Entity struct {
	ID               string              `json:"id"`
	ShortCode        string              `json:"short_code"`
	Type             string              `json:"type"`
	Location         []string            `json:"location,omitempty"`
	AggregationPaths map[string][]string `json:"aggregation_paths,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

func (e *Entity) validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: entity type is required", ErrInvalidDocument)
	}
	if e.ShortCode == "" {
		return fmt.Errorf("%w: entity short code is required", ErrInvalidDocument)
	}
	return nil
}

// paths returns the aggregation paths including the location.
func (e *Entity) paths() map[string][]string {
	out := make(map[string][]string, len(e.AggregationPaths)+1)
	for name, path := range e.AggregationPaths {
		out[name] = path
	}
	if len(e.Location) > 0 {
		out[aggregation.GeoAggregationType] = e.Location
	}
	return out
}

// DataRecord is one submission's values about one entity. Entity attributes
// are copied in when the record is written so views never join.
type DataRecord struct {
	ID               ulid.ULID           `json:"id"`
	EntityID         string              `json:"entity_id"`
	EntityType       string              `json:"entity_type"`
	ShortCode        string              `json:"short_code"`
	AggregationPaths map[string][]string `json:"aggregation_paths,omitempty"`
	FormCode         string              `json:"form_code"`
	EventTime        time.Time           `json:"event_time"`
	Data             map[string]any      `json:"data"`
	SubmissionID     string              `json:"submission_id,omitempty"`
	Void             bool                `json:"void"`
	CreatedAt        time.Time           `json:"created_at"`
}

func (r *DataRecord) validate() error {
	if r.EntityID == "" {
		return fmt.Errorf("%w: data record has no entity", ErrInvalidDocument)
	}
	if r.FormCode == "" {
		return fmt.Errorf("%w: data record has no form code", ErrInvalidDocument)
	}
	if r.EventTime.IsZero() {
		return fmt.Errorf("%w: data record has no event time", ErrInvalidDocument)
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: data record has no values", ErrInvalidDocument)
	}
	return nil
}

// SubmissionStatus is the processing state of a submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionFailed   SubmissionStatus = "failed"
)

// SubmissionLog tracks one submission from the moment it is queued until it
// became a data record or was rejected.
type SubmissionLog struct {
	ID           string           `json:"id"`
	FormCode     string           `json:"form_code"`
	Transport    string           `json:"transport,omitempty"`
	Source       string           `json:"source,omitempty"`
	Values       map[string]any   `json:"values,omitempty"`
	Status       SubmissionStatus `json:"status"`
	Errors       []string         `json:"errors,omitempty"`
	DataRecordID string           `json:"data_record_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (l *SubmissionLog) validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: submission log id is required", ErrInvalidDocument)
	}
	switch l.Status {
	case SubmissionPending, SubmissionAccepted, SubmissionFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown submission status %q", ErrInvalidDocument, l.Status)
	}
}
