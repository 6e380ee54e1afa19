package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/mangrove/mangrove/internal/datastore"
)

var (
	// ErrInvalidSubmission is returned for a submission missing its form
	// code, its entity or its values, or that cannot be decoded.
	ErrInvalidSubmission = errors.New("ingest: invalid submission")

	// ErrUnknownForm is returned when no form model has the submission's code.
	ErrUnknownForm = errors.New("ingest: unknown form code")

	// ErrUnknownEntity is returned when the submission's entity does not exist.
	ErrUnknownEntity = errors.New("ingest: unknown entity")

	// ErrEntityTypeMismatch is returned when the entity is not of the type the
	// form collects data about.
	ErrEntityTypeMismatch = errors.New("ingest: entity type does not match form")
)

// IsPermanent reports whether err rejects the submission for good.
// Redelivering such a submission cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidSubmission) ||
		errors.Is(err, ErrUnknownForm) ||
		errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrEntityTypeMismatch) ||
		errors.Is(err, datastore.ErrInvalidDocument)
}

// Submission is one filled-in form about one entity, as carried on the
// queue. The entity is named by id or by short code within the form's
// entity type.
type Submission struct {
	ID        string         `json:"id"`
	FormCode  string         `json:"form_code"`
	EntityID  string         `json:"entity_id,omitempty"`
	ShortCode string         `json:"short_code,omitempty"`
	EventTime time.Time      `json:"event_time"`
	Values    map[string]any `json:"values"`
	Transport string         `json:"transport,omitempty"`
	Source    string         `json:"source,omitempty"`
}

// Validate checks the fields every submission needs.
func (s *Submission) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSubmission)
	}
	if s.FormCode == "" {
		return fmt.Errorf("%w: form_code is required", ErrInvalidSubmission)
	}
	if s.EntityID == "" && s.ShortCode == "" {
		return fmt.Errorf("%w: entity_id or short_code is required", ErrInvalidSubmission)
	}
	if len(s.Values) == 0 {
		return fmt.Errorf("%w: values are required", ErrInvalidSubmission)
	}
	return nil
}

// cleanValues keeps the answers to questions of form, dropping empty ones.
func cleanValues(form *datastore.FormModel, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for code, v := range values {
		if _, ok := form.FieldByCode(code); !ok {
			continue
		}
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[code] = v
	}
	return out
}
