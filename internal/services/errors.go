// Package services holds the business logic between HTTP handlers and the
// datastore, queue and aggregation engine.
package services

import "net/http"

// Error codes returned by the services
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInvalidAggregate        = "INVALID_AGGREGATE"
	CodeFormModelNotFound       = "FORM_MODEL_NOT_FOUND"
	CodeEntityNotFound          = "ENTITY_NOT_FOUND"
	CodeSubmissionNotFound      = "SUBMISSION_NOT_FOUND"
	CodeDuplicateShortCode      = "DUPLICATE_SHORT_CODE"
	CodeAggregationNotSupported = "AGGREGATION_NOT_SUPPORTED"
	CodeAggregationFailed       = "AGGREGATION_FAILED"
	CodeQueueUnavailable        = "QUEUE_UNAVAILABLE"
	CodeInternal                = "INTERNAL_ERROR"
)

var codeStatus = map[string]int{
	CodeInvalidRequest:          http.StatusBadRequest,
	CodeInvalidAggregate:        http.StatusBadRequest,
	CodeFormModelNotFound:       http.StatusNotFound,
	CodeEntityNotFound:          http.StatusNotFound,
	CodeSubmissionNotFound:      http.StatusNotFound,
	CodeDuplicateShortCode:      http.StatusConflict,
	CodeAggregationNotSupported: http.StatusUnprocessableEntity,
	CodeAggregationFailed:       http.StatusInternalServerError,
	CodeQueueUnavailable:        http.StatusServiceUnavailable,
	CodeInternal:                http.StatusInternalServerError,
}

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the error the service error was made from, if any.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status of the error code.
func (e *ServiceError) Status() int {
	if status, ok := codeStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func wrapError(code string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: err.Error(), cause: err}
}
