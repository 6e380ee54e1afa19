package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	err := NewServiceError("TEST_ERROR", "Test error message")

	if err.Error() != "Test error message" {
		t.Errorf("Expected 'Test error message', got '%s'", err.Error())
	}
	if err.Details != nil {
		t.Errorf("Expected nil details, got %v", err.Details)
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{"field": "beds"}
	err := NewServiceErrorWithDetails(CodeAggregationNotSupported, "not supported", details)

	if err.Code != CodeAggregationNotSupported {
		t.Errorf("Expected code %s, got %s", CodeAggregationNotSupported, err.Code)
	}
	if err.Details["field"] != "beds" {
		t.Errorf("Expected field 'beds', got '%v'", err.Details["field"])
	}
}

func TestServiceError_Status(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeFormModelNotFound, http.StatusNotFound},
		{CodeAggregationNotSupported, http.StatusUnprocessableEntity},
		{CodeInvalidAggregate, http.StatusBadRequest},
		{CodeAggregationFailed, http.StatusInternalServerError},
		{CodeDuplicateShortCode, http.StatusConflict},
		{CodeQueueUnavailable, http.StatusServiceUnavailable},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := NewServiceError(tt.code, "").Status(); got != tt.want {
			t.Errorf("Status(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := wrapError(CodeInternal, cause)

	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause to match")
	}
	if err.Message != "boom" {
		t.Errorf("Expected message 'boom', got '%s'", err.Message)
	}
}

func TestServiceError_JSONMarshalOmitsEmptyDetails(t *testing.T) {
	jsonBytes, err := json.Marshal(wrapError(CodeInternal, errors.New("boom")))
	if err != nil {
		t.Fatalf("Failed to marshal ServiceError: %v", err)
	}

	jsonString := string(jsonBytes)
	if strings.Contains(jsonString, "details") {
		t.Error("Expected 'details' field to be omitted in JSON")
	}
	if jsonString != `{"code":"INTERNAL_ERROR","message":"boom"}` {
		t.Errorf("Unexpected JSON %s", jsonString)
	}
}
