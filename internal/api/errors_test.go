package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/pipeline"
	"github.com/moolen/bonvoyage/internal/trip"
)

func TestFromError(t *testing.T) {
	stageErr := &pipeline.StageError{Stage: "guide", Err: errors.New("quota exceeded")}

	tests := []struct {
		name    string
		err     error
		status  int
		code    ErrorCode
		message string
	}{
		{
			name:    "validation",
			err:     &trip.ValidationError{Fields: []string{"origin"}, Message: trip.MessageMissingFields},
			status:  http.StatusBadRequest,
			code:    ErrorCodeInvalidRequest,
			message: trip.MessageMissingFields,
		},
		{
			name:    "wrapped validation",
			err:     fmt.Errorf("parse: %w", &trip.ValidationError{Message: trip.MessageDateOrder}),
			status:  http.StatusBadRequest,
			code:    ErrorCodeInvalidRequest,
			message: trip.MessageDateOrder,
		},
		{
			name:    "stage failure",
			err:     stageErr,
			status:  http.StatusBadGateway,
			code:    ErrorCodePlanFailed,
			message: "An error occurred: stage guide failed: quota exceeded",
		},
		{
			name:    "configuration",
			err:     config.NewConfigurationError("GEMINI_API_KEY not found"),
			status:  http.StatusServiceUnavailable,
			code:    ErrorCodeUnavailable,
			message: "GEMINI_API_KEY not found",
		},
		{
			name:    "canceled",
			err:     context.Canceled,
			status:  http.StatusServiceUnavailable,
			code:    ErrorCodeInternalError,
			message: "The request was canceled.",
		},
		{
			name:    "api error passes through",
			err:     NewNotFoundError("plan %s not found", "abc"),
			status:  http.StatusNotFound,
			code:    ErrorCodeNotFound,
			message: "plan abc not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, &trip.ValidationError{Fields: []string{"origin", "interests"}, Message: trip.MessageMissingFields})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_REQUEST", body.Error)
	assert.Equal(t, []string{"origin", "interests"}, body.Fields)
}
