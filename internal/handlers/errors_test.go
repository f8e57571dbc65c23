package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"suzukitracker/internal/service"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.NewNop(), http.StatusTeapot, "Teapot", "", nil)

	assert.Equal(t, http.StatusTeapot, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	var body errorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, "Teapot", body.Error)
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, zap.New(core), http.StatusInternalServerError, ErrInternalServerError, "", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, ErrInternalServerError, entries[0].Message)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	assert.NotContains(t, recorder.Body.String(), "boom")
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		count  int
	}{
		{"unauthorized", fmt.Errorf("%w: other teacher", service.ErrUnauthorized), http.StatusForbidden, 0},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, 0},
		{"not found", fmt.Errorf("%w: book", service.ErrNotFound), http.StatusNotFound, 0},
		{"duplicate number", service.ErrDuplicateNumber, http.StatusConflict, 0},
		{"already assigned", service.ErrAlreadyAssigned, http.StatusConflict, 0},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, 0},
		{"has assignments", &service.HasAssignmentsError{Count: 3}, http.StatusConflict, 3},
		{"song in use", &service.SongInUseError{Count: 2}, http.StatusConflict, 2},
		{"invalid range", service.ErrInvalidRange, http.StatusBadRequest, 0},
		{"validation", service.ErrValidation, http.StatusBadRequest, 0},
		{"reset token", service.ErrInvalidResetToken, http.StatusBadRequest, 0},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondWithServiceError(recorder, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, recorder.Code)
			var body errorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
			assert.Equal(t, tt.count, body.Count)
			assert.NotEmpty(t, body.Error)
		})
	}
}
