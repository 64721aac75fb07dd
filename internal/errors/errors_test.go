package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorImplementsError(t *testing.T) {
	err := New(http.StatusBadRequest, "BAD", "something bad")
	assert.Equal(t, "something bad", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "BAD", err.ErrorCode)
}

func TestRenderSetsStatus(t *testing.T) {
	apiErr := ErrRunInProgress

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/reports/stocks/run", nil)

	require.NoError(t, render.Render(w, r, apiErr))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_IN_PROGRESS")
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("report_id", "unknown report")
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	details, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "report_id", details.Field)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("report")
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "report not found", err.Message)
}
