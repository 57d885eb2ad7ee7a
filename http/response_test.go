package http_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/servefile"
	servefilehttp "github.com/sagarc03/servefile/http"
)

func TestHandleError(t *testing.T) {
	tt := []struct {
		Name       string
		Err        error
		WantStatus int
		WantCode   string
	}{
		{Name: "invalid path", Err: servefile.ErrInvalidPath, WantStatus: http.StatusBadRequest, WantCode: "invalid_path"},
		{Name: "method", Err: servefile.ErrMethodNotAllowed, WantStatus: http.StatusMethodNotAllowed, WantCode: "method_not_allowed"},
		{Name: "not found", Err: servefile.ErrNotFound, WantStatus: http.StatusNotFound, WantCode: "not_found"},
		{Name: "forbidden", Err: servefile.ErrForbidden, WantStatus: http.StatusForbidden, WantCode: "forbidden"},
		{Name: "deadline", Err: context.DeadlineExceeded, WantStatus: http.StatusServiceUnavailable, WantCode: "unavailable"},
		{Name: "io", Err: fmt.Errorf("read: %w", servefile.ErrIO), WantStatus: http.StatusInternalServerError, WantCode: "internal_error"},
		{Name: "unknown", Err: errors.New("some unexpected error"), WantStatus: http.StatusInternalServerError, WantCode: "internal_error"},
		{Name: "wrapped not found", Err: errors.Join(errors.New("context"), servefile.ErrNotFound), WantStatus: http.StatusNotFound, WantCode: "not_found"},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			servefilehttp.HandleError(rec, tc.Err)

			assert.Equal(t, tc.WantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.WantCode)
		})
	}
}

func TestWriteError_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	servefilehttp.WriteError(rec, http.StatusBadRequest, "bad_request", "Invalid request")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error":"bad_request"`)
	assert.Contains(t, rec.Body.String(), `"message":"Invalid request"`)
}

func TestWriteJSON_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	err := servefilehttp.WriteJSON(rec, http.StatusOK, map[string]string{"key": "value"})

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"value"`)
}

func TestWriteJSON_EncodingError(t *testing.T) {
	rec := httptest.NewRecorder()

	// Channels cannot be JSON encoded
	err := servefilehttp.WriteJSON(rec, http.StatusOK, make(chan int))

	assert.Error(t, err)
}
