package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/inkwell/pkg/errors"
	"github.com/utafrali/inkwell/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// --- WriteJSON / WriteData ---

func TestWriteData_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":7}}`, rec.Body.String())
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "req-1"))

	WriteError(rec, req, apperrors.Forbidden("nope"), discardLogger())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "FORBIDDEN", e.Code)
	assert.Equal(t, "nope", e.Message)
	assert.Equal(t, "req-1", e.RequestID)
}

func TestWriteError_UnknownErrorIsInternalAndLogged(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	WriteError(rec, req, errors.New("pq: connection reset"), l)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", e.Code)
	assert.NotContains(t, e.Message, "connection reset")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestWriteError_PrefersContextLogger(t *testing.T) {
	var ctxBuf, fallbackBuf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&ctxBuf, nil))
	fallback := slog.New(slog.NewJSONHandler(&fallbackBuf, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.NewContext(context.Background(), ctxLogger))
	WriteError(httptest.NewRecorder(), req, errors.New("boom"), fallback)

	assert.Contains(t, ctxBuf.String(), "boom")
	assert.Empty(t, fallbackBuf.String())
}

// --- DecodeJSON ---

type nameBody struct {
	Name string `json:"name" validate:"required,max=10"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ok     bool
		code   string
		fields map[string]string
	}{
		{"valid", `{"name":"ink"}`, true, "", nil},
		{"empty body", ``, false, "INVALID_INPUT", nil},
		{"malformed", `{"name":`, false, "INVALID_INPUT", nil},
		{"unknown field", `{"name":"ink","admin":true}`, false, "INVALID_INPUT", nil},
		{"validation", `{"name":""}`, false, "VALIDATION_ERROR", map[string]string{"name": "is required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst nameBody
			ok := DecodeJSON(rec, req, &dst)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "ink", dst.Name)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.code, e.Code)
			if tt.fields != nil {
				assert.Equal(t, tt.fields, e.Fields)
			}
		})
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	big := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))

	var dst nameBody
	assert.False(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- ParseID ---

func TestParseID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseID(rec, "42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc", "99999999999999999999"} {
		rec := httptest.NewRecorder()
		_, ok := ParseID(rec, bad)
		assert.False(t, ok, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PARAMETER", decodeError(t, rec).Code)
	}
}
