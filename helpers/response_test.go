package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sortashort_server/services"
	"sortashort_server/validation"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &services.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{"request validation", &validation.RequestValidationError{}, http.StatusBadRequest},
		{"conflict", fmt.Errorf("wrapped: %w", &services.ConflictError{Message: "taken"}), http.StatusConflict},
		{"not found", &services.NotFoundError{Message: "gone"}, http.StatusNotFound},
		{"no energy", &services.ResourceExhaustedError{}, http.StatusForbidden},
		{"caller upstream", &services.UpstreamError{Message: "bad password", CallerFault: true}, http.StatusBadRequest},
		{"internal upstream", &services.UpstreamError{Message: "down"}, http.StatusInternalServerError},
		{"breaker open", &services.UpstreamError{Message: "x", Cause: services.ErrUnavailable}, http.StatusServiceUnavailable},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteServiceError_NoEnergyCarriesRechargeMetadata(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/history", nil)

	WriteServiceError(rec, req, &services.ResourceExhaustedError{Energy: 0, EnergyTS: 100, NextRechargeAt: 21700})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["energy"])
	assert.Equal(t, float64(100), body["energy_ts"])
	assert.Equal(t, float64(21700), body["next_recharge_at"])
}

func TestWriteServiceError_InternalKeepsDiagnostic(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/social/feed", nil)

	WriteServiceError(rec, req, errors.New("failed to load profile: throttled"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"failed to load profile: throttled"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDecodeBody(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
		Count int    `json:"count"`
	}

	ok := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","count":2}`))
	assert.Equal(t, payload{Email: "a@example.com", Count: 2}, DecodeBody[payload](ok))

	malformed := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","count":"two"`))
	assert.Equal(t, payload{}, DecodeBody[payload](malformed))

	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, payload{}, DecodeBody[payload](empty))
}

func TestWriteHTML(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteHTML(rec, http.StatusOK, "<html></html>")

	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "<html></html>", rec.Body.String())
}
