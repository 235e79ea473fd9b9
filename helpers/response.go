// Package helpers shapes every HTTP response the API writes.
package helpers

import (
	"errors"
	"io"
	"net/http"

	"sortashort_server/logging"
	"sortashort_server/services"
	"sortashort_server/validation"

	"github.com/goccy/go-json"
)

// maxBodyBytes caps request bodies read by DecodeBody.
const maxBodyBytes = 1 << 20

// WriteJSONResponse writes payload as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError writes {"message": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSONResponse(w, status, map[string]string{"message": message})
}

// WriteHTML writes an HTML page that must not be cached.
func WriteHTML(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, page)
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	var (
		rve *validation.RequestValidationError
		ve  *services.ValidationError
		ce  *services.ConflictError
		ne  *services.NotFoundError
		re  *services.ResourceExhaustedError
		ue  *services.UpstreamError
	)
	switch {
	case errors.As(err, &rve), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &re):
		return http.StatusForbidden
	case errors.As(err, &ue):
		if ue.CallerFault {
			return http.StatusBadRequest
		}
		if errors.Is(err, services.ErrUnavailable) {
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// WriteServiceError translates err into a response. Internal errors keep
// their text as a diagnostic and are logged at error level.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	var re *services.ResourceExhaustedError
	if errors.As(err, &re) {
		WriteJSONResponse(w, status, map[string]any{
			"message":          "no energy left",
			"energy":           re.Energy,
			"energy_ts":        re.EnergyTS,
			"next_recharge_at": re.NextRechargeAt,
		})
		return
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	}
	WriteError(w, status, err.Error())
}

// DecodeBody decodes the JSON body into a fresh T. A missing or malformed
// body yields the zero value so field checks report what is absent.
func DecodeBody[T any](r *http.Request) T {
	var v T
	if r.Body == nil {
		return v
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("ignoring malformed request body")
		var zero T
		return zero
	}
	return v
}
