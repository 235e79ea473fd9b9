package controllers

import (
	"bytes"
	"net/http"
	"strings"

	"sortashort_server/helpers"
	"sortashort_server/models"
	"sortashort_server/validation"

	"github.com/goccy/go-json"
)

// FlexibleID accepts an identifier sent either as a JSON string or a JSON
// number, e.g. movie ids and friend codes.
type FlexibleID string

func (m *FlexibleID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = FlexibleID(n.String())
	return nil
}

func (m FlexibleID) String() string { return string(m) }

// decodeAndValidate reads the body into T, normalizes email and runs the
// validator. It writes the 400 itself and reports false on failure.
func decodeAndValidate[T any](w http.ResponseWriter, r *http.Request, normalize func(*T)) (T, bool) {
	req := helpers.DecodeBody[T](r)
	if normalize != nil {
		normalize(&req)
	}
	if err := validation.ValidateStruct(req); err != nil {
		helpers.WriteServiceError(w, r, err)
		return req, false
	}
	return req, true
}

// validateQuery validates a request built from query parameters.
func validateQuery(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := validation.ValidateStruct(req); err != nil {
		helpers.WriteServiceError(w, r, err)
		return false
	}
	return true
}

func queryEmail(r *http.Request) string {
	return models.NormalizeEmail(r.URL.Query().Get("email"))
}
