package controllers

import (
	"net/http"
	"strings"

	"sortashort_server/helpers"
)

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// NotFoundAPIHandler answers unknown /api paths
func NotFoundAPIHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteError(w, http.StatusNotFound, "route not found: "+r.URL.Path)
}

// MethodNotAllowedHandler answers a known path requested with the wrong method
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed on "+r.URL.Path)
}

// AllowMethods answers a known path requested with a method outside allowed
func AllowMethods(allowed []string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		MethodNotAllowedHandler(w, r)
	}
}
