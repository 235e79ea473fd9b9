package controllers

import (
	"net/http"
	"strings"

	"sortashort_server/helpers"
	"sortashort_server/services"
)

// SEOController renders the SPA shell for every path no other route claims
type SEOController struct {
	SEOService *services.SEOService
}

func NewSEOController(seoService *services.SEOService) *SEOController {
	return &SEOController{SEOService: seoService}
}

// MovieIDFromRequest takes the last path segment when it is longer than one
// character, otherwise the movie query parameter.
func MovieIDFromRequest(r *http.Request) string {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if last := segments[len(segments)-1]; len(last) > 1 {
		return last
	}
	return strings.TrimSpace(r.URL.Query().Get("movie"))
}

// RenderPage writes the shell with the metadata of the requested movie
func (sc *SEOController) RenderPage(w http.ResponseWriter, r *http.Request) {
	page, err := sc.SEOService.Render(r.Context(), MovieIDFromRequest(r))
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteHTML(w, http.StatusOK, page)
}
