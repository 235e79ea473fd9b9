package controllers

import (
	"net/http"

	"sortashort_server/helpers"
	"sortashort_server/models"
	"sortashort_server/services"
)

// HistoryController serves the watch history and the energy gate
type HistoryController struct {
	HistoryService *services.HistoryService
}

func NewHistoryController(historyService *services.HistoryService) *HistoryController {
	return &HistoryController{HistoryService: historyService}
}

type historyQuery struct {
	Email string `json:"email" validate:"required,email"`
}

type watchRequest struct {
	Email   string     `json:"email" validate:"required,email"`
	MovieID FlexibleID `json:"movie_id" validate:"required"`
}

type refillRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleGetHistory returns the profile snapshot with recharged energy
func (hc *HistoryController) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	req := historyQuery{Email: queryEmail(r)}
	if !validateQuery(w, r, req) {
		return
	}

	snapshot, err := hc.HistoryService.Snapshot(r.Context(), req.Email)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, snapshot)
}

// HandleMarkWatched spends one unit of energy to record a watched title
func (hc *HistoryController) HandleMarkWatched(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *watchRequest) {
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}

	result, err := hc.HistoryService.MarkWatched(r.Context(), req.Email, req.MovieID.String())
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}

// HandleRefill restores full energy (development builds only)
func (hc *HistoryController) HandleRefill(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *refillRequest) {
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}

	state, err := hc.HistoryService.Refill(r.Context(), req.Email)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, state)
}
