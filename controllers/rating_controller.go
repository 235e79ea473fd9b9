package controllers

import (
	"net/http"
	"strings"

	"sortashort_server/helpers"
	"sortashort_server/models"
	"sortashort_server/services"
)

// RatingController handles rating writes and averages
type RatingController struct {
	RatingService *services.RatingService
}

func NewRatingController(ratingService *services.RatingService) *RatingController {
	return &RatingController{RatingService: ratingService}
}

type rateRequest struct {
	Email   string     `json:"email" validate:"required,email"`
	MovieID FlexibleID `json:"movie_id" validate:"required"`
	Rating  any        `json:"rating"` // JSON number, checked in HandleRate
	Review  string     `json:"review"`
}

type retractRequest struct {
	Email   string     `json:"email" validate:"required,email"`
	MovieID FlexibleID `json:"movie_id" validate:"required"`
}

type averageQuery struct {
	MovieID string `json:"movie_id" validate:"required"`
}

// HandleRate creates or replaces the caller's rating of a movie
func (rc *RatingController) HandleRate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *rateRequest) {
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}
	rating, isNumber := req.Rating.(float64)
	if !isNumber {
		helpers.WriteError(w, http.StatusBadRequest, "rating must be a number")
		return
	}

	average, err := rc.RatingService.Rate(r.Context(), req.Email, req.MovieID.String(), rating, req.Review)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]any{"status": "ok", "new_average": average})
}

// HandleRetract deletes the caller's rating. Fields may come from the body or the query.
func (rc *RatingController) HandleRetract(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAndValidate(w, r, func(req *retractRequest) {
		q := r.URL.Query()
		if req.Email == "" {
			req.Email = q.Get("email")
		}
		if req.MovieID == "" {
			req.MovieID = FlexibleID(strings.TrimSpace(q.Get("movie_id")))
		}
		req.Email = models.NormalizeEmail(req.Email)
	})
	if !ok {
		return
	}

	average, err := rc.RatingService.Retract(r.Context(), req.Email, req.MovieID.String())
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]any{"status": "deleted", "new_average": average})
}

// HandleAverage returns the average rating of a movie
func (rc *RatingController) HandleAverage(w http.ResponseWriter, r *http.Request) {
	req := averageQuery{MovieID: strings.TrimSpace(r.URL.Query().Get("movie_id"))}
	if !validateQuery(w, r, req) {
		return
	}

	summary, err := rc.RatingService.Summary(r.Context(), req.MovieID)
	if err != nil {
		helpers.WriteServiceError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, summary)
}
