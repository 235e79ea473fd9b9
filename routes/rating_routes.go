package routes

import (
	"sortashort_server/controllers"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// RegisterRatingRoutes sets up /api/rating, split by method
func RegisterRatingRoutes(r *mux.Router, ratingService *services.RatingService) {
	controller := controllers.NewRatingController(ratingService)

	r.HandleFunc("/rating", controller.HandleRate).Methods("POST")
	r.HandleFunc("/rating", controller.HandleRetract).Methods("DELETE")
	r.HandleFunc("/rating", controller.HandleAverage).Methods("GET")
}
