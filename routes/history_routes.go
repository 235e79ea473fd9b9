package routes

import (
	"sortashort_server/controllers"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// RegisterHistoryRoutes sets up /api/history and, when enabled, /api/dev/refill
func RegisterHistoryRoutes(r *mux.Router, historyService *services.HistoryService, refillEnabled bool) {
	controller := controllers.NewHistoryController(historyService)

	r.HandleFunc("/history", controller.HandleGetHistory).Methods("GET")
	r.HandleFunc("/history", controller.HandleMarkWatched).Methods("POST")

	if refillEnabled {
		r.HandleFunc("/dev/refill", controller.HandleRefill).Methods("POST")
	}
}
