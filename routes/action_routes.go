package routes

import (
	"sortashort_server/controllers"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// RegisterActionRoutes sets up follow and feed routes under /api/social and /api/friends
func RegisterActionRoutes(r *mux.Router, actionService *services.ActionService) {
	controller := controllers.NewActionController(actionService)

	r.HandleFunc("/social/follow", controller.HandleFollow).Methods("POST")
	r.HandleFunc("/social/feed", controller.HandleFeed).Methods("GET")
	r.HandleFunc("/friends/add", controller.HandleAddFriend).Methods("POST")
}
