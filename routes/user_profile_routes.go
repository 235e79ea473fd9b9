package routes

import (
	"sortashort_server/controllers"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserProfileRoutes sets up profile, username and search routes
func RegisterUserProfileRoutes(r *mux.Router, userProfileService *services.UserProfileService) {
	controller := controllers.NewUserProfileController(userProfileService)

	r.HandleFunc("/profile", controller.UpdateUserProfile).Methods("POST")
	r.HandleFunc("/username", controller.SaveUsername).Methods("POST")
	r.HandleFunc("/users/search", controller.SearchUsers).Methods("GET")
}
