package routes

import (
	"sortashort_server/controllers"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// RegisterAuthRoutes sets up the identity provider pass-through under /api/auth
func RegisterAuthRoutes(r *mux.Router, authService *services.AuthService) {
	controller := controllers.NewAuthController(authService)

	r.HandleFunc("/auth/signup", controller.HandleSignUp).Methods("POST")
	r.HandleFunc("/auth/confirm", controller.HandleConfirm).Methods("POST")
	r.HandleFunc("/auth/signin", controller.HandleSignIn).Methods("POST")
}
