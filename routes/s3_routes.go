package routes

import (
	"sortashort_server/controllers"
	"sortashort_server/services"

	"github.com/gorilla/mux"
)

// RegisterS3Routes sets up the poster proxy and the static file rule
func RegisterS3Routes(r *mux.Router, assetService *services.AssetService, staticRoot, shellFile string) {
	controller := controllers.NewAssetController(assetService, staticRoot, shellFile)

	r.HandleFunc("/posters/{key:.+}", controller.ServePoster).Methods("GET", "HEAD")
	r.MatcherFunc(controller.MatchStatic).Methods("GET", "HEAD").HandlerFunc(controller.ServeStatic).Name("static")
}
