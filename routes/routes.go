package routes

import (
	"net/http"
	"slices"
	"strings"

	"sortashort_server/config"
	"sortashort_server/controllers"
	"sortashort_server/metrics"
	"sortashort_server/middleware"
	"sortashort_server/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter builds the router. Rules are registered in priority order: poster
// proxy, static files, API, then health and metrics. Everything else falls
// through to the SEO page renderer.
func NewRouter(svcs *services.Services, cfg *config.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	RegisterS3Routes(r, svcs.Assets, cfg.Static.Root, cfg.Static.ShellFile)

	// /api/ with the trailing slash so /apiary still reaches the page renderer
	apiRouter := r.PathPrefix("/api/").Subrouter()
	apiRouter.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))

	RegisterRatingRoutes(apiRouter, svcs.Ratings)
	RegisterAuthRoutes(apiRouter, svcs.Auth)
	RegisterHistoryRoutes(apiRouter, svcs.History, cfg.Dev.RefillEnabled)
	RegisterUserProfileRoutes(apiRouter, svcs.Profile)
	RegisterActionRoutes(apiRouter, svcs.Actions)
	registerAPIFallbacks(apiRouter, "/api")

	RegisterRoutes(r)

	seo := controllers.NewSEOController(svcs.SEO)
	r.NotFoundHandler = middleware.Metrics(http.HandlerFunc(seo.RenderPage))
	r.MethodNotAllowedHandler = middleware.Metrics(http.HandlerFunc(controllers.MethodNotAllowedHandler))
	return r
}

// registerAPIFallbacks answers every registered API path with 405 for the
// methods it does not serve, and anything else under the prefix with 404.
// Subrouter routes share the prefix matcher, so a method mismatch is not
// reliably reported by the subrouter itself.
func registerAPIFallbacks(r *mux.Router, prefix string) {
	var paths []string
	allowed := map[string][]string{}
	_ = r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		if _, seen := allowed[tpl]; !seen {
			paths = append(paths, tpl)
		}
		allowed[tpl] = append(allowed[tpl], methods...)
		return nil
	})

	for _, tpl := range paths {
		methods := slices.Compact(slices.Sorted(slices.Values(allowed[tpl])))
		r.Handle(strings.TrimPrefix(tpl, prefix), controllers.AllowMethods(methods))
	}
	r.PathPrefix("/").HandlerFunc(controllers.NotFoundAPIHandler)
}

// RegisterRoutes sets up the operational routes
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
}

// NewHandler wraps the router with CORS and the request middleware chain.
func NewHandler(svcs *services.Services, cfg *config.Config) http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(NewRouter(svcs, cfg))

	return middleware.RequestID(middleware.AccessLog(middleware.Recover(corsHandler)))
}
