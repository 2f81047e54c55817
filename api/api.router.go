package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/itsatony/soundscape/hub/api/docs"
	"github.com/itsatony/soundscape/hub/api/middleware"
	"github.com/itsatony/soundscape/hub/api/resources"
	"github.com/itsatony/soundscape/hub/internal/config"
	"github.com/itsatony/soundscape/hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

type Router struct {
	router    *mux.Router
	handler   http.Handler
	auth      *middleware.TokenMiddleware
	limiter   *middleware.RateLimiter
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, cfg config.ServerConfig) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewTokenMiddleware(cfg.APIToken),
		limiter:   middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		resources: resources.NewResources(svc, cfg.AllowedOrigins),
	}
	r.resources.SetHealthCheck(handleHealth(svc))
	r.resources.SetMetrics(handleMetrics(svc))

	r.setupRoutes()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(r.router),
	)
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.Use(r.limiter.Limit)

	// Public routes
	api.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/metrics", r.resources.Metrics).Methods(http.MethodGet)
	api.HandleFunc("/swagger.json", handleDocs).Methods(http.MethodGet)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Dashboard
	dashboard := protected.PathPrefix("/dashboard").Subrouter()
	dashboard.HandleFunc("", r.resources.Dashboard.GetDashboard).Methods(http.MethodGet)
	dashboard.HandleFunc("/stats", r.resources.Dashboard.GetStats).Methods(http.MethodGet)
	dashboard.HandleFunc("/labels", r.resources.Dashboard.GetLabels).Methods(http.MethodGet)
	dashboard.HandleFunc("/spl", r.resources.Dashboard.GetSPL).Methods(http.MethodGet)
	dashboard.HandleFunc("/detections", r.resources.Dashboard.GetDetections).Methods(http.MethodGet)
	dashboard.HandleFunc("/classifications", r.resources.Dashboard.GetClassifications).Methods(http.MethodGet)
	dashboard.HandleFunc("/device", r.resources.Dashboard.GetDevice).Methods(http.MethodGet)
	dashboard.HandleFunc("/cached", r.resources.Dashboard.GetCached).Methods(http.MethodGet)

	// Clips
	protected.HandleFunc("/clips/{name}", r.resources.Clips.GetClip).Methods(http.MethodGet)

	// Live push
	protected.HandleFunc("/live", r.resources.Live.Stream).Methods(http.MethodGet)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// handleHealth reports liveness, version and whether the streams answered
func handleHealth(svc *hubservice.HubService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := svc.Monitor.Snapshot()
		status := "ok"
		if !state.Connected {
			status = "connecting"
		} else if len(state.Degraded) > 0 {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    status,
			"version":   nuts.GetVersion(),
			"connected": state.Connected,
			"degraded":  state.Degraded,
		})
	}
}

func handleMetrics(svc *hubservice.HubService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"uptime_seconds": int64(svc.Monitoring.Uptime().Seconds()),
			"events":         svc.Monitoring.Counts(),
		})
	}
}

func handleDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := docs.Read()
	if err != nil {
		http.Error(w, "api documentation unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}
