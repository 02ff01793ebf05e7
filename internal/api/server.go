// Package api exposes the notification engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/havenwell/notify-engine/internal/campaign"
	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/engine"
	"github.com/havenwell/notify-engine/internal/store"
	"github.com/havenwell/notify-engine/internal/timing"
)

// Server bundles the services the HTTP layer fronts.
type Server struct {
	engine       *engine.Engine
	orchestrator *campaign.Orchestrator
	timing       *timing.Service
	stores       *store.Stores
	cfg          config.ServerConfig
}

func NewServer(eng *engine.Engine, orch *campaign.Orchestrator, timingSvc *timing.Service, stores *store.Stores, cfg config.ServerConfig) *Server {
	return &Server{
		engine:       eng,
		orchestrator: orch,
		timing:       timingSvc,
		stores:       stores,
		cfg:          cfg,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/notifications", s.handleSendNotification)
		r.Post("/events", s.handleRecordEvent)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/notifications", s.handleListInApp)
			r.Post("/notifications/{notificationID}/read", s.handleMarkRead)
			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handleUpdatePreferences)
			r.Get("/timing", s.handleGetTimingProfile)
		})

		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Post("/start", s.handleStartCampaign)
			r.Post("/pause", s.handlePauseCampaign)
			r.Post("/resume", s.handleResumeCampaign)
			r.Post("/opt-out", s.handleCampaignOptOut)
			r.Post("/steps/complete", s.handleStepCompletion)
			r.Get("/metrics", s.handleCampaignMetrics)
		})

		r.Post("/crisis/{escalationID}/resolve", s.handleResolveCrisis)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
