package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/store"
)

func (s *Server) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	if err := s.orchestrator.StartCampaign(r.Context(), campaignID); err != nil {
		if err == store.ErrNotFound {
			respondError(w, http.StatusNotFound, "campaign not found")
			return
		}
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := s.orchestrator.Pause(r.Context(), campaignID); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := s.orchestrator.Resume(r.Context(), campaignID); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// stepCompletionRequest acknowledges that a user finished a campaign step.
type stepCompletionRequest struct {
	UserID        uuid.UUID `json:"user_id"`
	CompletedStep int       `json:"completed_step"`
}

func (s *Server) handleStepCompletion(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var req stepCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.CompletedStep < 0 {
		respondError(w, http.StatusBadRequest, "completed_step must be non-negative")
		return
	}

	if err := s.orchestrator.ProcessStepCompletion(r.Context(), campaignID, req.UserID, req.CompletedStep); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to process step completion")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
}

type optOutRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (s *Server) handleCampaignOptOut(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var req optOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.orchestrator.OptOut(r.Context(), campaignID, req.UserID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to opt out")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"opted_out": true})
}

func (s *Server) handleCampaignMetrics(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	metrics, err := s.orchestrator.Metrics(r.Context(), campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleResolveCrisis(w http.ResponseWriter, r *http.Request) {
	escalationID, err := uuid.Parse(chi.URLParam(r, "escalationID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid escalation id")
		return
	}

	err = s.stores.Crisis.Resolve(r.Context(), escalationID)
	if err == store.ErrNotFound {
		respondError(w, http.StatusNotFound, "escalation not found or already resolved")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve escalation")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}
