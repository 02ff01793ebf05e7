package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/store"
)

// handleSendNotification accepts a notification request and runs it through
// the engine. A preference-blocked request is a success from the caller's
// point of view; the response says so without an error status.
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req domain.NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Title == "" && req.TemplateID == nil {
		respondError(w, http.StatusBadRequest, "title or template_id is required")
		return
	}

	job, err := s.engine.SendNotification(r.Context(), &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to process notification")
		return
	}
	if job == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"queued":  false,
			"blocked": true,
		})
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":        true,
		"job_id":        job.ID,
		"scheduled_for": job.ScheduledFor,
		"channels":      job.DeliveryMethods,
	})
}

// handleRecordEvent ingests client-side engagement events (clicked,
// completed). Delivery-side events are recorded by the dispatcher; this
// endpoint only accepts the ones a client can legitimately claim.
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var e domain.AnalyticsEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if e.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if e.EventType != domain.EventClicked && e.EventType != domain.EventCompleted {
		respondError(w, http.StatusBadRequest, "event_type must be clicked or completed")
		return
	}

	if err := s.stores.Analytics.Record(r.Context(), &e); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record event")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"id": e.ID})
}

func (s *Server) handleListInApp(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	items, err := s.stores.InApp.ListForUser(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if items == nil {
		items = []domain.InAppNotification{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": items,
		"total":         len(items),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	notificationID, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	err = s.stores.InApp.MarkRead(r.Context(), userID, notificationID)
	if err == store.ErrNotFound {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	prefs, err := s.stores.Preferences.Get(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var prefs domain.UserPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	prefs.UserID = userID
	if prefs.NotificationFrequency == "" {
		prefs.NotificationFrequency = domain.FrequencyRealtime
	}

	if err := s.stores.Preferences.Upsert(r.Context(), &prefs); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// handleGetTimingProfile serves a user's computed timing profile plus the
// next recommended send time.
func (s *Server) handleGetTimingProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	profile, err := s.stores.Analytics.GetProfile(r.Context(), userID)
	if err == store.ErrNotFound {
		respondError(w, http.StatusNotFound, "no timing profile yet")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load timing profile")
		return
	}
	nType := domain.NotificationType(r.URL.Query().Get("type"))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile":           profile,
		"optimal_send_time": s.timing.GetOptimalSendTime(r.Context(), userID, nType),
	})
}
