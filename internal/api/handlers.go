package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sproutsync/sproutsync/internal/models"
	"github.com/sproutsync/sproutsync/internal/repositories"
)

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := s.store.GetChildren(r.Context())
	if err != nil {
		s.logger.Error("failed to list children", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	respondJSON(w, http.StatusOK, children)
}

func (s *Server) handleGetChild(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")

	child, err := s.store.GetChild(r.Context(), childID)
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(w, http.StatusNotFound, "child not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get child", "child_id", childID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	respondJSON(w, http.StatusOK, child)
}

// handleGetActivities serves a child's activities. Supported filters:
// date=YYYY-MM-DD, type=<activity type>, or start+end for a date range.
func (s *Server) handleGetActivities(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")
	query := r.URL.Query()

	activityType, ok := parseTypeParam(w, query.Get("type"))
	if !ok {
		return
	}

	start, end := query.Get("start"), query.Get("end")
	if (start == "") != (end == "") {
		respondError(w, http.StatusBadRequest, "start and end must be given together")
		return
	}

	date := query.Get("date")
	if date != "" && !validDate(date) {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	var activities []models.Activity
	var err error
	if start != "" {
		if !validDate(start) || !validDate(end) {
			respondError(w, http.StatusBadRequest, "invalid range, expected YYYY-MM-DD")
			return
		}
		activities, err = s.store.GetActivitiesInRange(r.Context(), childID, start, end, activityType)
	} else {
		activities, err = s.store.GetActivities(r.Context(), childID, date, activityType)
	}
	if err != nil {
		s.logger.Error("failed to get activities", "child_id", childID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get activities")
		return
	}

	if activities == nil {
		activities = []models.Activity{}
	}
	respondJSON(w, http.StatusOK, activities)
}

func (s *Server) handleGetLatestActivity(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")

	typeParam := r.URL.Query().Get("type")
	if typeParam == "" {
		respondError(w, http.StatusBadRequest, "type is required")
		return
	}
	activityType, ok := parseTypeParam(w, typeParam)
	if !ok {
		return
	}

	activity, err := s.store.GetLatestActivity(r.Context(), childID, activityType)
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no matching activity")
		return
	}
	if err != nil {
		s.logger.Error("failed to get latest activity", "child_id", childID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get latest activity")
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

func (s *Server) handleGetDailySummary(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")
	date := chi.URLParam(r, "date")

	if !validDate(date) {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	if summary := s.cachedSummary(r.Context(), childID, date); summary != nil {
		respondJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.store.GetDailySummary(r.Context(), childID, date)
	if err != nil {
		s.logger.Error("failed to build summary", "child_id", childID, "date", date, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), summary); err != nil {
			s.logger.Warn("failed to cache summary", "child_id", childID, "error", err)
		}
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	lastSync, err := s.store.GetSyncMetadata(r.Context(), repositories.LastSyncKey)
	if errors.Is(err, repositories.ErrNotFound) {
		respondJSON(w, http.StatusOK, map[string]any{"last_sync_time": nil})
		return
	}
	if err != nil {
		s.logger.Error("failed to read sync status", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read sync status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"last_sync_time": lastSync})
}

// cachedSummary returns a cached summary or nil. Cache errors degrade to a
// store read.
func (s *Server) cachedSummary(ctx context.Context, childID, date string) *models.DailySummary {
	if s.cache == nil {
		return nil
	}
	summary, err := s.cache.Get(ctx, childID, date)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("summary cache read failed", "child_id", childID, "error", err)
		}
		return nil
	}
	return summary
}

func parseTypeParam(w http.ResponseWriter, param string) (models.ActivityType, bool) {
	if param == "" {
		return "", true
	}
	activityType := models.ActivityType(param)
	if !activityType.Valid() {
		respondError(w, http.StatusBadRequest, "unknown activity type")
		return "", false
	}
	return activityType, true
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
