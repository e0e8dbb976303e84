package handler

import (
	"net/http"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/service"
)

// GamificationHandler handles XP, level and badge read endpoints.
type GamificationHandler struct {
	gamification *service.GamificationService
}

// NewGamificationHandler creates a new GamificationHandler.
func NewGamificationHandler(gamification *service.GamificationService) *GamificationHandler {
	return &GamificationHandler{gamification: gamification}
}

// Stats handles GET /gamification/stats.
func (h *GamificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	stats, err := h.gamification.Stats(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

// Activity handles GET /gamification/activity.
func (h *GamificationHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	days, err := h.gamification.Activity(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	if days == nil {
		days = []domain.ActivityDay{}
	}
	RespondJSON(w, http.StatusOK, days)
}

// History handles GET /gamification/history?limit=.
func (h *GamificationHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		RespondError(w, err)
		return
	}
	entries, err := h.gamification.History(r.Context(), userID, intOrZero(limit))
	if err != nil {
		RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.XPLedgerEntry{}
	}
	RespondJSON(w, http.StatusOK, entries)
}

// Audit handles GET /gamification/audit.
func (h *GamificationHandler) Audit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	result, err := h.gamification.Audit(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
