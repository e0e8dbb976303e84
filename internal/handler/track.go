package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/service"
)

// TrackHandler handles track and level progression endpoints.
type TrackHandler struct {
	tracks *service.TrackService
}

// NewTrackHandler creates a new TrackHandler.
func NewTrackHandler(tracks *service.TrackService) *TrackHandler {
	return &TrackHandler{tracks: tracks}
}

// List handles GET /tracks?status=.
func (h *TrackHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var status *domain.TrackStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.TrackStatus(raw)
		status = &s
	}
	tracks, err := h.tracks.List(r.Context(), userID, status)
	if err != nil {
		RespondError(w, err)
		return
	}
	if tracks == nil {
		tracks = []domain.Track{}
	}
	RespondJSON(w, http.StatusOK, tracks)
}

// Get handles GET /tracks/{id}.
func (h *TrackHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	track, err := h.tracks.Get(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, track)
}

// Create handles POST /tracks.
func (h *TrackHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.CreateTrackInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	track, err := h.tracks.Create(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, track)
}

// Update handles PATCH /tracks/{id}.
func (h *TrackHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.UpdateTrackInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	track, err := h.tracks.Update(r.Context(), userID, id, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, track)
}

// Delete handles DELETE /tracks/{id}.
func (h *TrackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.tracks.Delete(r.Context(), userID, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// Gate handles GET /tracks/{id}/gate.
func (h *TrackHandler) Gate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	status, err := h.tracks.GateStatus(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, status)
}

// NextLevel handles POST /tracks/{id}/levels/next. The body is an optional
// level draft; without one the content is generated.
func (h *TrackHandler) NextLevel(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var content *domain.LevelDraft
	var draft domain.LevelDraft
	switch err := DecodeJSON(r, &draft); {
	case errors.Is(err, io.EOF):
	case err != nil:
		respondBadBody(w)
		return
	case !draft.Empty():
		content = &draft
	}

	track, err := h.tracks.GenerateNextLevel(r.Context(), userID, id, content)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, track)
}

// CompleteLevel handles PATCH /tracks/{id}/levels/current/complete.
func (h *TrackHandler) CompleteLevel(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	track, err := h.tracks.CompleteLevel(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, track)
}

// Complete handles PATCH /tracks/{id}/complete.
func (h *TrackHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	track, err := h.tracks.CompleteTrack(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, track)
}
