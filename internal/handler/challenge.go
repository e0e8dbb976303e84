package handler

import (
	"net/http"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/HoussemEK/Direction-Project/internal/service"
	"github.com/google/uuid"
)

// ChallengeHandler handles challenge endpoints.
type ChallengeHandler struct {
	challenges *service.ChallengeService
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challenges *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// Meta handles GET /challenges/meta.
func (h *ChallengeHandler) Meta(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.challenges.Meta())
}

// List handles GET /challenges?status=&weekOf=.
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var filter repository.ChallengeFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.ChallengeStatus(raw)
		if !status.Valid() {
			RespondError(w, domain.ErrValidation("unknown challenge status: "+raw))
			return
		}
		filter.Status = &status
	}
	if filter.WeekOf, err = queryDate(r, "weekOf"); err != nil {
		RespondError(w, err)
		return
	}

	list, err := h.challenges.List(r.Context(), userID, filter)
	if err != nil {
		RespondError(w, err)
		return
	}
	if list == nil {
		list = []domain.Challenge{}
	}
	RespondJSON(w, http.StatusOK, list)
}

// Active handles GET /challenges/active.
func (h *ChallengeHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	start, err := h.challenges.Active(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, start)
}

// Get handles GET /challenges/{id}.
func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	c, err := h.challenges.Get(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, c)
}

// Create handles POST /challenges.
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.CreateChallengeInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	c, err := h.challenges.Create(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, c)
}

// Update handles PATCH /challenges/{id}.
func (h *ChallengeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.UpdateChallengeInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	c, err := h.challenges.Update(r.Context(), userID, id, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /challenges/{id}.
func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.challenges.Delete(r.Context(), userID, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

// Start handles PATCH /challenges/{id}/start.
func (h *ChallengeHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(userID, id uuid.UUID) (interface{}, error) {
		return h.challenges.Start(r.Context(), userID, id)
	})
}

// Skip handles PATCH /challenges/{id}/skip.
func (h *ChallengeHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(userID, id uuid.UUID) (interface{}, error) {
		return h.challenges.Skip(r.Context(), userID, id)
	})
}

// Complete handles PATCH /challenges/{id}/complete.
func (h *ChallengeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(userID, id uuid.UUID) (interface{}, error) {
		return h.challenges.Complete(r.Context(), userID, id)
	})
}

func (h *ChallengeHandler) transition(w http.ResponseWriter, r *http.Request, fn func(userID, id uuid.UUID) (interface{}, error)) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	result, err := fn(userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
