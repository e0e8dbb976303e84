package handler

import (
	"net/http"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/service"
)

// ReflectionHandler handles daily reflection endpoints.
type ReflectionHandler struct {
	reflections *service.ReflectionService
}

// NewReflectionHandler creates a new ReflectionHandler.
func NewReflectionHandler(reflections *service.ReflectionService) *ReflectionHandler {
	return &ReflectionHandler{reflections: reflections}
}

// List handles GET /reflections?start_date=&end_date=&mood=&limit=.
func (h *ReflectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	filter, err := reflectionFilter(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	list, err := h.reflections.List(r.Context(), userID, filter)
	if err != nil {
		RespondError(w, err)
		return
	}
	if list == nil {
		list = []domain.Reflection{}
	}
	RespondJSON(w, http.StatusOK, list)
}

// Today handles GET /reflections/today. The body is null when there is no
// reflection for the user's current day.
func (h *ReflectionHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	refl, err := h.reflections.Today(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, refl)
}

// Get handles GET /reflections/{id}.
func (h *ReflectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	refl, err := h.reflections.Get(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, refl)
}

// Create handles POST /reflections.
func (h *ReflectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.ReflectionInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	refl, err := h.reflections.Create(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, refl)
}

// Update handles PATCH /reflections/{id}.
func (h *ReflectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.ReflectionInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	refl, err := h.reflections.Update(r.Context(), userID, id, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, refl)
}

// Delete handles DELETE /reflections/{id}.
func (h *ReflectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.reflections.Delete(r.Context(), userID, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

func reflectionFilter(r *http.Request) (domain.ReflectionFilter, error) {
	f := domain.ReflectionFilter{Mood: r.URL.Query().Get("mood")}
	var err error
	if f.StartDate, err = queryDate(r, "start_date"); err != nil {
		return f, err
	}
	if f.EndDate, err = queryDate(r, "end_date"); err != nil {
		return f, err
	}
	limit, err := queryInt(r, "limit")
	f.Limit = intOrZero(limit)
	return f, err
}
