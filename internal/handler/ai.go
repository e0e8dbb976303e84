package handler

import (
	"net/http"

	"github.com/HoussemEK/Direction-Project/internal/provider"
	"github.com/HoussemEK/Direction-Project/internal/service"
)

// AIHandler exposes level drafting as a preview endpoint.
type AIHandler struct {
	ai *service.AIService
}

// NewAIHandler creates a new AIHandler. A nil service answers 502.
func NewAIHandler(ai *service.AIService) *AIHandler {
	return &AIHandler{ai: ai}
}

// DraftLevel handles POST /ai/tracks/draft.
func (h *AIHandler) DraftLevel(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req provider.DraftRequest
	if err := DecodeJSON(r, &req); err != nil {
		respondBadBody(w)
		return
	}
	draft, err := h.ai.DraftLevel(r.Context(), userID, req)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, draft)
}
