package handler

import (
	"net/http"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/HoussemEK/Direction-Project/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List handles GET /tasks?completed=&track_id=&track_level=&limit=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	filter, err := taskFilter(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	tasks, err := h.tasks.List(r.Context(), userID, filter)
	if err != nil {
		RespondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	RespondJSON(w, http.StatusOK, tasks)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	task, err := h.tasks.Get(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, task)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.CreateTaskInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	task, err := h.tasks.Create(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, task)
}

// Update handles PATCH /tasks/{id}. Setting completed=true awards XP like
// POST /tasks/{id}/complete.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var input service.UpdateTaskInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}
	result, err := h.tasks.Update(r.Context(), userID, id, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Complete handles POST /tasks/{id}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	result, err := h.tasks.CompleteTask(r.Context(), userID, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := requestIDs(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), userID, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

func taskFilter(r *http.Request) (repository.TaskFilter, error) {
	var f repository.TaskFilter
	var err error
	if f.Completed, err = queryBool(r, "completed"); err != nil {
		return f, err
	}
	if f.TrackID, err = queryUUID(r, "track_id"); err != nil {
		return f, err
	}
	if f.TrackLevel, err = queryInt(r, "track_level"); err != nil {
		return f, err
	}
	limit, err := queryInt(r, "limit")
	f.Limit = intOrZero(limit)
	return f, err
}
