package handler

import (
	"log/slog"
	"net/http"
	"taskhub/internal/app/service"
	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	taskService *service.TaskService
	log         *slog.Logger
}

func NewTaskHandler(ts *service.TaskService, log *slog.Logger) *TaskHandler {
	return &TaskHandler{taskService: ts, log: log}
}

// RegisterRoutes expects to be mounted behind the authenticator.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listTasks)       // GET /api/v1/tasks
	r.Post("/", h.createTask)     // POST /api/v1/tasks
	r.Get("/stats", h.stats)      // GET /api/v1/tasks/stats
	r.Get("/{taskID}", h.getTask) // GET /api/v1/tasks/42
	r.Put("/{taskID}", h.updateTask)
	r.Delete("/{taskID}", h.deleteTask)
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	var req service.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), p, req)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	page, err := queryInt(r, "page")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	q := r.URL.Query()
	result, err := h.taskService.ListTasks(r.Context(), p, service.TaskListQuery{
		Status:   model.TaskStatus(q.Get("status")),
		Priority: model.TaskPriority(q.Get("priority")),
		Search:   q.Get("search"),
		SortBy:   model.TaskSortField(q.Get("sort_by")),
		Order:    q.Get("order"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *TaskHandler) stats(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	stats, err := h.taskService.Stats(r.Context(), p)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *TaskHandler) getTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	id, err := idParam(r, "taskID")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	task, err := h.taskService.GetTask(r.Context(), p, id)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) updateTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	id, err := idParam(r, "taskID")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	var update model.TaskUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), p, id, update)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	id, err := idParam(r, "taskID")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), p, id); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
