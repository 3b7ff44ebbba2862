package handler

import (
	"log/slog"
	"net/http"
	"taskhub/internal/app/service"
	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
	log         *slog.Logger
}

func NewUserHandler(us *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{userService: us, log: log}
}

// RegisterRoutes expects to be mounted behind the authenticator and AdminOnly.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Get("/{userID}", h.getUser)
	r.Put("/{userID}", h.updateUser)
	r.Delete("/{userID}", h.deleteUser)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.userService.ListUsers(r.Context(), p, service.UserListQuery{
		Role:     model.Role(r.URL.Query().Get("role")),
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	id, err := idParam(r, "userID")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	user, err := h.userService.GetUser(r.Context(), p, id)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	id, err := idParam(r, "userID")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	var update model.UserUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	user, err := h.userService.UpdateUser(r.Context(), p, id, update)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	id, err := idParam(r, "userID")
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	if err := h.userService.DeleteUser(r.Context(), p, id); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
