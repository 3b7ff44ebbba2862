package handler

import (
	"log/slog"
	"net/http"
	"taskhub/internal/app/service"
	"taskhub/internal/common"
	"taskhub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
	log         *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// RegisterRoutes mounts the public auth routes; authed wraps the /me routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authed func(http.Handler) http.Handler) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)

	r.Group(func(me chi.Router) {
		me.Use(authed)
		me.Get("/me", h.me)
		me.Put("/me", h.updateMe)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	resp, err := h.authService.Refresh(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	user, err := h.authService.Me(r.Context(), p)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	user, err := h.authService.UpdateMe(r.Context(), p, update)
	if err != nil {
		common.RespondWithAppError(w, r, h.log, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
