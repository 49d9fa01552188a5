package http

import (
	"net/http"

	"mates/internal/domain"
	"mates/internal/logger"
)

type AuthHandler struct {
	svc domain.SessionService
	log logger.Logger
}

func NewAuthHandler(svc domain.SessionService, log logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "OK",
		Data:    h.svc.State(),
	})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SignOut(r.Context()); err != nil {
		h.log.Warn("http: sign out reported an error", "error", err)
	}

	JSONSuccess(w, http.StatusOK, APIResponse{
		Message: "Signed out",
		Data:    h.svc.State(),
	})
}
