package http

import (
	"net/http"

	"bluecollar-backend/internal/service"
)

type authHandler struct {
	svc service.AuthService
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !bind(w, r, &req, nil) {
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        user,
	})
}
