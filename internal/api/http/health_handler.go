package http

import (
	"context"
	"net/http"
	"time"

	"bluecollar-backend/internal/logger"
)

type healthHandler struct {
	pinger Pinger
}

func (h *healthHandler) check(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			logger.WarnContext(r.Context(), "Health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
