package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/security"
)

const (
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeValidationFailed      = "validation_failed"
	codeInvalidID             = "invalid_id"
	codeInvalidAmount         = "invalid_amount"
	codeInvalidCommission     = "invalid_commission"
	codeInsufficientFunds     = "insufficient_funds"
	codeInsufficientEscrow    = "insufficient_escrow"
	codeInvalidStatus         = "invalid_status"
	codeInvalidTransition     = "invalid_transition"
	codeNoWorkersAvailable    = "no_workers_available"
	codeNoWorkerAssigned      = "no_worker_assigned"
	codeNegotiationInProgress = "negotiation_in_progress"
	codeNegotiationClosed     = "negotiation_closed"
	codeAssignmentMismatch    = "assignment_mismatch"
	codeConflict              = "conflict"
	codeUnauthenticated       = "unauthenticated"
	codeInvalidCredentials    = "invalid_credentials"
	codeInvalidToken          = "invalid_token"
	codeForbidden             = "forbidden"
	codeUnavailable           = "unavailable"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrInvalidAmount, http.StatusBadRequest, codeInvalidAmount},
	{domain.ErrInvalidCommission, http.StatusBadRequest, codeInvalidCommission},
	{domain.ErrInsufficientFunds, http.StatusBadRequest, codeInsufficientFunds},
	{domain.ErrInsufficientEscrow, http.StatusBadRequest, codeInsufficientEscrow},
	{domain.ErrInvalidStatus, http.StatusBadRequest, codeInvalidStatus},
	{domain.ErrInvalidTransition, http.StatusBadRequest, codeInvalidTransition},
	{domain.ErrNoWorkersAvailable, http.StatusBadRequest, codeNoWorkersAvailable},
	{domain.ErrNoWorkerAssigned, http.StatusBadRequest, codeNoWorkerAssigned},
	{domain.ErrNegotiationInProgress, http.StatusBadRequest, codeNegotiationInProgress},
	{domain.ErrNegotiationClosed, http.StatusBadRequest, codeNegotiationClosed},
	{domain.ErrAssignmentMismatch, http.StatusForbidden, codeAssignmentMismatch},
	{domain.ErrUnauthorized, http.StatusForbidden, codeForbidden},
	{domain.ErrConflict, http.StatusConflict, codeConflict},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials},
	{security.ErrInvalidToken, http.StatusUnauthorized, codeInvalidToken},
	{security.ErrExpiredToken, http.StatusUnauthorized, codeInvalidToken},
}

// writeServiceError maps a service error to its HTTP status. Unknown errors
// are logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeError(w, e.status, e.code, err.Error())
			return
		}
	}
	logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
