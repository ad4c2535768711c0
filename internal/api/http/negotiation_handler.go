package http

import (
	"net/http"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/service"
)

type negotiationHandler struct {
	svc service.NegotiationService
}

func (h *negotiationHandler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req negotiationRequest
	if !bind(w, r, &req, func(q queryValues) error {
		if err := q.id("bookingId", &req.BookingID); err != nil {
			return err
		}
		q.string("message", &req.Message)
		return q.decimal("proposedAmount", &req.ProposedAmount)
	}) {
		return
	}

	n, err := h.svc.InitiateNegotiation(r.Context(), req.BookingID, p.UserID, req.ProposedAmount, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *negotiationHandler) respond(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req negotiationResponseRequest
	if !bind(w, r, &req, func(q queryValues) error {
		q.string("status", &req.Status)
		q.string("response", &req.Response)
		return nil
	}) {
		return
	}

	n, err := h.svc.RespondToNegotiation(r.Context(), id, p.UserID, domain.NegotiationStatus(req.Status), req.Response)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *negotiationHandler) cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.svc.CancelNegotiation(r.Context(), id, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *negotiationHandler) mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var (
		list []domain.Negotiation
		err  error
	)
	if p.Is(domain.RoleWorker) {
		list, err = h.svc.ListWorkerNegotiations(r.Context(), p.UserID)
	} else {
		list, err = h.svc.ListCustomerNegotiations(r.Context(), p.UserID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
