package http

import (
	"context"
	"net/http"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/security"
	"bluecollar-backend/internal/service"
)

const (
	defaultCustomerRejectReason = "Customer requested different worker"
	defaultWorkerRejectReason   = "Worker unable to take this job"
)

type bookingHandler struct {
	svc service.BookingService
}

// principal fetches the caller placed in the context by Authenticator.
func principal(w http.ResponseWriter, r *http.Request) (*security.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	return p, ok
}

func (h *bookingHandler) createAuto(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req autoBookingRequest
	if !bind(w, r, &req, nil) {
		return
	}

	result, err := h.svc.CreateAutoBooking(r.Context(), service.AutoBookingRequest{
		WorkID:              req.WorkID,
		Description:         req.Description,
		ScheduledDate:       req.ScheduledDate,
		CustomerAddress:     req.CustomerAddress,
		CustomerPhone:       req.CustomerPhone,
		SpecialInstructions: req.SpecialInstructions,
	}, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *bookingHandler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req bookingRequest
	if !bind(w, r, &req, nil) {
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), service.BookingRequest{
		WorkID:              req.WorkID,
		WorkerID:            req.WorkerID,
		Description:         req.Description,
		ScheduledDate:       req.ScheduledDate,
		CustomerAddress:     req.CustomerAddress,
		CustomerPhone:       req.CustomerPhone,
		SpecialInstructions: req.SpecialInstructions,
	}, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *bookingHandler) list(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListBookings(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *bookingHandler) mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var (
		bookings []domain.Booking
		err      error
	)
	if p.Is(domain.RoleWorker) {
		bookings, err = h.svc.ListWorkerBookings(r.Context(), p.UserID)
	} else {
		bookings, err = h.svc.ListCustomerBookings(r.Context(), p.UserID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *bookingHandler) pendingForWorker(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	workerID, ok := pathID(w, r, "workerId")
	if !ok {
		return
	}
	if !p.Is(domain.RoleAdmin) && p.UserID != workerID {
		writeError(w, http.StatusForbidden, codeForbidden, "workers may only list their own pending bookings")
		return
	}

	bookings, err := h.svc.ListPendingForWorker(r.Context(), workerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *bookingHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.svc.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *bookingHandler) assignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.svc.GetBooking(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	history, err := h.svc.ListAssignments(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *bookingHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	status, err := domain.ParseBookingStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	booking, err := h.svc.UpdateBookingStatus(r.Context(), id, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *bookingHandler) acceptAssignment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.svc.AcceptWorkerAssignment(r.Context(), id, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *bookingHandler) rejectAssignment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reason, ok := h.reason(w, r, defaultWorkerRejectReason)
	if !ok {
		return
	}
	booking, err := h.svc.RejectWorkerAssignment(r.Context(), id, p.UserID, reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *bookingHandler) rejectWorker(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reason, ok := h.reason(w, r, defaultCustomerRejectReason)
	if !ok {
		return
	}

	current, err := h.svc.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if current.CustomerID != p.UserID {
		writeError(w, http.StatusForbidden, codeForbidden, "booking belongs to another customer")
		return
	}

	booking, err := h.svc.RejectAssignedWorker(r.Context(), id, reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *bookingHandler) reason(w http.ResponseWriter, r *http.Request, def string) (string, bool) {
	var req reasonRequest
	if !bind(w, r, &req, func(q queryValues) error {
		q.string("reason", &req.Reason)
		q.string("rejectionReason", &req.Reason)
		return nil
	}) {
		return "", false
	}
	if req.Reason == "" {
		req.Reason = def
	}
	return req.Reason, true
}

// transition adapts a single-step lifecycle method to a handler.
func (h *bookingHandler) transition(fn func(ctx context.Context, id int32) (*domain.Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		booking, err := fn(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

func (h *bookingHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteBooking(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
