package http

import (
	"net/http"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/service"
	"bluecollar-backend/internal/utils"
)

type walletHandler struct {
	svc service.WalletService
}

// ownWallet resolves the caller's wallet, creating it on first use.
func (h *walletHandler) ownWallet(w http.ResponseWriter, r *http.Request) (*domain.Wallet, bool) {
	p, ok := principal(w, r)
	if !ok {
		return nil, false
	}
	wallet, err := h.svc.GetOrCreateWallet(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return wallet, true
}

func (h *walletHandler) get(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *walletHandler) transactions(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	q := queryValues{r}
	page, pageSize := utils.NormalizePage(q.int32("page", 1), q.int32("page_size", utils.DefaultPageSize))

	txs, total, err := h.svc.ListTransactions(r.Context(), wallet.ID, page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []domain.WalletTransaction{}
	}
	writeJSON(w, http.StatusOK, transactionsResponse{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
	})
}

func (h *walletHandler) bindMovement(w http.ResponseWriter, r *http.Request) (*depositRequest, bool) {
	var req depositRequest
	ok := bind(w, r, &req, func(q queryValues) error {
		q.string("description", &req.Description)
		q.string("referenceId", &req.ReferenceID)
		return q.decimal("amount", &req.Amount)
	})
	return &req, ok
}

func (h *walletHandler) deposit(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	req, ok := h.bindMovement(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.DepositToWallet(r.Context(), wallet.ID, req.Amount, req.Description, req.ReferenceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *walletHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	req, ok := h.bindMovement(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.WithdrawFromWallet(r.Context(), wallet.ID, req.Amount, req.Description, req.ReferenceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *walletHandler) bindEscrow(w http.ResponseWriter, r *http.Request) (*escrowRequest, bool) {
	var req escrowRequest
	ok := bind(w, r, &req, func(q queryValues) error {
		if err := q.id("bookingId", &req.BookingID); err != nil {
			return err
		}
		if err := q.decimal("amount", &req.Amount); err != nil {
			return err
		}
		return q.optionalDecimal("commission", &req.Commission)
	})
	return &req, ok
}

func (h *walletHandler) escrowDeposit(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	req, ok := h.bindEscrow(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.MoveMoneyToEscrow(r.Context(), wallet.ID, req.BookingID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *walletHandler) escrowRelease(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	req, ok := h.bindEscrow(w, r)
	if !ok {
		return
	}
	if req.Commission == nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "commission is required")
		return
	}
	updated, err := h.svc.ReleaseMoneyFromEscrow(r.Context(), wallet.ID, req.BookingID, req.Amount, *req.Commission)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *walletHandler) escrowRefund(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.ownWallet(w, r)
	if !ok {
		return
	}
	req, ok := h.bindEscrow(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.RefundMoneyFromEscrow(r.Context(), wallet.ID, req.BookingID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
