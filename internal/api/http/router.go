package http

import (
	"context"
	"net/http"

	"bluecollar-backend/internal/service"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// Services bundles the application services the HTTP API exposes.
type Services struct {
	Auth         service.AuthService
	Bookings     service.BookingService
	Wallets      service.WalletService
	Negotiations service.NegotiationService
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterOptions struct {
	AllowedOrigins []string
	Pinger         Pinger
}

// NewRouter wires every API route. Route names key the access policy in
// config.EndpointSecurityConfig.
func NewRouter(svcs Services, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	r.Use(RequestID, RequestLogger, Recoverer, Authenticator(svcs.Auth))

	health := &healthHandler{pinger: opts.Pinger}
	r.HandleFunc("/health", health.check).Methods(http.MethodGet).Name("health")

	auth := &authHandler{svc: svcs.Auth}
	r.HandleFunc("/api/auth/login", auth.login).Methods(http.MethodPost).Name("auth.login")

	bookings := &bookingHandler{svc: svcs.Bookings}
	b := r.PathPrefix("/api/bookings").Subrouter()
	b.HandleFunc("/auto", bookings.createAuto).Methods(http.MethodPost).Name("bookings.auto")
	b.HandleFunc("", bookings.create).Methods(http.MethodPost).Name("bookings.create")
	b.HandleFunc("", bookings.list).Methods(http.MethodGet).Name("bookings.list")
	b.HandleFunc("/my-bookings", bookings.mine).Methods(http.MethodGet).Name("bookings.mine")
	b.HandleFunc("/worker/{workerId:[0-9]+}/pending", bookings.pendingForWorker).Methods(http.MethodGet).Name("bookings.worker.pending")
	b.HandleFunc("/{id:[0-9]+}", bookings.get).Methods(http.MethodGet).Name("bookings.get")
	b.HandleFunc("/{id:[0-9]+}", bookings.delete).Methods(http.MethodDelete).Name("bookings.delete")
	b.HandleFunc("/{id:[0-9]+}/assignments", bookings.assignments).Methods(http.MethodGet).Name("bookings.assignments")
	b.HandleFunc("/{id:[0-9]+}/status", bookings.updateStatus).Methods(http.MethodPut).Name("bookings.status")
	b.HandleFunc("/{id:[0-9]+}/accept-assignment", bookings.acceptAssignment).Methods(http.MethodPut).Name("bookings.assignment.accept")
	b.HandleFunc("/{id:[0-9]+}/reject-assignment", bookings.rejectAssignment).Methods(http.MethodPut).Name("bookings.assignment.reject")
	b.HandleFunc("/{id:[0-9]+}/reject-worker", bookings.rejectWorker).Methods(http.MethodPut).Name("bookings.worker.reject")
	b.HandleFunc("/{id:[0-9]+}/accept", bookings.transition(svcs.Bookings.AcceptBooking)).Methods(http.MethodPut).Name("bookings.accept")
	b.HandleFunc("/{id:[0-9]+}/reject", bookings.transition(svcs.Bookings.RejectBooking)).Methods(http.MethodPut).Name("bookings.reject")
	b.HandleFunc("/{id:[0-9]+}/start", bookings.transition(svcs.Bookings.StartWork)).Methods(http.MethodPut).Name("bookings.start")
	b.HandleFunc("/{id:[0-9]+}/complete", bookings.transition(svcs.Bookings.CompleteWork)).Methods(http.MethodPut).Name("bookings.complete")
	b.HandleFunc("/{id:[0-9]+}/cancel", bookings.transition(svcs.Bookings.CancelBooking)).Methods(http.MethodPut).Name("bookings.cancel")

	wallets := &walletHandler{svc: svcs.Wallets}
	wl := r.PathPrefix("/api/wallet").Subrouter()
	wl.HandleFunc("", wallets.get).Methods(http.MethodGet).Name("wallet.get")
	wl.HandleFunc("/transactions", wallets.transactions).Methods(http.MethodGet).Name("wallet.transactions")
	wl.HandleFunc("/deposit", wallets.deposit).Methods(http.MethodPost).Name("wallet.deposit")
	wl.HandleFunc("/withdraw", wallets.withdraw).Methods(http.MethodPost).Name("wallet.withdraw")
	wl.HandleFunc("/escrow/deposit", wallets.escrowDeposit).Methods(http.MethodPost).Name("wallet.escrow.deposit")
	wl.HandleFunc("/escrow/release", wallets.escrowRelease).Methods(http.MethodPost).Name("wallet.escrow.release")
	wl.HandleFunc("/escrow/refund", wallets.escrowRefund).Methods(http.MethodPost).Name("wallet.escrow.refund")

	negotiations := &negotiationHandler{svc: svcs.Negotiations}
	n := r.PathPrefix("/api/negotiations").Subrouter()
	n.HandleFunc("", negotiations.create).Methods(http.MethodPost).Name("negotiations.create")
	n.HandleFunc("/my", negotiations.mine).Methods(http.MethodGet).Name("negotiations.mine")
	n.HandleFunc("/{id:[0-9]+}/respond", negotiations.respond).Methods(http.MethodPut).Name("negotiations.respond")
	n.HandleFunc("/{id:[0-9]+}/cancel", negotiations.cancel).Methods(http.MethodPut).Name("negotiations.cancel")

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})(r)
}
