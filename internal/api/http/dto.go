package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        any    `json:"user"`
}

type autoBookingRequest struct {
	WorkID              int32     `json:"work_id" validate:"required,gt=0"`
	Description         string    `json:"description" validate:"max=2000"`
	ScheduledDate       time.Time `json:"scheduled_date" validate:"required"`
	CustomerAddress     string    `json:"customer_address" validate:"max=500"`
	CustomerPhone       string    `json:"customer_phone" validate:"omitempty,max=20"`
	SpecialInstructions string    `json:"special_instructions" validate:"max=2000"`
}

type bookingRequest struct {
	autoBookingRequest
	WorkerID int32 `json:"worker_id" validate:"required,gt=0"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type depositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	ReferenceID string          `json:"reference_id" validate:"max=100"`
}

type escrowRequest struct {
	BookingID  int32            `json:"booking_id" validate:"required,gt=0"`
	Amount     decimal.Decimal  `json:"amount"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
}

type negotiationRequest struct {
	BookingID      int32           `json:"booking_id" validate:"required,gt=0"`
	ProposedAmount decimal.Decimal `json:"proposed_amount"`
	Message        string          `json:"message" validate:"max=1000"`
}

type negotiationResponseRequest struct {
	Status   string `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	Response string `json:"response" validate:"max=1000"`
}

type transactionsResponse struct {
	Transactions any   `json:"transactions"`
	Page         int32 `json:"page"`
	PageSize     int32 `json:"page_size"`
	Total        int32 `json:"total"`
}

type badRequest struct {
	code string
	msg  string
}

func (e *badRequest) Error() string { return e.msg }

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst
// untouched so that query parameters can fill it instead.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &badRequest{code: codeInvalidRequestBody, msg: "invalid request body: " + err.Error()}
	}
	return nil
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return &badRequest{code: codeValidationFailed, msg: "validation failed: " + strings.Join(fields, "; ")}
		}
		return &badRequest{code: codeValidationFailed, msg: err.Error()}
	}
	return nil
}

// bind decodes the body, lets fallback fill fields from the query string and
// validates the result. It writes the 400 itself and reports false on failure.
func bind(w http.ResponseWriter, r *http.Request, dst any, fallback func(q queryValues) error) bool {
	err := decodeJSON(r, dst)
	if err == nil && fallback != nil {
		err = fallback(queryValues{r})
	}
	if err == nil {
		err = validateStruct(dst)
	}
	if err != nil {
		var br *badRequest
		if errors.As(err, &br) {
			writeError(w, http.StatusBadRequest, br.code, br.msg)
		} else {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		}
		return false
	}
	return true
}

type queryValues struct{ r *http.Request }

func (q queryValues) string(name string, dst *string) {
	if *dst == "" {
		*dst = q.r.URL.Query().Get(name)
	}
}

func (q queryValues) decimal(name string, dst *decimal.Decimal) error {
	v := q.r.URL.Query().Get(name)
	if v == "" || !dst.IsZero() {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return &badRequest{code: codeInvalidAmount, msg: fmt.Sprintf("invalid %s: %q", name, v)}
	}
	*dst = d
	return nil
}

func (q queryValues) optionalDecimal(name string, dst **decimal.Decimal) error {
	if *dst != nil {
		return nil
	}
	var d decimal.Decimal
	if err := q.decimal(name, &d); err != nil {
		return err
	}
	if q.r.URL.Query().Has(name) {
		*dst = &d
	}
	return nil
}

func (q queryValues) id(name string, dst *int32) error {
	v := q.r.URL.Query().Get(name)
	if v == "" || *dst != 0 {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return &badRequest{code: codeInvalidID, msg: fmt.Sprintf("invalid %s: %q", name, v)}
	}
	*dst = int32(id)
	return nil
}

func (q queryValues) int32(name string, def int32) int32 {
	v, err := strconv.ParseInt(q.r.URL.Query().Get(name), 10, 32)
	if err != nil {
		return def
	}
	return int32(v)
}

// pathID parses a numeric path variable, writing a 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int32, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 32)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidID, "invalid "+name)
		return 0, false
	}
	return int32(id), true
}
