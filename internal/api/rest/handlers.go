package rest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/racunko/racunko-backend/internal/domain/bill"
	"github.com/racunko/racunko-backend/internal/domain/errors"
	"github.com/racunko/racunko-backend/internal/domain/values"
	"github.com/racunko/racunko-backend/internal/service/ingestion"
	"github.com/racunko/racunko-backend/internal/service/retention"
)

// SweepService is the slice of the retention sweeper the API needs.
type SweepService interface {
	SweepOldCancellations(ctx context.Context, retentionDays int) (retention.SweepResult, error)
}

// Handler exposes the bill ingestion and maintenance endpoints.
type Handler struct {
	ingestion     ingestion.Service
	sweeper       SweepService
	validate      *validator.Validate
	logger        *slog.Logger
	version       string
	retentionDays int

	// ready reports whether backing stores are reachable. Nil means
	// liveness only.
	ready func(ctx context.Context) error
}

// HandlerConfig carries the handler's collaborators.
type HandlerConfig struct {
	Ingestion     ingestion.Service
	Sweeper       SweepService
	Logger        *slog.Logger
	Version       string
	RetentionDays int
	ReadyCheck    func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ingestion:     cfg.Ingestion,
		sweeper:       cfg.Sweeper,
		validate:      validator.New(),
		logger:        logger,
		version:       cfg.Version,
		retentionDays: cfg.RetentionDays,
		ready:         cfg.ReadyCheck,
	}
}

// ingestBillRequest is the wire shape of a parsed bill. Dates use
// YYYY-MM-DD; the billing period uses the start_end token.
type ingestBillRequest struct {
	MerchantName     string `json:"merchant_name" validate:"required,max=255"`
	Date             string `json:"date" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	Currency         string `json:"currency" validate:"required,len=3"`
	InvoiceNumber    string `json:"invoice_number" validate:"max=255"`
	BillingAccountID string `json:"billing_account_id" validate:"max=255"`
	BillingPeriod    string `json:"billing_period"`
	IsCancellation   bool   `json:"is_cancellation"`
	PaymentStatus    string `json:"payment_status" validate:"omitempty,oneof=unpaid processing paid"`
}

type ingestBillResponse struct {
	Outcome     string     `json:"outcome"`
	Message     string     `json:"message,omitempty"`
	Disposition string     `json:"disposition"`
	Reason      string     `json:"reason,omitempty"`
	Bill        *bill.Bill `json:"bill,omitempty"`
}

type sweepRequest struct {
	RetentionDays int `json:"retention_days" validate:"omitempty,min=1,max=3650"`
}

type sweepResponse struct {
	DeletedCount int    `json:"deleted_count"`
	Message      string `json:"message"`
}

// HandleIngestBill accepts one parsed bill, runs duplicate classification
// and persists the outcome.
func (h *Handler) HandleIngestBill(w http.ResponseWriter, r *http.Request) {
	var req ingestBillRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, errors.NewValidationError("INVALID_BODY", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, validationError(err))
		return
	}

	b, period, err := req.toDomain()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.ingestion.IngestBill(r.Context(), b, period)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	switch result.Outcome {
	case ingestion.OutcomeSkipped:
		status = http.StatusOK
	case ingestion.OutcomeWarning:
		status = http.StatusConflict
	}
	h.writeJSON(w, status, ingestBillResponse{
		Outcome:     result.Outcome.String(),
		Message:     result.Message,
		Disposition: result.Disposition.Kind.String(),
		Reason:      result.Disposition.Reason,
		Bill:        result.Bill,
	})
}

// HandleSweep triggers a retention sweep of old hidden cancellations.
// An absent or zero retention_days falls back to the configured default.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, r, errors.NewValidationError("INVALID_BODY", err.Error()))
			return
		}
		if err := h.validate.Struct(req); err != nil {
			h.writeError(w, r, validationError(err))
			return
		}
	}

	days := req.RetentionDays
	if days <= 0 {
		days = h.retentionDays
	}

	result, err := h.sweeper.SweepOldCancellations(r.Context(), days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sweepResponse{
		DeletedCount: result.DeletedCount,
		Message:      result.Message,
	})
}

// HandleHealth reports liveness, and readiness when a check is wired.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

func (r ingestBillRequest) toDomain() (*bill.Bill, values.BillingPeriod, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, values.BillingPeriod{}, errors.NewValidationError("INVALID_DATE", "date must be YYYY-MM-DD")
	}

	amount, err := values.NewMoneyFromString(r.Amount, r.Currency)
	if err != nil {
		return nil, values.BillingPeriod{}, errors.NewValidationError("INVALID_AMOUNT", err.Error())
	}

	period, err := values.ParseBillingPeriod(r.BillingPeriod)
	if err != nil {
		return nil, values.BillingPeriod{}, errors.NewValidationError("INVALID_BILLING_PERIOD", err.Error())
	}

	b, err := bill.NewBill(r.MerchantName, date, amount)
	if err != nil {
		return nil, values.BillingPeriod{}, errors.NewValidationError("INVALID_BILL", err.Error())
	}
	b.InvoiceNumber = r.InvoiceNumber
	b.BillingAccountID = r.BillingAccountID
	b.IsCancellation = r.IsCancellation

	if r.PaymentStatus != "" {
		status, err := bill.ParseStatus(r.PaymentStatus)
		if err != nil {
			return nil, values.BillingPeriod{}, errors.NewValidationError("INVALID_STATUS", err.Error())
		}
		b.PaymentStatus = status
	}

	return b, period, nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func validationError(err error) *errors.AppError {
	appErr := errors.NewValidationError("VALIDATION_FAILED", "request validation failed")
	if verrs, ok := err.(validator.ValidationErrors); ok {
		details := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return appErr.WithDetails(details)
	}
	return appErr
}

type errorResponse struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var resp errorResponse
	resp.Error.Code = "INTERNAL_ERROR"
	resp.Error.Message = "an internal error occurred"

	status := errors.GetStatusCode(err)
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Error.Code = appErr.Code
		resp.Error.Message = appErr.Message
		resp.Error.Details = appErr.Details
	}

	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	h.writeJSON(w, status, resp)
}
