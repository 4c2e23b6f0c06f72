/*
handlers.go - HTTP API handlers for the obligation ledgers

PURPOSE:
  Exposes the payroll and billing ledgers via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Payroll:
    POST /api/teachers/{id}/hour-requests              Submit worked time
    GET  /api/teachers/{id}/hour-requests/{year}/{month}  Requests in period
    GET  /api/hour-requests/pending?teacher_id=        Review queue
    POST /api/hour-requests/{id}/review                Approve/reject/modify
    POST /api/teachers/{id}/salary-configurations      Create salary config
    GET  /api/teachers/{id}/salary-configurations      List salary configs
    GET  /api/teachers/{id}/payroll/{year}/{month}     Monthly record

  Billing:
    PUT  /api/students/{id}/installments/{year}/{month}  Get-or-create
    GET  /api/students/{id}/installments                 List (recomputed)
    GET  /api/students/{id}/outstanding                  Outstanding balance
    GET  /api/installments/{id}                          Single installment
    POST /api/installments/{id}/payments                 Record payment
    GET  /api/installments/{id}/payments                 Payment history
    POST /api/students/{id}/discounts                    Apply discount
    POST /api/discounts/{id}/cancel                      Cancel discount

ERROR HANDLING:
  Domain errors map by class:
    validation / invalid amount  -> 400
    not found                    -> 404
    conflict                     -> 409
    domain invariant             -> 422
  Anything outside the taxonomy  -> 500

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/finance"
	"github.com/instituteops/finance-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Requests *payroll.RequestService
	Salaries *payroll.SalaryService
	Engine   *payroll.SettlementEngine
	Billing  *billing.Ledger
	Payments billing.PaymentStore
	Logger   *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a handler over the assembled services.
func NewHandler(requests *payroll.RequestService, salaries *payroll.SalaryService, engine *payroll.SettlementEngine, ledger *billing.Ledger, payments billing.PaymentStore, logger *zap.Logger) *Handler {
	return &Handler{
		Requests: requests,
		Salaries: salaries,
		Engine:   engine,
		Billing:  ledger,
		Payments: payments,
		Logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// HOUR REQUEST HANDLERS
// =============================================================================

// SubmitHourRequest records a teacher's worked-time claim for today.
func (h *Handler) SubmitHourRequest(w http.ResponseWriter, r *http.Request) {
	teacherID := chi.URLParam(r, "id")

	var req SubmitHourRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.Requests.Submit(r.Context(), teacherID, req.Hours, req.Minutes)
	if err != nil {
		h.writeDomainError(w, "Failed to submit hour request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHourRequestDTO(*created))
}

// ListPendingHourRequests returns the admin review queue, date ascending.
func (h *Handler) ListPendingHourRequests(w http.ResponseWriter, r *http.Request) {
	teacherID := r.URL.Query().Get("teacher_id")

	requests, err := h.Requests.ListPending(r.Context(), teacherID)
	if err != nil {
		h.writeDomainError(w, "Failed to list pending requests", err)
		return
	}

	dtos := make([]HourRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toHourRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListHourRequestsInPeriod returns a teacher's requests dated within the
// period, all statuses.
func (h *Handler) ListHourRequestsInPeriod(w http.ResponseWriter, r *http.Request) {
	teacherID := chi.URLParam(r, "id")

	period, ok := h.periodParams(w, r)
	if !ok {
		return
	}

	requests, err := h.Requests.ListInPeriod(r.Context(), teacherID, period)
	if err != nil {
		h.writeDomainError(w, "Failed to list hour requests", err)
		return
	}

	dtos := make([]HourRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toHourRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReviewHourRequest applies an admin decision to a request.
func (h *Handler) ReviewHourRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req ReviewHourRequestRequest
	if !h.decode(w, r, &req) {
		return
	}

	reviewed, err := h.Requests.Review(r.Context(), requestID, payroll.ReviewDecision{
		Status:          payroll.HourRequestStatus(req.Status),
		ModifiedHours:   req.ModifiedHours,
		ModifiedMinutes: req.ModifiedMinutes,
		Feedback:        req.Feedback,
		ReviewedBy:      req.ReviewedBy,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to review hour request", err)
		return
	}
	writeJSON(w, http.StatusOK, toHourRequestDTO(*reviewed))
}

// =============================================================================
// SALARY CONFIGURATION HANDLERS
// =============================================================================

// CreateSalaryConfig records a new effective-dated pay setup.
func (h *Handler) CreateSalaryConfig(w http.ResponseWriter, r *http.Request) {
	teacherID := chi.URLParam(r, "id")

	var req CreateSalaryConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	monthly, err := parseOptionalMoney(req.MonthlySalary, "monthly_salary")
	if err != nil {
		h.writeDomainError(w, "Invalid monthly salary", err)
		return
	}
	hourly, err := parseOptionalMoney(req.HourlyWage, "hourly_wage")
	if err != nil {
		h.writeDomainError(w, "Invalid hourly wage", err)
		return
	}

	var effectiveFrom time.Time
	if req.EffectiveFrom != "" {
		effectiveFrom, _ = time.ParseInLocation("2006-01-02", req.EffectiveFrom, time.UTC)
	}

	cfg, err := h.Salaries.Create(r.Context(), teacherID, monthly, hourly, effectiveFrom)
	if err != nil {
		h.writeDomainError(w, "Failed to create salary configuration", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSalaryConfigDTO(*cfg))
}

// ListSalaryConfigs returns a teacher's configurations, oldest first.
func (h *Handler) ListSalaryConfigs(w http.ResponseWriter, r *http.Request) {
	teacherID := chi.URLParam(r, "id")

	configs, err := h.Salaries.List(r.Context(), teacherID)
	if err != nil {
		h.writeDomainError(w, "Failed to list salary configurations", err)
		return
	}

	dtos := make([]SalaryConfigDTO, len(configs))
	for i, cfg := range configs {
		dtos[i] = toSalaryConfigDTO(cfg)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetMonthlyPayrollRecord computes the entitlement record. The record is
// recomputed on every request; there is no stored copy to go stale.
func (h *Handler) GetMonthlyPayrollRecord(w http.ResponseWriter, r *http.Request) {
	teacherID := chi.URLParam(r, "id")

	period, ok := h.periodParams(w, r)
	if !ok {
		return
	}

	record, err := h.Engine.ComputeMonthlyRecord(r.Context(), teacherID, period)
	if err != nil {
		h.writeDomainError(w, "Failed to compute payroll record", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollRecordDTO(*record))
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// GetOrCreateInstallment returns the installment for the period, creating it
// from the fee schedule on first access. PUT because it is idempotent.
func (h *Handler) GetOrCreateInstallment(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	period, ok := h.periodParams(w, r)
	if !ok {
		return
	}

	view, err := h.Billing.GetOrCreateInstallment(r.Context(), studentID, period)
	if err != nil {
		h.writeDomainError(w, "Failed to get or create installment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTO(*view))
}

// ListInstallments returns all of a student's installments, recomputed.
func (h *Handler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	views, err := h.Billing.ListInstallments(r.Context(), studentID)
	if err != nil {
		h.writeDomainError(w, "Failed to list installments", err)
		return
	}

	dtos := make([]InstallmentDTO, len(views))
	for i, v := range views {
		dtos[i] = toInstallmentDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInstallment returns one recomputed installment.
func (h *Handler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	installmentID := chi.URLParam(r, "id")

	view, err := h.Billing.Installment(r.Context(), installmentID)
	if err != nil {
		h.writeDomainError(w, "Failed to get installment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTO(*view))
}

// RecordPayment appends a payment and returns the recomputed installment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	installmentID := chi.URLParam(r, "id")

	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := finance.ParseMoney(req.Amount)
	if err != nil {
		h.writeDomainError(w, "Invalid payment amount", err)
		return
	}
	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, _ = time.ParseInLocation("2006-01-02", req.PaymentDate, time.UTC)
	}

	view, err := h.Billing.RecordPayment(r.Context(), installmentID, amount, paymentDate, req.PaymentMethod, req.Notes)
	if err != nil {
		h.writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInstallmentDTO(*view))
}

// ListPayments returns an installment's payment history.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	installmentID := chi.URLParam(r, "id")

	payments, err := h.Payments.ListByInstallment(r.Context(), installmentID)
	if err != nil {
		h.writeDomainError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApplyDiscount grants an ad-hoc discount to a student.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	var req ApplyDiscountRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := finance.ParseMoney(req.Amount)
	if err != nil {
		h.writeDomainError(w, "Invalid discount amount", err)
		return
	}

	d, err := h.Billing.ApplyDiscount(r.Context(), studentID, amount, req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to apply discount", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDiscountDTO(*d))
}

// CancelDiscount deactivates a discount; affected installments recompute on
// their next read.
func (h *Handler) CancelDiscount(w http.ResponseWriter, r *http.Request) {
	discountID := chi.URLParam(r, "id")

	d, err := h.Billing.CancelDiscount(r.Context(), discountID)
	if err != nil {
		h.writeDomainError(w, "Failed to cancel discount", err)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountDTO(*d))
}

// GetOutstandingBalance sums outstanding amounts across a student's periods.
func (h *Handler) GetOutstandingBalance(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	summary, err := h.Billing.OutstandingBalance(r.Context(), studentID)
	if err != nil {
		h.writeDomainError(w, "Failed to compute outstanding balance", err)
		return
	}
	writeJSON(w, http.StatusOK, OutstandingDTO{
		StudentID:        summary.StudentID,
		TotalOutstanding: summary.TotalOutstanding.String(),
		Count:            summary.Count,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes the error response
// itself and returns false when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// periodParams parses {year}/{month} URL parameters.
func (h *Handler) periodParams(w http.ResponseWriter, r *http.Request) (finance.Period, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return finance.Period{}, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return finance.Period{}, false
	}
	period, perr := finance.NewPeriod(month, year)
	if perr != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", perr)
		return finance.Period{}, false
	}
	return period, true
}

func parseOptionalMoney(s, field string) (finance.Money, error) {
	if s == "" {
		return finance.ZeroMoney(), nil
	}
	m, err := finance.ParseMoney(s)
	if err != nil {
		return finance.Money{}, &finance.ValidationError{Field: field, Message: "invalid decimal: " + s}
	}
	return m, nil
}

// writeDomainError maps the error taxonomy to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case finance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case finance.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, finance.ErrDomainInvariant):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		if h.Logger != nil {
			h.Logger.Error(message, zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
