/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ENCODING:
  Amounts cross the wire as decimal strings ("3750.00"), never as JSON
  numbers, so precision survives serialization on both ends.

VALIDATION:
  Request types carry validator/v10 struct tags; handlers run the shared
  validator before touching domain logic. Domain rules (current-date-only
  submission, duplicate detection, overpayment policy) stay in the domain
  packages - the tags only cover shape and range.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/payroll"
)

// =============================================================================
// HOUR REQUESTS
// =============================================================================

// SubmitHourRequestRequest is a teacher's worked-time claim for today.
type SubmitHourRequestRequest struct {
	Hours   int `json:"hours" validate:"min=0,max=24"`
	Minutes int `json:"minutes" validate:"min=0,max=59"`
}

// ReviewHourRequestRequest is an admin's verdict on an hour request.
type ReviewHourRequestRequest struct {
	Status          string `json:"status" validate:"required,oneof=APPROVED REJECTED MODIFIED"`
	ModifiedHours   *int   `json:"modified_hours,omitempty" validate:"omitempty,min=0,max=24"`
	ModifiedMinutes *int   `json:"modified_minutes,omitempty" validate:"omitempty,min=0,max=59"`
	Feedback        string `json:"feedback,omitempty"`
	ReviewedBy      string `json:"reviewed_by,omitempty"`
}

// HourRequestDTO represents an hour request in API responses.
type HourRequestDTO struct {
	ID              string `json:"id"`
	TeacherID       string `json:"teacher_id"`
	Date            string `json:"date"`
	Hours           int    `json:"hours"`
	Minutes         int    `json:"minutes"`
	Status          string `json:"status"`
	ModifiedHours   *int   `json:"modified_hours,omitempty"`
	ModifiedMinutes *int   `json:"modified_minutes,omitempty"`
	Feedback        string `json:"feedback,omitempty"`
	ReviewedBy      string `json:"reviewed_by,omitempty"`
	ReviewedAt      string `json:"reviewed_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toHourRequestDTO(r payroll.HourRequest) HourRequestDTO {
	dto := HourRequestDTO{
		ID:              r.ID,
		TeacherID:       r.TeacherID,
		Date:            r.Date.Format("2006-01-02"),
		Hours:           r.Hours,
		Minutes:         r.Minutes,
		Status:          string(r.Status),
		ModifiedHours:   r.AdminModifiedHours,
		ModifiedMinutes: r.AdminModifiedMinutes,
		Feedback:        r.AdminFeedback,
		ReviewedBy:      r.ReviewedBy,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.ReviewedAt != nil {
		dto.ReviewedAt = r.ReviewedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// SALARY CONFIGURATIONS
// =============================================================================

// CreateSalaryConfigRequest creates a new effective-dated salary config.
// EffectiveFrom is optional (YYYY-MM-DD); empty means effective immediately.
type CreateSalaryConfigRequest struct {
	MonthlySalary string `json:"monthly_salary,omitempty"`
	HourlyWage    string `json:"hourly_wage,omitempty"`
	EffectiveFrom string `json:"effective_from,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// SalaryConfigDTO represents a salary configuration in API responses.
type SalaryConfigDTO struct {
	ID            string `json:"id"`
	TeacherID     string `json:"teacher_id"`
	MonthlySalary string `json:"monthly_salary"`
	HourlyWage    string `json:"hourly_wage"`
	EffectiveFrom string `json:"effective_from"`
	CreatedAt     string `json:"created_at"`
}

func toSalaryConfigDTO(c payroll.SalaryConfiguration) SalaryConfigDTO {
	return SalaryConfigDTO{
		ID:            c.ID,
		TeacherID:     c.TeacherID,
		MonthlySalary: c.MonthlySalary.String(),
		HourlyWage:    c.HourlyWage.String(),
		EffectiveFrom: c.EffectiveFrom.Format(time.RFC3339),
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// PayrollRecordDTO is the derived monthly entitlement view.
type PayrollRecordDTO struct {
	TeacherID        string `json:"teacher_id"`
	Month            int    `json:"month"`
	Year             int    `json:"year"`
	MonthlySalary    string `json:"monthly_salary"`
	HourlyWage       string `json:"hourly_wage"`
	TotalHours       string `json:"total_hours"`
	TotalEntitlement string `json:"total_entitlement"`
}

func toPayrollRecordDTO(r payroll.MonthlyPayrollRecord) PayrollRecordDTO {
	return PayrollRecordDTO{
		TeacherID:        r.TeacherID,
		Month:            int(r.Period.Month),
		Year:             r.Period.Year,
		MonthlySalary:    r.MonthlySalary.String(),
		HourlyWage:       r.HourlyWage.String(),
		TotalHours:       r.TotalHours.String(),
		TotalEntitlement: r.TotalEntitlement.String(),
	}
}

// =============================================================================
// BILLING
// =============================================================================

// RecordPaymentRequest appends a payment to an installment. PaymentDate is
// optional (YYYY-MM-DD); empty means today.
type RecordPaymentRequest struct {
	Amount        string `json:"amount" validate:"required"`
	PaymentDate   string `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ApplyDiscountRequest grants an ad-hoc discount to a student.
type ApplyDiscountRequest struct {
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

// InstallmentDTO is the recomputed installment view.
type InstallmentDTO struct {
	ID                string `json:"id"`
	StudentID         string `json:"student_id"`
	Month             int    `json:"month"`
	Year              int    `json:"year"`
	TotalAmount       string `json:"total_amount"`
	DiscountAmount    string `json:"discount_amount"`
	PaidAmount        string `json:"paid_amount"`
	OutstandingAmount string `json:"outstanding_amount"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
}

func toInstallmentDTO(v billing.InstallmentView) InstallmentDTO {
	return InstallmentDTO{
		ID:                v.ID,
		StudentID:         v.StudentID,
		Month:             int(v.Period.Month),
		Year:              v.Period.Year,
		TotalAmount:       v.TotalAmount.String(),
		DiscountAmount:    v.DiscountAmount.String(),
		PaidAmount:        v.PaidAmount.String(),
		OutstandingAmount: v.OutstandingAmount.String(),
		Status:            string(v.Status),
		CreatedAt:         v.CreatedAt.Format(time.RFC3339),
	}
}

// PaymentDTO represents an immutable payment ledger entry.
type PaymentDTO struct {
	ID            string `json:"id"`
	InstallmentID string `json:"installment_id"`
	Amount        string `json:"amount"`
	PaymentDate   string `json:"payment_date"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toPaymentDTO(p billing.PaymentRecord) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID,
		InstallmentID: p.InstallmentID,
		Amount:        p.Amount.String(),
		PaymentDate:   p.PaymentDate.Format("2006-01-02"),
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

// DiscountDTO represents a discount grant.
type DiscountDTO struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func toDiscountDTO(d billing.StudentDiscount) DiscountDTO {
	return DiscountDTO{
		ID:        d.ID,
		StudentID: d.StudentID,
		Amount:    d.Amount.String(),
		Reason:    d.Reason,
		Active:    d.Active,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

// OutstandingDTO aggregates a student's unpaid periods.
type OutstandingDTO struct {
	StudentID        string `json:"student_id"`
	TotalOutstanding string `json:"total_outstanding"`
	Count            int    `json:"count"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
