/*
Package payroll implements the teacher payroll settlement ledger.

PURPOSE:
  Two cooperating pieces:
  - The hour request ledger: teacher-submitted daily worked-time claims that
    go through admin review (approve / reject / modify)
  - The settlement engine: derives a monthly entitlement record per teacher
    from the salary configuration active during a period plus the reviewed
    hour requests dated within it

KEY CONCEPTS IN THIS FILE (types.go):
  - SalaryConfiguration: Monthly salary and/or hourly wage, effective-dated
  - HourRequest: One claim per teacher per day, with review state
  - MonthlyPayrollRecord: The derived entitlement view (never stored)

DESIGN PRINCIPLES:
  1. Effective duration: A MODIFIED review overrides the submitted duration;
     PENDING and REJECTED requests contribute nothing
  2. Recompute on read: The monthly record is a pure function of its inputs;
     there is no cached entitlement to drift out of sync
  3. Non-retroactivity: The engine resolves the salary configuration active
     as of the END of the queried period, so a later salary edit never
     silently changes a finished month

SEE ALSO:
  - requests.go: Submit / Review / ListPending
  - engine.go: ComputeMonthlyRecord
  - salary.go: Salary configuration management
*/
package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/instituteops/finance-engine/finance"
)

// =============================================================================
// SALARY CONFIGURATION
// =============================================================================

// SalaryConfiguration is a teacher's effective-dated pay setup. At most one
// configuration is active for a teacher at a given instant: the one with the
// latest EffectiveFrom not in the future. At least one of MonthlySalary and
// HourlyWage must be positive.
type SalaryConfiguration struct {
	ID            string
	TeacherID     string
	MonthlySalary finance.Money
	HourlyWage    finance.Money
	EffectiveFrom time.Time
	CreatedAt     time.Time
}

// =============================================================================
// HOUR REQUEST
// =============================================================================

type HourRequestStatus string

const (
	RequestPending  HourRequestStatus = "PENDING"
	RequestApproved HourRequestStatus = "APPROVED"
	RequestRejected HourRequestStatus = "REJECTED"
	RequestModified HourRequestStatus = "MODIFIED"
)

// HourRequest is a teacher's worked-time claim for a single day. One request
// per (teacher, date); mutated only by admin review, and a later review
// overwrites an earlier one.
type HourRequest struct {
	ID        string
	TeacherID string
	Date      time.Time // calendar day, UTC midnight
	Hours     int       // 0-24 as submitted
	Minutes   int       // 0-59 as submitted
	Status    HourRequestStatus

	// Set when Status == RequestModified
	AdminModifiedHours   *int
	AdminModifiedMinutes *int
	AdminFeedback        string

	ReviewedBy string
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// EffectiveDuration returns the decimal hours this request contributes to
// settlement: the admin-modified duration when MODIFIED, the submitted
// duration when APPROVED, zero otherwise.
func (r HourRequest) EffectiveDuration() decimal.Decimal {
	var hours, minutes int
	switch r.Status {
	case RequestModified:
		if r.AdminModifiedHours != nil {
			hours = *r.AdminModifiedHours
		}
		if r.AdminModifiedMinutes != nil {
			minutes = *r.AdminModifiedMinutes
		}
	case RequestApproved:
		hours, minutes = r.Hours, r.Minutes
	default:
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(hours)).
		Add(decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)))
}

// Period returns the settlement period this request belongs to.
func (r HourRequest) Period() finance.Period {
	return finance.PeriodOf(r.Date)
}

// =============================================================================
// MONTHLY PAYROLL RECORD - Derived, one per teacher per period
// =============================================================================

// MonthlyPayrollRecord is a computed view, not an editable entity.
// Recomputing it from its inputs at any time yields the same result.
type MonthlyPayrollRecord struct {
	TeacherID        string
	Period           finance.Period
	MonthlySalary    finance.Money
	HourlyWage       finance.Money
	TotalHours       decimal.Decimal
	TotalEntitlement finance.Money
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// RequestStore persists hour requests. Insert must fail with
// finance.ErrConflict when a request already exists for (TeacherID, Date).
type RequestStore interface {
	Insert(ctx context.Context, req HourRequest) error
	Get(ctx context.Context, id string) (*HourRequest, error)
	Update(ctx context.Context, req HourRequest) error

	// ListPending returns PENDING requests ordered by date ascending with a
	// stable insertion-order tie-break. Empty teacherID means all teachers.
	ListPending(ctx context.Context, teacherID string) ([]HourRequest, error)

	// ListInPeriod returns all of a teacher's requests dated within the
	// period, regardless of status.
	ListInPeriod(ctx context.Context, teacherID string, period finance.Period) ([]HourRequest, error)
}

// SalaryStore persists salary configurations.
type SalaryStore interface {
	Insert(ctx context.Context, cfg SalaryConfiguration) error

	// ListByTeacher returns all configurations ordered by EffectiveFrom asc.
	ListByTeacher(ctx context.Context, teacherID string) ([]SalaryConfiguration, error)

	// ActiveAsOf returns the configuration with the latest EffectiveFrom not
	// after asOf, or nil when the teacher has none yet.
	ActiveAsOf(ctx context.Context, teacherID string, asOf time.Time) (*SalaryConfiguration, error)
}

// TeacherDirectory is the external directory collaborator. The ledger only
// consumes stable identifiers; it never creates teachers.
type TeacherDirectory interface {
	TeacherExists(ctx context.Context, teacherID string) (bool, error)
}
