/*
Package billing implements the student installment billing ledger.

PURPOSE:
  Per-student, per-period tuition obligations with payment and discount
  sub-ledgers. The installment row stores only what cannot be derived (the
  base total for the period); paid amount, discount amount, outstanding
  balance and status are recomputed from line items on every read.

KEY CONCEPTS IN THIS FILE (types.go):
  - StudentInstallment: One obligation per (student, month, year)
  - PaymentRecord: Append-only payment entries; never edited or deleted
  - StudentDiscount: Cancellable grants; cancelling flips a flag, the row
    stays so history is preserved and installments simply recompute
  - InstallmentView: The derived read model callers actually see

DESIGN PRINCIPLES:
  1. Uniqueness: The store enforces at-most-once creation per
     (student, month, year); a creation race resolves to the existing row
  2. Derived aggregates: paidAmount = sum of payments, discountAmount =
     sum of active discounts clamped to the total; no stored running totals
  3. No negative ledger values: outstanding floors at zero; overpayment
     surplus stays visible only in paidAmount

SEE ALSO:
  - ledger.go: The operations (get-or-create, payment, discount, balance)
*/
package billing

import (
	"context"
	"time"

	"github.com/instituteops/finance-engine/finance"
)

// =============================================================================
// ENTITIES
// =============================================================================

// StudentInstallment is one tuition obligation for one billing period.
// TotalAmount is the period's base fee from the fee schedule; everything
// else about the obligation is derived.
type StudentInstallment struct {
	ID          string
	StudentID   string
	Period      finance.Period
	TotalAmount finance.Money
	CreatedAt   time.Time
}

// PaymentRecord is an immutable payment ledger entry.
type PaymentRecord struct {
	ID            string
	InstallmentID string
	Amount        finance.Money // always > 0
	PaymentDate   time.Time
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
}

// StudentDiscount is an ad-hoc grant attributed to a student. While Active,
// it reduces the outstanding amount of every installment queried for that
// student. Cancelling sets Active=false; the row is never deleted.
type StudentDiscount struct {
	ID        string
	StudentID string
	Amount    finance.Money // always > 0
	Reason    string
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// InstallmentView is the recomputed read model of an installment.
// Invariant after every mutation:
//
//	OutstandingAmount == max(0, TotalAmount - DiscountAmount - PaidAmount)
type InstallmentView struct {
	StudentInstallment

	DiscountAmount    finance.Money
	PaidAmount        finance.Money
	OutstandingAmount finance.Money
	Status            finance.ObligationStatus
}

// OutstandingSummary aggregates a student's unpaid periods.
type OutstandingSummary struct {
	StudentID        string
	TotalOutstanding finance.Money
	Count            int // periods with outstanding > 0
}

// =============================================================================
// OVERPAYMENT POLICY
// =============================================================================

// OverpaymentPolicy decides what happens when a payment exceeds the
// outstanding amount. Schools differ on this, so it is a configuration
// choice rather than a hardcoded rule.
type OverpaymentPolicy int

const (
	// OverpaymentAllowAndFloor accepts the payment; outstanding floors at
	// zero and the surplus stays visible in paidAmount. Default.
	OverpaymentAllowAndFloor OverpaymentPolicy = iota

	// OverpaymentReject refuses payments above the outstanding amount.
	OverpaymentReject
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// InstallmentStore persists installments. Insert must fail with
// finance.ErrConflict when a row already exists for (StudentID, Period),
// backed by a unique constraint so a concurrent first-access race cannot
// create two rows.
type InstallmentStore interface {
	Insert(ctx context.Context, inst StudentInstallment) error
	Get(ctx context.Context, id string) (*StudentInstallment, error)

	// Find returns the installment for (studentID, period), or nil.
	Find(ctx context.Context, studentID string, period finance.Period) (*StudentInstallment, error)

	// ListByStudent returns all of a student's installments, period ascending.
	ListByStudent(ctx context.Context, studentID string) ([]StudentInstallment, error)
}

// PaymentStore is append-only: payments are immutable ledger entries.
type PaymentStore interface {
	Append(ctx context.Context, p PaymentRecord) error
	ListByInstallment(ctx context.Context, installmentID string) ([]PaymentRecord, error)
}

// DiscountStore persists discounts. Update only ever flips Active.
type DiscountStore interface {
	Insert(ctx context.Context, d StudentDiscount) error
	Get(ctx context.Context, id string) (*StudentDiscount, error)
	Update(ctx context.Context, d StudentDiscount) error
	ListActiveByStudent(ctx context.Context, studentID string) ([]StudentDiscount, error)
}

// StudentDirectory is the external directory and fee-schedule collaborator.
// Fees are base tuition before any ad-hoc discounts.
type StudentDirectory interface {
	StudentExists(ctx context.Context, studentID string) (bool, error)
	StudentFeeSchedule(ctx context.Context, studentID string, period finance.Period) (finance.Money, error)
}
