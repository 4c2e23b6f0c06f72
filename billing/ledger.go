/*
ledger.go - Installment billing operations

PURPOSE:
  The Ledger orchestrates the installment, payment and discount stores and
  produces recomputed InstallmentViews. Every read path goes through the
  same derivation (view), so a single-installment query, a student listing
  and the outstanding-balance aggregate can never disagree.

MUTATIONS:
  GetOrCreateInstallment  idempotent creation per (student, month, year)
  RecordPayment           append-only; policy decides overpayment handling
  ApplyDiscount           inserts an active discount row
  CancelDiscount          flips Active off; installments recompute

  Each mutation touches exactly one row; aggregates are derived fresh per
  read, so concurrent payments or a concurrent review cannot lose updates
  through a read-modify-write race on a cached total.
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/instituteops/finance-engine/finance"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the installment billing service.
type Ledger struct {
	Installments InstallmentStore
	Payments     PaymentStore
	Discounts    DiscountStore
	Directory    StudentDirectory
	Clock        finance.Clock
	Overpayment  OverpaymentPolicy
}

func NewLedger(installments InstallmentStore, payments PaymentStore, discounts DiscountStore, directory StudentDirectory, clock finance.Clock) *Ledger {
	return &Ledger{
		Installments: installments,
		Payments:     payments,
		Discounts:    discounts,
		Directory:    directory,
		Clock:        clock,
		Overpayment:  OverpaymentAllowAndFloor,
	}
}

// GetOrCreateInstallment returns the installment for (studentID, period),
// creating it from the student's fee schedule on first access. Creation is
// at-most-once: when a concurrent caller wins the insert race, the existing
// row is re-read and returned.
func (l *Ledger) GetOrCreateInstallment(ctx context.Context, studentID string, period finance.Period) (*InstallmentView, error) {
	exists, err := l.Directory.StudentExists(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &finance.NotFoundError{Kind: "student", ID: studentID}
	}

	if inst, err := l.Installments.Find(ctx, studentID, period); err != nil {
		return nil, err
	} else if inst != nil {
		return l.view(ctx, *inst)
	}

	baseFee, err := l.Directory.StudentFeeSchedule(ctx, studentID, period)
	if err != nil {
		return nil, err
	}
	if baseFee.IsNegative() {
		return nil, &finance.InvalidAmountError{Field: "totalAmount", Amount: baseFee}
	}

	inst := StudentInstallment{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Period:      period,
		TotalAmount: baseFee,
		CreatedAt:   l.Clock.Now(),
	}
	if err := l.Installments.Insert(ctx, inst); err != nil {
		if finance.IsConflict(err) {
			// Lost the creation race; the winner's row is the installment.
			existing, ferr := l.Installments.Find(ctx, studentID, period)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return l.view(ctx, *existing)
			}
		}
		return nil, err
	}
	return l.view(ctx, inst)
}

// RecordPayment appends a payment to an installment and returns the
// recomputed view. A zero paymentDate defaults to now.
func (l *Ledger) RecordPayment(ctx context.Context, installmentID string, amount finance.Money, paymentDate time.Time, method, notes string) (*InstallmentView, error) {
	if !amount.IsPositive() {
		return nil, &finance.InvalidAmountError{Field: "amount", Amount: amount}
	}

	inst, err := l.Installments.Get(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, &finance.NotFoundError{Kind: "installment", ID: installmentID}
	}

	if l.Overpayment == OverpaymentReject {
		current, err := l.view(ctx, *inst)
		if err != nil {
			return nil, err
		}
		if amount.GreaterThan(current.OutstandingAmount) {
			return nil, &finance.DomainInvariantError{
				Invariant: "overpayment_rejected",
				Message: fmt.Sprintf("payment %s exceeds outstanding %s",
					amount, current.OutstandingAmount),
			}
		}
	}

	now := l.Clock.Now()
	if paymentDate.IsZero() {
		paymentDate = now
	}
	payment := PaymentRecord{
		ID:            uuid.NewString(),
		InstallmentID: installmentID,
		Amount:        amount,
		PaymentDate:   paymentDate.UTC(),
		PaymentMethod: method,
		Notes:         notes,
		CreatedAt:     now,
	}
	if err := l.Payments.Append(ctx, payment); err != nil {
		return nil, err
	}
	return l.view(ctx, *inst)
}

// ApplyDiscount grants an active discount to a student. It reduces the
// derived discountAmount of the student's installments from the next read.
func (l *Ledger) ApplyDiscount(ctx context.Context, studentID string, amount finance.Money, reason string) (*StudentDiscount, error) {
	if !amount.IsPositive() {
		return nil, &finance.InvalidAmountError{Field: "amount", Amount: amount}
	}
	exists, err := l.Directory.StudentExists(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &finance.NotFoundError{Kind: "student", ID: studentID}
	}

	d := StudentDiscount{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Amount:    amount,
		Reason:    reason,
		Active:    true,
		CreatedAt: l.Clock.Now(),
	}
	if err := l.Discounts.Insert(ctx, d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CancelDiscount deactivates a discount. The row stays for history;
// installments that counted it recompute without it on their next read.
// Cancelling an already-cancelled discount is a no-op.
func (l *Ledger) CancelDiscount(ctx context.Context, discountID string) (*StudentDiscount, error) {
	d, err := l.Discounts.Get(ctx, discountID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, &finance.NotFoundError{Kind: "discount", ID: discountID}
	}
	if !d.Active {
		return d, nil
	}
	d.Active = false
	if err := l.Discounts.Update(ctx, *d); err != nil {
		return nil, err
	}
	return d, nil
}

// Installment returns the recomputed view of one installment.
func (l *Ledger) Installment(ctx context.Context, installmentID string) (*InstallmentView, error) {
	inst, err := l.Installments.Get(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, &finance.NotFoundError{Kind: "installment", ID: installmentID}
	}
	return l.view(ctx, *inst)
}

// ListInstallments returns all of a student's installments, recomputed,
// period ascending.
func (l *Ledger) ListInstallments(ctx context.Context, studentID string) ([]InstallmentView, error) {
	exists, err := l.Directory.StudentExists(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &finance.NotFoundError{Kind: "student", ID: studentID}
	}

	insts, err := l.Installments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	views := make([]InstallmentView, 0, len(insts))
	for _, inst := range insts {
		v, err := l.view(ctx, inst)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// OutstandingBalance sums outstanding amounts across a student's unpaid
// periods. It runs the same derivation as single-installment reads, so
// there is no separately cached total that can drift.
func (l *Ledger) OutstandingBalance(ctx context.Context, studentID string) (*OutstandingSummary, error) {
	views, err := l.ListInstallments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	summary := &OutstandingSummary{StudentID: studentID, TotalOutstanding: finance.ZeroMoney()}
	for _, v := range views {
		if v.OutstandingAmount.IsPositive() {
			summary.TotalOutstanding = summary.TotalOutstanding.Add(v.OutstandingAmount)
			summary.Count++
		}
	}
	return summary, nil
}

// =============================================================================
// DERIVATION
// =============================================================================

// view recomputes the derived fields of an installment from its line items.
// discountAmount is the sum of the student's currently-active discounts,
// clamped so it never exceeds the total; the clamp keeps every derived value
// non-negative no matter how generous the grants are.
func (l *Ledger) view(ctx context.Context, inst StudentInstallment) (*InstallmentView, error) {
	payments, err := l.Payments.ListByInstallment(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	paid := finance.ZeroMoney()
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	discounts, err := l.Discounts.ListActiveByStudent(ctx, inst.StudentID)
	if err != nil {
		return nil, err
	}
	discount := finance.ZeroMoney()
	for _, d := range discounts {
		discount = discount.Add(d.Amount)
	}
	discount = discount.Min(inst.TotalAmount)

	now := l.Clock.Now()
	return &InstallmentView{
		StudentInstallment: inst,
		DiscountAmount:     discount,
		PaidAmount:         paid,
		OutstandingAmount:  finance.Outstanding(inst.TotalAmount, discount, paid),
		Status:             finance.ResolveStatus(inst.TotalAmount, discount, paid, inst.Period.GraceEnd(), now),
	}, nil
}
