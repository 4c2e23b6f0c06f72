/*
status.go - Shared obligation status rule

PURPOSE:
  Maps (total due, discount, paid, grace deadline, now) to a status value.
  Both the payroll and billing ledgers derive status through this one
  function so status and balance can never diverge: status is a pure
  function of the line items, never stored as independent mutable state.

RULES (first match wins):
  PAID    outstanding == 0 and something was paid (or nothing was ever due)
  PARTIAL 0 < paid < net due
  OVERDUE outstanding > 0 and the grace deadline has passed
  PENDING otherwise (nothing paid yet, still within grace)

SEE ALSO:
  - money.go: Outstanding()
  - period.go: DueDate() / GraceEnd()
*/
package finance

import "time"

// ObligationStatus is the derived payment state of a period obligation.
type ObligationStatus string

const (
	StatusPaid    ObligationStatus = "PAID"
	StatusPartial ObligationStatus = "PARTIAL"
	StatusOverdue ObligationStatus = "OVERDUE"
	StatusPending ObligationStatus = "PENDING"
)

// ResolveStatus derives the status of an obligation. graceEnd is the last
// instant before an unpaid obligation counts as overdue (Period.GraceEnd for
// installments).
func ResolveStatus(total, discount, paid Money, graceEnd time.Time, now time.Time) ObligationStatus {
	net := total.SubFloor(discount)
	outstanding := net.SubFloor(paid)

	if outstanding.IsZero() && (paid.IsPositive() || total.IsZero()) {
		return StatusPaid
	}
	if paid.IsPositive() && paid.LessThan(net) {
		return StatusPartial
	}
	if outstanding.IsPositive() && now.After(graceEnd) {
		return StatusOverdue
	}
	return StatusPending
}
