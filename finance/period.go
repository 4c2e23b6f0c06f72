package finance

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The (month, year) window every obligation belongs to
// =============================================================================

// Period is a calendar-month billing/settlement window. Periods are totally
// ordered by (year, month).
type Period struct {
	Month time.Month
	Year  int
}

// NewPeriod validates the month range. Year is unconstrained.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, &ValidationError{Field: "month", Message: fmt.Sprintf("month must be 1-12, got %d", month)}
	}
	return Period{Month: time.Month(month), Year: year}, nil
}

// PeriodOf returns the period containing the given instant.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Month: u.Month(), Year: u.Year()}
}

// Compare orders two periods by (year, month): -1, 0, or 1.
func (p Period) Compare(o Period) int {
	if p.Year != o.Year {
		if p.Year < o.Year {
			return -1
		}
		return 1
	}
	if p.Month != o.Month {
		if p.Month < o.Month {
			return -1
		}
		return 1
	}
	return 0
}

func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }
func (p Period) After(o Period) bool  { return p.Compare(o) > 0 }
func (p Period) Equal(o Period) bool  { return p.Compare(o) == 0 }

// Start returns the first instant of the period (UTC).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last instant of the period. Salary configurations are
// resolved "as of" this instant, so a config effective on the last day of
// the month still applies to it.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Contains reports whether the instant falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t).Equal(p)
}

// IsCurrent reports whether now falls inside the period.
func (p Period) IsCurrent(now time.Time) bool {
	return p.Contains(now)
}

func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Month: time.January, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Month: time.December, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Installment due dates: payment is expected by the 4th of the month, with a
// grace window through the 10th before an installment counts as overdue.
const (
	dueDayOfMonth      = 4
	graceEndDayOfMonth = 10
)

// DueDate returns the day payment for this period is expected.
func (p Period) DueDate() time.Time {
	return time.Date(p.Year, p.Month, dueDayOfMonth, 0, 0, 0, 0, time.UTC)
}

// GraceEnd returns the last instant before an unpaid installment for this
// period becomes overdue.
func (p Period) GraceEnd() time.Time {
	return time.Date(p.Year, p.Month, graceEndDayOfMonth, 23, 59, 59, 0, time.UTC)
}

// String renders "2025-03".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
