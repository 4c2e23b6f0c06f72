/*
engine.go - Monthly payroll settlement

PURPOSE:
  Derives a teacher's MonthlyPayrollRecord for a period:

    1. Resolve the salary configuration active as of the END of the period
       (latest EffectiveFrom not after the period's last instant). No
       configuration is not an error: entitlement degrades to zero, which
       is how an unconfigured teacher legitimately looks.
    2. Sum effective durations of the teacher's requests dated within the
       period (APPROVED use submitted time, MODIFIED use admin time,
       PENDING/REJECTED contribute nothing).
    3. entitlement = monthlySalary + hourlyWage * totalHours, rounded
       half-up to 2 decimals.

  The record is recomputed on every read and is side-effect-free. Callers
  needing a persisted historical snapshot must take one explicitly; the
  engine only guarantees that recomputation is deterministic.

RETROACTIVITY:
  Because the configuration is resolved as of period end, editing a salary
  today changes the current and future months only. A past month keeps
  resolving to whatever configuration was effective back then.
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/instituteops/finance-engine/finance"
)

// =============================================================================
// SETTLEMENT ENGINE
// =============================================================================

// SettlementEngine computes monthly entitlement records.
type SettlementEngine struct {
	Salaries  SalaryStore
	Requests  RequestStore
	Directory TeacherDirectory
}

func NewSettlementEngine(salaries SalaryStore, requests RequestStore, directory TeacherDirectory) *SettlementEngine {
	return &SettlementEngine{Salaries: salaries, Requests: requests, Directory: directory}
}

// ComputeMonthlyRecord derives the entitlement record for one teacher and
// one period. The only failure reachable by normal use is an unknown
// teacher id; missing salary or hour data degrades to zero entitlement.
func (e *SettlementEngine) ComputeMonthlyRecord(ctx context.Context, teacherID string, period finance.Period) (*MonthlyPayrollRecord, error) {
	exists, err := e.Directory.TeacherExists(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &finance.NotFoundError{Kind: "teacher", ID: teacherID}
	}

	record := &MonthlyPayrollRecord{
		TeacherID:  teacherID,
		Period:     period,
		TotalHours: decimal.Zero,
	}

	cfg, err := e.Salaries.ActiveAsOf(ctx, teacherID, period.End())
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		record.MonthlySalary = cfg.MonthlySalary
		record.HourlyWage = cfg.HourlyWage
	}

	requests, err := e.Requests.ListInPeriod(ctx, teacherID, period)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		record.TotalHours = record.TotalHours.Add(req.EffectiveDuration())
	}

	record.TotalEntitlement = record.MonthlySalary.Add(record.HourlyWage.Mul(record.TotalHours))
	return record, nil
}
