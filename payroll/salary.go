package payroll

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/instituteops/finance-engine/finance"
)

// =============================================================================
// SALARY SERVICE - Admin management of salary configurations
// =============================================================================

// SalaryService creates and lists salary configurations. Edits take effect
// for entitlements computed after the edit; a finished month keeps resolving
// to the configuration that was effective back then (see engine.go).
type SalaryService struct {
	Store     SalaryStore
	Directory TeacherDirectory
	Clock     finance.Clock
}

func NewSalaryService(store SalaryStore, directory TeacherDirectory, clock finance.Clock) *SalaryService {
	return &SalaryService{Store: store, Directory: directory, Clock: clock}
}

// Create records a new salary configuration. A zero EffectiveFrom means
// effective immediately. At least one of monthlySalary and hourlyWage must
// be positive, and neither may be negative.
func (s *SalaryService) Create(ctx context.Context, teacherID string, monthlySalary, hourlyWage finance.Money, effectiveFrom time.Time) (*SalaryConfiguration, error) {
	exists, err := s.Directory.TeacherExists(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &finance.NotFoundError{Kind: "teacher", ID: teacherID}
	}

	if monthlySalary.IsNegative() {
		return nil, &finance.InvalidAmountError{Field: "monthlySalary", Amount: monthlySalary}
	}
	if hourlyWage.IsNegative() {
		return nil, &finance.InvalidAmountError{Field: "hourlyWage", Amount: hourlyWage}
	}
	if monthlySalary.IsZero() && hourlyWage.IsZero() {
		return nil, &finance.ValidationError{
			Field:   "salary",
			Message: "at least one of monthlySalary and hourlyWage must be set",
		}
	}

	now := s.Clock.Now()
	if effectiveFrom.IsZero() {
		effectiveFrom = now
	}

	cfg := SalaryConfiguration{
		ID:            uuid.NewString(),
		TeacherID:     teacherID,
		MonthlySalary: monthlySalary,
		HourlyWage:    hourlyWage,
		EffectiveFrom: effectiveFrom.UTC(),
		CreatedAt:     now,
	}
	if err := s.Store.Insert(ctx, cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// List returns a teacher's configurations, oldest first.
func (s *SalaryService) List(ctx context.Context, teacherID string) ([]SalaryConfiguration, error) {
	exists, err := s.Directory.TeacherExists(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &finance.NotFoundError{Kind: "teacher", ID: teacherID}
	}
	return s.Store.ListByTeacher(ctx, teacherID)
}
