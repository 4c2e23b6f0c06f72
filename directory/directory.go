// Package directory provides the external teacher/student directory and
// fee-schedule collaborators. The ledgers consume these through stable
// identifiers only; directory data produces no monetary state itself.
package directory

import (
	"context"

	"github.com/instituteops/finance-engine/finance"
)

// Static is a directory backed by in-memory sets and a fee table. It serves
// tests and single-tenant deployments where the real directory lives in
// another service and ids are provisioned out of band.
type Static struct {
	// AllowAll accepts every non-empty id. When false, only ids present in
	// Teachers/Students resolve.
	AllowAll bool

	Teachers map[string]bool
	Students map[string]bool

	// Fees maps studentID to base tuition per period. DefaultFee applies to
	// students without an entry.
	Fees       map[string]finance.Money
	DefaultFee finance.Money
}

// NewAllowAll returns a directory that accepts every id and bills every
// student the given base fee.
func NewAllowAll(defaultFee finance.Money) *Static {
	return &Static{AllowAll: true, DefaultFee: defaultFee}
}

func (s *Static) TeacherExists(_ context.Context, teacherID string) (bool, error) {
	if s.AllowAll {
		return teacherID != "", nil
	}
	return s.Teachers[teacherID], nil
}

func (s *Static) StudentExists(_ context.Context, studentID string) (bool, error) {
	if s.AllowAll {
		return studentID != "", nil
	}
	return s.Students[studentID], nil
}

func (s *Static) StudentFeeSchedule(_ context.Context, studentID string, _ finance.Period) (finance.Money, error) {
	if fee, ok := s.Fees[studentID]; ok {
		return fee, nil
	}
	return s.DefaultFee, nil
}
