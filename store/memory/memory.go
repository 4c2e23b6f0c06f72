// Package memory provides in-memory implementations of the payroll and
// billing store interfaces (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/finance"
	"github.com/instituteops/finance-engine/payroll"
)

// Stores bundles one of each store over independent in-memory state.
type Stores struct {
	HourRequests *HourRequestStore
	Salaries     *SalaryStore
	Installments *InstallmentStore
	Payments     *PaymentStore
	Discounts    *DiscountStore
}

func New() *Stores {
	return &Stores{
		HourRequests: NewHourRequestStore(),
		Salaries:     NewSalaryStore(),
		Installments: NewInstallmentStore(),
		Payments:     NewPaymentStore(),
		Discounts:    NewDiscountStore(),
	}
}

// =============================================================================
// HOUR REQUESTS (payroll.RequestStore)
// =============================================================================

type HourRequestStore struct {
	mu       sync.RWMutex
	requests []payroll.HourRequest // insertion order preserved
	byKey    map[requestKey]bool
}

type requestKey struct {
	TeacherID string
	Date      string // yyyy-mm-dd
}

func NewHourRequestStore() *HourRequestStore {
	return &HourRequestStore{byKey: make(map[requestKey]bool)}
}

func (s *HourRequestStore) Insert(_ context.Context, req payroll.HourRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := requestKey{TeacherID: req.TeacherID, Date: req.Date.Format("2006-01-02")}
	if s.byKey[k] {
		return &finance.ConflictError{Kind: "hour request", Key: k.TeacherID + "/" + k.Date}
	}
	s.byKey[k] = true
	s.requests = append(s.requests, req)
	return nil
}

func (s *HourRequestStore) Get(_ context.Context, id string) (*payroll.HourRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.requests {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *HourRequestStore) Update(_ context.Context, req payroll.HourRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.requests {
		if r.ID == req.ID {
			s.requests[i] = req
			return nil
		}
	}
	return &finance.NotFoundError{Kind: "hour request", ID: req.ID}
}

func (s *HourRequestStore) ListPending(_ context.Context, teacherID string) ([]payroll.HourRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payroll.HourRequest
	for _, r := range s.requests {
		if r.Status != payroll.RequestPending {
			continue
		}
		if teacherID != "" && r.TeacherID != teacherID {
			continue
		}
		result = append(result, r)
	}
	// Date ascending; SliceStable keeps insertion order for same-date ties.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (s *HourRequestStore) ListInPeriod(_ context.Context, teacherID string, period finance.Period) ([]payroll.HourRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payroll.HourRequest
	for _, r := range s.requests {
		if r.TeacherID == teacherID && period.Contains(r.Date) {
			result = append(result, r)
		}
	}
	return result, nil
}

// =============================================================================
// SALARY CONFIGURATIONS (payroll.SalaryStore)
// =============================================================================

type SalaryStore struct {
	mu        sync.RWMutex
	byTeacher map[string][]payroll.SalaryConfiguration
}

func NewSalaryStore() *SalaryStore {
	return &SalaryStore{byTeacher: make(map[string][]payroll.SalaryConfiguration)}
}

func (s *SalaryStore) Insert(_ context.Context, cfg payroll.SalaryConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byTeacher[cfg.TeacherID] = append(s.byTeacher[cfg.TeacherID], cfg)
	return nil
}

func (s *SalaryStore) ListByTeacher(_ context.Context, teacherID string) ([]payroll.SalaryConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]payroll.SalaryConfiguration{}, s.byTeacher[teacherID]...)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EffectiveFrom.Before(result[j].EffectiveFrom)
	})
	return result, nil
}

func (s *SalaryStore) ActiveAsOf(_ context.Context, teacherID string, asOf time.Time) (*payroll.SalaryConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active *payroll.SalaryConfiguration
	for i := range s.byTeacher[teacherID] {
		cfg := s.byTeacher[teacherID][i]
		if cfg.EffectiveFrom.After(asOf) {
			continue
		}
		if active == nil || cfg.EffectiveFrom.After(active.EffectiveFrom) {
			cp := cfg
			active = &cp
		}
	}
	return active, nil
}

// =============================================================================
// INSTALLMENTS (billing.InstallmentStore)
// =============================================================================

type InstallmentStore struct {
	mu           sync.RWMutex
	installments []billing.StudentInstallment
	byKey        map[installmentKey]bool
}

type installmentKey struct {
	StudentID string
	Period    finance.Period
}

func NewInstallmentStore() *InstallmentStore {
	return &InstallmentStore{byKey: make(map[installmentKey]bool)}
}

func (s *InstallmentStore) Insert(_ context.Context, inst billing.StudentInstallment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := installmentKey{StudentID: inst.StudentID, Period: inst.Period}
	if s.byKey[k] {
		return &finance.ConflictError{Kind: "installment", Key: inst.StudentID + "/" + inst.Period.String()}
	}
	s.byKey[k] = true
	s.installments = append(s.installments, inst)
	return nil
}

func (s *InstallmentStore) Get(_ context.Context, id string) (*billing.StudentInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inst := range s.installments {
		if inst.ID == id {
			cp := inst
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InstallmentStore) Find(_ context.Context, studentID string, period finance.Period) (*billing.StudentInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inst := range s.installments {
		if inst.StudentID == studentID && inst.Period.Equal(period) {
			cp := inst
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InstallmentStore) ListByStudent(_ context.Context, studentID string) ([]billing.StudentInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []billing.StudentInstallment
	for _, inst := range s.installments {
		if inst.StudentID == studentID {
			result = append(result, inst)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Period.Before(result[j].Period)
	})
	return result, nil
}

// =============================================================================
// PAYMENTS (billing.PaymentStore) - append-only
// =============================================================================

type PaymentStore struct {
	mu            sync.RWMutex
	byInstallment map[string][]billing.PaymentRecord
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{byInstallment: make(map[string][]billing.PaymentRecord)}
}

func (s *PaymentStore) Append(_ context.Context, p billing.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byInstallment[p.InstallmentID] = append(s.byInstallment[p.InstallmentID], p)
	return nil
}

func (s *PaymentStore) ListByInstallment(_ context.Context, installmentID string) ([]billing.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]billing.PaymentRecord, len(s.byInstallment[installmentID]))
	copy(result, s.byInstallment[installmentID])
	return result, nil
}

// =============================================================================
// DISCOUNTS (billing.DiscountStore)
// =============================================================================

type DiscountStore struct {
	mu        sync.RWMutex
	discounts []billing.StudentDiscount
}

func NewDiscountStore() *DiscountStore {
	return &DiscountStore{}
}

func (s *DiscountStore) Insert(_ context.Context, d billing.StudentDiscount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discounts = append(s.discounts, d)
	return nil
}

func (s *DiscountStore) Get(_ context.Context, id string) (*billing.StudentDiscount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.discounts {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *DiscountStore) Update(_ context.Context, d billing.StudentDiscount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.discounts {
		if existing.ID == d.ID {
			s.discounts[i] = d
			return nil
		}
	}
	return &finance.NotFoundError{Kind: "discount", ID: d.ID}
}

func (s *DiscountStore) ListActiveByStudent(_ context.Context, studentID string) ([]billing.StudentDiscount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []billing.StudentDiscount
	for _, d := range s.discounts {
		if d.StudentID == studentID && d.Active {
			result = append(result, d)
		}
	}
	return result, nil
}
