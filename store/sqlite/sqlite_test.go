package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/finance"
	"github.com/instituteops/finance-engine/payroll"
	"github.com/instituteops/finance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func request(id, teacherID string, date time.Time, hours int) payroll.HourRequest {
	return payroll.HourRequest{
		ID:        id,
		TeacherID: teacherID,
		Date:      date,
		Hours:     hours,
		Status:    payroll.RequestPending,
		CreatedAt: date.Add(9 * time.Hour),
	}
}

// =============================================================================
// HOUR REQUESTS
// =============================================================================

func TestHourRequests_UniquePerTeacherDate(t *testing.T) {
	// GIVEN: A request for (teacher-1, March 10)
	// WHEN: Inserting a second request for the same key
	// THEN: The schema-level unique index rejects it as a conflict

	store := newTestStore(t)
	ctx := context.Background()

	err := store.HourRequests().Insert(ctx, request("r1", "teacher-1", day(10), 2))
	require.NoError(t, err)

	err = store.HourRequests().Insert(ctx, request("r2", "teacher-1", day(10), 3))
	assert.True(t, finance.IsConflict(err))

	// A different teacher on the same date is fine.
	assert.NoError(t, store.HourRequests().Insert(ctx, request("r3", "teacher-2", day(10), 3)))
}

func TestHourRequests_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reviewedAt := day(11).Add(10 * time.Hour)
	modHours, modMinutes := 1, 30
	req := request("r1", "teacher-1", day(10), 3)
	req.Minutes = 15
	req.Status = payroll.RequestModified
	req.AdminModifiedHours = &modHours
	req.AdminModifiedMinutes = &modMinutes
	req.AdminFeedback = "class ended early"
	req.ReviewedBy = "admin-1"
	req.ReviewedAt = &reviewedAt

	require.NoError(t, store.HourRequests().Insert(ctx, req))

	got, err := store.HourRequests().Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, req.TeacherID, got.TeacherID)
	assert.Equal(t, req.Date, got.Date)
	assert.Equal(t, req.Hours, got.Hours)
	assert.Equal(t, req.Minutes, got.Minutes)
	assert.Equal(t, payroll.RequestModified, got.Status)
	require.NotNil(t, got.AdminModifiedHours)
	assert.Equal(t, 1, *got.AdminModifiedHours)
	require.NotNil(t, got.AdminModifiedMinutes)
	assert.Equal(t, 30, *got.AdminModifiedMinutes)
	assert.Equal(t, "class ended early", got.AdminFeedback)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, got.ReviewedAt.Equal(reviewedAt))
}

func TestHourRequests_ListPending_OrderAndFilter(t *testing.T) {
	// GIVEN: Pending requests on March 12, 10, 11 (inserted in that order)
	// plus an approved one
	// THEN: Pending list comes back date ascending without the approved row

	store := newTestStore(t)
	ctx := context.Background()
	hr := store.HourRequests()

	require.NoError(t, hr.Insert(ctx, request("r1", "teacher-1", day(12), 1)))
	require.NoError(t, hr.Insert(ctx, request("r2", "teacher-1", day(10), 2)))

	approved := request("r3", "teacher-1", day(11), 3)
	require.NoError(t, hr.Insert(ctx, approved))
	approved.Status = payroll.RequestApproved
	require.NoError(t, hr.Update(ctx, approved))

	pending, err := hr.ListPending(ctx, "")
	require.NoError(t, err)

	require.Len(t, pending, 2)
	assert.Equal(t, "r2", pending[0].ID)
	assert.Equal(t, "r1", pending[1].ID)

	none, err := hr.ListPending(ctx, "teacher-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHourRequests_ListInPeriod_BoundariesInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	hr := store.HourRequests()

	feb28 := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	april1 := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, hr.Insert(ctx, request("feb", "teacher-1", feb28, 1)))
	require.NoError(t, hr.Insert(ctx, request("first", "teacher-1", day(1), 1)))
	require.NoError(t, hr.Insert(ctx, request("last", "teacher-1", day(31), 1)))
	require.NoError(t, hr.Insert(ctx, request("apr", "teacher-1", april1, 1)))

	march := finance.Period{Month: time.March, Year: 2025}
	rows, err := hr.ListInPeriod(ctx, "teacher-1", march)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].ID)
	assert.Equal(t, "last", rows[1].ID)
}

func TestHourRequests_UpdateUnknown_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.HourRequests().Update(context.Background(), request("ghost", "teacher-1", day(1), 1))
	assert.True(t, finance.IsNotFound(err))
}

// =============================================================================
// SALARY CONFIGURATIONS
// =============================================================================

func TestSalaries_ActiveAsOf_PicksLatestNotAfter(t *testing.T) {
	// GIVEN: Configs effective Jan 1 and Mar 15
	// THEN: As-of Feb resolves the Jan config; as-of Apr the Mar config;
	// as-of before Jan resolves nothing

	store := newTestStore(t)
	ctx := context.Background()
	sal := store.Salaries()

	jan := payroll.SalaryConfiguration{
		ID: "c1", TeacherID: "teacher-1",
		MonthlySalary: finance.NewMoneyFromInt(50000),
		HourlyWage:    finance.ZeroMoney(),
		EffectiveFrom: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	mar := jan
	mar.ID = "c2"
	mar.MonthlySalary = finance.NewMoneyFromInt(60000)
	mar.EffectiveFrom = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, sal.Insert(ctx, jan))
	require.NoError(t, sal.Insert(ctx, mar))

	got, err := sal.ActiveAsOf(ctx, "teacher-1", time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)

	got, err = sal.ActiveAsOf(ctx, "teacher-1", time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c2", got.ID)
	assert.Equal(t, "60000.00", got.MonthlySalary.String())

	got, err = sal.ActiveAsOf(ctx, "teacher-1", time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSalaries_ActiveAsOf_EffectiveInstantItselfCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sal := store.Salaries()

	effective := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	cfg := payroll.SalaryConfiguration{
		ID: "c1", TeacherID: "teacher-1",
		MonthlySalary: finance.NewMoneyFromInt(50000),
		HourlyWage:    finance.ZeroMoney(),
		EffectiveFrom: effective,
		CreatedAt:     effective,
	}
	require.NoError(t, sal.Insert(ctx, cfg))

	got, err := sal.ActiveAsOf(ctx, "teacher-1", effective)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func TestInstallments_UniquePerStudentPeriod(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inst := store.Installments()

	march := finance.Period{Month: time.March, Year: 2025}
	row := billing.StudentInstallment{
		ID: "i1", StudentID: "student-1", Period: march,
		TotalAmount: finance.NewMoneyFromInt(100000),
		CreatedAt:   day(1),
	}
	require.NoError(t, inst.Insert(ctx, row))

	dup := row
	dup.ID = "i2"
	err := inst.Insert(ctx, dup)
	assert.True(t, finance.IsConflict(err))

	// Same student, different period is fine.
	next := row
	next.ID = "i3"
	next.Period = march.Next()
	assert.NoError(t, inst.Insert(ctx, next))
}

func TestInstallments_FindAndListByStudent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inst := store.Installments()

	april := finance.Period{Month: time.April, Year: 2025}
	march := finance.Period{Month: time.March, Year: 2025}

	require.NoError(t, inst.Insert(ctx, billing.StudentInstallment{
		ID: "i-apr", StudentID: "student-1", Period: april,
		TotalAmount: finance.NewMoneyFromInt(100000), CreatedAt: day(1),
	}))
	require.NoError(t, inst.Insert(ctx, billing.StudentInstallment{
		ID: "i-mar", StudentID: "student-1", Period: march,
		TotalAmount: finance.NewMoneyFromInt(100000), CreatedAt: day(2),
	}))

	found, err := inst.Find(ctx, "student-1", march)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "i-mar", found.ID)

	missing, err := inst.Find(ctx, "student-1", finance.Period{Month: time.May, Year: 2025})
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := inst.ListByStudent(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "i-mar", rows[0].ID, "period ascending")
	assert.Equal(t, "i-apr", rows[1].ID)
}

// =============================================================================
// PAYMENTS AND DISCOUNTS
// =============================================================================

func TestPayments_AppendAndListPreservesAmounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	pay := store.Payments()

	require.NoError(t, pay.Append(ctx, billing.PaymentRecord{
		ID: "p1", InstallmentID: "i1",
		Amount:      finance.MustParseMoney("40000.50"),
		PaymentDate: day(5), PaymentMethod: "cash", CreatedAt: day(5),
	}))
	require.NoError(t, pay.Append(ctx, billing.PaymentRecord{
		ID: "p2", InstallmentID: "i1",
		Amount:      finance.MustParseMoney("0.01"),
		PaymentDate: day(6), CreatedAt: day(6),
	}))

	rows, err := pay.ListByInstallment(ctx, "i1")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "40000.50", rows[0].Amount.String())
	assert.Equal(t, "0.01", rows[1].Amount.String())
	assert.Equal(t, "cash", rows[0].PaymentMethod)
}

func TestDiscounts_ListActiveExcludesCancelled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	disc := store.Discounts()

	active := billing.StudentDiscount{
		ID: "d1", StudentID: "student-1",
		Amount: finance.NewMoneyFromInt(10000), Reason: "sibling",
		Active: true, CreatedAt: day(1),
	}
	cancelled := billing.StudentDiscount{
		ID: "d2", StudentID: "student-1",
		Amount: finance.NewMoneyFromInt(5000), Reason: "merit",
		Active: true, CreatedAt: day(2),
	}
	require.NoError(t, disc.Insert(ctx, active))
	require.NoError(t, disc.Insert(ctx, cancelled))

	cancelled.Active = false
	require.NoError(t, disc.Update(ctx, cancelled))

	rows, err := disc.ListActiveByStudent(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d1", rows[0].ID)

	// The cancelled row still exists for history.
	got, err := disc.Get(ctx, "d2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Active)
}
