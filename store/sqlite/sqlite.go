/*
Package sqlite provides the SQLite-backed implementation of the payroll and
billing store interfaces.

PURPOSE:
  Implements payroll.RequestStore, payroll.SalaryStore,
  billing.InstallmentStore, billing.PaymentStore and billing.DiscountStore
  over one database. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  salary_configurations  Effective-dated pay setup per teacher
  hour_requests          One worked-time claim per (teacher, date)
  installments           One tuition obligation per (student, month, year)
  payments               Append-only payment ledger entries
  discounts              Cancellable grants (rows never deleted)

UNIQUE CONSTRAINTS (the invariants live in the schema, not in app code):
  hour_requests(teacher_id, date)         one claim per teacher per day
  installments(student_id, year, month)   at-most-once creation; a
                                          concurrent first-access race
                                          resolves to the existing row

MONEY REPRESENTATION:
  Amounts are stored as decimal strings and re-parsed through
  finance.ParseMoney so no value ever round-trips through a binary float.

APPEND-ONLY:
  The payments table has no UPDATE or DELETE path. Discounts are never
  deleted either; cancellation is an UPDATE of the active flag only.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time.

USAGE:
  store, err := sqlite.New("./data/finance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payroll.NewSettlementEngine(store.Salaries(), store.HourRequests(), dir)

SEE ALSO:
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/finance"
	"github.com/instituteops/finance-engine/payroll"
)

const (
	dateFormat = "2006-01-02"

	// Fixed-width so lexicographic comparison in SQL is chronological
	// (RFC3339Nano drops trailing zeros and would break that).
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store owns the database connection. Per-entity stores are views over it.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS salary_configurations (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		monthly_salary TEXT NOT NULL,
		hourly_wage TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_salary_configurations_teacher
		ON salary_configurations(teacher_id, effective_from);

	CREATE TABLE IF NOT EXISTS hour_requests (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		date TEXT NOT NULL,
		hours INTEGER NOT NULL,
		minutes INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		admin_modified_hours INTEGER,
		admin_modified_minutes INTEGER,
		admin_feedback TEXT NOT NULL DEFAULT '',
		reviewed_by TEXT NOT NULL DEFAULT '',
		reviewed_at TEXT,
		created_at TEXT NOT NULL
	);

	-- One worked-time claim per teacher per day.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_hour_requests_teacher_date
		ON hour_requests(teacher_id, date);
	CREATE INDEX IF NOT EXISTS idx_hour_requests_status
		ON hour_requests(status);

	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		total_amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- At-most-once installment creation per (student, period).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_installments_student_period
		ON installments(student_id, year, month);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		installment_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_installment
		ON payments(installment_id);

	CREATE TABLE IF NOT EXISTS discounts (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_discounts_student_active
		ON discounts(student_id, active);
	`

	_, err := s.db.Exec(schema)
	return err
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// =============================================================================
// HOUR REQUESTS (payroll.RequestStore)
// =============================================================================

type HourRequestStore struct {
	s *Store
}

func (s *Store) HourRequests() *HourRequestStore { return &HourRequestStore{s: s} }

func (h *HourRequestStore) Insert(ctx context.Context, req payroll.HourRequest) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	query := `
		INSERT INTO hour_requests
		(id, teacher_id, date, hours, minutes, status, admin_modified_hours,
		 admin_modified_minutes, admin_feedback, reviewed_by, reviewed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.s.db.ExecContext(ctx, query,
		req.ID,
		req.TeacherID,
		req.Date.Format(dateFormat),
		req.Hours,
		req.Minutes,
		string(req.Status),
		nullInt(req.AdminModifiedHours),
		nullInt(req.AdminModifiedMinutes),
		req.AdminFeedback,
		req.ReviewedBy,
		nullTime(req.ReviewedAt),
		req.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &finance.ConflictError{
				Kind: "hour request",
				Key:  req.TeacherID + "/" + req.Date.Format(dateFormat),
			}
		}
		return fmt.Errorf("failed to insert hour request: %w", err)
	}
	return nil
}

func (h *HourRequestStore) Get(ctx context.Context, id string) (*payroll.HourRequest, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	rows, err := h.queryRequests(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (h *HourRequestStore) Update(ctx context.Context, req payroll.HourRequest) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()

	query := `
		UPDATE hour_requests
		SET status = ?, admin_modified_hours = ?, admin_modified_minutes = ?,
		    admin_feedback = ?, reviewed_by = ?, reviewed_at = ?
		WHERE id = ?
	`
	res, err := h.s.db.ExecContext(ctx, query,
		string(req.Status),
		nullInt(req.AdminModifiedHours),
		nullInt(req.AdminModifiedMinutes),
		req.AdminFeedback,
		req.ReviewedBy,
		nullTime(req.ReviewedAt),
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update hour request: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &finance.NotFoundError{Kind: "hour request", ID: req.ID}
	}
	return nil
}

func (h *HourRequestStore) ListPending(ctx context.Context, teacherID string) ([]payroll.HourRequest, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	// rowid tie-break keeps insertion order for same-date requests.
	if teacherID == "" {
		return h.queryRequests(ctx,
			`WHERE status = ? ORDER BY date ASC, rowid ASC`,
			string(payroll.RequestPending))
	}
	return h.queryRequests(ctx,
		`WHERE status = ? AND teacher_id = ? ORDER BY date ASC, rowid ASC`,
		string(payroll.RequestPending), teacherID)
}

func (h *HourRequestStore) ListInPeriod(ctx context.Context, teacherID string, period finance.Period) ([]payroll.HourRequest, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()

	return h.queryRequests(ctx,
		`WHERE teacher_id = ? AND date >= ? AND date <= ? ORDER BY date ASC, rowid ASC`,
		teacherID,
		period.Start().Format(dateFormat),
		finance.DateOf(period.End()).Format(dateFormat),
	)
}

func (h *HourRequestStore) queryRequests(ctx context.Context, where string, args ...any) ([]payroll.HourRequest, error) {
	query := `
		SELECT id, teacher_id, date, hours, minutes, status, admin_modified_hours,
		       admin_modified_minutes, admin_feedback, reviewed_by, reviewed_at, created_at
		FROM hour_requests ` + where

	rows, err := h.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hour requests: %w", err)
	}
	defer rows.Close()

	var result []payroll.HourRequest
	for rows.Next() {
		var (
			req                   payroll.HourRequest
			date, status, created string
			modHours, modMinutes  sql.NullInt64
			reviewedAt            sql.NullString
		)
		if err := rows.Scan(&req.ID, &req.TeacherID, &date, &req.Hours, &req.Minutes,
			&status, &modHours, &modMinutes, &req.AdminFeedback, &req.ReviewedBy,
			&reviewedAt, &created); err != nil {
			return nil, fmt.Errorf("failed to scan hour request: %w", err)
		}

		req.Status = payroll.HourRequestStatus(status)
		req.Date, _ = time.ParseInLocation(dateFormat, date, time.UTC)
		req.CreatedAt, _ = time.Parse(timeFormat, created)
		if modHours.Valid {
			v := int(modHours.Int64)
			req.AdminModifiedHours = &v
		}
		if modMinutes.Valid {
			v := int(modMinutes.Int64)
			req.AdminModifiedMinutes = &v
		}
		if reviewedAt.Valid {
			if t, err := time.Parse(timeFormat, reviewedAt.String); err == nil {
				req.ReviewedAt = &t
			}
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

// =============================================================================
// SALARY CONFIGURATIONS (payroll.SalaryStore)
// =============================================================================

type SalaryStore struct {
	s *Store
}

func (s *Store) Salaries() *SalaryStore { return &SalaryStore{s: s} }

func (st *SalaryStore) Insert(ctx context.Context, cfg payroll.SalaryConfiguration) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	query := `
		INSERT INTO salary_configurations
		(id, teacher_id, monthly_salary, hourly_wage, effective_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := st.s.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.TeacherID,
		cfg.MonthlySalary.String(),
		cfg.HourlyWage.String(),
		cfg.EffectiveFrom.UTC().Format(timeFormat),
		cfg.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert salary configuration: %w", err)
	}
	return nil
}

func (st *SalaryStore) ListByTeacher(ctx context.Context, teacherID string) ([]payroll.SalaryConfiguration, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	return st.queryConfigs(ctx,
		`WHERE teacher_id = ? ORDER BY effective_from ASC`, teacherID)
}

func (st *SalaryStore) ActiveAsOf(ctx context.Context, teacherID string, asOf time.Time) (*payroll.SalaryConfiguration, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	// Lexicographic comparison is chronological for these UTC timestamps.
	configs, err := st.queryConfigs(ctx,
		`WHERE teacher_id = ? AND effective_from <= ?
		 ORDER BY effective_from DESC LIMIT 1`,
		teacherID, asOf.UTC().Format(timeFormat))
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}
	return &configs[0], nil
}

func (st *SalaryStore) queryConfigs(ctx context.Context, where string, args ...any) ([]payroll.SalaryConfiguration, error) {
	query := `
		SELECT id, teacher_id, monthly_salary, hourly_wage, effective_from, created_at
		FROM salary_configurations ` + where

	rows, err := st.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query salary configurations: %w", err)
	}
	defer rows.Close()

	var result []payroll.SalaryConfiguration
	for rows.Next() {
		var (
			cfg                      payroll.SalaryConfiguration
			monthly, hourly          string
			effectiveFrom, createdAt string
		)
		if err := rows.Scan(&cfg.ID, &cfg.TeacherID, &monthly, &hourly, &effectiveFrom, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan salary configuration: %w", err)
		}
		var perr error
		if cfg.MonthlySalary, perr = finance.ParseMoney(monthly); perr != nil {
			return nil, perr
		}
		if cfg.HourlyWage, perr = finance.ParseMoney(hourly); perr != nil {
			return nil, perr
		}
		cfg.EffectiveFrom, _ = time.Parse(timeFormat, effectiveFrom)
		cfg.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		result = append(result, cfg)
	}
	return result, rows.Err()
}

// =============================================================================
// INSTALLMENTS (billing.InstallmentStore)
// =============================================================================

type InstallmentStore struct {
	s *Store
}

func (s *Store) Installments() *InstallmentStore { return &InstallmentStore{s: s} }

func (st *InstallmentStore) Insert(ctx context.Context, inst billing.StudentInstallment) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	query := `
		INSERT INTO installments (id, student_id, year, month, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := st.s.db.ExecContext(ctx, query,
		inst.ID,
		inst.StudentID,
		inst.Period.Year,
		int(inst.Period.Month),
		inst.TotalAmount.String(),
		inst.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &finance.ConflictError{
				Kind: "installment",
				Key:  inst.StudentID + "/" + inst.Period.String(),
			}
		}
		return fmt.Errorf("failed to insert installment: %w", err)
	}
	return nil
}

func (st *InstallmentStore) Get(ctx context.Context, id string) (*billing.StudentInstallment, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.queryInstallments(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (st *InstallmentStore) Find(ctx context.Context, studentID string, period finance.Period) (*billing.StudentInstallment, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.queryInstallments(ctx,
		`WHERE student_id = ? AND year = ? AND month = ?`,
		studentID, period.Year, int(period.Month))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (st *InstallmentStore) ListByStudent(ctx context.Context, studentID string) ([]billing.StudentInstallment, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	return st.queryInstallments(ctx,
		`WHERE student_id = ? ORDER BY year ASC, month ASC`, studentID)
}

func (st *InstallmentStore) queryInstallments(ctx context.Context, where string, args ...any) ([]billing.StudentInstallment, error) {
	query := `
		SELECT id, student_id, year, month, total_amount, created_at
		FROM installments ` + where

	rows, err := st.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var result []billing.StudentInstallment
	for rows.Next() {
		var (
			inst           billing.StudentInstallment
			year, month    int
			total, created string
		)
		if err := rows.Scan(&inst.ID, &inst.StudentID, &year, &month, &total, &created); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		inst.Period = finance.Period{Month: time.Month(month), Year: year}
		var perr error
		if inst.TotalAmount, perr = finance.ParseMoney(total); perr != nil {
			return nil, perr
		}
		inst.CreatedAt, _ = time.Parse(timeFormat, created)
		result = append(result, inst)
	}
	return result, rows.Err()
}

// =============================================================================
// PAYMENTS (billing.PaymentStore) - append-only, no UPDATE or DELETE path
// =============================================================================

type PaymentStore struct {
	s *Store
}

func (s *Store) Payments() *PaymentStore { return &PaymentStore{s: s} }

func (st *PaymentStore) Append(ctx context.Context, p billing.PaymentRecord) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	query := `
		INSERT INTO payments (id, installment_id, amount, payment_date, payment_method, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := st.s.db.ExecContext(ctx, query,
		p.ID,
		p.InstallmentID,
		p.Amount.String(),
		p.PaymentDate.UTC().Format(timeFormat),
		p.PaymentMethod,
		p.Notes,
		p.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (st *PaymentStore) ListByInstallment(ctx context.Context, installmentID string) ([]billing.PaymentRecord, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	query := `
		SELECT id, installment_id, amount, payment_date, payment_method, notes, created_at
		FROM payments
		WHERE installment_id = ?
		ORDER BY payment_date ASC, rowid ASC
	`
	rows, err := st.s.db.QueryContext(ctx, query, installmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var result []billing.PaymentRecord
	for rows.Next() {
		var (
			p                     billing.PaymentRecord
			amount, date, created string
		)
		if err := rows.Scan(&p.ID, &p.InstallmentID, &amount, &date, &p.PaymentMethod, &p.Notes, &created); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		var perr error
		if p.Amount, perr = finance.ParseMoney(amount); perr != nil {
			return nil, perr
		}
		p.PaymentDate, _ = time.Parse(timeFormat, date)
		p.CreatedAt, _ = time.Parse(timeFormat, created)
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// DISCOUNTS (billing.DiscountStore) - rows never deleted
// =============================================================================

type DiscountStore struct {
	s *Store
}

func (s *Store) Discounts() *DiscountStore { return &DiscountStore{s: s} }

func (st *DiscountStore) Insert(ctx context.Context, d billing.StudentDiscount) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	query := `
		INSERT INTO discounts (id, student_id, amount, reason, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := st.s.db.ExecContext(ctx, query,
		d.ID,
		d.StudentID,
		d.Amount.String(),
		d.Reason,
		d.Active,
		d.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert discount: %w", err)
	}
	return nil
}

func (st *DiscountStore) Get(ctx context.Context, id string) (*billing.StudentDiscount, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	rows, err := st.queryDiscounts(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (st *DiscountStore) Update(ctx context.Context, d billing.StudentDiscount) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	// Only the active flag is mutable; amount and history stay as granted.
	res, err := st.s.db.ExecContext(ctx,
		`UPDATE discounts SET active = ? WHERE id = ?`, d.Active, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update discount: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &finance.NotFoundError{Kind: "discount", ID: d.ID}
	}
	return nil
}

func (st *DiscountStore) ListActiveByStudent(ctx context.Context, studentID string) ([]billing.StudentDiscount, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()

	return st.queryDiscounts(ctx,
		`WHERE student_id = ? AND active = TRUE ORDER BY created_at ASC, rowid ASC`, studentID)
}

func (st *DiscountStore) queryDiscounts(ctx context.Context, where string, args ...any) ([]billing.StudentDiscount, error) {
	query := `
		SELECT id, student_id, amount, reason, active, created_at
		FROM discounts ` + where

	rows, err := st.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query discounts: %w", err)
	}
	defer rows.Close()

	var result []billing.StudentDiscount
	for rows.Next() {
		var (
			d               billing.StudentDiscount
			amount, created string
		)
		if err := rows.Scan(&d.ID, &d.StudentID, &amount, &d.Reason, &d.Active, &created); err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		var perr error
		if d.Amount, perr = finance.ParseMoney(amount); perr != nil {
			return nil, perr
		}
		d.CreatedAt, _ = time.Parse(timeFormat, created)
		result = append(result, d)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}
