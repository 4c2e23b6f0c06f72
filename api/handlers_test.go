package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/instituteops/finance-engine/api"
	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/directory"
	"github.com/instituteops/finance-engine/finance"
	"github.com/instituteops/finance-engine/payroll"
	"github.com/instituteops/finance-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Inside March 2025's grace window.
var testNow = time.Date(2025, time.March, 8, 12, 0, 0, 0, time.UTC)

type fixture struct {
	server *httptest.Server
	ledger *billing.Ledger
}

func newTestServer(t *testing.T) *fixture {
	stores := memory.New()
	dir := directory.NewAllowAll(finance.NewMoneyFromInt(100000))
	clock := finance.FixedClock{Time: testNow}

	requests := payroll.NewRequestService(stores.HourRequests, clock)
	salaries := payroll.NewSalaryService(stores.Salaries, dir, clock)
	engine := payroll.NewSettlementEngine(stores.Salaries, stores.HourRequests, dir)
	ledger := billing.NewLedger(stores.Installments, stores.Payments, stores.Discounts, dir, clock)

	h := api.NewHandler(requests, salaries, engine, ledger, stores.Payments, zap.NewNop())
	server := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(server.Close)

	return &fixture{server: server, ledger: ledger}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// HOUR REQUEST ENDPOINTS
// =============================================================================

func TestAPI_SubmitHourRequest(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 2, "minutes": 30})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dto := decodeBody[api.HourRequestDTO](t, resp)
	assert.Equal(t, "teacher-1", dto.TeacherID)
	assert.Equal(t, "2025-03-08", dto.Date)
	assert.Equal(t, "PENDING", dto.Status)
}

func TestAPI_SubmitHourRequest_DuplicateDay_409(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 2, "minutes": 0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 3, "minutes": 0})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_SubmitHourRequest_OutOfRange_400(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 25, "minutes": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_ReviewHourRequest_ModifiedFlow(t *testing.T) {
	// GIVEN: A submitted 3h request
	// WHEN: Admin reviews it as MODIFIED 1h30m
	// THEN: The response carries the admin duration and MODIFIED status

	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 3, "minutes": 0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[api.HourRequestDTO](t, resp)

	resp = f.do(t, http.MethodPost, "/api/hour-requests/"+created.ID+"/review",
		map[string]any{
			"status":           "MODIFIED",
			"modified_hours":   1,
			"modified_minutes": 30,
			"feedback":         "class ended early",
			"reviewed_by":      "admin-1",
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reviewed := decodeBody[api.HourRequestDTO](t, resp)
	assert.Equal(t, "MODIFIED", reviewed.Status)
	require.NotNil(t, reviewed.ModifiedHours)
	assert.Equal(t, 1, *reviewed.ModifiedHours)
	assert.Equal(t, "admin-1", reviewed.ReviewedBy)
}

func TestAPI_ReviewHourRequest_ModifiedWithoutDuration_422(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 3, "minutes": 0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[api.HourRequestDTO](t, resp)

	resp = f.do(t, http.MethodPost, "/api/hour-requests/"+created.ID+"/review",
		map[string]any{"status": "MODIFIED"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_ReviewHourRequest_InvalidStatus_400(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/hour-requests/some-id/review",
		map[string]any{"status": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_ReviewHourRequest_Unknown_404(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/hour-requests/missing/review",
		map[string]any{"status": "APPROVED"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_ListPendingHourRequests(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 2, "minutes": 0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/hour-requests/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	pending := decodeBody[[]api.HourRequestDTO](t, resp)
	require.Len(t, pending, 1)
	assert.Equal(t, "teacher-1", pending[0].TeacherID)
}

func TestAPI_ListHourRequestsInPeriod(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 2, "minutes": 0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/teachers/teacher-1/hour-requests/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requests := decodeBody[[]api.HourRequestDTO](t, resp)
	require.Len(t, requests, 1)

	resp = f.do(t, http.MethodGet, "/api/teachers/teacher-1/hour-requests/2025/4", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decodeBody[[]api.HourRequestDTO](t, resp)
	assert.Empty(t, empty)
}

// =============================================================================
// PAYROLL ENDPOINTS
// =============================================================================

func TestAPI_MonthlyPayroll_EndToEnd(t *testing.T) {
	// GIVEN: hourlyWage 1000 and an approved 2h30m request in March
	// WHEN: Fetching the March record
	// THEN: 2.5 hours at 1000 yields 2500.00

	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/salary-configurations",
		map[string]any{"hourly_wage": "1000", "effective_from": "2025-01-01"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPost, "/api/teachers/teacher-1/hour-requests",
		map[string]any{"hours": 2, "minutes": 30})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[api.HourRequestDTO](t, resp)

	resp = f.do(t, http.MethodPost, "/api/hour-requests/"+created.ID+"/review",
		map[string]any{"status": "APPROVED", "reviewed_by": "admin-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/teachers/teacher-1/payroll/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	record := decodeBody[api.PayrollRecordDTO](t, resp)
	assert.Equal(t, "2.5", record.TotalHours)
	assert.Equal(t, "2500.00", record.TotalEntitlement)
}

func TestAPI_MonthlyPayroll_InvalidMonth_400(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodGet, "/api/teachers/teacher-1/payroll/2025/13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_CreateSalaryConfig_BothZero_400(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/teachers/teacher-1/salary-configurations",
		map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// BILLING ENDPOINTS
// =============================================================================

func TestAPI_InstallmentLifecycle(t *testing.T) {
	// GIVEN: Fee 100000 and a 10000 discount
	// WHEN: Creating the installment, paying 40000, then paying off
	// THEN: Views walk PENDING -> PARTIAL -> PAID with correct balances

	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/students/student-1/discounts",
		map[string]any{"amount": "10000", "reason": "sibling"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	discount := decodeBody[api.DiscountDTO](t, resp)

	resp = f.do(t, http.MethodPut, "/api/students/student-1/installments/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inst := decodeBody[api.InstallmentDTO](t, resp)

	assert.Equal(t, "100000.00", inst.TotalAmount)
	assert.Equal(t, "10000.00", inst.DiscountAmount)
	assert.Equal(t, "90000.00", inst.OutstandingAmount)
	assert.Equal(t, "PENDING", inst.Status)

	resp = f.do(t, http.MethodPost, "/api/installments/"+inst.ID+"/payments",
		map[string]any{"amount": "40000", "payment_method": "cash"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	afterPartial := decodeBody[api.InstallmentDTO](t, resp)

	assert.Equal(t, "50000.00", afterPartial.OutstandingAmount)
	assert.Equal(t, "PARTIAL", afterPartial.Status)

	resp = f.do(t, http.MethodPost, "/api/installments/"+inst.ID+"/payments",
		map[string]any{"amount": "50000", "payment_method": "transfer", "notes": "final"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	afterFull := decodeBody[api.InstallmentDTO](t, resp)

	assert.Equal(t, "0.00", afterFull.OutstandingAmount)
	assert.Equal(t, "PAID", afterFull.Status)

	// Cancel the discount; the installment recomputes on the next read.
	resp = f.do(t, http.MethodPost, "/api/discounts/"+discount.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/installments/"+inst.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recomputed := decodeBody[api.InstallmentDTO](t, resp)

	assert.Equal(t, "0.00", recomputed.DiscountAmount)
	assert.Equal(t, "10000.00", recomputed.OutstandingAmount)
	assert.Equal(t, "PARTIAL", recomputed.Status)
}

func TestAPI_GetOrCreateInstallment_Idempotent(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPut, "/api/students/student-1/installments/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeBody[api.InstallmentDTO](t, resp)

	resp = f.do(t, http.MethodPut, "/api/students/student-1/installments/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody[api.InstallmentDTO](t, resp)

	assert.Equal(t, first.ID, second.ID)
}

func TestAPI_RecordPayment_InvalidAmount_400(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPut, "/api/students/student-1/installments/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inst := decodeBody[api.InstallmentDTO](t, resp)

	resp = f.do(t, http.MethodPost, "/api/installments/"+inst.ID+"/payments",
		map[string]any{"amount": "-50"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_RecordPayment_OverpaymentRejected_422(t *testing.T) {
	f := newTestServer(t)
	f.ledger.Overpayment = billing.OverpaymentReject

	resp := f.do(t, http.MethodPut, "/api/students/student-1/installments/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inst := decodeBody[api.InstallmentDTO](t, resp)

	resp = f.do(t, http.MethodPost, "/api/installments/"+inst.ID+"/payments",
		map[string]any{"amount": "150000"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_RecordPayment_UnknownInstallment_404(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPost, "/api/installments/missing/payments",
		map[string]any{"amount": "100"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_PaymentHistoryAndOutstanding(t *testing.T) {
	f := newTestServer(t)

	resp := f.do(t, http.MethodPut, "/api/students/student-1/installments/2025/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inst := decodeBody[api.InstallmentDTO](t, resp)

	resp = f.do(t, http.MethodPost, "/api/installments/"+inst.ID+"/payments",
		map[string]any{"amount": "25000", "payment_method": "cash"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/installments/"+inst.ID+"/payments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeBody[[]api.PaymentDTO](t, resp)

	require.Len(t, history, 1)
	assert.Equal(t, "25000.00", history[0].Amount)
	assert.Equal(t, "cash", history[0].PaymentMethod)

	resp = f.do(t, http.MethodGet, "/api/students/student-1/outstanding", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	outstanding := decodeBody[api.OutstandingDTO](t, resp)

	assert.Equal(t, "75000.00", outstanding.TotalOutstanding)
	assert.Equal(t, 1, outstanding.Count)
}
