package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"khoroch/internal/core"
	"khoroch/internal/log"
	"khoroch/internal/services"
	"khoroch/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	svc := services.NewExpenseService(repo, nil, log.New(log.DefaultConfig()))
	s := NewServer(":0", svc, Options{
		CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		_ = repo.Close()
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func createExpense(t *testing.T, s *Server, title string, amount any, date, category string) core.Expense {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"title":    title,
		"amount":   amount,
		"date":     date,
		"category": category,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decodeBody[core.Expense](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateExpense(t *testing.T) {
	s := newTestServer(t)

	created := createExpense(t, s, "Lunch", 12.5, "2025-03-10", "Food")
	require.Positive(t, created.ID)
	require.Equal(t, "Lunch", created.Title)
	require.Equal(t, int64(1250), created.Amount.Cents)
	require.Equal(t, core.NewDate(2025, 3, 10), created.Date)
	require.Equal(t, core.CategoryFood, created.Category)
	require.False(t, created.CreatedAt.IsZero())
}

func TestCreateExpenseAcceptsZeroAndStringAmount(t *testing.T) {
	s := newTestServer(t)

	created := createExpense(t, s, "Freebie", 0, "2025-03-10", "Others")
	require.Zero(t, created.Amount.Cents)

	created = createExpense(t, s, "Snack", "3.75", "2025-03-11", "Food")
	require.Equal(t, int64(375), created.Amount.Cents)
}

func TestCreateExpenseValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	require.Equal(t, "Validation error", resp.Error)
	require.Len(t, resp.Messages, 4)

	rec = doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"title":    "Lunch",
		"amount":   "twelve",
		"date":     "2025-03-10",
		"category": "Food",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decodeBody[errorResponse](t, rec)
	require.Contains(t, resp.Messages, "Amount must be a valid number")

	rec = doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"title":    "Lunch",
		"amount":   -5,
		"date":     "2025-03-10",
		"category": "Food",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decodeBody[errorResponse](t, rec)
	require.Contains(t, resp.Messages, "Amount cannot be negative")

	rec = doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"title":    "Lunch",
		"amount":   5,
		"date":     "2025-03-10",
		"category": "Groceries",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decodeBody[errorResponse](t, rec)
	require.Contains(t, resp.Messages, "Category must be one of: Food, Travel, Entertainment, Bills, Others")
}

func TestCreateExpenseInvalidBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	require.Equal(t, "Invalid request body", resp.Error)
}

func TestGetExpense(t *testing.T) {
	s := newTestServer(t)
	created := createExpense(t, s, "Cinema", 12, "2025-04-01", "Entertainment")

	rec := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/expenses/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[core.Expense](t, rec)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Cinema", got.Title)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses/9999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Expense not found", decodeBody[errorResponse](t, rec).Error)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses/abc", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListExpensesSortedByDateDescending(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "Oldest", 1, "2025-01-01", "Others")
	createExpense(t, s, "Newest", 1, "2025-04-20", "Others")
	createExpense(t, s, "Middle", 1, "2025-03-15", "Others")

	rec := doJSON(t, s, http.MethodGet, "/api/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]core.Expense](t, rec)
	require.Len(t, list, 3)
	require.Equal(t, "Newest", list[0].Title)
	require.Equal(t, "Middle", list[1].Title)
	require.Equal(t, "Oldest", list[2].Title)
}

func TestListExpensesFilters(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "Groceries", 45, "2025-03-02", "Food")
	createExpense(t, s, "Bus pass", 30, "2025-03-05", "Travel")
	createExpense(t, s, "Dinner", 45, "2025-04-08", "Food")

	rec := doJSON(t, s, http.MethodGet, "/api/expenses?category=Food", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]core.Expense](t, rec)
	require.Len(t, list, 2)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses?month=2025-03", nil)
	list = decodeBody[[]core.Expense](t, rec)
	require.Len(t, list, 2)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses?category=Food&month=2025-03", nil)
	list = decodeBody[[]core.Expense](t, rec)
	require.Len(t, list, 1)
	require.Equal(t, "Groceries", list[0].Title)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses?startDate=2025-03-03&endDate=2025-04-08", nil)
	list = decodeBody[[]core.Expense](t, rec)
	require.Len(t, list, 2)

	// a single range bound does not constrain the result
	rec = doJSON(t, s, http.MethodGet, "/api/expenses?startDate=2025-04-01", nil)
	list = decodeBody[[]core.Expense](t, rec)
	require.Len(t, list, 3)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses?category=Snacks", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/expenses?month=03-2025", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateExpense(t *testing.T) {
	s := newTestServer(t)
	created := createExpense(t, s, "Cinema", 12, "2025-04-01", "Entertainment")

	rec := doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), map[string]any{
		"title":    "Theatre",
		"amount":   25,
		"date":     "2025-04-02",
		"category": "Entertainment",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[core.Expense](t, rec)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "Theatre", updated.Title)
	require.Equal(t, int64(2500), updated.Amount.Cents)

	rec = doJSON(t, s, http.MethodPut, "/api/expenses/9999", map[string]any{
		"title":    "Theatre",
		"amount":   25,
		"date":     "2025-04-02",
		"category": "Entertainment",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), map[string]any{
		"title":    "",
		"amount":   -1,
		"date":     "",
		"category": "nope",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteExpense(t *testing.T) {
	s := newTestServer(t)
	created := createExpense(t, s, "Electricity", 80, "2025-04-10", "Bills")

	rec := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[deleteResponse](t, rec)
	require.Equal(t, "Expense deleted successfully", resp.Message)
	require.Equal(t, created.ID, resp.DeletedExpense.ID)
	require.Equal(t, "Electricity", resp.DeletedExpense.Title)

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "Groceries", 45, "2025-03-02", "Food")
	createExpense(t, s, "Bus pass", 30, "2025-03-05", "Travel")
	createExpense(t, s, "Dinner", 45, "2025-04-08", "Food")

	rec := doJSON(t, s, http.MethodGet, "/api/expenses/stats/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[core.Summary](t, rec)
	require.Equal(t, 3, summary.TotalExpenses)
	require.Equal(t, int64(12000), summary.TotalAmount.Cents)
	require.Len(t, summary.CategoryStats, 2)

	// still the full record set even while the list is filtered
	doJSON(t, s, http.MethodGet, "/api/expenses?category=Travel", nil)
	rec = doJSON(t, s, http.MethodGet, "/api/expenses/stats/summary", nil)
	summary = decodeBody[core.Summary](t, rec)
	require.Equal(t, 3, summary.TotalExpenses)
}

func TestMutationsInvalidateCaches(t *testing.T) {
	s := newTestServer(t)
	createExpense(t, s, "Groceries", 45, "2025-03-02", "Food")

	// prime both caches
	doJSON(t, s, http.MethodGet, "/api/expenses", nil)
	doJSON(t, s, http.MethodGet, "/api/expenses/stats/summary", nil)

	created := createExpense(t, s, "Bus pass", 30, "2025-03-05", "Travel")

	list := decodeBody[[]core.Expense](t, doJSON(t, s, http.MethodGet, "/api/expenses", nil))
	require.Len(t, list, 2)

	summary := decodeBody[core.Summary](t, doJSON(t, s, http.MethodGet, "/api/expenses/stats/summary", nil))
	require.Equal(t, 2, summary.TotalExpenses)

	doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), nil)

	summary = decodeBody[core.Summary](t, doJSON(t, s, http.MethodGet, "/api/expenses/stats/summary", nil))
	require.Equal(t, 1, summary.TotalExpenses)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Route not found", decodeBody[errorResponse](t, rec).Error)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/expenses", nil)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimitOnMutations(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	svc := services.NewExpenseService(repo, nil, log.New(log.DefaultConfig()))
	s := NewServer(":0", svc, Options{RateLimitPerMinute: 2})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		_ = repo.Close()
	})

	body := map[string]any{"title": "Lunch", "amount": 1, "date": "2025-03-10", "category": "Food"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/expenses", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/expenses", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))

	// reads are never rate limited
	rec = doJSON(t, s, http.MethodGet, "/api/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
