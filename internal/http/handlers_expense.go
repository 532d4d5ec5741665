package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"khoroch/internal/core"
	"khoroch/internal/log"
	"khoroch/internal/storage"
)

// expenseRequest is the raw shape clients submit. Amount stays raw so both
// numbers and numeric strings are accepted and validation owns the message.
type expenseRequest struct {
	Title    string          `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Date     string          `json:"date"`
	Category string          `json:"category"`
}

func (req expenseRequest) amountString() string {
	s := strings.TrimSpace(string(req.Amount))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

// decodeExpense reads the body and runs full validation, reporting every
// violated constraint at once.
func decodeExpense(r *http.Request) (core.Expense, error) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return core.Expense{}, err
	}
	return core.ParseExpense(req.Title, req.amountString(), req.Date, req.Category)
}

// parseID reads the {id} path segment. Anything non-numeric cannot name a
// record, so the caller treats the error as not found.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:    "Validation error",
			Messages: []string{err.Error()},
		})
		return
	}

	expenses, found := s.listCache.Get(listCacheKey)
	if !found {
		expenses, err = s.store.List(r.Context())
		if err != nil {
			s.respondInternal(r.Context(), w, "Failed to fetch expenses", err)
			return
		}
		s.listCache.Set(listCacheKey, expenses)
	}

	writeJSON(w, http.StatusOK, filter.Apply(expenses))
}

// parseFilter reads the optional narrowing criteria off the query string.
// Absent parameters leave their criterion inactive.
func parseFilter(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	var f core.Filter

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c := core.Category(v)
		if !c.IsValid() {
			return core.Filter{}, errors.New("Category must be one of: Food, Travel, Entertainment, Bills, Others")
		}
		f.Category = c
	}

	if v := strings.TrimSpace(q.Get("month")); v != "" {
		// month filter arrives as YYYY-MM, matching the HTML month input
		t, err := time.Parse("2006-01", v)
		if err != nil {
			return core.Filter{}, errors.New("Month must be in YYYY-MM format")
		}
		f.Year = t.Year()
		f.Month = t.Month()
	}

	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, errors.New("Start date must be a valid date (YYYY-MM-DD)")
		}
		f.StartDate = d
	}

	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, errors.New("End date must be a valid date (YYYY-MM-DD)")
		}
		f.EndDate = d
	}

	return f, nil
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondNotFound(w)
		return
	}

	expense, err := s.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondNotFound(w)
		return
	}
	if err != nil {
		s.respondInternal(r.Context(), w, "Failed to fetch expense", err)
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := decodeExpense(r)
	if err != nil {
		var v *core.ValidationErrors
		if errors.As(err, &v) {
			s.respondValidation(w, v)
			return
		}
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.store.Create(r.Context(), expense)
	if err != nil {
		s.respondInternal(r.Context(), w, "Failed to create expense", err)
		return
	}

	s.invalidateCaches()
	s.logger.InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, created.ID,
		log.FieldTitle, created.Title,
		log.FieldAmountCents, created.Amount.Cents,
		log.FieldCategory, created.Category)

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondNotFound(w)
		return
	}

	expense, err := decodeExpense(r)
	if err != nil {
		var v *core.ValidationErrors
		if errors.As(err, &v) {
			s.respondValidation(w, v)
			return
		}
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := s.store.Update(r.Context(), id, expense)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondNotFound(w)
		return
	}
	if err != nil {
		s.respondInternal(r.Context(), w, "Failed to update expense", err)
		return
	}

	s.invalidateCaches()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.respondNotFound(w)
		return
	}

	deleted, err := s.store.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondNotFound(w)
		return
	}
	if err != nil {
		s.respondInternal(r.Context(), w, "Failed to delete expense", err)
		return
	}

	s.invalidateCaches()
	s.logger.InfoContext(r.Context(), "Expense deleted", log.FieldExpenseID, id)

	writeJSON(w, http.StatusOK, deleteResponse{
		Message:        "Expense deleted successfully",
		DeletedExpense: deleted,
	})
}
