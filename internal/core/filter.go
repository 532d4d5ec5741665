package core

import "time"

// Filter narrows a list of expenses. Zero-value criteria are inactive, and
// active criteria combine with AND semantics.
type Filter struct {
	Category  Category
	Year      int // month criterion: active when Year and Month are both set
	Month     time.Month
	StartDate Date
	EndDate   Date
}

// IsZero reports whether no criterion is active.
func (f Filter) IsZero() bool {
	return f.Category == "" && !f.hasMonth() && !f.hasRange()
}

func (f Filter) hasMonth() bool {
	return f.Year != 0 && f.Month >= time.January && f.Month <= time.December
}

// hasRange is true only when both bounds are present. A single bound does
// not constrain the result; callers that want an open-ended range must
// supply the other bound themselves.
func (f Filter) hasRange() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// Matches reports whether e satisfies every active criterion.
func (f Filter) Matches(e Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.hasMonth() && !e.Date.SameMonth(f.Year, f.Month) {
		return false
	}
	if f.hasRange() {
		if e.Date.Time.Before(f.StartDate.Time) || e.Date.Time.After(f.EndDate.Time) {
			return false
		}
	}
	return true
}

// Apply returns the expenses satisfying the filter, preserving input order.
// The result is always a fresh slice; the input is never mutated.
func (f Filter) Apply(expenses []Expense) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
