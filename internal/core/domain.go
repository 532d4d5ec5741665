package core

import (
	"strings"
	"time"
)

const (
	CategoryFood          Category = "Food"
	CategoryTravel        Category = "Travel"
	CategoryEntertainment Category = "Entertainment"
	CategoryBills         Category = "Bills"
	CategoryOthers        Category = "Others"
)

// MaxTitleLength is the longest title accepted at validation time.
const MaxTitleLength = 100

type (
	// Category classifies an expense. The set is closed; anything outside
	// it is rejected by Validate.
	Category string

	// Date is a calendar date with day granularity. The time portion is
	// always UTC midnight so comparisons never shift across timezones.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is the record the whole system revolves around.
	Expense struct {
		ID        int64     `json:"id"`
		Title     string    `json:"title"`
		Amount    Money     `json:"amount"`
		Date      Date      `json:"date"`
		Category  Category  `json:"category"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
)

// Categories returns the closed category set in display order.
func Categories() []Category {
	return []Category{CategoryFood, CategoryTravel, CategoryEntertainment, CategoryBills, CategoryOthers}
}

// IsValid reports whether c belongs to the closed category set.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryTravel, CategoryEntertainment, CategoryBills, CategoryOthers:
		return true
	}
	return false
}

// NewDate creates a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its own calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts a YYYY-MM-DD string, or an RFC 3339 timestamp which is
// truncated to its date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// SameMonth reports whether d falls in the given calendar year and month,
// judged on the date's own fields.
func (d Date) SameMonth(year int, month time.Month) bool {
	return d.Time.Year() == year && d.Time.Month() == month
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// MarshalJSON renders the date as a "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or RFC 3339 strings.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidationErrors collects every violated field constraint so clients see
// all problems in one response instead of fixing them one at a time.
type ValidationErrors struct {
	Messages []string
}

func (v *ValidationErrors) Error() string {
	return strings.Join(v.Messages, "; ")
}

func (v *ValidationErrors) add(msg string) {
	v.Messages = append(v.Messages, msg)
}

// orNil returns the collected errors, or nil when nothing was violated.
func (v *ValidationErrors) orNil() error {
	if len(v.Messages) == 0 {
		return nil
	}
	return v
}

// Validate checks every field constraint and reports all violations at once.
// A zero amount is allowed; negative amounts are not.
func (e Expense) Validate() error {
	var v ValidationErrors
	title := strings.TrimSpace(e.Title)
	if title == "" {
		v.add("Expense title is required")
	} else if len([]rune(title)) > MaxTitleLength {
		v.add("Title cannot be more than 100 characters")
	}
	if e.Amount.Cents < 0 {
		v.add("Amount cannot be negative")
	}
	if e.Date.IsZero() {
		v.add("Date is required")
	}
	if !e.Category.IsValid() {
		v.add("Category must be one of: Food, Travel, Entertainment, Bills, Others")
	}
	return v.orNil()
}

// ParseExpense assembles an expense from raw client fields. The title is
// trimmed before validation. Every violation is collected, not just the
// first one found.
func ParseExpense(title, amount, date, category string) (Expense, error) {
	var v ValidationErrors
	e := Expense{
		Title:    strings.TrimSpace(title),
		Category: Category(strings.TrimSpace(category)),
	}

	if e.Title == "" {
		v.add("Expense title is required")
	} else if len([]rune(e.Title)) > MaxTitleLength {
		v.add("Title cannot be more than 100 characters")
	}

	switch amount = strings.TrimSpace(amount); amount {
	case "":
		v.add("Amount is required")
	default:
		m, err := ParseAmount(amount)
		if err != nil {
			v.add("Amount must be a valid number")
		} else if m.Cents < 0 {
			v.add("Amount cannot be negative")
		} else {
			e.Amount = m
		}
	}

	switch date = strings.TrimSpace(date); date {
	case "":
		v.add("Date is required")
	default:
		d, err := ParseDate(date)
		if err != nil {
			v.add("Date must be a valid date (YYYY-MM-DD)")
		} else {
			e.Date = d
		}
	}

	if !e.Category.IsValid() {
		v.add("Category must be one of: Food, Travel, Entertainment, Bills, Others")
	}

	if err := v.orNil(); err != nil {
		return Expense{}, err
	}
	return e, nil
}
