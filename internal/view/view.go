// Package view keeps a client-side projection of the expense list: the
// records as last fetched plus the active filter, with derived reads over
// the visible subset.
package view

import (
	"khoroch/internal/core"
)

// State is an immutable snapshot. Every update returns a new State, so a
// caller can hold on to an old snapshot safely.
type State struct {
	expenses []core.Expense
	filter   core.Filter
}

// NewState builds a state over the given records with no filter active.
func NewState(expenses []core.Expense) State {
	return State{expenses: cloneExpenses(expenses)}
}

// WithExpenses replaces the record set, keeping the active filter.
func (s State) WithExpenses(expenses []core.Expense) State {
	return State{expenses: cloneExpenses(expenses), filter: s.filter}
}

// MergeCreated prepends a freshly created record.
func (s State) MergeCreated(e core.Expense) State {
	next := make([]core.Expense, 0, len(s.expenses)+1)
	next = append(next, e)
	next = append(next, s.expenses...)
	return State{expenses: next, filter: s.filter}
}

// MergeUpdated swaps the record with the same ID in place. Unknown IDs
// leave the state untouched.
func (s State) MergeUpdated(e core.Expense) State {
	next := cloneExpenses(s.expenses)
	for i := range next {
		if next[i].ID == e.ID {
			next[i] = e
			break
		}
	}
	return State{expenses: next, filter: s.filter}
}

// RemoveDeleted drops the record with the given ID.
func (s State) RemoveDeleted(id int64) State {
	next := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if e.ID != id {
			next = append(next, e)
		}
	}
	return State{expenses: next, filter: s.filter}
}

// WithFilter activates a filter over the record set.
func (s State) WithFilter(f core.Filter) State {
	return State{expenses: s.expenses, filter: f}
}

// ClearFilter restores the unfiltered view.
func (s State) ClearFilter() State {
	return State{expenses: s.expenses}
}

// Filter returns the active filter.
func (s State) Filter() core.Filter {
	return s.filter
}

// Len reports the total record count, filtered or not.
func (s State) Len() int {
	return len(s.expenses)
}

// Visible returns the records the active filter lets through.
func (s State) Visible() []core.Expense {
	return s.filter.Apply(s.expenses)
}

// Summary aggregates the visible records.
func (s State) Summary() core.Summary {
	return core.Summarize(s.Visible())
}

// Highest returns the visible record with the largest amount.
func (s State) Highest() (core.Expense, bool) {
	return core.Highest(s.Visible())
}

func cloneExpenses(expenses []core.Expense) []core.Expense {
	next := make([]core.Expense, len(expenses))
	copy(next, expenses)
	return next
}
