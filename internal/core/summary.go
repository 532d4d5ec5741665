package core

// CategoryStat holds the aggregate for a single category.
type CategoryStat struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
	Total    Money    `json:"total"`
}

// Summary is the aggregate view over a set of expenses.
type Summary struct {
	TotalExpenses int            `json:"totalExpenses"`
	TotalAmount   Money          `json:"totalAmount"`
	CategoryStats []CategoryStat `json:"categoryStats"`
}

// Total sums the amounts of all expenses. An empty or nil slice sums to zero.
func Total(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ByCategory groups expenses by category with per-category count and total.
// Categories appear in the order they are first seen in the input, and
// categories with no expenses do not appear at all.
func ByCategory(expenses []Expense) []CategoryStat {
	stats := make([]CategoryStat, 0)
	index := make(map[Category]int)
	for _, e := range expenses {
		i, seen := index[e.Category]
		if !seen {
			i = len(stats)
			index[e.Category] = i
			stats = append(stats, CategoryStat{Category: e.Category})
		}
		stats[i].Count++
		stats[i].Total = stats[i].Total.Add(e.Amount)
	}
	return stats
}

// Highest returns the expense with the largest amount. Ties keep the
// earliest record in input order. The second return is false when the
// input is empty.
func Highest(expenses []Expense) (Expense, bool) {
	if len(expenses) == 0 {
		return Expense{}, false
	}
	max := expenses[0]
	for _, e := range expenses[1:] {
		if e.Amount.Cents > max.Amount.Cents {
			max = e
		}
	}
	return max, true
}

// Summarize computes the full aggregate view over the input.
func Summarize(expenses []Expense) Summary {
	return Summary{
		TotalExpenses: len(expenses),
		TotalAmount:   Total(expenses),
		CategoryStats: ByCategory(expenses),
	}
}
