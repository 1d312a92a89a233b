// Package finance derives income, expense and contribution aggregates from a
// church's records. Functions are pure: the caller supplies the church and
// the reference time.
package finance

import (
	"fmt"
	"sort"
	"time"

	"churchledger/pkg/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the summed expense amount for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Summary is the income/expense position of a church within a period.
type Summary struct {
	Period        domain.Period   `json:"period"`
	Cutoff        time.Time       `json:"cutoff,omitzero"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
	// Categories is ordered by descending amount; ties keep first-encountered order.
	Categories []CategoryTotal `json:"expensesByCategory"`
}

// Share returns the category's percentage of total expenses rounded to two
// places. ok is false when there are no expenses to divide by.
func (s Summary) Share(c CategoryTotal) (pct decimal.Decimal, ok bool) {
	if s.TotalExpenses.IsZero() {
		return decimal.Zero, false
	}
	return c.Amount.Mul(hundred).Div(s.TotalExpenses).Round(2), true
}

// Cutoff returns the earliest instant included by period relative to now.
// has is false for PeriodAll.
func Cutoff(period domain.Period, now time.Time) (cutoff time.Time, has bool, err error) {
	switch period {
	case domain.PeriodAll:
		return time.Time{}, false, nil
	case domain.PeriodWeek:
		return now.AddDate(0, 0, -7), true, nil
	case domain.PeriodMonth:
		return now.AddDate(0, -1, 0), true, nil
	case domain.PeriodYear:
		return now.AddDate(-1, 0, 0), true, nil
	}
	return time.Time{}, false, domain.Invalid("period", fmt.Sprintf("unknown period %q", period))
}

// Summarize totals tithes and expenses dated on or after the period cutoff.
func Summarize(church domain.Church, period domain.Period, now time.Time) (Summary, error) {
	cutoff, has, err := Cutoff(period, now)
	if err != nil {
		return Summary{}, err
	}
	include := func(d domain.Date) bool { return !has || !d.Before(cutoff) }

	summary := Summary{Period: period, TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero, Categories: []CategoryTotal{}}
	if has {
		summary.Cutoff = cutoff
	}
	for _, t := range church.Tithes {
		if include(t.Date) {
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
		}
	}

	index := make(map[string]int)
	for _, e := range church.Expenses {
		if !include(e.Date) {
			continue
		}
		summary.TotalExpenses = summary.TotalExpenses.Add(e.Amount)
		i, seen := index[e.Category]
		if !seen {
			i = len(summary.Categories)
			index[e.Category] = i
			summary.Categories = append(summary.Categories, CategoryTotal{Category: e.Category, Amount: decimal.Zero})
		}
		summary.Categories[i].Amount = summary.Categories[i].Amount.Add(e.Amount)
	}
	sort.SliceStable(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Amount.GreaterThan(summary.Categories[j].Amount)
	})
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpenses)
	return summary, nil
}
