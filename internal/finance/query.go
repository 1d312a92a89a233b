package finance

import (
	"sort"
	"strings"

	"churchledger/pkg/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MemberFilter narrows a member listing.
type MemberFilter struct {
	// Search matches name, id or title, case-insensitively.
	Search string
	// ActiveOnly keeps members who may currently give.
	ActiveOnly bool
}

// Members returns the church's members matching f, ordered by name using
// locale-aware collation.
func Members(church domain.Church, f MemberFilter) []domain.Member {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Member, 0, len(church.Members))
	for _, m := range church.Members {
		if f.ActiveOnly && m.Status != domain.StatusActive {
			continue
		}
		if term != "" && !containsFold(term, m.Name, m.ID, m.Title) {
			continue
		}
		out = append(out, m)
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		if c := col.CompareString(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TitheFilter narrows a contribution listing.
type TitheFilter struct {
	MemberID string
	// Search matches the current name or title of the contributing member.
	Search string
}

// TitheRow pairs a contribution with the member it currently references.
type TitheRow struct {
	domain.Tithe
	Member domain.Member `json:"member"`
}

// ListTithes filters by member id, then by search term, and returns rows
// ordered by date descending. Records whose member no longer exists are
// skipped; the returned count reports how many were dropped that way.
func ListTithes(church domain.Church, f TitheFilter) (rows []TitheRow, dangling int) {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	for _, t := range church.Tithes {
		if f.MemberID != "" && t.MemberID != f.MemberID {
			continue
		}
		m, ok := church.Members[t.MemberID]
		if !ok {
			dangling++
			continue
		}
		if term != "" && !containsFold(term, m.Name, m.Title) {
			continue
		}
		rows = append(rows, TitheRow{Tithe: t, Member: m})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date.Time) })
	return rows, dangling
}

// MemberContributions is one member's giving history.
type MemberContributions struct {
	Member domain.Member   `json:"member"`
	Tithes []domain.Tithe  `json:"tithes"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// ContributionsOf collects the records referencing memberID, newest first.
// ok is false when the member does not exist.
func ContributionsOf(church domain.Church, memberID string) (MemberContributions, bool) {
	m, ok := church.Members[memberID]
	if !ok {
		return MemberContributions{}, false
	}
	out := MemberContributions{Member: m, Tithes: []domain.Tithe{}, Total: decimal.Zero}
	for _, t := range church.Tithes {
		if t.MemberID == memberID {
			out.Tithes = append(out.Tithes, t)
			out.Total = out.Total.Add(t.Amount)
		}
	}
	out.Count = len(out.Tithes)
	sort.SliceStable(out.Tithes, func(i, j int) bool { return out.Tithes[i].Date.After(out.Tithes[j].Date.Time) })
	return out, true
}

// ExpenseFilter narrows an expense listing.
type ExpenseFilter struct {
	// Category must match exactly when set.
	Category string
	// Search matches title or description, case-insensitively.
	Search string
}

// Expenses returns the matching expenses, newest first.
func Expenses(church domain.Church, f ExpenseFilter) []domain.Expense {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := []domain.Expense{}
	for _, e := range church.Expenses {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if term != "" && !containsFold(term, e.Title, e.Description) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

// Statistics describes a church's membership and giving.
type Statistics struct {
	TotalMembers        int             `json:"totalMembers"`
	ActiveMembers       int             `json:"activeMembers"`
	InactiveMembers     int             `json:"inactiveMembers"`
	SuspendedMembers    int             `json:"suspendedMembers"`
	MaleMembers         int             `json:"maleMembers"`
	FemaleMembers       int             `json:"femaleMembers"`
	AverageAge          int             `json:"averageAge"`
	TotalTithes         int             `json:"totalTithes"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	AverageContribution decimal.Decimal `json:"averageContribution"`
}

// ChurchStatistics computes membership counts and giving averages. The
// average age is rounded half away from zero; averages are zero when there
// is nothing to divide by.
func ChurchStatistics(church domain.Church) Statistics {
	s := Statistics{TotalMembers: len(church.Members), TotalAmount: decimal.Zero, AverageContribution: decimal.Zero}
	ageSum := 0
	for _, m := range church.Members {
		switch m.Status {
		case domain.StatusActive:
			s.ActiveMembers++
		case domain.StatusInactive:
			s.InactiveMembers++
		case domain.StatusSuspended:
			s.SuspendedMembers++
		}
		switch m.Sex {
		case domain.SexMale:
			s.MaleMembers++
		case domain.SexFemale:
			s.FemaleMembers++
		}
		ageSum += m.Age
	}
	if s.TotalMembers > 0 {
		s.AverageAge = int(decimal.NewFromInt(int64(ageSum)).Div(decimal.NewFromInt(int64(s.TotalMembers))).Round(0).IntPart())
	}
	s.TotalTithes = len(church.Tithes)
	for _, t := range church.Tithes {
		s.TotalAmount = s.TotalAmount.Add(t.Amount)
	}
	if s.TotalTithes > 0 {
		s.AverageContribution = s.TotalAmount.Div(decimal.NewFromInt(int64(s.TotalTithes))).Round(2)
	}
	return s
}

// Overview is the one-line listing of a church.
type Overview struct {
	Name          string          `json:"name"`
	Initials      string          `json:"initials"`
	MemberCount   int             `json:"memberCount"`
	TitheCount    int             `json:"titheCount"`
	Contributions decimal.Decimal `json:"totalContributions"`
}

// Overviews summarises each church, ordered by name.
func Overviews(churches []domain.Church) []Overview {
	out := make([]Overview, 0, len(churches))
	for _, c := range churches {
		total := decimal.Zero
		for _, t := range c.Tithes {
			total = total.Add(t.Amount)
		}
		out = append(out, Overview{Name: c.Name, Initials: c.Initials, MemberCount: len(c.Members), TitheCount: len(c.Tithes), Contributions: total})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func containsFold(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
