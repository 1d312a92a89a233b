package finance

import (
	"fmt"
	"sort"

	"churchledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// DefaultTopLimit is the number of contributors returned when no limit is given.
const DefaultTopLimit = 10

// DefaultTrendMonths is the number of monthly buckets in a trend.
const DefaultTrendMonths = 12

// Bucket is the contribution total for one calendar period key.
type Bucket struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Report groups contributions by calendar period.
type Report struct {
	Granularity domain.Granularity `json:"granularity"`
	// Buckets are ordered by key descending.
	Buckets []Bucket        `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
}

// PeriodKey formats the bucket key of d: YYYY-MM, YYYY-Qn or YYYY.
func PeriodKey(d domain.Date, g domain.Granularity) (string, error) {
	u := d.UTC()
	switch g {
	case domain.GranularityMonthly:
		return fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month())), nil
	case domain.GranularityQuarterly:
		return fmt.Sprintf("%04d-Q%d", u.Year(), (int(u.Month())-1)/3+1), nil
	case domain.GranularityYearly:
		return fmt.Sprintf("%04d", u.Year()), nil
	}
	return "", domain.Invalid("granularity", fmt.Sprintf("unknown granularity %q", g))
}

func bucketize(tithes []domain.Tithe, g domain.Granularity) ([]Bucket, decimal.Decimal, error) {
	byKey := make(map[string]*Bucket)
	total := decimal.Zero
	for _, t := range tithes {
		key, err := PeriodKey(t.Date, g)
		if err != nil {
			return nil, decimal.Zero, err
		}
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key, Total: decimal.Zero}
			byKey[key] = b
		}
		b.Total = b.Total.Add(t.Amount)
		b.Count++
		total = total.Add(t.Amount)
	}
	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, total, nil
}

// PeriodReport buckets every contribution by its own date.
func PeriodReport(church domain.Church, g domain.Granularity) (Report, error) {
	buckets, total, err := bucketize(church.Tithes, g)
	if err != nil {
		return Report{}, err
	}
	for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
		buckets[i], buckets[j] = buckets[j], buckets[i]
	}
	return Report{Granularity: g, Buckets: buckets, Total: total}, nil
}

// MonthlyTrend returns the latest months buckets that have contributions,
// in ascending key order.
func MonthlyTrend(church domain.Church, months int) []Bucket {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	buckets, _, _ := bucketize(church.Tithes, domain.GranularityMonthly)
	if len(buckets) > months {
		buckets = buckets[len(buckets)-months:]
	}
	return buckets
}

// Contributor is a member's aggregated giving.
type Contributor struct {
	MemberID    string          `json:"memberId"`
	MemberName  string          `json:"memberName"`
	MemberTitle string          `json:"memberTitle"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
}

// TopContributors aggregates contributions per member id and returns the
// largest totals first. Names come from the first record seen for the
// member. Ties keep encounter order.
func TopContributors(church domain.Church, limit int) []Contributor {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	index := make(map[string]int)
	var out []Contributor
	for _, t := range church.Tithes {
		i, ok := index[t.MemberID]
		if !ok {
			i = len(out)
			index[t.MemberID] = i
			out = append(out, Contributor{MemberID: t.MemberID, MemberName: t.MemberName, MemberTitle: t.MemberTitle, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(t.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TypeTotal is the summed amount of one contribution kind.
type TypeTotal struct {
	Type  domain.TitheType `json:"type"`
	Total decimal.Decimal  `json:"total"`
	Count int              `json:"count"`
}

// TitheTypeTotals returns one entry per contribution kind in fixed order,
// including kinds with no records.
func TitheTypeTotals(church domain.Church) []TypeTotal {
	types := domain.TitheTypes()
	out := make([]TypeTotal, len(types))
	index := make(map[domain.TitheType]int, len(types))
	for i, typ := range types {
		out[i] = TypeTotal{Type: typ, Total: decimal.Zero}
		index[typ] = i
	}
	for _, t := range church.Tithes {
		if i, ok := index[t.Type]; ok {
			out[i].Total = out[i].Total.Add(t.Amount)
			out[i].Count++
		}
	}
	return out
}
