package core

import (
	"context"
	"time"

	"churchledger/internal/finance"
	"churchledger/pkg/domain"
)

// Church returns a copy of the named church.
func (s *Service) Church(name string) (Church, error) {
	church, ok := s.store.GetChurch(name)
	if !ok {
		return Church{}, churchNotFound(name)
	}
	return church, nil
}

// Churches lists every church with its member and contribution counts.
func (s *Service) Churches(ctx context.Context) []finance.Overview {
	start := time.Now()
	out := finance.Overviews(s.store.ListChurches())
	s.observe(ctx, "list_churches", start, nil)
	return out
}

// Members lists a church's members ordered by name.
func (s *Service) Members(churchName string, f finance.MemberFilter) ([]Member, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return nil, err
	}
	return finance.Members(church, f), nil
}

// Member returns a member with their contribution history.
func (s *Service) Member(churchName, memberID string) (finance.MemberContributions, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return finance.MemberContributions{}, err
	}
	out, ok := finance.ContributionsOf(church, memberID)
	if !ok {
		return finance.MemberContributions{}, memberNotFound(memberID)
	}
	return out, nil
}

// Tithes lists a church's contributions newest first. Records pointing at a
// missing member are skipped and logged.
func (s *Service) Tithes(churchName string, f finance.TitheFilter) ([]finance.TitheRow, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return nil, err
	}
	rows, dangling := finance.ListTithes(church, f)
	if dangling > 0 {
		s.logger.Warn("tithes reference missing members", "church", churchName, "count", dangling)
	}
	return rows, nil
}

// Expenses lists a church's expenses newest first.
func (s *Service) Expenses(churchName string, f finance.ExpenseFilter) ([]Expense, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return nil, err
	}
	return finance.Expenses(church, f), nil
}

// Summary totals income and expenses within the period ending now.
func (s *Service) Summary(ctx context.Context, churchName string, period domain.Period) (finance.Summary, error) {
	start := time.Now()
	var summary finance.Summary
	church, err := s.Church(churchName)
	if err == nil {
		summary, err = finance.Summarize(church, period, s.clock.Now())
	}
	s.observe(ctx, "summary", start, err)
	if err != nil {
		return finance.Summary{}, err
	}
	return summary, nil
}

// PeriodReport buckets contributions by calendar period.
func (s *Service) PeriodReport(churchName string, g domain.Granularity) (finance.Report, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return finance.Report{}, err
	}
	return finance.PeriodReport(church, g)
}

// TopContributors returns the largest givers, at most limit of them.
func (s *Service) TopContributors(churchName string, limit int) ([]finance.Contributor, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return nil, err
	}
	return finance.TopContributors(church, limit), nil
}

// TitheTypeTotals sums contributions per tithe type.
func (s *Service) TitheTypeTotals(churchName string) ([]finance.TypeTotal, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return nil, err
	}
	return finance.TitheTypeTotals(church), nil
}

// MonthlyTrend returns per-month contribution totals for the trailing window.
func (s *Service) MonthlyTrend(churchName string, months int) ([]finance.Bucket, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return nil, err
	}
	return finance.MonthlyTrend(church, months), nil
}

// Statistics computes membership counts and giving averages.
func (s *Service) Statistics(churchName string) (finance.Statistics, error) {
	church, err := s.Church(churchName)
	if err != nil {
		return finance.Statistics{}, err
	}
	return finance.ChurchStatistics(church), nil
}
