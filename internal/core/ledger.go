package core

import (
	"context"
	"strings"

	"churchledger/internal/events"
	"churchledger/internal/ids"
	"churchledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// RecordTithe appends a contribution dated today. The member's current name
// and title are copied onto the record.
func (s *Service) RecordTithe(ctx context.Context, churchName, memberID string, amount decimal.Decimal, typ domain.TitheType) (Tithe, Result, error) {
	var created Tithe
	res, err := s.run(ctx, "record_tithe", func(tx Transaction) error {
		if blank(churchName, memberID, string(typ)) || amount.IsZero() {
			return domain.Invalid("tithe", "Please fill all tithe fields")
		}
		if !amount.IsPositive() {
			return domain.Invalid("amount", "Amount must be greater than 0")
		}
		if !typ.Valid() {
			return domain.Invalid("type", "Unknown contribution type "+string(typ))
		}
		church, err := findChurch(tx, churchName)
		if err != nil {
			return err
		}
		member, ok := church.Members[memberID]
		if !ok {
			return memberNotFound(memberID)
		}
		taken := make(map[string]bool, len(church.Tithes))
		for _, t := range church.Tithes {
			taken[t.ID] = true
		}
		created = Tithe{
			ID:          s.ids.Unique(ids.TithePrefix, func(id string) bool { return taken[id] }),
			MemberID:    member.ID,
			MemberName:  member.Name,
			MemberTitle: member.Title,
			Date:        domain.CalendarDate(s.clock.Now()),
			Amount:      amount,
			Type:        typ,
		}
		_, err = tx.UpdateChurch(churchName, func(c *Church) error {
			c.Tithes = append(c.Tithes, created)
			return nil
		})
		return err
	})
	if err != nil {
		return Tithe{}, res, err
	}
	s.publish(ctx, events.TitheRecorded, churchName, created.ID)
	return created, res, nil
}

// ExpenseInput carries the expense form. Amount is the raw entered text and
// Date, when set, is a calendar date or RFC 3339 timestamp.
type ExpenseInput struct {
	Title       string
	Amount      string
	Category    string
	Description string
	Date        string
}

// RecordExpense appends an expense with a time-based id.
func (s *Service) RecordExpense(ctx context.Context, churchName string, in ExpenseInput) (Expense, Result, error) {
	var created Expense
	res, err := s.run(ctx, "record_expense", func(tx Transaction) error {
		if blank(churchName, in.Title, in.Amount, in.Category) {
			return domain.Invalid("expense", "Missing required expense information")
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
		if err != nil {
			return domain.Invalid("amount", "Amount must be a number")
		}
		if !amount.IsPositive() {
			return domain.Invalid("amount", "Amount must be greater than 0")
		}
		now := s.clock.Now()
		date := domain.NewDate(now)
		if raw := strings.TrimSpace(in.Date); raw != "" {
			if date, err = domain.ParseDate(raw); err != nil {
				return domain.Invalid("date", err.Error())
			}
		}
		church, err := findChurch(tx, churchName)
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(church.Expenses))
		for _, e := range church.Expenses {
			taken[e.ID] = true
		}
		id, ts := s.ids.Timestamp(func(id string) bool { return taken[id] })
		created = Expense{
			ID:          id,
			Title:       strings.TrimSpace(in.Title),
			Amount:      amount,
			Category:    strings.TrimSpace(in.Category),
			Description: strings.TrimSpace(in.Description),
			Date:        date,
			Timestamp:   ts,
		}
		_, err = tx.UpdateChurch(churchName, func(c *Church) error {
			c.Expenses = append(c.Expenses, created)
			return nil
		})
		return err
	})
	if err != nil {
		return Expense{}, res, err
	}
	s.publish(ctx, events.ExpenseRecorded, churchName, created.ID)
	return created, res, nil
}
