// Package domain defines the church ledger records, value types, and
// rule evaluation primitives shared by the store and its backends.
package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Snapshot documents carry amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// EntityType identifies the type of record stored in the ledger.
type EntityType string

// Supported entity type identifiers used in Change records, violations and errors.
const (
	// EntityChurch identifies a church aggregate.
	EntityChurch EntityType = "church"
	// EntityMember identifies a member owned by a church.
	EntityMember EntityType = "member"
	// EntityTithe identifies a contribution record.
	EntityTithe EntityType = "tithe"
	// EntityExpense identifies an expense record.
	EntityExpense EntityType = "expense"
	// EntityUser identifies a login account.
	EntityUser EntityType = "user"
)

// Sex enumerates the recorded sex of a member.
type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

// Valid reports whether s is a known value.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// ParseSex accepts the canonical spelling in any letter case.
func ParseSex(raw string) (Sex, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male":
		return SexMale, true
	case "female":
		return SexFemale, true
	}
	return "", false
}

// MemberStatus enumerates membership standing.
type MemberStatus string

const (
	StatusActive    MemberStatus = "active"
	StatusInactive  MemberStatus = "inactive"
	StatusSuspended MemberStatus = "suspended"
)

// Valid reports whether s is a known status.
func (s MemberStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// TitheType enumerates contribution kinds.
type TitheType string

const (
	TypeTithe    TitheType = "tithe"
	TypeOffering TitheType = "offering"
	TypeDonation TitheType = "donation"
	TypeSpecial  TitheType = "special"
)

// TitheTypes lists every contribution kind in presentation order.
func TitheTypes() []TitheType {
	return []TitheType{TypeTithe, TypeOffering, TypeDonation, TypeSpecial}
}

// Valid reports whether t is a known contribution kind.
func (t TitheType) Valid() bool {
	switch t {
	case TypeTithe, TypeOffering, TypeDonation, TypeSpecial:
		return true
	}
	return false
}

// Period is the time window applied by financial summaries.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Valid reports whether p is a known window.
func (p Period) Valid() bool {
	switch p {
	case PeriodAll, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// Granularity selects the bucket size of a contribution report.
type Granularity string

const (
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYearly    Granularity = "yearly"
)

// Valid reports whether g is a known bucket size.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityMonthly, GranularityQuarterly, GranularityYearly:
		return true
	}
	return false
}

// Age bounds accepted for members.
const (
	MinAge = 1
	MaxAge = 120
)

var initialsPattern = regexp.MustCompile(`^[A-Za-z]{2,4}$`)

// ValidInitials reports whether raw consists of two to four letters.
func ValidInitials(raw string) bool {
	return initialsPattern.MatchString(raw)
}

// Church is the top-level aggregate. It is keyed by Name in the store.
type Church struct {
	Name          string            `json:"name,omitempty"`
	Initials      string            `json:"initials"`
	Members       map[string]Member `json:"members"`
	Tithes        []Tithe           `json:"tithes"`
	MemberCounter int               `json:"memberCounter"`
	Expenses      []Expense         `json:"expenses"`
}

// Member belongs to exactly one church's member mapping.
type Member struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Sex            Sex          `json:"sex"`
	Age            int          `json:"age"`
	Title          string       `json:"title"`
	Status         MemberStatus `json:"status"`
	RegisteredDate Date         `json:"registeredDate"`
}

// Tithe is a contribution record. MemberName and MemberTitle are captured
// when the record is created and never refreshed.
type Tithe struct {
	ID          string          `json:"id"`
	MemberID    string          `json:"memberId"`
	MemberName  string          `json:"memberName"`
	MemberTitle string          `json:"memberTitle"`
	Date        Date            `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TitheType       `json:"type"`
}

// Expense is an outgoing payment recorded against a church.
type Expense struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
	// Timestamp is the creation instant in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// UserAccount is a login identity for the interactive session.
type UserAccount struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Email        string `json:"email"`
	RegisteredAt Date   `json:"registeredDate"`
}

// Snapshot is the full persisted state: the church mapping and the user mapping.
type Snapshot struct {
	Churches map[string]Church      `json:"churches"`
	Users    map[string]UserAccount `json:"users"`
}
