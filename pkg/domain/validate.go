package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateChurches checks an imported church mapping against the record shapes
// and returns the first problem found as a ValidationError. Churches are
// visited in key order so the reported problem is stable.
func ValidateChurches(churches map[string]Church) error {
	names := make([]string, 0, len(churches))
	for name := range churches {
		names = append(names, name)
	}
	sort.Strings(names)

	initials := make(map[string]string, len(churches))
	for _, name := range names {
		church := churches[name]
		path := fmt.Sprintf("churches[%q]", name)
		if strings.TrimSpace(name) == "" {
			return Invalid("churches", "church name must not be blank")
		}
		if church.Name != "" && church.Name != name {
			return Invalid(path+".name", fmt.Sprintf("church name %q does not match key %q", church.Name, name))
		}
		if !ValidInitials(church.Initials) {
			return Invalid(path+".initials", "Church initials must be 2-4 letters only")
		}
		upper := strings.ToUpper(church.Initials)
		if other, taken := initials[upper]; taken {
			return Invalid(path+".initials", fmt.Sprintf("initials %s already used by %q", upper, other))
		}
		initials[upper] = name
		if church.MemberCounter < 0 {
			return Invalid(path+".memberCounter", "member counter must not be negative")
		}
		if err := validateMembers(path, church.Members); err != nil {
			return err
		}
		for i, tithe := range church.Tithes {
			if err := validateTithe(fmt.Sprintf("%s.tithes[%d]", path, i), tithe); err != nil {
				return err
			}
		}
		for i, expense := range church.Expenses {
			if err := validateExpense(fmt.Sprintf("%s.expenses[%d]", path, i), expense); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateMembers(path string, members map[string]Member) error {
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := members[id]
		field := fmt.Sprintf("%s.members[%q]", path, id)
		switch {
		case m.ID != id:
			return Invalid(field+".id", fmt.Sprintf("member id %q does not match key %q", m.ID, id))
		case strings.TrimSpace(m.Name) == "":
			return Invalid(field+".name", "member name must not be blank")
		case !m.Sex.Valid():
			return Invalid(field+".sex", fmt.Sprintf("unknown sex %q", m.Sex))
		case m.Age < MinAge || m.Age > MaxAge:
			return Invalid(field+".age", fmt.Sprintf("age %d outside %d-%d", m.Age, MinAge, MaxAge))
		case !m.Status.Valid():
			return Invalid(field+".status", fmt.Sprintf("unknown status %q", m.Status))
		case m.RegisteredDate.IsZero():
			return Invalid(field+".registeredDate", "registration date is required")
		}
	}
	return nil
}

func validateTithe(field string, t Tithe) error {
	switch {
	case t.ID == "":
		return Invalid(field+".id", "tithe id is required")
	case t.MemberID == "":
		return Invalid(field+".memberId", "tithe member id is required")
	case !t.Amount.IsPositive():
		return Invalid(field+".amount", "Amount must be greater than 0")
	case !t.Type.Valid():
		return Invalid(field+".type", fmt.Sprintf("unknown contribution type %q", t.Type))
	case t.Date.IsZero():
		return Invalid(field+".date", "tithe date is required")
	}
	return nil
}

func validateExpense(field string, e Expense) error {
	switch {
	case e.ID == "":
		return Invalid(field+".id", "expense id is required")
	case strings.TrimSpace(e.Title) == "":
		return Invalid(field+".title", "expense title is required")
	case strings.TrimSpace(e.Category) == "":
		return Invalid(field+".category", "expense category is required")
	case !e.Amount.IsPositive():
		return Invalid(field+".amount", "Amount must be greater than 0")
	case e.Date.IsZero():
		return Invalid(field+".date", "expense date is required")
	}
	return nil
}
