package core

import (
	"context"
	"fmt"
	"strings"

	"churchledger/pkg/domain"
)

// Rule names reported in violations.
const (
	RuleChurchIdentity       = "church_identity"
	RuleTitheMemberReference = "tithe_member_reference"
)

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewChurchIdentityRule())
	engine.Register(NewTitheMemberReferenceRule())
	return engine
}

// NewChurchIdentityRule blocks commits that leave a church with malformed
// or duplicated initials.
func NewChurchIdentityRule() domain.Rule {
	return churchIdentityRule{}
}

type churchIdentityRule struct{}

func (churchIdentityRule) Name() string { return RuleChurchIdentity }

func (churchIdentityRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	holders := make(map[string]string)
	for _, church := range view.ListChurches() {
		block := func(msg string) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleChurchIdentity,
				Severity: domain.SeverityBlock,
				Message:  msg,
				Entity:   domain.EntityChurch,
				EntityID: church.Name,
			})
		}
		if strings.TrimSpace(church.Name) == "" {
			block("church name must not be blank")
			continue
		}
		if !domain.ValidInitials(church.Initials) {
			block(fmt.Sprintf("church %s has invalid initials %q", church.Name, church.Initials))
			continue
		}
		upper := strings.ToUpper(church.Initials)
		if other, taken := holders[upper]; taken {
			block(fmt.Sprintf("churches %s and %s share initials %s", other, church.Name, upper))
			continue
		}
		holders[upper] = church.Name
	}
	return res, nil
}

// NewTitheMemberReferenceRule warns about contribution records whose member
// is missing from the owning church.
func NewTitheMemberReferenceRule() domain.Rule {
	return titheMemberReferenceRule{}
}

type titheMemberReferenceRule struct{}

func (titheMemberReferenceRule) Name() string { return RuleTitheMemberReference }

func (titheMemberReferenceRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := make(map[string]bool)
	for _, change := range changes {
		if change.Entity != domain.EntityChurch {
			continue
		}
		if c, ok := change.After.(domain.Church); ok {
			touched[c.Name] = true
		}
	}
	for _, church := range view.ListChurches() {
		if !touched[church.Name] {
			continue
		}
		for _, tithe := range church.Tithes {
			if _, ok := church.Members[tithe.MemberID]; ok {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleTitheMemberReference,
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("tithe %s in %s references missing member %s", tithe.ID, church.Name, tithe.MemberID),
				Entity:   domain.EntityTithe,
				EntityID: tithe.ID,
			})
		}
	}
	return res, nil
}
