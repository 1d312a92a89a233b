package core

import "churchledger/pkg/domain"

type (
	Church             = domain.Church
	Member             = domain.Member
	Tithe              = domain.Tithe
	Expense            = domain.Expense
	UserAccount        = domain.UserAccount
	Change             = domain.Change
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
