package domain

import "context"

// Transaction exposes the mutations a persistence implementation must
// support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	FindChurch(name string) (Church, bool)
	CreateChurch(Church) (Church, error)
	UpdateChurch(name string, mutator func(*Church) error) (Church, error)
	// ReplaceChurches swaps the whole church mapping.
	ReplaceChurches(map[string]Church) error
	FindUser(username string) (UserAccount, bool)
	CreateUser(UserAccount) (UserAccount, error)
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	ListChurches() []Church
	FindChurch(name string) (Church, bool)
	ListUsers() []UserAccount
	FindUser(username string) (UserAccount, bool)
}

// PersistentStore is the abstraction over snapshot backends used by the core service.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetChurch(name string) (Church, bool)
	ListChurches() []Church
	GetUser(username string) (UserAccount, bool)
	// Flush writes the current snapshot to durable storage.
	Flush(ctx context.Context) error
	Close() error
}
