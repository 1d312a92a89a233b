// Package memory provides an in-memory implementation of the ledger
// persistence store used for tests, ephemeral runs and as the transactional
// core of the snapshotting backends.
package memory

import (
	"churchledger/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Church aliases domain.Church for in-memory persistence operations.
	Church = domain.Church
	// Member aliases domain.Member.
	Member = domain.Member
	// UserAccount aliases domain.UserAccount.
	UserAccount = domain.UserAccount
	// Snapshot aliases domain.Snapshot, the unit of import and export.
	Snapshot = domain.Snapshot
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	churches map[string]Church
	users    map[string]UserAccount
}

func newMemoryState() memoryState {
	return memoryState{
		churches: make(map[string]Church),
		users:    make(map[string]UserAccount),
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		churches: domain.CloneChurches(s.churches),
		users:    make(map[string]UserAccount, len(s.users)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{Churches: cloned.churches, Users: cloned.users}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for name, church := range s.Churches {
		state.churches[name] = church.Clone()
	}
	for username, user := range s.Users {
		state.users[username] = user
	}
	return state
}

// migrateSnapshot normalises documents written by older versions: church
// names are filled from their key, nil collections become empty and a
// missing member counter starts at one.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	migrated := Snapshot{
		Churches: make(map[string]Church, len(snapshot.Churches)),
		Users:    make(map[string]UserAccount, len(snapshot.Users)),
	}
	for name, church := range snapshot.Churches {
		migrated.Churches[name] = normalizeChurch(name, church)
	}
	for username, user := range snapshot.Users {
		if user.Username == "" {
			user.Username = username
		}
		migrated.Users[username] = user
	}
	return migrated
}

// NormalizeChurches applies snapshot migration to a bare church mapping.
func NormalizeChurches(churches map[string]Church) map[string]Church {
	return migrateSnapshot(Snapshot{Churches: churches}).Churches
}

func normalizeChurch(name string, church Church) Church {
	church.Name = name
	if church.Members == nil {
		church.Members = make(map[string]Member)
	}
	if church.Tithes == nil {
		church.Tithes = []domain.Tithe{}
	}
	if church.Expenses == nil {
		church.Expenses = []domain.Expense{}
	}
	if church.MemberCounter < 1 {
		church.MemberCounter = 1
	}
	return church
}

// Store provides an in-memory transactional store for the ledger.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListChurches returns every church ordered by name.
func (v transactionView) ListChurches() []Church {
	return sortedChurches(v.state.churches)
}

// FindChurch retrieves a church by name.
func (v transactionView) FindChurch(name string) (Church, bool) {
	c, ok := v.state.churches[name]
	if !ok {
		return Church{}, false
	}
	return c.Clone(), true
}

// ListUsers returns every account ordered by username.
func (v transactionView) ListUsers() []UserAccount {
	return sortedUsers(v.state.users)
}

// FindUser retrieves an account by username.
func (v transactionView) FindUser(username string) (UserAccount, bool) {
	u, ok := v.state.users[username]
	return u, ok
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces committed state only when fn and all blocking rules pass.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindChurch retrieves a church from the transactional state.
func (tx *transaction) FindChurch(name string) (Church, bool) {
	c, ok := tx.state.churches[name]
	if !ok {
		return Church{}, false
	}
	return c.Clone(), true
}

// CreateChurch stores a new church keyed by its name.
func (tx *transaction) CreateChurch(c Church) (Church, error) {
	if c.Name == "" {
		return Church{}, fmt.Errorf("church name required")
	}
	if _, exists := tx.state.churches[c.Name]; exists {
		return Church{}, fmt.Errorf("church %q already exists", c.Name)
	}
	c = normalizeChurch(c.Name, c.Clone())
	tx.state.churches[c.Name] = c
	tx.recordChange(Change{Entity: domain.EntityChurch, Action: domain.ActionCreate, After: c.Clone()})
	return c.Clone(), nil
}

// UpdateChurch mutates a church using the provided mutator function. The
// church keeps its key even if the mutator renames it.
func (tx *transaction) UpdateChurch(name string, mutator func(*Church) error) (Church, error) {
	current, ok := tx.state.churches[name]
	if !ok {
		return Church{}, fmt.Errorf("church %q not found", name)
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return Church{}, err
	}
	working = normalizeChurch(name, working)
	tx.state.churches[name] = working
	tx.recordChange(Change{Entity: domain.EntityChurch, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

// ReplaceChurches swaps the whole church mapping, recording one delete per
// removed church and one create per incoming church.
func (tx *transaction) ReplaceChurches(churches map[string]Church) error {
	for _, name := range sortedKeys(tx.state.churches) {
		tx.recordChange(Change{Entity: domain.EntityChurch, Action: domain.ActionDelete, Before: tx.state.churches[name].Clone()})
	}
	next := make(map[string]Church, len(churches))
	for name, church := range churches {
		if name == "" {
			return fmt.Errorf("church name required")
		}
		next[name] = normalizeChurch(name, church.Clone())
	}
	tx.state.churches = next
	for _, name := range sortedKeys(next) {
		tx.recordChange(Change{Entity: domain.EntityChurch, Action: domain.ActionCreate, After: next[name].Clone()})
	}
	return nil
}

// FindUser retrieves an account from the transactional state.
func (tx *transaction) FindUser(username string) (UserAccount, bool) {
	u, ok := tx.state.users[username]
	return u, ok
}

// CreateUser stores a new account.
func (tx *transaction) CreateUser(u UserAccount) (UserAccount, error) {
	if u.Username == "" {
		return UserAccount{}, fmt.Errorf("username required")
	}
	if _, exists := tx.state.users[u.Username]; exists {
		return UserAccount{}, fmt.Errorf("user %q already exists", u.Username)
	}
	tx.state.users[u.Username] = u
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// GetChurch returns a church by name.
func (s *Store) GetChurch(name string) (Church, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.churches[name]
	if !ok {
		return Church{}, false
	}
	return c.Clone(), true
}

// ListChurches returns all churches ordered by name.
func (s *Store) ListChurches() []Church {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedChurches(s.state.churches)
}

// GetUser returns an account by username.
func (s *Store) GetUser(username string) (UserAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[username]
	return u, ok
}

// Flush is a no-op; the memory store has nothing durable to write.
func (s *Store) Flush(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedChurches(m map[string]Church) []Church {
	out := make([]Church, 0, len(m))
	for _, name := range sortedKeys(m) {
		out = append(out, m[name].Clone())
	}
	return out
}

func sortedUsers(m map[string]UserAccount) []UserAccount {
	out := make([]UserAccount, 0, len(m))
	for _, name := range sortedKeys(m) {
		out = append(out, m[name])
	}
	return out
}
