// Package core implements the church ledger service: transactional
// registration of churches and members, contribution and expense recording,
// reporting queries, user accounts, and backup documents.
package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"churchledger/internal/auth"
	"churchledger/internal/blob"
	"churchledger/internal/events"
	"churchledger/internal/ids"
	"churchledger/internal/infra/persistence/memory"
	"churchledger/pkg/domain"
)

// Service exposes the ledger operations over a persistent store.
type Service struct {
	store     domain.PersistentStore
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder
	publisher events.Publisher
	ids       *ids.Generator
	hasher    auth.Hasher
	blobs     blob.Store
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		clock:     ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		publisher: events.Nop{},
		hasher:    auth.NewHasher(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = ids.New(ids.WithClock(s.clock.Now))
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine, or the built-in rules when engine is nil.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// Close releases the store and the event publisher.
func (s *Service) Close() error {
	storeErr := s.store.Close()
	if err := s.publisher.Close(); err != nil && storeErr == nil {
		return err
	}
	return storeErr
}

func (s *Service) run(ctx context.Context, op string, fn func(domain.Transaction) error) (domain.Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	for _, v := range res.Warnings() {
		s.logger.Warn("rule violation",
			"operation", op,
			"rule", v.Rule,
			"severity", string(v.Severity),
			"entity", string(v.Entity),
			"id", v.EntityID,
			"message", v.Message,
		)
	}
	if err != nil {
		s.logger.Debug("operation failed", "operation", op, "error", err)
		return res, err
	}
	s.logger.Debug("operation committed", "operation", op)
	return res, nil
}

func (s *Service) publish(ctx context.Context, eventType, church, subject string) {
	event := events.Event{Type: eventType, Church: church, Subject: subject, OccurredAt: s.clock.Now().UTC()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", "type", eventType, "church", church, "error", err)
	}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

func churchNotFound(name string) error {
	return domain.NotFoundError{Entity: domain.EntityChurch, Key: name}
}

func memberNotFound(id string) error {
	return domain.NotFoundError{Entity: domain.EntityMember, Key: id}
}

func findChurch(tx domain.Transaction, name string) (domain.Church, error) {
	church, ok := tx.FindChurch(name)
	if !ok {
		return domain.Church{}, churchNotFound(name)
	}
	return church, nil
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

var errNoBlobStore = errors.New("no document store configured")
