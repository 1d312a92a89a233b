// Package redis keeps the ledger snapshot in two Redis string keys, one for
// the church mapping and one for the user mapping.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"churchledger/internal/infra/persistence/memory"
	"churchledger/pkg/domain"

	goredis "github.com/redis/go-redis/v9"
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPrefix namespaces the snapshot keys.
const DefaultPrefix = "churchledger:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store persists the memory store snapshot to Redis after every commit.
type Store struct {
	*memory.Store
	client *goredis.Client
	prefix string
	mu     sync.Mutex
}

// NewStore dials Redis, verifies the connection and loads any snapshot
// found under the configured prefix.
func NewStore(ctx context.Context, opts Options, engine *domain.RulesEngine) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewStoreWithClient(ctx, rdb, opts.Prefix, engine)
}

// NewStoreWithClient wraps an existing client. The store owns the client
// and closes it on Close.
func NewStoreWithClient(ctx context.Context, client *goredis.Client, prefix string, engine *domain.RulesEngine) (*Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Store{Store: memory.NewStore(engine), client: client, prefix: prefix}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) churchesKey() string { return s.prefix + "churches" }
func (s *Store) usersKey() string    { return s.prefix + "users" }

func (s *Store) load(ctx context.Context) error {
	var snapshot domain.Snapshot
	found := false
	for key, target := range map[string]any{
		s.churchesKey(): &snapshot.Churches,
		s.usersKey():    &snapshot.Users,
	} {
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		found = true
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	churches, err := json.Marshal(snapshot.Churches)
	if err != nil {
		return fmt.Errorf("encode churches: %w", err)
	}
	users, err := json.Marshal(snapshot.Users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.churchesKey(), churches, 0)
		pipe.Set(ctx, s.usersKey(), users, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// RunInTransaction commits through the memory store, then writes both keys
// in one MULTI/EXEC block.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Flush rewrites the snapshot keys.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx)
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
