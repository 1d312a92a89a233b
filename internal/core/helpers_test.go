package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"churchledger/internal/auth"
	"churchledger/internal/events"

	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type observation struct {
	operation string
	success   bool
	duration  time.Duration
}

type captureMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (m *captureMetrics) Observe(_ context.Context, op string, success bool, d time.Duration) {
	m.mu.Lock()
	m.obs = append(m.obs, observation{operation: op, success: success, duration: d})
	m.mu.Unlock()
}

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *testClock) {
	t.Helper()
	clock := newTestClock(testNow)
	base := []Option{WithClock(clock), WithHasher(auth.NewHasher(bcrypt.MinCost))}
	return NewInMemoryService(nil, append(base, opts...)...), clock
}

func mustChurch(t *testing.T, svc *Service, name, initials string) Church {
	t.Helper()
	c, _, err := svc.RegisterChurch(context.Background(), name, initials)
	if err != nil {
		t.Fatalf("register church %s: %v", name, err)
	}
	return c
}

func mustMember(t *testing.T, svc *Service, church, name string) Member {
	t.Helper()
	m, _, err := svc.RegisterMember(context.Background(), MemberInput{Church: church, Name: name, Sex: "Female", Age: 34, Title: "Sister"})
	if err != nil {
		t.Fatalf("register member %s: %v", name, err)
	}
	return m
}
