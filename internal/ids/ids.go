// Package ids produces the short human-readable record identifiers used by
// the ledger: a letter prefix, the last four digits of the current epoch
// milliseconds and a two digit random suffix.
package ids

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TithePrefix seeds contribution record ids.
const TithePrefix = "TH"

// maxAttempts bounds short-id retries before falling back to a random id.
const maxAttempts = 10

// Generator builds identifiers from a clock and a random source.
type Generator struct {
	now  func() time.Time
	intn func(n int) int
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRandom overrides the random source; intn must return a value in [0,n).
func WithRandom(intn func(n int) int) Option {
	return func(g *Generator) {
		if intn != nil {
			g.intn = intn
		}
	}
}

// New constructs a generator using the wall clock and math/rand.
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now, intn: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns upper(prefix) + 4 time digits + 2 random digits.
func (g *Generator) Generate(prefix string) string {
	ms := g.now().UnixMilli()
	return fmt.Sprintf("%s%04d%02d", strings.ToUpper(prefix), ms%10000, g.intn(100))
}

// Unique returns a short id not rejected by taken. After maxAttempts
// collisions it returns the prefix followed by twelve hex characters of a
// random UUID.
func (g *Generator) Unique(prefix string, taken func(string) bool) string {
	for i := 0; i < maxAttempts; i++ {
		id := g.Generate(prefix)
		if taken == nil || !taken(id) {
			return id
		}
	}
	for {
		u := uuid.New()
		id := strings.ToUpper(prefix) + strings.ToUpper(strings.ReplaceAll(u.String(), "-", "")[:12])
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// Timestamp returns the current epoch milliseconds as a decimal string,
// advanced one millisecond at a time while taken reports a clash.
func (g *Generator) Timestamp(taken func(string) bool) (string, int64) {
	ms := g.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if taken == nil || !taken(id) {
			return id, ms
		}
		ms++
	}
}
