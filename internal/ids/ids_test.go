package ids

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestGenerateFormat(t *testing.T) {
	g := New(WithClock(fixedClock(1717171712345)), WithRandom(func(int) int { return 7 }))
	if got := g.Generate("gc"); got != "GC234507" {
		t.Fatalf("expected GC234507, got %s", got)
	}
	g = New(WithClock(fixedClock(1700000000042)), WithRandom(func(int) int { return 99 }))
	if got := g.Generate("ABCD"); got != "ABCD004299" {
		t.Fatalf("expected zero padded time digits, got %s", got)
	}
}

func TestGenerateLengthDependsOnlyOnPrefix(t *testing.T) {
	g := New()
	for _, prefix := range []string{"AB", "ABC", "ABCD"} {
		if got := g.Generate(prefix); len(got) != len(prefix)+6 {
			t.Fatalf("unexpected length for %s: %s", prefix, got)
		}
	}
}

func TestUniqueRetriesThenFallsBack(t *testing.T) {
	calls := 0
	g := New(WithClock(fixedClock(1717171712345)), WithRandom(func(int) int { calls++; return 1 }))
	taken := map[string]bool{"GC234501": true}
	id := g.Unique("GC", func(id string) bool { return taken[id] })
	if calls != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, calls)
	}
	if !strings.HasPrefix(id, "GC") || len(id) != 14 || id == "GC234501" {
		t.Fatalf("unexpected fallback id %s", id)
	}
	if strings.ToUpper(id) != id {
		t.Fatalf("fallback id should be upper case: %s", id)
	}
}

func TestUniqueReturnsFirstFreeID(t *testing.T) {
	seq := []int{1, 2}
	g := New(WithClock(fixedClock(1717171712345)), WithRandom(func(int) int {
		v := seq[0]
		seq = seq[1:]
		return v
	}))
	id := g.Unique("TH", func(id string) bool { return id == "TH234501" })
	if id != "TH234502" {
		t.Fatalf("expected second candidate, got %s", id)
	}
}

func TestTimestampBumpsPastCollisions(t *testing.T) {
	g := New(WithClock(fixedClock(1000)))
	id, ms := g.Timestamp(func(id string) bool { return id == "1000" || id == "1001" })
	if id != "1002" || ms != 1002 {
		t.Fatalf("expected 1002, got %s (%d)", id, ms)
	}
}
