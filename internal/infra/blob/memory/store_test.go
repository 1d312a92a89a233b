package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"churchledger/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	store := New(WithClock(func() time.Time { return fixed }))
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}

	meta := map[string]string{"kind": "backup"}
	info, err := store.Put(ctx, "backups/a.json", strings.NewReader("{}"), core.PutOptions{ContentType: "application/json", Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["kind"] = "mutated"
	if info.Size != 2 || !info.LastModified.Equal(fixed) {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "backups/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "{}" || got.Metadata["kind"] != "backup" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	got.Metadata["kind"] = "changed"
	again, _, _ := store.Get(ctx, "backups/a.json")
	if again.Metadata["kind"] != "backup" {
		t.Fatalf("metadata aliased store state")
	}

	if _, err := store.Put(ctx, "backups/b.json", strings.NewReader("[]"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	infos, _ := store.List(ctx, "backups/")
	if len(infos) != 2 || infos[0].Key != "backups/a.json" {
		t.Fatalf("unexpected list %+v", infos)
	}

	if ok, _ := store.Delete(ctx, "backups/a.json"); !ok {
		t.Fatalf("expected delete to report true")
	}
	if ok, _ := store.Delete(ctx, "backups/a.json"); ok {
		t.Fatalf("expected second delete to report false")
	}
	if _, _, err := store.Get(ctx, "backups/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Put(ctx, " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
