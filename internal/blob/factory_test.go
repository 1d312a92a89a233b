package blob

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "docs")
	cases := []struct {
		cfg  Config
		want Driver
	}{
		{Config{FSRoot: root}, DriverFilesystem},
		{Config{Driver: DriverFilesystem, FSRoot: root}, DriverFilesystem},
		{Config{Driver: DriverMemory}, DriverMemory},
	}
	for _, tc := range cases {
		store, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("open %+v: %v", tc.cfg, err)
		}
		if store.Driver() != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, store.Driver())
		}
	}
}

func TestOpenRejectsUnknownDriverAndMissingBucket(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	store, err := Open(ctx, Config{Driver: DriverS3})
	if err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if store != nil {
		t.Fatalf("expected nil store on error, got %T", store)
	}
}
