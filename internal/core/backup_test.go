package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"churchledger/internal/blob"
	"churchledger/internal/finance"
	"churchledger/internal/infra/persistence/memory"
	"churchledger/pkg/domain"

	"github.com/shopspring/decimal"
)

func seedLedger(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	mustChurch(t, svc, "Grace Chapel", "GC")
	mustChurch(t, svc, "Hope Centre", "HC")
	jane := mustMember(t, svc, "Grace Chapel", "Jane Doe")
	if _, _, err := svc.RecordTithe(ctx, "Grace Chapel", jane.ID, decimal.RequireFromString("12.34"), domain.TypeOffering); err != nil {
		t.Fatalf("record tithe: %v", err)
	}
	if _, _, err := svc.RecordExpense(ctx, "Hope Centre", ExpenseInput{Title: "Chairs", Amount: "99.95", Category: "furniture"}); err != nil {
		t.Fatalf("record expense: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	seedLedger(t, svc)
	ctx := context.Background()
	before := svc.Store().(*memory.Store).ExportState().Churches

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"Grace Chapel\": {") {
		t.Fatalf("expected an indented document keyed by church name, got:\n%s", buf.String())
	}

	restored, _ := newTestService(t)
	if _, err := restored.Import(ctx, bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("import: %v", err)
	}
	after := restored.Store().(*memory.Store).ExportState().Churches
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("round trip changed the church mapping\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestImportRejectsMalformedDocuments(t *testing.T) {
	svc, _ := newTestService(t)
	seedLedger(t, svc)
	ctx := context.Background()

	docs := map[string]string{
		"not json":      "{churches",
		"null":          "null",
		"trailing data": "{} this is not json",
		"two documents": "{} {}",
		"bad initials":  `{"Grace": {"initials": "G", "members": {}, "tithes": [], "memberCounter": 1, "expenses": []}}`,
		"bad age":       `{"Grace": {"initials": "GR", "members": {"GR123401": {"id": "GR123401", "name": "A", "sex": "Male", "age": 300, "title": "Bro", "status": "active", "registeredDate": "2024-01-01"}}, "tithes": [], "memberCounter": 2, "expenses": []}}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Import(ctx, strings.NewReader(doc)); !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if got := len(svc.Churches(ctx)); got != 2 {
		t.Fatalf("rejected import changed state, %d churches", got)
	}
}

func TestImportToleratesDanglingTithes(t *testing.T) {
	logger := &captureLogger{}
	svc, _ := newTestService(t, WithLogger(logger))
	doc := map[string]Church{
		"Grace Chapel": {
			Initials:      "GC",
			Members:       map[string]Member{},
			MemberCounter: 1,
			Tithes: []Tithe{{
				ID: "TH123456", MemberID: "GC999999", MemberName: "Gone", Amount: decimal.NewFromInt(3),
				Type: domain.TypeTithe, Date: domain.CalendarDate(testNow),
			}},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, err := svc.Import(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Warnings()) != 1 {
		t.Fatalf("expected a dangling reference warning, got %+v", res.Violations)
	}
	rows, err := svc.Tithes("Grace Chapel", finance.TitheFilter{})
	if err != nil || len(rows) != 0 {
		t.Fatalf("dangling tithe should be filtered, got %+v (%v)", rows, err)
	}
	if logger.count("warn", "tithes reference missing members") != 1 {
		t.Fatalf("expected dangling rows to be logged")
	}
}

func TestBlobBackups(t *testing.T) {
	store := blob.NewMemory()
	svc, clock := newTestService(t, WithBlobStore(store))
	seedLedger(t, svc)
	ctx := context.Background()

	due, err := svc.BackupDue(ctx, testNow)
	if err != nil || !due {
		t.Fatalf("expected backup due with no backups, got %v (%v)", due, err)
	}
	info, err := svc.ExportToBlob(ctx)
	if err != nil {
		t.Fatalf("export to blob: %v", err)
	}
	if info.Key != "backups/church_data_backup_2024-06-15_120000.json" {
		t.Fatalf("unexpected backup key %s", info.Key)
	}
	if due, _ := svc.BackupDue(ctx, testNow.Add(6*24*time.Hour)); due {
		t.Fatalf("backup should not be due after six days")
	}
	if due, _ := svc.BackupDue(ctx, testNow.Add(8*24*time.Hour)); !due {
		t.Fatalf("backup should be due after eight days")
	}

	clock.Set(testNow.Add(time.Hour))
	if _, err := svc.ExportToBlob(ctx); err != nil {
		t.Fatalf("second export: %v", err)
	}
	backups, err := svc.Backups(ctx)
	if err != nil || len(backups) != 2 {
		t.Fatalf("expected two backups, got %+v (%v)", backups, err)
	}

	restored, _ := newTestService(t, WithBlobStore(store))
	if _, err := restored.ImportFromBlob(ctx, info.Key); err != nil {
		t.Fatalf("import from blob: %v", err)
	}
	if got := len(restored.Churches(ctx)); got != 2 {
		t.Fatalf("expected two restored churches, got %d", got)
	}
	if _, err := restored.ImportFromBlob(ctx, "backups/missing.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBlobOperationsNeedStore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.ExportToBlob(ctx); err == nil {
		t.Fatalf("expected error without blob store")
	}
	if _, err := svc.ImportFromBlob(ctx, "x"); err == nil {
		t.Fatalf("expected error without blob store")
	}
	if _, err := svc.BackupDue(ctx, testNow); err == nil {
		t.Fatalf("expected error without blob store")
	}
}

func TestBackupTimeFallsBackToLastModified(t *testing.T) {
	modified := testNow.Add(-time.Hour)
	got := backupTime(blob.Info{Key: "backups/church_data_backup_manual.json", LastModified: modified})
	if !got.Equal(modified) {
		t.Fatalf("expected last modified fallback, got %s", got)
	}
}
