package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"churchledger/internal/blob"
	"churchledger/internal/events"
	"churchledger/pkg/domain"
)

const (
	// BackupPrefix is the document key prefix of stored backups.
	BackupPrefix = "backups/church_data_backup_"
	backupStamp  = "2006-01-02_150405"
	// BackupInterval is the age after which a new backup is due.
	BackupInterval = 7 * 24 * time.Hour
)

// BackupKey names the backup document taken at now.
func BackupKey(now time.Time) string {
	return BackupPrefix + now.UTC().Format(backupStamp) + ".json"
}

// Export writes the church mapping as an indented JSON document.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	var churches map[string]Church
	if err := s.store.View(ctx, func(v TransactionView) error {
		list := v.ListChurches()
		churches = make(map[string]Church, len(list))
		for _, c := range list {
			churches[c.Name] = c
		}
		return nil
	}); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(churches); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Import validates a church mapping document and replaces the current
// mapping with it. Nothing changes when the document is rejected.
func (s *Service) Import(ctx context.Context, r io.Reader) (Result, error) {
	var churches map[string]Church
	dec := json.NewDecoder(r)
	if err := dec.Decode(&churches); err != nil {
		return Result{}, domain.Invalid("document", fmt.Sprintf("backup is not a valid church document: %v", err))
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Result{}, domain.Invalid("document", "backup has trailing data after the church mapping")
	}
	if churches == nil {
		return Result{}, domain.Invalid("document", "backup contains no church mapping")
	}
	if err := domain.ValidateChurches(churches); err != nil {
		return Result{}, err
	}
	res, err := s.run(ctx, "import", func(tx Transaction) error {
		return tx.ReplaceChurches(churches)
	})
	if err != nil {
		return res, err
	}
	s.logger.Info("churches imported", "count", len(churches))
	s.publish(ctx, events.ChurchesImported, "", fmt.Sprintf("%d", len(churches)))
	return res, nil
}

// ExportToBlob stores a backup document under BackupKey and returns its info.
func (s *Service) ExportToBlob(ctx context.Context) (blob.Info, error) {
	if s.blobs == nil {
		return blob.Info{}, errNoBlobStore
	}
	var buf bytes.Buffer
	if err := s.Export(ctx, &buf); err != nil {
		return blob.Info{}, err
	}
	info, err := s.blobs.Put(ctx, BackupKey(s.clock.Now()), &buf, blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store backup: %w", err)
	}
	s.logger.Info("backup stored", "key", info.Key, "size", info.Size, "driver", string(s.blobs.Driver()))
	return info, nil
}

// ImportFromBlob loads the backup stored under key.
func (s *Service) ImportFromBlob(ctx context.Context, key string) (Result, error) {
	if s.blobs == nil {
		return Result{}, errNoBlobStore
	}
	_, rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("load backup %s: %w", key, err)
	}
	defer rc.Close()
	return s.Import(ctx, rc)
}

// Backups lists stored backup documents, oldest first.
func (s *Service) Backups(ctx context.Context) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, errNoBlobStore
	}
	return s.blobs.List(ctx, BackupPrefix)
}

// BackupDue reports whether no backup was taken within BackupInterval of now.
func (s *Service) BackupDue(ctx context.Context, now time.Time) (bool, error) {
	list, err := s.Backups(ctx)
	if err != nil {
		return false, err
	}
	for _, info := range list {
		if now.Sub(backupTime(info)) < BackupInterval {
			return false, nil
		}
	}
	return true, nil
}

// backupTime reads the stamp from the key and falls back to LastModified.
func backupTime(info blob.Info) time.Time {
	stamp := strings.TrimSuffix(strings.TrimPrefix(info.Key, BackupPrefix), ".json")
	if t, err := time.Parse(backupStamp, stamp); err == nil {
		return t
	}
	return info.LastModified
}
