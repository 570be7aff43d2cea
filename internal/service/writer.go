package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
	"gopkg.in/guregu/null.v3"

	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/blob"
	"exusiai.dev/crm-backup/internal/pkg/observability"
	"exusiai.dev/crm-backup/internal/store"
)

// ErrUpstreamWrite is wrapped around blob upload failures.
var ErrUpstreamWrite = errors.New("blob upload failed")

type SnapshotSpec struct {
	Type       model.BackupType
	ModuleName string
	CreatedBy  string
}

type Writer struct {
	Backups store.BackupStore
	Blob    blob.Store
	Catalog *catalog.Catalog

	// Now defaults to time.Now.
	Now func() time.Time
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

// FileName returns the blob file name of snapshot id taken at t. The id keeps
// names unique when one creator starts two snapshots within a millisecond.
func FileName(spec SnapshotSpec, t time.Time, id string) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(t.UTC().Format(constant.BackupTimestampLayout))
	switch {
	case spec.Type == model.BackupTypePreRestore:
		return fmt.Sprintf("pre_restore_%s_%s.json", ts, id)
	case spec.ModuleName != "":
		return fmt.Sprintf("backup_%s_%s_%s.json", ts, spec.ModuleName, id)
	default:
		return fmt.Sprintf("backup_%s_%s.json", ts, id)
	}
}

// Begin records a new in_progress snapshot.
func (w *Writer) Begin(ctx context.Context, spec SnapshotSpec) (*model.Backup, error) {
	now := w.now()
	id := strings.ToLower(ulid.Make().String())
	fileName := FileName(spec, now, id)
	meta := &model.Backup{
		ID:         id,
		FileName:   fileName,
		FilePath:   spec.CreatedBy + "/" + fileName,
		BackupType: spec.Type,
		ModuleName: null.NewString(spec.ModuleName, spec.ModuleName != ""),
		Status:     model.BackupStatusInProgress,
		Manifest:   model.Manifest{},
		CreatedAt:  now,
		CreatedBy:  spec.CreatedBy,
	}
	if err := w.Backups.CreateBackup(ctx, meta); err != nil {
		return nil, errors.Wrap(err, "failed to create backup record")
	}

	log.Info().
		Str("evt.name", "backup.create.started").
		Str("backup_id", meta.ID).
		Str("backup_type", string(meta.BackupType)).
		Str("file_path", meta.FilePath).
		Msg("backup started")

	return meta, nil
}

// Commit serializes snap, uploads it to meta.FilePath and marks meta completed.
// A failed upload marks meta failed and returns an error wrapping ErrUpstreamWrite.
func (w *Writer) Commit(ctx context.Context, meta *model.Backup, snap *Snapshot) error {
	started := time.Now()
	payload := model.NewPayload(meta, w.Catalog.InsertOrder(), snap.Data)
	b, err := payload.Marshal()
	if err != nil {
		err = errors.Wrap(err, "failed to serialize payload")
		w.Fail(ctx, meta, err)
		return err
	}

	if err := w.Blob.Put(ctx, meta.FilePath, b, blob.ContentTypeJSON); err != nil {
		err = errors.Wrapf(ErrUpstreamWrite, "%s: %v", meta.FilePath, err)
		w.Fail(ctx, meta, err)
		return err
	}

	meta.SizeBytes = int64(len(b))
	meta.TablesCount = len(payload.Tables)
	meta.RecordsCount = payload.Manifest.Records()
	meta.Manifest = payload.Manifest
	meta.Checksum = null.StringFrom(Checksum(b))
	meta.Status = model.BackupStatusCompleted
	meta.CompletedAt = null.TimeFrom(w.now())
	if err := w.Backups.UpdateBackup(ctx, meta); err != nil {
		err = errors.Wrap(err, "failed to mark backup completed")
		w.discard(ctx, meta)
		meta.Checksum = null.String{}
		w.Fail(ctx, meta, err)
		return err
	}

	backupType := string(meta.BackupType)
	observability.SnapshotWriteDuration.WithLabelValues(backupType).Observe(time.Since(started).Seconds())
	observability.SnapshotSizeBytes.WithLabelValues(backupType).Observe(float64(meta.SizeBytes))

	log.Info().
		Str("evt.name", "backup.create.completed").
		Str("backup_id", meta.ID).
		Str("backup_type", backupType).
		Int("tables", meta.TablesCount).
		Int("records", meta.RecordsCount).
		Int64("size_bytes", meta.SizeBytes).
		Msg("backup completed")

	return nil
}

// discard removes the uploaded blob of a snapshot that will not be completed.
func (w *Writer) discard(ctx context.Context, meta *model.Backup) {
	if err := w.Blob.Remove(context.WithoutCancel(ctx), []string{meta.FilePath}); err != nil {
		log.Warn().
			Str("evt.name", "backup.create.orphaned").
			Str("backup_id", meta.ID).
			Str("file_path", meta.FilePath).
			Err(err).
			Msg("failed to remove blob of unfinished backup")
	}
}

// Fail marks meta failed with cause. The original error is what callers return,
// so a failure to update the record is only logged.
func (w *Writer) Fail(ctx context.Context, meta *model.Backup, cause error) {
	meta.Status = model.BackupStatusFailed
	meta.ErrorMessage = null.StringFrom(cause.Error())
	meta.CompletedAt = null.TimeFrom(w.now())

	log.Error().
		Str("evt.name", "backup.create.failed").
		Str("backup_id", meta.ID).
		Str("backup_type", string(meta.BackupType)).
		Err(cause).
		Msg("backup failed")

	if err := w.Backups.UpdateBackup(context.WithoutCancel(ctx), meta); err != nil {
		log.Error().
			Str("evt.name", "backup.create.mark_failed").
			Str("backup_id", meta.ID).
			Err(err).
			Msg("failed to mark backup as failed")
	}
}

// Checksum is the hex xxh3-64 digest of b.
func Checksum(b []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}
