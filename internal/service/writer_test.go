package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/memstore"
)

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 7, 1, 250_000_000, time.UTC)
	const id = "01hrxk3m5t"

	assert.Equal(t, "backup_2024-03-09T14-07-01-250Z_01hrxk3m5t.json",
		FileName(SnapshotSpec{Type: model.BackupTypeManual}, at, id))
	assert.Equal(t, "backup_2024-03-09T14-07-01-250Z_leads_01hrxk3m5t.json",
		FileName(SnapshotSpec{Type: model.BackupTypeModule, ModuleName: "leads"}, at, id))
	assert.Equal(t, "pre_restore_2024-03-09T14-07-01-250Z_01hrxk3m5t.json",
		FileName(SnapshotSpec{Type: model.BackupTypePreRestore}, at, id))
	assert.Equal(t, "backup_2024-03-09T14-07-01-250Z_01hrxk3m5t.json",
		FileName(SnapshotSpec{Type: model.BackupTypeManual}, at.In(time.FixedZone("UTC+8", 8*3600)), id))
}

func TestSameInstantSnapshotsGetDistinctFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	at := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	f.svc.Snapshotter.Writer.Now = func() time.Time { return at }
	f.rows.Seed("contacts", rowsWithIDs(1)...)

	a, err := f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)
	f.rows.Seed("contacts", rowsWithIDs(1, 2)...)
	b, err := f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)

	assert.NotEqual(t, a.FilePath, b.FilePath)
	assert.Len(t, f.blob.Keys(), 2)

	// the first snapshot still resolves to its own content
	payload := loadPayload(t, f, a)
	assert.Len(t, payload.Data["contacts"], 1)
}

func TestWriterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	w := f.svc.Snapshotter.Writer

	meta, err := w.Begin(ctx, SnapshotSpec{Type: model.BackupTypeManual, CreatedBy: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, model.BackupStatusInProgress, meta.Status)
	assert.Equal(t, "u-1/"+meta.FileName, meta.FilePath)

	stored, err := f.backups.GetBackupByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BackupStatusInProgress, stored.Status)

	snap := &Snapshot{Data: map[string][]model.Row{
		"leads":    {},
		"contacts": rowsWithIDs(1, 2, 3),
	}}
	require.NoError(t, w.Commit(ctx, meta, snap))

	stored, err = f.backups.GetBackupByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BackupStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.TablesCount)
	assert.Equal(t, 3, stored.RecordsCount)
	assert.Equal(t, model.Manifest{"leads": 0, "contacts": 3}, stored.Manifest)
	assert.True(t, stored.CompletedAt.Valid)

	raw, err := f.blob.Get(ctx, stored.FilePath)
	require.NoError(t, err)
	assert.EqualValues(t, len(raw), stored.SizeBytes)
	assert.Equal(t, Checksum(raw), stored.Checksum.String)

	payload := loadPayload(t, f, stored)
	assert.Equal(t, stored.Manifest, payload.Manifest)
	// parents come first in the payload table list
	assert.Equal(t, []string{"contacts", "leads"}, payload.Tables)
	assert.Equal(t, "u-1", payload.CreatedBy)
}

func TestWriterCommitUploadFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	f.blob.PutErr = errors.New("access denied")
	w := f.svc.Snapshotter.Writer

	meta, err := w.Begin(ctx, SnapshotSpec{Type: model.BackupTypeManual, CreatedBy: "u-1"})
	require.NoError(t, err)

	err = w.Commit(ctx, meta, &Snapshot{Data: map[string][]model.Row{"contacts": rowsWithIDs(1)}})
	assert.ErrorIs(t, err, ErrUpstreamWrite)

	stored, err := f.backups.GetBackupByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BackupStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage.String, "access denied")
	assert.False(t, stored.Checksum.Valid)
	assert.Empty(t, f.blob.Keys())
}

// failingCompletion rejects the update that marks a backup completed.
type failingCompletion struct {
	*memstore.Backups
}

func (s failingCompletion) UpdateBackup(ctx context.Context, b *model.Backup) error {
	if b.Status == model.BackupStatusCompleted {
		return errors.New("transient db error")
	}
	return s.Backups.UpdateBackup(ctx, b)
}

func TestWriterCommitCompletionFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	w := f.svc.Snapshotter.Writer
	w.Backups = failingCompletion{Backups: f.backups}

	meta, err := w.Begin(ctx, SnapshotSpec{Type: model.BackupTypeManual, CreatedBy: "u-1"})
	require.NoError(t, err)

	err = w.Commit(ctx, meta, &Snapshot{Data: map[string][]model.Row{"contacts": rowsWithIDs(1)}})
	assert.ErrorContains(t, err, "transient db error")

	stored, err := f.backups.GetBackupByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BackupStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage.String, "failed to mark backup completed")
	assert.False(t, stored.Checksum.Valid)
	assert.Empty(t, f.blob.Keys(), "the uploaded blob is removed")

	require.NoError(t, f.svc.Delete(ctx, meta.ID))
}
