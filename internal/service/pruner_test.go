package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/blob"
)

type failingRemove struct {
	*blob.Memory
}

func (failingRemove) Remove(context.Context, []string) error {
	return errors.New("bucket unavailable")
}

func TestRetentionCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{maxBackups: 3})
	f.rows.Seed("contacts", seqRows(2)...)

	var created []*model.Backup
	for i := 0; i < 5; i++ {
		b, err := f.svc.Create(ctx, CreateRequest{BackupType: model.BackupTypeManual, CreatedBy: "admin"})
		require.NoError(t, err)
		created = append(created, b)
	}

	completed, err := f.backups.ListCompletedBackups(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 3)
	for i, b := range completed {
		assert.Equal(t, created[i+2].ID, b.ID, "the newest backups are kept")
	}

	assert.Len(t, f.blob.Keys(), 3)
	for _, b := range created[:2] {
		_, err := f.blob.Get(ctx, b.FilePath)
		assert.ErrorIs(t, err, blob.ErrNotFound)
	}
	assert.Contains(t, f.events.Names(), EventBackupPruned)
}

func TestPruneIgnoresFailedBackups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{maxBackups: 1})

	for i := 0; i < 3; i++ {
		require.NoError(t, f.backups.CreateBackup(ctx, &model.Backup{
			ID:       fmt.Sprintf("failed-%d", i),
			FilePath: fmt.Sprintf("admin/failed-%d.json", i),
			Status:   model.BackupStatusFailed,
		}))
	}

	_, err := f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)

	all := f.backups.All()
	statuses := map[model.BackupStatus]int{}
	for _, b := range all {
		statuses[b.Status]++
	}
	assert.Equal(t, 1, statuses[model.BackupStatusCompleted])
	assert.Equal(t, 3, statuses[model.BackupStatusFailed])
}

func TestPruneDeletesMetadataWhenBlobRemovalFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{maxBackups: 5})
	for i := 0; i < 4; i++ {
		_, err := f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
		require.NoError(t, err)
	}

	p := &Pruner{Backups: f.backups, Blob: failingRemove{f.blob}, MaxBackups: 2}
	pruned, err := p.Prune(ctx)
	require.NoError(t, err)
	assert.Len(t, pruned, 2)

	completed, err := f.backups.ListCompletedBackups(ctx)
	require.NoError(t, err)
	assert.Len(t, completed, 2)
	// orphaned blobs stay behind
	assert.Len(t, f.blob.Keys(), 4)
}

func TestPruneBelowCeilingIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{maxBackups: 30})
	_, err := f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)

	pruned, err := f.svc.Prune(ctx)
	require.NoError(t, err)
	assert.Empty(t, pruned)
}
