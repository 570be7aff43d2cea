package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/blob"
	"exusiai.dev/crm-backup/internal/pkg/observability"
	"exusiai.dev/crm-backup/internal/store"
)

// Pruner keeps at most MaxBackups completed snapshots, across every backup type.
type Pruner struct {
	Backups    store.BackupStore
	Blob       blob.Store
	MaxBackups int
	Events     EventPublisher
}

// Prune deletes the oldest completed snapshots above the ceiling, blobs first
// and then metadata. Blobs that could not be removed are logged as orphans and
// their metadata is deleted anyway.
func (p *Pruner) Prune(ctx context.Context) ([]*model.Backup, error) {
	completed, err := p.Backups.ListCompletedBackups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list completed backups")
	}

	excess := len(completed) - p.MaxBackups
	if p.MaxBackups <= 0 || excess <= 0 {
		return nil, nil
	}
	victims := completed[:excess]
	paths := lo.Map(victims, func(b *model.Backup, _ int) string { return b.FilePath })

	if err := p.Blob.Remove(ctx, paths); err != nil {
		log.Warn().
			Str("evt.name", "retention.prune.orphaned").
			Strs("file_paths", paths).
			Err(err).
			Msg("failed to remove backup blobs, they are now orphaned")
	}

	ids := lo.Map(victims, func(b *model.Backup, _ int) string { return b.ID })
	if err := p.Backups.DeleteBackups(ctx, ids); err != nil {
		return nil, errors.Wrap(err, "failed to delete pruned backup records")
	}

	observability.RetentionPruned.Add(float64(len(victims)))
	log.Info().
		Str("evt.name", "retention.prune.completed").
		Int("pruned", len(victims)).
		Int("kept", p.MaxBackups).
		Strs("backup_ids", ids).
		Msg("pruned old backups")

	if p.Events != nil {
		p.Events.Publish(ctx, EventBackupPruned, PrunedEvent{BackupIDs: ids})
	}

	return victims, nil
}
