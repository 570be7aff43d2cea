package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/guregu/null.v3"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/observability"
)

// Snapshotter runs the whole creation path: record, build, upload, prune.
type Snapshotter struct {
	Builder *Builder
	Writer  *Writer
	Pruner  *Pruner
	Events  EventPublisher
}

// Snapshot captures tables into a new snapshot. Safety snapshots taken before a
// restore always abort on read errors, whatever the configured policy.
// Pruning failures are logged and do not fail the snapshot.
func (s *Snapshotter) Snapshot(ctx context.Context, spec SnapshotSpec, tables []string) (*model.Backup, error) {
	backupType := string(spec.Type)

	meta, err := s.Writer.Begin(ctx, spec)
	if err != nil {
		observability.SnapshotResult.WithLabelValues(backupType, "failed").Inc()
		return nil, err
	}

	started := time.Now()
	abort := s.Builder.AbortOnReadError || spec.Type == model.BackupTypePreRestore
	snap, err := s.Builder.Build(ctx, tables, abort)
	if err != nil {
		s.Writer.Fail(ctx, meta, err)
		s.publish(ctx, EventBackupFailed, meta)
		observability.SnapshotResult.WithLabelValues(backupType, "failed").Inc()
		return nil, err
	}
	observability.SnapshotBuildDuration.WithLabelValues(backupType).Observe(time.Since(started).Seconds())

	if len(snap.Truncated) > 0 {
		meta.Warning = null.StringFrom(fmt.Sprintf("truncated tables after read errors: %s", strings.Join(snap.Truncated, ", ")))
	}

	if err := s.Writer.Commit(ctx, meta, snap); err != nil {
		s.publish(ctx, EventBackupFailed, meta)
		observability.SnapshotResult.WithLabelValues(backupType, "failed").Inc()
		return nil, err
	}
	observability.SnapshotResult.WithLabelValues(backupType, "completed").Inc()
	s.publish(ctx, EventBackupCompleted, meta)

	if s.Pruner != nil {
		if _, err := s.Pruner.Prune(ctx); err != nil {
			log.Error().
				Str("evt.name", "retention.prune.failed").
				Str("backup_id", meta.ID).
				Err(err).
				Msg("retention pruning failed after backup")
		}
	}

	return meta, nil
}

func (s *Snapshotter) publish(ctx context.Context, event string, meta *model.Backup) {
	if s.Events != nil {
		s.Events.Publish(ctx, event, NewBackupEvent(meta))
	}
}
