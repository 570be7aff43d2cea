package service

import (
	"bytes"
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/apierr"
	"exusiai.dev/crm-backup/internal/pkg/blob"
	"exusiai.dev/crm-backup/internal/pkg/observability"
	"exusiai.dev/crm-backup/internal/store"
)

const (
	PhaseClear      = "clear"
	PhaseRepopulate = "repopulate"
)

type TableFailure struct {
	Table string `json:"table"`
	Phase string `json:"phase"`
	Error string `json:"error"`
}

type RestoreResult struct {
	BackupID        string
	RestoredTables  []string
	RestoredRecords int
	SafetyBackup    *model.Backup
	FailedTables    []TableFailure
}

type Restorer struct {
	Backups     store.BackupStore
	Blob        blob.Store
	Rows        store.RowStore
	Catalog     *catalog.Catalog
	Snapshotter *Snapshotter
	Lock        store.Mutex
	Events      EventPublisher

	BatchSize int

	// Tx, when set together with Atomic, runs clear and repopulate in one
	// transaction that is rolled back on the first table failure.
	Tx     store.Transactor
	Atomic bool
}

// Restore replaces the content of the tables captured by backup id with the
// captured rows, after taking a pre_restore safety snapshot of those tables.
func (r *Restorer) Restore(ctx context.Context, id string, userID string) (result *RestoreResult, err error) {
	started := time.Now()
	defer func() {
		outcome := "completed"
		if err != nil {
			outcome = "failed"
		} else if len(result.FailedTables) > 0 {
			outcome = "partial"
		}
		observability.RestoreDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	}()

	if err := r.Lock.LockContext(ctx); err != nil {
		if lockTaken(err) {
			return nil, apierr.ErrConflict.Msg("a restore is already in progress")
		}
		return nil, errors.Wrap(err, "failed to acquire restore lock")
	}
	defer func() {
		if _, err := r.Lock.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Str("evt.name", "restore.unlock").Err(err).Msg("failed to release restore lock")
		}
	}()

	meta, err := r.Backups.GetBackupByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !meta.Completed() {
		return nil, apierr.ErrInvalidReq.Msg("backup %s is %s and cannot be restored", meta.ID, meta.Status)
	}

	payload, err := r.fetch(ctx, meta)
	if err != nil {
		return nil, err
	}

	logger := log.With().
		Str("backup_id", meta.ID).
		Str("user_id", userID).
		Logger()
	logger.Info().
		Str("evt.name", "restore.started").
		Strs("tables", payload.Tables).
		Int("records", payload.Manifest.Records()).
		Msg("restore started")

	safety, err := r.Snapshotter.Snapshot(ctx, SnapshotSpec{
		Type:      model.BackupTypePreRestore,
		CreatedBy: userID,
	}, payload.Tables)
	if err != nil {
		return nil, errors.Wrap(err, "safety snapshot failed, restore aborted before any change")
	}
	logger.Info().
		Str("evt.name", "restore.safety.completed").
		Str("safety_backup_id", safety.ID).
		Int("records", safety.RecordsCount).
		Msg("safety snapshot taken")

	result = &RestoreResult{BackupID: meta.ID, SafetyBackup: safety}
	if r.Atomic && r.Tx != nil {
		err = r.Tx.RunInTx(ctx, func(ctx context.Context, rows store.RowStore) error {
			out, err := r.apply(ctx, rows, payload, true)
			if err != nil {
				return err
			}
			result.RestoredTables, result.RestoredRecords = out.RestoredTables, out.RestoredRecords
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "restore rolled back, safety backup %s is intact", safety.ID)
		}
	} else {
		out, err := r.apply(ctx, r.Rows, payload, false)
		if err != nil {
			return nil, err
		}
		result.RestoredTables, result.RestoredRecords, result.FailedTables = out.RestoredTables, out.RestoredRecords, out.FailedTables
	}

	logger.Info().
		Str("evt.name", "restore.completed").
		Strs("restored_tables", result.RestoredTables).
		Int("restored_records", result.RestoredRecords).
		Int("failed_tables", len(result.FailedTables)).
		Dur("took", time.Since(started)).
		Msg("restore completed")

	if r.Events != nil {
		r.Events.Publish(ctx, EventRestoreCompleted, RestoreEvent{
			BackupID:        meta.ID,
			SafetyBackupID:  safety.ID,
			RestoredTables:  result.RestoredTables,
			RestoredRecords: result.RestoredRecords,
			FailedTables:    lo.Map(result.FailedTables, func(f TableFailure, _ int) string { return f.Table }),
		})
	}

	return result, nil
}

func (r *Restorer) fetch(ctx context.Context, meta *model.Backup) (*model.Payload, error) {
	b, err := r.Blob.Get(ctx, meta.FilePath)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, apierr.ErrNotFound.Msg("backup file %s is missing from the blob store", meta.FilePath)
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to fetch backup file")
	}

	if meta.Checksum.Valid && Checksum(b) != meta.Checksum.String {
		return nil, apierr.ErrInvalidFormat.Msg("backup file %s does not match its recorded checksum", meta.FilePath)
	}

	payload, err := model.DecodePayload(bytes.TrimSpace(b))
	if err != nil {
		return nil, apierr.ErrInvalidFormat.Msg("backup file %s: %s", meta.FilePath, err.Error())
	}
	return payload, nil
}

type applyResult struct {
	RestoredTables  []string
	RestoredRecords int
	FailedTables    []TableFailure
}

// apply clears then repopulates the payload tables. Tables unknown to the
// catalog are cleared first and repopulated last. With stopOnError the first
// table failure is returned; otherwise failures are collected and the loop goes on.
func (r *Restorer) apply(ctx context.Context, rows store.RowStore, payload *model.Payload, stopOnError bool) (*applyResult, error) {
	inPayload := lo.SliceToMap(payload.Tables, func(t string) (string, struct{}) { return t, struct{}{} })
	leftovers := lo.Filter(payload.Tables, func(t string, _ int) bool { return !r.Catalog.Has(t) })
	clearOrder := append(append([]string(nil), leftovers...), lo.Filter(r.Catalog.DeleteOrder(), func(t string, _ int) bool {
		_, ok := inPayload[t]
		return ok
	})...)
	insertOrder := append(lo.Filter(r.Catalog.InsertOrder(), func(t string, _ int) bool {
		_, ok := inPayload[t]
		return ok
	}), leftovers...)

	out := &applyResult{}
	failed := make(map[string]struct{})
	fail := func(table, phase string, err error) error {
		observability.RestoreTableFailures.WithLabelValues(table).Inc()
		log.Error().
			Str("evt.name", "restore."+phase+".failed").
			Str("table", table).
			Err(err).
			Msg("restore step failed")
		if stopOnError {
			return errors.Wrapf(err, "%s %s", phase, table)
		}
		failed[table] = struct{}{}
		out.FailedTables = append(out.FailedTables, TableFailure{Table: table, Phase: phase, Error: err.Error()})
		return nil
	}

	for _, table := range clearOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := rows.DeleteAll(ctx, table)
		if err != nil {
			if err := fail(table, PhaseClear, err); err != nil {
				return nil, err
			}
			continue
		}
		log.Debug().Str("evt.name", "restore.clear").Str("table", table).Int64("deleted", n).Msg("table cleared")
	}

	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	for _, table := range insertOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pk := r.Catalog.PrimaryKey(table)
		written := 0
		var upsertErr error
		for _, batch := range lo.Chunk(payload.Data[table], batchSize) {
			if err := rows.Upsert(ctx, table, pk, batch); err != nil {
				upsertErr = err
				break
			}
			written += len(batch)
		}
		if upsertErr != nil {
			if err := fail(table, PhaseRepopulate, upsertErr); err != nil {
				return nil, err
			}
			continue
		}
		log.Debug().Str("evt.name", "restore.repopulate").Str("table", table).Int("rows", written).Msg("table repopulated")

		if _, bad := failed[table]; !bad {
			out.RestoredTables = append(out.RestoredTables, table)
			out.RestoredRecords += written
		}
	}

	return out, nil
}

// lockTaken tells a held lock apart from redis failures. redsync reports the
// taken errors by value or by pointer depending on the release.
func lockTaken(err error) bool {
	var (
		taken        redsync.ErrTaken
		takenPtr     *redsync.ErrTaken
		nodeTaken    redsync.ErrNodeTaken
		nodeTakenPtr *redsync.ErrNodeTaken
	)
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) || errors.As(err, &takenPtr) ||
		errors.As(err, &nodeTaken) || errors.As(err, &nodeTakenPtr)
}
