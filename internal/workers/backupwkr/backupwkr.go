package backupwkr

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/observability"
	"exusiai.dev/crm-backup/internal/service"
)

type Creator interface {
	Create(ctx context.Context, req service.CreateRequest) (*model.Backup, error)
}

type WorkerDeps struct {
	fx.In

	BackupService *service.Backup
}

type Worker struct {
	// count counts scheduled backups attempted so far
	count int

	// interval describes the interval in-between scheduled backups
	interval time.Duration

	creator Creator
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

func New(creator Creator, interval time.Duration) *Worker {
	return &Worker{
		interval: interval,
		creator:  creator,
	}
}

// Start runs the scheduler for the lifetime of the fx app when SchedulerEnabled.
func Start(conf *appconfig.Config, deps WorkerDeps, lc fx.Lifecycle) {
	if !conf.SchedulerEnabled || !conf.AppContext.Serving() {
		return
	}

	w := New(deps.BackupService, conf.SchedulerInterval)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.stop()
			return nil
		},
	})
}

func (w *Worker) run() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done.Add(1)

	go func() {
		defer w.done.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		log.Info().
			Str("evt.name", "worker.backup.started").
			Dur("interval", w.interval).
			Msg("scheduled backup worker started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = w.RunOnce(ctx)
			}
		}
	}()
}

func (w *Worker) stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.done.Wait()
}

// RunOnce takes one scheduled full backup.
func (w *Worker) RunOnce(ctx context.Context) error {
	w.count++
	start := time.Now()

	meta, err := w.creator.Create(ctx, service.CreateRequest{
		BackupType: model.BackupTypeScheduled,
		CreatedBy:  constant.ScheduledBackupCreator,
	})
	observability.WorkerBackupDuration.Set(time.Since(start).Seconds())
	if err != nil {
		log.Error().
			Err(err).
			Str("evt.name", "worker.backup.failed").
			Int("count", w.count).
			Msg("scheduled backup failed")
		return err
	}

	observability.WorkerBackupLastSuccess.SetToCurrentTime()
	log.Info().
		Str("evt.name", "worker.backup.completed").
		Int("count", w.count).
		Str("backup_id", meta.ID).
		Int("records", meta.RecordsCount).
		Msg("scheduled backup finished")
	return nil
}

func (w *Worker) Count() int {
	return w.count
}
