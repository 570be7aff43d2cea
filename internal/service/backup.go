package service

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/apierr"
	"exusiai.dev/crm-backup/internal/pkg/blob"
	"exusiai.dev/crm-backup/internal/store"
)

type CreateRequest struct {
	// BackupType is manual or scheduled. It is overridden by module when ModuleName is set.
	BackupType model.BackupType
	ModuleName string
	CreatedBy  string
}

// Backup is the entry point of the admin endpoints, the scheduler and the CLI.
type Backup struct {
	Catalog     *catalog.Catalog
	Backups     store.BackupStore
	Blob        blob.Store
	Snapshotter *Snapshotter
	Restorer    *Restorer
	Pruner      *Pruner
}

type BackupDeps struct {
	fx.In

	Config  *appconfig.Config
	Catalog *catalog.Catalog
	Rows    store.RowStore
	Tx      store.Transactor
	Backups store.BackupStore
	Blob    blob.Store
	Redsync *redsync.Redsync
	Events  EventPublisher
}

func NewBackup(deps BackupDeps) *Backup {
	conf := deps.Config
	return Assemble(Stores{
		Catalog: deps.Catalog,
		Rows:    deps.Rows,
		Tx:      deps.Tx,
		Backups: deps.Backups,
		Blob:    deps.Blob,
		Lock: deps.Redsync.NewMutex(constant.RestoreMutexName,
			redsync.WithExpiry(conf.RestoreLockExpiry),
			redsync.WithTries(1),
		),
		Events: deps.Events,
	}, Settings{
		PageSize:         conf.SnapshotPageSize,
		AbortOnReadError: conf.SnapshotReadErrorPolicy == appconfig.ReadErrorPolicyAbort,
		MaxBackups:       conf.MaxBackups,
		BatchSize:        conf.RestoreBatchSize,
		Atomic:           conf.RestoreAtomic,
	})
}

// Stores are the collaborators of Backup.
type Stores struct {
	Catalog *catalog.Catalog
	Rows    store.RowStore
	Tx      store.Transactor
	Backups store.BackupStore
	Blob    blob.Store
	Lock    store.Mutex
	Events  EventPublisher
}

type Settings struct {
	PageSize         int
	AbortOnReadError bool
	MaxBackups       int
	BatchSize        int
	Atomic           bool
}

// Assemble wires the builder, writer, pruner and restorer over s.
func Assemble(s Stores, set Settings) *Backup {
	if s.Events == nil {
		s.Events = NopEvents{}
	}

	pruner := &Pruner{
		Backups:    s.Backups,
		Blob:       s.Blob,
		MaxBackups: set.MaxBackups,
		Events:     s.Events,
	}
	snapshotter := &Snapshotter{
		Builder: &Builder{
			Rows:             s.Rows,
			Catalog:          s.Catalog,
			PageSize:         set.PageSize,
			AbortOnReadError: set.AbortOnReadError,
		},
		Writer: &Writer{
			Backups: s.Backups,
			Blob:    s.Blob,
			Catalog: s.Catalog,
		},
		Pruner: pruner,
		Events: s.Events,
	}

	return &Backup{
		Catalog:     s.Catalog,
		Backups:     s.Backups,
		Blob:        s.Blob,
		Snapshotter: snapshotter,
		Pruner:      pruner,
		Restorer: &Restorer{
			Backups:     s.Backups,
			Blob:        s.Blob,
			Rows:        s.Rows,
			Catalog:     s.Catalog,
			Snapshotter: snapshotter,
			Lock:        s.Lock,
			Events:      s.Events,
			BatchSize:   set.BatchSize,
			Tx:          s.Tx,
			Atomic:      set.Atomic,
		},
	}
}

func (s *Backup) Create(ctx context.Context, req CreateRequest) (*model.Backup, error) {
	spec := SnapshotSpec{
		Type:      req.BackupType,
		CreatedBy: req.CreatedBy,
	}
	if spec.Type == "" {
		spec.Type = model.BackupTypeManual
	}
	if spec.Type != model.BackupTypeManual && spec.Type != model.BackupTypeScheduled {
		return nil, apierr.ErrInvalidReq.Msg("backupType must be manual or scheduled")
	}

	tables := s.Catalog.FullTableSet()
	if req.ModuleName != "" {
		moduleTables, ok := s.Catalog.ModuleTables(req.ModuleName)
		if !ok {
			return nil, apierr.ErrInvalidReq.Msg("unknown module %q", req.ModuleName)
		}
		tables = moduleTables
		spec.Type = model.BackupTypeModule
		spec.ModuleName = req.ModuleName
	}

	return s.Snapshotter.Snapshot(ctx, spec, tables)
}

func (s *Backup) Restore(ctx context.Context, id string, userID string) (*RestoreResult, error) {
	return s.Restorer.Restore(ctx, id, userID)
}

func (s *Backup) List(ctx context.Context, status model.BackupStatus) ([]*model.Backup, error) {
	return s.Backups.ListBackups(ctx, status)
}

func (s *Backup) Get(ctx context.Context, id string) (*model.Backup, error) {
	return s.Backups.GetBackupByID(ctx, id)
}

// Delete removes the blob then the metadata of a finished backup. Records left
// in_progress for longer than constant.StaleBackupAge count as finished.
func (s *Backup) Delete(ctx context.Context, id string) error {
	meta, err := s.Backups.GetBackupByID(ctx, id)
	if err != nil {
		return err
	}
	if meta.Status == model.BackupStatusInProgress && time.Since(meta.CreatedAt) < constant.StaleBackupAge {
		return apierr.ErrConflict.Msg("backup %s is still in progress", id)
	}

	if err := s.Blob.Remove(ctx, []string{meta.FilePath}); err != nil {
		return errors.Wrap(err, "failed to remove backup file")
	}
	if err := s.Backups.DeleteBackups(ctx, []string{id}); err != nil {
		return errors.Wrap(err, "failed to delete backup record")
	}

	log.Info().
		Str("evt.name", "backup.delete.completed").
		Str("backup_id", id).
		Str("file_path", meta.FilePath).
		Msg("backup deleted")
	return nil
}

func (s *Backup) Prune(ctx context.Context) ([]*model.Backup, error) {
	return s.Pruner.Prune(ctx)
}

type ModuleInfo struct {
	Name   string   `json:"name"`
	Tables []string `json:"tables"`
}

func (s *Backup) Modules() []ModuleInfo {
	modules := s.Catalog.Modules()
	out := make([]ModuleInfo, 0, len(modules))
	for _, m := range modules {
		tables, _ := s.Catalog.ModuleTables(m)
		out = append(out, ModuleInfo{Name: m, Tables: tables})
	}
	return out
}
