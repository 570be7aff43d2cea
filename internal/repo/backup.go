package repo

import (
	"context"

	"github.com/uptrace/bun"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/repo/selector"
)

type Backup struct {
	db *bun.DB

	sel selector.S[model.Backup]
}

func NewBackup(db *bun.DB) *Backup {
	return &Backup{
		db:  db,
		sel: selector.New[model.Backup](db),
	}
}

func (r *Backup) CreateBackup(ctx context.Context, b *model.Backup) error {
	_, err := r.db.NewInsert().
		Model(b).
		Exec(ctx)
	return err
}

func (r *Backup) UpdateBackup(ctx context.Context, b *model.Backup) error {
	_, err := r.db.NewUpdate().
		Model(b).
		ExcludeColumn("created_at", "created_by").
		WherePK().
		Exec(ctx)
	return err
}

func (r *Backup) GetBackupByID(ctx context.Context, id string) (*model.Backup, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

func (r *Backup) ListBackups(ctx context.Context, status model.BackupStatus) ([]*model.Backup, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Order("created_at DESC", "id DESC")
	})
}

func (r *Backup) ListCompletedBackups(ctx context.Context) ([]*model.Backup, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("status = ?", model.BackupStatusCompleted).
			Order("created_at ASC", "id ASC")
	})
}

func (r *Backup) DeleteBackups(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewDelete().
		Model((*model.Backup)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}
