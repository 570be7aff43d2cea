// Package store declares the persistence contracts the backup services depend on.
package store

import (
	"context"

	"exusiai.dev/crm-backup/internal/model"
)

// RowStore reads and writes rows of arbitrary catalog tables.
type RowStore interface {
	// SelectRange returns up to r.Limit rows of table starting at r.Offset,
	// ordered by r.OrderBy ascending.
	SelectRange(ctx context.Context, table string, r model.Range) ([]model.Row, error)

	// DeleteAll removes every row of table and returns the number removed.
	DeleteAll(ctx context.Context, table string) (int64, error)

	// Upsert inserts rows into table, overwriting rows whose conflictKey already exists.
	Upsert(ctx context.Context, table string, conflictKey string, rows []model.Row) error
}

// Transactor runs fn against a RowStore bound to a single transaction. The
// transaction is rolled back when fn returns an error.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, rows RowStore) error) error
}

// BackupStore persists backup metadata records.
type BackupStore interface {
	CreateBackup(ctx context.Context, b *model.Backup) error
	UpdateBackup(ctx context.Context, b *model.Backup) error

	// GetBackupByID returns apierr.ErrNotFound when no record has the id.
	GetBackupByID(ctx context.Context, id string) (*model.Backup, error)

	// ListBackups returns records newest first. An empty status lists all of them.
	ListBackups(ctx context.Context, status model.BackupStatus) ([]*model.Backup, error)

	// ListCompletedBackups returns completed records oldest first.
	ListCompletedBackups(ctx context.Context) ([]*model.Backup, error)

	DeleteBackups(ctx context.Context, ids []string) error
}

type RoleStore interface {
	GetRolesByUserID(ctx context.Context, userID string) ([]string, error)
}

// Mutex is a distributed lock. *redsync.Mutex satisfies it.
type Mutex interface {
	LockContext(ctx context.Context) error
	UnlockContext(ctx context.Context) (bool, error)
}
