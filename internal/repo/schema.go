package repo

import (
	"context"

	"github.com/uptrace/bun"

	"exusiai.dev/crm-backup/internal/model"
)

type Schema struct {
	db *bun.DB
}

func NewSchema(db *bun.DB) *Schema {
	return &Schema{db: db}
}

// Migrate creates the control tables used by the backup subsystem when they do
// not exist yet. CRM tables themselves are owned by the CRM schema.
func (s *Schema) Migrate(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range []any{(*model.Backup)(nil), (*model.UserRole)(nil)} {
			if _, err := tx.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewCreateIndex().
			Model((*model.Backup)(nil)).
			Index("backups_status_created_at_idx").
			IfNotExists().
			Column("status", "created_at").
			Exec(ctx)
		return err
	})
}
