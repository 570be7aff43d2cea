package repo

import (
	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/store"
)

func Module() fx.Option {
	return fx.Module("repo", fx.Provide(
		NewSchema,
		fx.Annotate(NewTable, fx.As(new(store.RowStore)), fx.As(new(store.Transactor))),
		fx.Annotate(NewBackup, fx.As(new(store.BackupStore))),
		fx.Annotate(NewRole, fx.As(new(store.RoleStore))),
	))
}
