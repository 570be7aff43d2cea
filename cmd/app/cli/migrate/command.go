package migrate

import (
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	cliapp "exusiai.dev/crm-backup/cmd/app/cli"
	"exusiai.dev/crm-backup/internal/repo"
)

type CommandDeps struct {
	fx.In

	Schema *repo.Schema
}

func Command() *cli.Command {
	depsFn := cliapp.DepsFn[CommandDeps]()

	return &cli.Command{
		Name:  "migrate",
		Usage: "create the backups and user_roles control tables if missing",
		Action: func(c *cli.Context) error {
			deps, stop := depsFn()
			defer stop()

			if err := deps.Schema.Migrate(c.Context); err != nil {
				return err
			}
			log.Info().Str("evt.name", "cli.migrate.completed").Msg("control tables are up to date")
			return nil
		},
	}
}
