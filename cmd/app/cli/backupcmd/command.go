package backupcmd

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	cliapp "exusiai.dev/crm-backup/cmd/app/cli"
	"exusiai.dev/crm-backup/internal/service"
)

type CommandDeps struct {
	fx.In

	BackupService *service.Backup
}

func Command() *cli.Command {
	depsFn := cliapp.DepsFn[CommandDeps]()

	return &cli.Command{
		Name:  "backup",
		Usage: "create, restore, prune or list backups without going through the HTTP API",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "take a snapshot of every catalog table, or of one module",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "module to snapshot; empty for a full backup"},
					&cli.StringFlag{Name: "type", Value: "manual", Usage: "manual or scheduled"},
					&cli.StringFlag{Name: "created-by", Value: "", Usage: "creator recorded on the backup (defaults to system)"},
				},
				Action: func(c *cli.Context) error {
					deps, stop := depsFn()
					defer stop()
					return create(c, deps)
				},
			},
			{
				Name:      "restore",
				Usage:     "restore the tables of a backup, after taking a safety snapshot",
				ArgsUsage: "<backup-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Value: "", Usage: "user recorded on the safety snapshot (defaults to system)"},
				},
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return cli.Exit("expected exactly one backup id", 2)
					}
					deps, stop := depsFn()
					defer stop()
					return restore(c, deps)
				},
			},
			{
				Name:  "prune",
				Usage: "delete the oldest completed backups above the retention limit",
				Action: func(c *cli.Context) error {
					deps, stop := depsFn()
					defer stop()
					return prune(c, deps)
				},
			},
			{
				Name:  "list",
				Usage: "list backups, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "in_progress, completed or failed"},
				},
				Action: func(c *cli.Context) error {
					deps, stop := depsFn()
					defer stop()
					return list(c, deps)
				},
			},
		},
	}
}
