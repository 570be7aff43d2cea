package app

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"exusiai.dev/crm-backup/cmd/app/cli/backupcmd"
	"exusiai.dev/crm-backup/cmd/app/cli/migrate"
	"exusiai.dev/crm-backup/cmd/app/server"
	"exusiai.dev/crm-backup/internal/pkg/bininfo"
)

func Run() {
	app := &cli.App{
		Name:        "crmbackup",
		Description: "Snapshot and restore service for the CRM tables. Built with Go, fiber, bun and go.uber.org/fx. Stores payloads in S3-compatible blob storage and uses Redis for the restore lock.",
		Version:     bininfo.Version,
		Commands: []*cli.Command{
			server.Command(),
			backupcmd.Command(),
			migrate.Command(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run app")
	}
}
