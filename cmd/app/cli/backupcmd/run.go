package backupcmd

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/service"
)

func create(c *cli.Context, deps CommandDeps) error {
	meta, err := deps.BackupService.Create(c.Context, service.CreateRequest{
		BackupType: model.BackupType(c.String("type")),
		ModuleName: c.String("module"),
		CreatedBy:  lo.Ternary(c.String("created-by") == "", constant.ScheduledBackupCreator, c.String("created-by")),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	log.Info().
		Str("evt.name", "cli.backup.created").
		Str("backup_id", meta.ID).
		Msg("backup created")
	return printJSON(c.App.Writer, meta)
}

func restore(c *cli.Context, deps CommandDeps) error {
	user := lo.Ternary(c.String("user") == "", constant.ScheduledBackupCreator, c.String("user"))
	result, err := deps.BackupService.Restore(c.Context, c.Args().First(), user)
	if err != nil {
		return errors.Wrap(err, "failed to restore backup")
	}

	if len(result.FailedTables) > 0 {
		log.Warn().
			Str("evt.name", "cli.backup.restore.partial").
			Interface("failed_tables", result.FailedTables).
			Msg("some tables were not restored")
	}
	return printJSON(c.App.Writer, result)
}

func prune(c *cli.Context, deps CommandDeps) error {
	pruned, err := deps.BackupService.Prune(c.Context)
	if err != nil {
		return errors.Wrap(err, "failed to prune backups")
	}

	return printJSON(c.App.Writer, lo.Map(pruned, func(b *model.Backup, _ int) string {
		return b.ID
	}))
}

func list(c *cli.Context, deps CommandDeps) error {
	backups, err := deps.BackupService.List(c.Context, model.BackupStatus(c.String("status")))
	if err != nil {
		return errors.Wrap(err, "failed to list backups")
	}

	return printJSON(c.App.Writer, backups)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
