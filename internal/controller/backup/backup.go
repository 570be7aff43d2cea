package backup

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/middlewares"
	"exusiai.dev/crm-backup/internal/server/svr"
	"exusiai.dev/crm-backup/internal/service"
	"exusiai.dev/crm-backup/internal/util/rekuest"
)

type Backup struct {
	fx.In

	BackupService *service.Backup
}

func RegisterBackup(admin *svr.Admin, c Backup) {
	admin.Get("/backups", c.ListBackups)
	admin.Post("/backups", middlewares.InjectValidBody[CreateBackupRequest](), c.CreateBackup)
	admin.Get("/backups/modules", c.GetModules)
	admin.Post("/backups/restore", middlewares.InjectValidBody[RestoreBackupRequest](), c.RestoreBackup)
	admin.Post("/backups/prune", c.PruneBackups)
	admin.Get("/backups/:backupId", c.GetBackup)
	admin.Delete("/backups/:backupId", c.DeleteBackup)
}

type CreateBackupRequest struct {
	BackupType string `json:"backupType" validate:"omitempty,oneof=manual scheduled"`
	ModuleName string `json:"moduleName" validate:"omitempty,max=64,identifier"`
}

type CreateBackupResponse struct {
	Success      bool   `json:"success"`
	BackupID     string `json:"backupId"`
	FileName     string `json:"fileName"`
	TablesCount  int    `json:"tablesCount"`
	RecordsCount int    `json:"recordsCount"`
	SizeBytes    int64  `json:"sizeBytes"`
	Warning      string `json:"warning,omitempty"`
}

func (c *Backup) CreateBackup(ctx *fiber.Ctx) error {
	req := middlewares.Body[CreateBackupRequest](ctx)

	meta, err := c.BackupService.Create(ctx.UserContext(), service.CreateRequest{
		BackupType: model.BackupType(req.BackupType),
		ModuleName: req.ModuleName,
		CreatedBy:  middlewares.UserID(ctx),
	})
	if err != nil {
		return err
	}

	return ctx.JSON(CreateBackupResponse{
		Success:      true,
		BackupID:     meta.ID,
		FileName:     meta.FileName,
		TablesCount:  meta.TablesCount,
		RecordsCount: meta.RecordsCount,
		SizeBytes:    meta.SizeBytes,
		Warning:      meta.Warning.String,
	})
}

type RestoreBackupRequest struct {
	BackupID string `json:"backupId" validate:"required,max=64"`
}

type RestoreBackupResponse struct {
	Success         bool                   `json:"success"`
	RestoredTables  []string               `json:"restoredTables"`
	RestoredRecords int                    `json:"restoredRecords"`
	SafetyBackup    string                 `json:"safetyBackup"`
	FailedTables    []service.TableFailure `json:"failedTables"`
}

func (c *Backup) RestoreBackup(ctx *fiber.Ctx) error {
	req := middlewares.Body[RestoreBackupRequest](ctx)

	result, err := c.BackupService.Restore(ctx.UserContext(), req.BackupID, middlewares.UserID(ctx))
	if err != nil {
		return err
	}

	resp := RestoreBackupResponse{
		Success:         true,
		RestoredTables:  lo.Ternary(result.RestoredTables == nil, []string{}, result.RestoredTables),
		RestoredRecords: result.RestoredRecords,
		FailedTables:    lo.Ternary(result.FailedTables == nil, []service.TableFailure{}, result.FailedTables),
	}
	if result.SafetyBackup != nil {
		resp.SafetyBackup = result.SafetyBackup.FileName
	}
	return ctx.JSON(resp)
}

func (c *Backup) ListBackups(ctx *fiber.Ctx) error {
	status := ctx.Query("status")
	if err := rekuest.ValidVar(status, "omitempty,oneof=in_progress completed failed"); err != nil {
		return err
	}

	backups, err := c.BackupService.List(ctx.UserContext(), model.BackupStatus(status))
	if err != nil {
		return err
	}
	if backups == nil {
		backups = []*model.Backup{}
	}

	return ctx.JSON(backups)
}

func (c *Backup) GetBackup(ctx *fiber.Ctx) error {
	meta, err := c.BackupService.Get(ctx.UserContext(), ctx.Params("backupId"))
	if err != nil {
		return err
	}

	return ctx.JSON(meta)
}

func (c *Backup) DeleteBackup(ctx *fiber.Ctx) error {
	if err := c.BackupService.Delete(ctx.UserContext(), ctx.Params("backupId")); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *Backup) GetModules(ctx *fiber.Ctx) error {
	return ctx.JSON(c.BackupService.Modules())
}

func (c *Backup) PruneBackups(ctx *fiber.Ctx) error {
	pruned, err := c.BackupService.Prune(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"pruned": lo.Map(pruned, func(b *model.Backup, _ int) string {
			return b.ID
		}),
	})
}
