package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/apierr"
	"exusiai.dev/crm-backup/internal/pkg/blob"
)

func TestCreateFullBackup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	f.rows.Seed("contacts", seqRows(3)...).Seed("accounts", seqRows(2)...)

	b, err := f.svc.Create(ctx, CreateRequest{BackupType: model.BackupTypeScheduled, CreatedBy: "admin"})
	require.NoError(t, err)

	assert.Equal(t, model.BackupTypeScheduled, b.BackupType)
	assert.False(t, b.ModuleName.Valid)
	assert.Equal(t, len(catalog.Default.FullTableSet()), b.TablesCount)
	assert.Equal(t, 5, b.RecordsCount)

	payload := loadPayload(t, f, b)
	assert.ElementsMatch(t, catalog.Default.FullTableSet(), payload.Tables)
	assert.Equal(t, b.Manifest, payload.Manifest)
	assert.Equal(t, []string{EventBackupCompleted}, f.events.Names())
}

func TestCreateModuleBackupIsScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	f.rows.
		Seed("deals", seqRows(4)...).
		Seed("deal_contacts", seqRows(2)...).
		Seed("contacts", seqRows(7)...)

	b, err := f.svc.Create(ctx, CreateRequest{BackupType: model.BackupTypeManual, ModuleName: "deals", CreatedBy: "admin"})
	require.NoError(t, err)

	assert.Equal(t, model.BackupTypeModule, b.BackupType)
	assert.Equal(t, "deals", b.ModuleName.String)
	assert.Contains(t, b.FileName, "_deals.json")

	payload := loadPayload(t, f, b)
	assert.ElementsMatch(t, []string{"deals", "deal_contacts"}, payload.Tables)
	assert.Equal(t, model.Manifest{"deals": 4, "deal_contacts": 2}, payload.Manifest)
	assert.Equal(t, "deals", payload.ModuleName)

	for _, op := range f.rows.OpsOf("select") {
		assert.Contains(t, []string{"deals", "deal_contacts"}, op.Table)
	}
}

func TestCreateRejectsUnknownModule(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.svc.Create(context.Background(), CreateRequest{ModuleName: "invoices", CreatedBy: "admin"})
	assert.ErrorIs(t, err, apierr.ErrInvalidReq)
	assert.Empty(t, f.backups.All())
}

func TestCreateRejectsReservedBackupTypes(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	for _, bt := range []model.BackupType{model.BackupTypePreRestore, model.BackupTypeModule, "weekly"} {
		_, err := f.svc.Create(context.Background(), CreateRequest{BackupType: bt, CreatedBy: "admin"})
		assert.ErrorIs(t, err, apierr.ErrInvalidReq, string(bt))
	}
}

func TestCreateRecordsTruncationWarning(t *testing.T) {
	f := newFixture(t, fixtureOpts{pageSize: 2})
	f.rows.Seed("contacts", seqRows(5)...)
	f.rows.SelectErr = func(table string, r model.Range) error {
		if table == "contacts" && r.Offset == 2 {
			return errors.New("read timeout")
		}
		return nil
	}

	b, err := f.svc.Create(context.Background(), CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.BackupStatusCompleted, b.Status)
	assert.Contains(t, b.Warning.String, "contacts")
	assert.Equal(t, 2, b.Manifest["contacts"])
}

func TestCreateAbortPolicyMarksBackupFailed(t *testing.T) {
	f := newFixture(t, fixtureOpts{abort: true})
	f.rows.SelectErr = func(table string, _ model.Range) error {
		if table == "tickets" {
			return errors.New("read timeout")
		}
		return nil
	}

	_, err := f.svc.Create(context.Background(), CreateRequest{CreatedBy: "admin"})
	assert.ErrorIs(t, err, ErrUpstreamRead)

	all := f.backups.All()
	require.Len(t, all, 1)
	assert.Equal(t, model.BackupStatusFailed, all[0].Status)
	assert.Empty(t, f.blob.Keys())
	assert.Equal(t, []string{EventBackupFailed}, f.events.Names())
}

func TestDeleteBackup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	b, err := f.svc.Create(ctx, CreateRequest{CreatedBy: "admin"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, b.ID))
	_, err = f.svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Empty(t, f.blob.Keys())

	assert.ErrorIs(t, f.svc.Delete(ctx, b.ID), apierr.ErrNotFound)
}

func TestDeleteRejectsInProgressBackup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	require.NoError(t, f.backups.CreateBackup(ctx, &model.Backup{
		ID:        "running",
		Status:    model.BackupStatusInProgress,
		CreatedAt: time.Now().Add(-time.Minute),
	}))

	assert.ErrorIs(t, f.svc.Delete(ctx, "running"), apierr.ErrConflict)
}

func TestDeleteAcceptsStaleInProgressBackup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	require.NoError(t, f.blob.Put(ctx, "admin/stuck.json", []byte(`{}`), blob.ContentTypeJSON))
	require.NoError(t, f.backups.CreateBackup(ctx, &model.Backup{
		ID:        "stuck",
		FilePath:  "admin/stuck.json",
		Status:    model.BackupStatusInProgress,
		CreatedAt: time.Now().Add(-constant.StaleBackupAge - time.Minute),
	}))

	require.NoError(t, f.svc.Delete(ctx, "stuck"))
	_, err := f.svc.Get(ctx, "stuck")
	assert.ErrorIs(t, err, apierr.ErrNotFound)
	assert.Empty(t, f.blob.Keys())
}

func TestModules(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	modules := f.svc.Modules()

	require.Len(t, modules, len(catalog.Default.Modules()))
	assert.Equal(t, "accounts", modules[0].Name)
	for _, m := range modules {
		assert.NotEmpty(t, m.Tables, m.Name)
	}
}
