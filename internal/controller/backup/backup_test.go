package backup

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/pkg/blob"
	"exusiai.dev/crm-backup/internal/pkg/memstore"
	"exusiai.dev/crm-backup/internal/server/httpserver"
	"exusiai.dev/crm-backup/internal/server/svr"
	"exusiai.dev/crm-backup/internal/service"
)

const testSecret = "controller-test-secret"

type harness struct {
	app     *fiber.App
	rows    *memstore.Rows
	backups *memstore.Backups
	blob    *blob.Memory
	lock    *memstore.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		rows:    memstore.NewRows(),
		backups: memstore.NewBackups(),
		blob:    blob.NewMemory(),
		lock:    &memstore.Mutex{},
	}
	roles := memstore.NewRoles().
		Grant("admin-1", model.RoleAdmin).
		Grant("viewer-1", "viewer")

	svc := service.Assemble(service.Stores{
		Catalog: catalog.Default,
		Rows:    h.rows,
		Tx:      h.rows,
		Backups: h.backups,
		Blob:    h.blob,
		Lock:    h.lock,
	}, service.Settings{
		PageSize:   100,
		MaxBackups: 30,
		BatchSize:  50,
	})

	conf := &appconfig.Config{ConfigSpec: appconfig.ConfigSpec{JWTSecret: testSecret}}
	h.app = fiber.New(fiber.Config{
		ErrorHandler: httpserver.ErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	admin, _ := svr.CreateEndpointGroups(h.app, conf, service.NewAuthWithTTL(roles, time.Minute))
	RegisterBackup(admin, Backup{BackupService: svc})

	return h
}

func token(t *testing.T, subject string, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (h *harness) do(t *testing.T, method, path, subject, body string) (int, map[string]any, []byte) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if subject != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, subject, testSecret))
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var obj map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &obj), string(raw))
	}
	return resp.StatusCode, obj, raw
}

func TestAuthentication(t *testing.T) {
	h := newHarness(t)

	t.Run("missing token", func(t *testing.T) {
		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups", "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "UNAUTHORIZED", body["code"])
		assert.NotEmpty(t, body["error"])
	})

	t.Run("wrong signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/backups", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, "admin-1", "some-other-secret"))
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/backups", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Basic YWRtaW46YWRtaW4=")
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("not an admin", func(t *testing.T) {
		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups/restore", "viewer-1", `{"backupId":"x"}`)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "FORBIDDEN", body["code"])
	})

	t.Run("unknown user", func(t *testing.T) {
		status, _, _ := h.do(t, http.MethodGet, "/api/admin/backups", "nobody", "")
		assert.Equal(t, http.StatusForbidden, status)
	})

	assert.Empty(t, h.backups.All(), "rejected callers must not leave any side effect")
	assert.Empty(t, h.blob.Keys())
}

func TestCreateBackup(t *testing.T) {
	h := newHarness(t)
	h.rows.Seed("accounts", model.Row{"id": 1, "name": "acme"}, model.Row{"id": 2, "name": "globex"})
	h.rows.Seed("deals", model.Row{"id": 1, "account_id": 1})

	t.Run("full", func(t *testing.T) {
		status, body, raw := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"backupType":"manual"}`)
		require.Equal(t, http.StatusOK, status, string(raw))

		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["backupId"])
		assert.True(t, strings.HasPrefix(body["fileName"].(string), "backup_"))
		assert.EqualValues(t, len(catalog.Default.FullTableSet()), body["tablesCount"])
		assert.EqualValues(t, 3, body["recordsCount"])
		assert.Greater(t, body["sizeBytes"].(float64), float64(0))

		meta, err := h.backups.GetBackupByID(context.Background(), body["backupId"].(string))
		require.NoError(t, err)
		assert.Equal(t, "admin-1", meta.CreatedBy)
		assert.Equal(t, model.BackupStatusCompleted, meta.Status)
		assert.True(t, strings.HasPrefix(meta.FilePath, "admin-1/"))
	})

	t.Run("module", func(t *testing.T) {
		status, body, raw := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"backupType":"manual","moduleName":"deals"}`)
		require.Equal(t, http.StatusOK, status, string(raw))

		tables, _ := catalog.Default.ModuleTables("deals")
		assert.EqualValues(t, len(tables), body["tablesCount"])
		assert.EqualValues(t, 1, body["recordsCount"])
		assert.True(t, strings.HasSuffix(body["fileName"].(string), "_deals.json"))
	})

	t.Run("unknown module", func(t *testing.T) {
		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"moduleName":"invoices"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_REQUEST", body["code"])
	})

	t.Run("invalid backup type", func(t *testing.T) {
		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"backupType":"pre_restore"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.NotEmpty(t, body["violations"])
	})

	t.Run("malformed body", func(t *testing.T) {
		status, _, _ := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"backupType":`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestRestoreBackup(t *testing.T) {
	h := newHarness(t)
	h.rows.Seed("contacts", model.Row{"id": 1, "email": "a@example.com"}, model.Row{"id": 2, "email": "b@example.com"})

	status, created, raw := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"moduleName":"contacts"}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	id := created["backupId"].(string)

	h.rows.Seed("contacts", model.Row{"id": 9, "email": "z@example.com"})

	t.Run("restores the captured rows", func(t *testing.T) {
		status, body, raw := h.do(t, http.MethodPost, "/api/admin/backups/restore", "admin-1", `{"backupId":"`+id+`"}`)
		require.Equal(t, http.StatusOK, status, string(raw))

		assert.Equal(t, true, body["success"])
		assert.Equal(t, []any{"contacts"}, body["restoredTables"])
		assert.EqualValues(t, 2, body["restoredRecords"])
		assert.True(t, strings.HasPrefix(body["safetyBackup"].(string), "pre_restore_"))
		assert.Equal(t, []any{}, body["failedTables"])
		assert.Len(t, h.rows.Table("contacts"), 2)
	})

	t.Run("unknown backup", func(t *testing.T) {
		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups/restore", "admin-1", `{"backupId":"01hzzzzzzzzzzzzzzzzzzzzzzz"}`)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})

	t.Run("missing backup id", func(t *testing.T) {
		status, _, _ := h.do(t, http.MethodPost, "/api/admin/backups/restore", "admin-1", `{}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("corrupted payload", func(t *testing.T) {
		meta, err := h.backups.GetBackupByID(context.Background(), id)
		require.NoError(t, err)
		require.NoError(t, h.blob.Put(context.Background(), meta.FilePath, []byte(`{"not":"a backup"}`), blob.ContentTypeJSON))

		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups/restore", "admin-1", `{"backupId":"`+id+`"}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_FORMAT", body["code"])
	})

	t.Run("concurrent restore", func(t *testing.T) {
		require.NoError(t, h.lock.LockContext(context.Background()))
		defer h.lock.UnlockContext(context.Background())

		status, body, _ := h.do(t, http.MethodPost, "/api/admin/backups/restore", "admin-1", `{"backupId":"`+id+`"}`)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "CONFLICT", body["code"])
	})
}

func TestInspectAndDelete(t *testing.T) {
	h := newHarness(t)
	status, created, raw := h.do(t, http.MethodPost, "/api/admin/backups", "admin-1", `{"moduleName":"tickets"}`)
	require.Equal(t, http.StatusOK, status, string(raw))
	id := created["backupId"].(string)

	status, _, raw = h.do(t, http.MethodGet, "/api/admin/backups?status=completed", "admin-1", "")
	require.Equal(t, http.StatusOK, status)
	var list []*model.Backup
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	status, _, _ = h.do(t, http.MethodGet, "/api/admin/backups?status=bogus", "admin-1", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body, _ := h.do(t, http.MethodGet, "/api/admin/backups/"+id, "admin-1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "tickets", body["moduleName"])

	status, _, raw = h.do(t, http.MethodGet, "/api/admin/backups/modules", "admin-1", "")
	require.Equal(t, http.StatusOK, status)
	var modules []service.ModuleInfo
	require.NoError(t, json.Unmarshal(raw, &modules))
	assert.Len(t, modules, len(catalog.Default.Modules()))

	status, _, _ = h.do(t, http.MethodDelete, "/api/admin/backups/"+id, "admin-1", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, h.blob.Keys())

	status, _, _ = h.do(t, http.MethodGet, "/api/admin/backups/"+id, "admin-1", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body, _ = h.do(t, http.MethodPost, "/api/admin/backups/prune", "admin-1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["pruned"])
}
