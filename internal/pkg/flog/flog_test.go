package flog

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestFieldsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(
		NewHandlerMiddleware(zerolog.New(&buf)),
		RequestIDHandler("request_id", "X-Request-ID"),
		MethodHandler("method"),
		URLHandler("url"),
		AccessHandler(func(c *fiber.Ctx, _ time.Duration, _ error) {
			InfoFrom(c).Msg("done")
		}),
	)
	app.Get("/ping", func(c *fiber.Ctx) error {
		WithStr(c, "user_id", "u1")
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/ping", line["url"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, resp.Header.Get("X-Request-ID"), line["request_id"])
	assert.NotEmpty(t, line["request_id"])
}

func TestLoggersAreNotShared(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(NewHandlerMiddleware(zerolog.New(&buf)))
	app.Get("/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "a" {
			WithStr(c, "only_a", "yes")
		}
		InfoFrom(c).Msg(c.Params("id"))
		return nil
	})

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+id, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "only_a")
	assert.NotContains(t, string(lines[1]), "only_a")
}
