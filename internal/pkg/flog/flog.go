// Package flog wires a per-request zerolog logger into fiber.
package flog

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type idKey struct{}

// FromFiberCtx returns the logger carried by the request's user context.
func FromFiberCtx(c *fiber.Ctx) *zerolog.Logger {
	return log.Ctx(c.UserContext())
}

// NewHandlerMiddleware stores a copy of l in every request's user context.
func NewHandlerMiddleware(l zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// copy, so UpdateContext on one request never leaks into another
		reqLogger := l.With().Logger()
		c.SetUserContext(reqLogger.WithContext(c.UserContext()))
		return c.Next()
	}
}

// FieldHandler adds the value returned by fn to the request logger under key.
func FieldHandler(key string, fn func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		WithStr(c, key, fn(c))
		return c.Next()
	}
}

// WithStr adds a string field to the request logger in place.
func WithStr(c *fiber.Ctx, key, value string) {
	FromFiberCtx(c).UpdateContext(func(zc zerolog.Context) zerolog.Context {
		return zc.Str(key, value)
	})
}

func RemoteAddrHandler(key string) fiber.Handler {
	return FieldHandler(key, func(c *fiber.Ctx) string { return c.IP() })
}

func MethodHandler(key string) fiber.Handler {
	return FieldHandler(key, func(c *fiber.Ctx) string { return c.Method() })
}

func URLHandler(key string) fiber.Handler {
	return FieldHandler(key, func(c *fiber.Ctx) string { return c.Path() })
}

func UserAgentHandler(key string) fiber.Handler {
	return FieldHandler(key, func(c *fiber.Ctx) string { return c.Get(fiber.HeaderUserAgent) })
}

// IDFromFiberCtx returns the request id assigned by RequestIDHandler, if any.
func IDFromFiberCtx(c *fiber.Ctx) (id xid.ID, ok bool) {
	if c == nil {
		return
	}
	return IDFromCtx(c.UserContext())
}

func IDFromCtx(ctx context.Context) (id xid.ID, ok bool) {
	id, ok = ctx.Value(idKey{}).(xid.ID)
	return
}

func CtxWithID(ctx context.Context, id xid.ID) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// RequestIDHandler assigns an xid to each request. The id is logged under
// fieldKey and echoed in headerName; either may be left empty to skip it.
func RequestIDHandler(fieldKey, headerName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IDFromFiberCtx(c)
		if !ok {
			id = xid.New()
			c.SetUserContext(CtxWithID(c.UserContext(), id))
		}
		if fieldKey != "" {
			WithStr(c, fieldKey, id.String())
		}
		if headerName != "" {
			c.Set(headerName, id.String())
		}
		return c.Next()
	}
}

// AccessHandler calls f once the rest of the chain has returned.
func AccessHandler(f func(c *fiber.Ctx, duration time.Duration, err error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		f(c, time.Since(start), err)
		return err
	}
}

func DebugFrom(c *fiber.Ctx) *zerolog.Event {
	return FromFiberCtx(c).Debug()
}

func InfoFrom(c *fiber.Ctx) *zerolog.Event {
	return FromFiberCtx(c).Info()
}

func WarnFrom(c *fiber.Ctx) *zerolog.Event {
	return FromFiberCtx(c).Warn()
}

func ErrorFrom(c *fiber.Ctx) *zerolog.Event {
	return FromFiberCtx(c).Error()
}
