package middlewares

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/pkg/apierr"
	"exusiai.dev/crm-backup/internal/pkg/flog"
	"exusiai.dev/crm-backup/internal/util/rekuest"
)

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin authenticates the caller with an HS256 bearer token whose
// subject is the user id, then requires the admin role from checker. Subjects
// must be usable as a storage key segment.
// The user id is stored in Locals under constant.ContextKeyUserID.
func RequireAdmin(secret []byte, checker AdminChecker) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return apierr.ErrUnauthorized
		}

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			flog.DebugFrom(c).
				Str("evt.name", "http.auth.invalid_token").
				Err(err).
				Msg("rejected bearer token")
			return apierr.ErrUnauthorized.Msg("invalid token: %s", err)
		}
		if claims.Subject == "" {
			return apierr.ErrUnauthorized.Msg("invalid token: missing subject")
		}
		if err := rekuest.Validate.Var(claims.Subject, "subject"); err != nil {
			return apierr.ErrUnauthorized.Msg("invalid token: malformed subject")
		}

		admin, err := checker.IsAdmin(c.UserContext(), claims.Subject)
		if err != nil {
			return err
		}
		if !admin {
			return apierr.ErrForbidden
		}

		c.Locals(constant.ContextKeyUserID, claims.Subject)
		flog.WithStr(c, "user_id", claims.Subject)

		return c.Next()
	}
}

// UserID returns the caller id set by RequireAdmin.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(constant.ContextKeyUserID).(string)
	return id
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constant.AuthorizationRealm) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
