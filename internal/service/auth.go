package service

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/model"
	"exusiai.dev/crm-backup/internal/store"
)

// Auth answers whether a user holds the admin role. Answers are cached for
// RoleCacheTTL so that role revocations take effect within that window.
type Auth struct {
	Roles store.RoleStore

	cache *cache.Cache
}

func NewAuth(roles store.RoleStore, conf *appconfig.Config) *Auth {
	return NewAuthWithTTL(roles, conf.RoleCacheTTL)
}

func NewAuthWithTTL(roles store.RoleStore, ttl time.Duration) *Auth {
	return &Auth{
		Roles: roles,
		cache: cache.New(ttl, constant.RoleCacheCleanupInterval),
	}
}

func (s *Auth) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if v, ok := s.cache.Get(userID); ok {
		return v.(bool), nil
	}

	roles, err := s.Roles.GetRolesByUserID(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "failed to look up user roles")
	}
	admin := lo.Contains(roles, model.RoleAdmin)
	s.cache.SetDefault(userID, admin)
	return admin, nil
}
