package repo

import (
	"context"

	"github.com/uptrace/bun"

	"exusiai.dev/crm-backup/internal/model"
)

type Role struct {
	db *bun.DB
}

func NewRole(db *bun.DB) *Role {
	return &Role{db: db}
}

func (r *Role) GetRolesByUserID(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := r.db.NewSelect().
		Model((*model.UserRole)(nil)).
		Column("role").
		Where("user_id = ?", userID).
		Order("role").
		Scan(ctx, &roles)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *Role) GrantRole(ctx context.Context, userID, role string) error {
	_, err := r.db.NewInsert().
		Model(&model.UserRole{UserID: userID, Role: role}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return err
}
