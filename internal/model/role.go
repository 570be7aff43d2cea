package model

import "github.com/uptrace/bun"

const RoleAdmin = "admin"

type UserRole struct {
	bun.BaseModel `bun:"user_roles,alias:ur"`

	UserID string `bun:"user_id,pk" json:"userId"`
	Role   string `bun:"role,pk" json:"role"`
}
