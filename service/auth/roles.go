package auth

import (
	"context"
	"fmt"

	"github.com/realtoken-app/go-realtoken/service/persist"
)

// ErrRoleRequired is returned when a caller lacks a role an operation requires
type ErrRoleRequired struct {
	Role persist.Role
}

func (e ErrRoleRequired) Error() string {
	return fmt.Sprintf("caller does not have required role: %s", e.Role)
}

// RolesByUserID returns the roles of the given user
func RolesByUserID(ctx context.Context, userRepo persist.UserRepository, userID persist.DBID) (persist.RoleList, error) {
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

// RequireRole checks that the given role list carries the required role
func RequireRole(roles persist.RoleList, required persist.Role) error {
	for _, r := range roles {
		if r == required {
			return nil
		}
	}
	return ErrRoleRequired{Role: required}
}
