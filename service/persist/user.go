package persist

import (
	"context"
	"fmt"
)

// User represents a registered platform user
type User struct {
	ID           DBID            `json:"id" binding:"required"`
	Version      NullInt32       `json:"version"`
	CreationTime CreationTime    `json:"created_at"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`
	Username     NullString      `json:"username"`
	PasswordHash NullString      `json:"-"`
	ChainAddress Address         `json:"chain_address"`
	Roles        RoleList        `json:"roles"`
}

// HasRole reports whether the user carries the given role
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserRepository represents a repository for interacting with persisted users
type UserRepository interface {
	Create(context.Context, User) (User, error)
	GetByID(context.Context, DBID) (User, error)
	GetByUsername(context.Context, string) (User, error)
}

// ErrUserNotFound is returned when a user cannot be found by id or username
type ErrUserNotFound struct {
	ID       DBID
	Username string
}

func (e ErrUserNotFound) Error() string {
	if e.Username != "" {
		return fmt.Sprintf("user not found by username: %s", e.Username)
	}
	return fmt.Sprintf("user not found by ID: %s", e.ID)
}

// ErrUserAlreadyExists is returned when a username is already taken
type ErrUserAlreadyExists struct {
	Username string
}

func (e ErrUserAlreadyExists) Error() string {
	return fmt.Sprintf("user already exists with username: %s", e.Username)
}
