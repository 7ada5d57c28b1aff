package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/realtoken-app/go-realtoken/service/persist"
)

const userColumns = `ID,VERSION,CREATED_AT,LAST_UPDATED,USERNAME,PASSWORD_HASH,CHAIN_ADDRESS,ROLES`

// UserRepository represents a user repository in the postgres database
type UserRepository struct {
	db                *sql.DB
	createStmt        *sql.Stmt
	getByIDStmt       *sql.Stmt
	getByUsernameStmt *sql.Stmt
}

// NewUserRepository creates a new postgres repository for interacting with users
func NewUserRepository(db *sql.DB) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO users (ID,VERSION,USERNAME,USERNAME_IDEMPOTENT,PASSWORD_HASH,CHAIN_ADDRESS,ROLES) VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+userColumns+`;`)
	checkNoErr(err)

	getByIDStmt, err := db.PrepareContext(ctx, `SELECT `+userColumns+` FROM users WHERE ID = $1;`)
	checkNoErr(err)

	getByUsernameStmt, err := db.PrepareContext(ctx, `SELECT `+userColumns+` FROM users WHERE USERNAME_IDEMPOTENT = $1;`)
	checkNoErr(err)

	return &UserRepository{db: db, createStmt: createStmt, getByIDStmt: getByIDStmt, getByUsernameStmt: getByUsernameStmt}
}

// Create inserts a new user, enforcing case-insensitive username uniqueness
func (r *UserRepository) Create(pCtx context.Context, pUser persist.User) (persist.User, error) {
	if pUser.ID == "" {
		pUser.ID = persist.GenerateID()
	}
	user := persist.User{}
	err := r.createStmt.QueryRowContext(pCtx, pUser.ID, pUser.Version, pUser.Username, strings.ToLower(pUser.Username.String()), pUser.PasswordHash, pUser.ChainAddress, pUser.Roles).
		Scan(&user.ID, &user.Version, &user.CreationTime, &user.LastUpdated, &user.Username, &user.PasswordHash, &user.ChainAddress, &user.Roles)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return persist.User{}, persist.ErrUserAlreadyExists{Username: pUser.Username.String()}
		}
		return persist.User{}, err
	}
	return user, nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(pCtx context.Context, pID persist.DBID) (persist.User, error) {
	user := persist.User{}
	err := r.getByIDStmt.QueryRowContext(pCtx, pID).
		Scan(&user.ID, &user.Version, &user.CreationTime, &user.LastUpdated, &user.Username, &user.PasswordHash, &user.ChainAddress, &user.Roles)
	if err == sql.ErrNoRows {
		return persist.User{}, persist.ErrUserNotFound{ID: pID}
	}
	if err != nil {
		return persist.User{}, err
	}
	return user, nil
}

// GetByUsername retrieves a user by their username, case-insensitively
func (r *UserRepository) GetByUsername(pCtx context.Context, pUsername string) (persist.User, error) {
	user := persist.User{}
	err := r.getByUsernameStmt.QueryRowContext(pCtx, strings.ToLower(pUsername)).
		Scan(&user.ID, &user.Version, &user.CreationTime, &user.LastUpdated, &user.Username, &user.PasswordHash, &user.ChainAddress, &user.Roles)
	if err == sql.ErrNoRows {
		return persist.User{}, persist.ErrUserNotFound{Username: pUsername}
	}
	if err != nil {
		return persist.User{}, err
	}
	return user, nil
}
