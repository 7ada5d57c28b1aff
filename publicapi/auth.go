package publicapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/realtoken-app/go-realtoken/service/auth"
	"github.com/realtoken-app/go-realtoken/service/logger"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/validate"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on a failed login. It does not distinguish a
// missing user from a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthAPI exposes registration and login
type AuthAPI struct {
	repos     *Repositories
	validator *validator.Validate
}

// CreateUserInput are the fields required to register a user
type CreateUserInput struct {
	Username     string          `json:"username" binding:"required"`
	Password     string          `json:"password" binding:"required"`
	ChainAddress persist.Address `json:"chain_address"`
}

// AuthResult is a logged-in user plus their session token
type AuthResult struct {
	User  persist.User `json:"user"`
	Token string       `json:"token"`
}

// CreateUser registers a new user with the default USER role and logs them in
func (api AuthAPI) CreateUser(ctx context.Context, input CreateUserInput) (AuthResult, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"username": validate.WithTag(input.Username, "required,min=3,max=50"),
		"password": validate.WithTag(input.Password, "required,min=8"),
	}); err != nil {
		return AuthResult{}, err
	}
	if input.ChainAddress != "" && !input.ChainAddress.Valid() {
		return AuthResult{}, fmt.Errorf("invalid chain address: %s", input.ChainAddress)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("error hashing password: %w", err)
	}

	user := persist.User{
		ID:           persist.GenerateID(),
		Username:     persist.NullString(validate.SanitizationPolicy.Sanitize(input.Username)),
		PasswordHash: persist.NullString(hash),
		ChainAddress: input.ChainAddress,
		Roles:        persist.RoleList{persist.RoleUser},
	}

	created, err := api.repos.UserRepository.Create(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := auth.GenerateAuthToken(ctx, created.ID, created.Roles)
	if err != nil {
		return AuthResult{}, err
	}

	logger.For(ctx).Infof("registered user %s (%s)", created.Username, created.ID)
	return AuthResult{User: created, Token: token}, nil
}

// Login verifies a username/password pair and issues a session token
func (api AuthAPI) Login(ctx context.Context, username string, password string) (AuthResult, error) {
	user, err := api.repos.UserRepository.GetByUsername(ctx, username)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := auth.GenerateAuthToken(ctx, user.ID, user.Roles)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns a user's public profile
func (api AuthAPI) GetUserByID(ctx context.Context, userID persist.DBID) (persist.User, error) {
	return api.repos.UserRepository.GetByID(ctx, userID)
}
