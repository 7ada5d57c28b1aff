package publicapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/realtoken-app/go-realtoken/service/mediastore"
	"github.com/realtoken-app/go-realtoken/service/mint"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/realtoken-app/go-realtoken/validate"
)

const apiContextKey = "publicapi.api"

// Repositories bundles the repositories the public API operates on
type Repositories struct {
	RealAssetRepository   persist.RealAssetRepository
	CryptoAssetRepository persist.CryptoAssetRepository
	ApprovalRepository    persist.RealAssetApprovalRepository
	UserRepository        persist.UserRepository
}

// PublicAPI is the library surface the HTTP layer calls into
type PublicAPI struct {
	repos     *Repositories
	validator *validator.Validate

	Auth      *AuthAPI
	RealAsset *RealAssetAPI
	Gov       *GovAPI
	Token     *TokenAPI
}

// New creates a new PublicAPI
func New(ctx context.Context, repos *Repositories, chain sol.Client, minter *mint.Minter, store *mediastore.Store) *PublicAPI {
	validator := validate.WithCustomValidators()

	return &PublicAPI{
		repos:     repos,
		validator: validator,

		Auth:      &AuthAPI{repos: repos, validator: validator},
		RealAsset: &RealAssetAPI{repos: repos, validator: validator, store: store},
		Gov:       &GovAPI{repos: repos, validator: validator},
		Token:     &TokenAPI{repos: repos, validator: validator, chain: chain, minter: minter},
	}
}

// AddTo adds the specified PublicAPI to a gin context
func AddTo(ctx *gin.Context, api *PublicAPI) {
	ctx.Set(apiContextKey, api)
}

// For retrieves the PublicAPI attached to a gin context
func For(ctx *gin.Context) *PublicAPI {
	return ctx.Value(apiContextKey).(*PublicAPI)
}
