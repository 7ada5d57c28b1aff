package publicapi

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/realtoken-app/go-realtoken/service/mint"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/realtoken-app/go-realtoken/validate"
)

// TokenAPI exposes the tokenization operations, delegating the heavy lifting to the minter
type TokenAPI struct {
	repos     *Repositories
	validator *validator.Validate
	chain     sol.Client
	minter    *mint.Minter
}

// TokenizeRealAsset builds the partially signed mint transaction for one of the
// caller's approved assets and hands it back for wallet co-signing
func (api TokenAPI) TokenizeRealAsset(ctx context.Context, ownerID persist.DBID, assetID persist.DBID, ownerAddress persist.Address) (string, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"assetID":      validate.WithTag(assetID, "required"),
		"ownerAddress": validate.WithTag(ownerAddress, "required,chain_address"),
	}); err != nil {
		return "", err
	}
	return api.minter.BeginTokenization(ctx, assetID, ownerID, ownerAddress)
}

// TokenizeRealAssetConfirm submits the co-signed mint transaction and records the
// resulting crypto asset once the chain accepts it
func (api TokenAPI) TokenizeRealAssetConfirm(ctx context.Context, ownerID persist.DBID, assetID persist.DBID, ownerSignature string, recentBlockhash string, ownerAddress persist.Address) (string, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"assetID":         validate.WithTag(assetID, "required"),
		"ownerSignature":  validate.WithTag(ownerSignature, "required"),
		"recentBlockhash": validate.WithTag(recentBlockhash, "required"),
		"ownerAddress":    validate.WithTag(ownerAddress, "required,chain_address"),
	}); err != nil {
		return "", err
	}
	return api.minter.ConfirmTokenization(ctx, assetID, ownerID, ownerSignature, recentBlockhash, ownerAddress)
}

// GetCryptoAssetsByOwner returns every token the caller has minted
func (api TokenAPI) GetCryptoAssetsByOwner(ctx context.Context, ownerID persist.DBID) ([]persist.CryptoAsset, error) {
	return api.repos.CryptoAssetRepository.GetByOwner(ctx, ownerID)
}

// GetCryptoAssetByRealAssetID returns the token minted for one of the caller's assets
func (api TokenAPI) GetCryptoAssetByRealAssetID(ctx context.Context, ownerID persist.DBID, assetID persist.DBID) (persist.CryptoAsset, error) {
	// Ownership check first so a foreign asset reads as not-found.
	if _, err := api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID); err != nil {
		return persist.CryptoAsset{}, err
	}
	return api.repos.CryptoAssetRepository.GetByRealAssetID(ctx, assetID)
}

// GetBalance returns the lamport balance of an address, for wallet display
func (api TokenAPI) GetBalance(ctx context.Context, addr persist.Address) (uint64, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"address": validate.WithTag(addr, "required,chain_address"),
	}); err != nil {
		return 0, err
	}
	return api.chain.GetBalance(ctx, addr)
}
