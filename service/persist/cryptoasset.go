package persist

import (
	"context"
	"fmt"
	"time"
)

// CryptoAsset represents the on-chain token minted for a real asset. A row is inserted
// when the mint transaction is accepted by the chain and never mutated afterwards; a
// retried mint replaces the stale row wholesale rather than editing it.
type CryptoAsset struct {
	ID                     DBID            `json:"id" binding:"required"`
	Version                NullInt32       `json:"version"`
	CreationTime           CreationTime    `json:"created_at"`
	LastUpdated            LastUpdatedTime `json:"last_updated"`
	No                     NullInt64       `json:"no"`
	RealAssetID            DBID            `json:"real_asset_id"`
	OwnerID                DBID            `json:"owner_id"`
	OwnerAddress           Address         `json:"owner_address"`
	MintAddress            Address         `json:"mint_address"`
	UpdateAuthorityAddress Address         `json:"update_authority_address"`
	Name                   NullString      `json:"name"`
	Symbol                 NullString      `json:"symbol"`
	MetadataURI            NullString      `json:"json_metadata_uri"`
	SellerFeeBasisPoints   NullInt32       `json:"seller_fee_basis_points"`
	CreatorAddresses       AddressList     `json:"creators_address_list"`
}

// CryptoAssetRepository represents a repository for interacting with persisted crypto assets.
// GetByRealAssetIDsCreatedBefore returns at most one asset per real asset, the newest, so a
// superseded mint attempt can never shadow the one that counts. DeleteByRealAssetID exists
// for exactly that supersession: a retried mint clears the stale record before writing its own.
type CryptoAssetRepository interface {
	Create(context.Context, CryptoAsset) (CryptoAsset, error)
	GetByRealAssetID(context.Context, DBID) (CryptoAsset, error)
	GetByOwner(context.Context, DBID) ([]CryptoAsset, error)
	GetByRealAssetIDsCreatedBefore(context.Context, DBIDList, time.Time) ([]CryptoAsset, error)
	DeleteByRealAssetID(context.Context, DBID) error
	Count(context.Context) (int64, error)
}

// ErrCryptoAssetNotFoundByRealAssetID is returned when no crypto asset exists for a real asset
type ErrCryptoAssetNotFoundByRealAssetID struct {
	RealAssetID DBID
}

func (e ErrCryptoAssetNotFoundByRealAssetID) Error() string {
	return fmt.Sprintf("crypto asset not found for real asset: %s", e.RealAssetID)
}
