package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/realtoken-app/go-realtoken/service/persist"
)

const cryptoAssetColumns = `ID,VERSION,CREATED_AT,LAST_UPDATED,NO,REAL_ASSET_ID,OWNER_ID,OWNER_ADDRESS,MINT_ADDRESS,UPDATE_AUTHORITY_ADDRESS,NAME,SYMBOL,METADATA_URI,SELLER_FEE_BASIS_POINTS,CREATOR_ADDRESSES`

// CryptoAssetRepository represents a crypto asset repository in the postgres database
type CryptoAssetRepository struct {
	db                                 *sql.DB
	createStmt                         *sql.Stmt
	getByRealAssetIDStmt               *sql.Stmt
	getByOwnerStmt                     *sql.Stmt
	getByRealAssetIDsCreatedBeforeStmt *sql.Stmt
	deleteByRealAssetIDStmt            *sql.Stmt
	countStmt                          *sql.Stmt
}

// NewCryptoAssetRepository creates a new postgres repository for interacting with crypto assets
func NewCryptoAssetRepository(db *sql.DB) *CryptoAssetRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO crypto_assets (ID,VERSION,NO,REAL_ASSET_ID,OWNER_ID,OWNER_ADDRESS,MINT_ADDRESS,UPDATE_AUTHORITY_ADDRESS,NAME,SYMBOL,METADATA_URI,SELLER_FEE_BASIS_POINTS,CREATOR_ADDRESSES) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING `+cryptoAssetColumns+`;`)
	checkNoErr(err)

	getByRealAssetIDStmt, err := db.PrepareContext(ctx, `SELECT `+cryptoAssetColumns+` FROM crypto_assets WHERE REAL_ASSET_ID = $1 ORDER BY CREATED_AT DESC LIMIT 1;`)
	checkNoErr(err)

	getByOwnerStmt, err := db.PrepareContext(ctx, `SELECT `+cryptoAssetColumns+` FROM crypto_assets WHERE OWNER_ID = $1 ORDER BY NO;`)
	checkNoErr(err)

	getByRealAssetIDsCreatedBeforeStmt, err := db.PrepareContext(ctx, `SELECT `+cryptoAssetColumns+` FROM (SELECT DISTINCT ON (REAL_ASSET_ID) `+cryptoAssetColumns+` FROM crypto_assets WHERE REAL_ASSET_ID = ANY($1) ORDER BY REAL_ASSET_ID, CREATED_AT DESC) latest WHERE CREATED_AT < $2;`)
	checkNoErr(err)

	deleteByRealAssetIDStmt, err := db.PrepareContext(ctx, `DELETE FROM crypto_assets WHERE REAL_ASSET_ID = $1;`)
	checkNoErr(err)

	countStmt, err := db.PrepareContext(ctx, `SELECT COUNT(*) FROM crypto_assets;`)
	checkNoErr(err)

	return &CryptoAssetRepository{db: db, createStmt: createStmt, getByRealAssetIDStmt: getByRealAssetIDStmt, getByOwnerStmt: getByOwnerStmt, getByRealAssetIDsCreatedBeforeStmt: getByRealAssetIDsCreatedBeforeStmt, deleteByRealAssetIDStmt: deleteByRealAssetIDStmt, countStmt: countStmt}
}

// Create inserts a new crypto asset
func (r *CryptoAssetRepository) Create(pCtx context.Context, pAsset persist.CryptoAsset) (persist.CryptoAsset, error) {
	if pAsset.ID == "" {
		pAsset.ID = persist.GenerateID()
	}
	row := r.createStmt.QueryRowContext(pCtx, pAsset.ID, pAsset.Version, pAsset.No, pAsset.RealAssetID, pAsset.OwnerID, pAsset.OwnerAddress, pAsset.MintAddress, pAsset.UpdateAuthorityAddress, pAsset.Name, pAsset.Symbol, pAsset.MetadataURI, pAsset.SellerFeeBasisPoints, pAsset.CreatorAddresses)
	return scanCryptoAsset(row)
}

// GetByRealAssetID retrieves the crypto asset minted for a real asset
func (r *CryptoAssetRepository) GetByRealAssetID(pCtx context.Context, pRealAssetID persist.DBID) (persist.CryptoAsset, error) {
	asset, err := scanCryptoAsset(r.getByRealAssetIDStmt.QueryRowContext(pCtx, pRealAssetID))
	if err == sql.ErrNoRows {
		return persist.CryptoAsset{}, persist.ErrCryptoAssetNotFoundByRealAssetID{RealAssetID: pRealAssetID}
	}
	return asset, err
}

// GetByOwner retrieves all crypto assets held by an owner
func (r *CryptoAssetRepository) GetByOwner(pCtx context.Context, pOwnerID persist.DBID) ([]persist.CryptoAsset, error) {
	rows, err := r.getByOwnerStmt.QueryContext(pCtx, pOwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCryptoAssets(rows)
}

// GetByRealAssetIDsCreatedBefore retrieves the newest crypto asset per linked real asset,
// restricted to those created before the cutoff. An asset whose newest mint attempt is
// still inside the cutoff is excluded entirely, even if an older superseded row isn't.
func (r *CryptoAssetRepository) GetByRealAssetIDsCreatedBefore(pCtx context.Context, pRealAssetIDs persist.DBIDList, pBefore time.Time) ([]persist.CryptoAsset, error) {
	rows, err := r.getByRealAssetIDsCreatedBeforeStmt.QueryContext(pCtx, pRealAssetIDs, pBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCryptoAssets(rows)
}

// DeleteByRealAssetID removes any crypto asset recorded for a real asset. Deleting when
// none exists is not an error.
func (r *CryptoAssetRepository) DeleteByRealAssetID(pCtx context.Context, pRealAssetID persist.DBID) error {
	_, err := r.deleteByRealAssetIDStmt.ExecContext(pCtx, pRealAssetID)
	return err
}

// Count returns the total number of crypto assets ever minted
func (r *CryptoAssetRepository) Count(pCtx context.Context) (int64, error) {
	var count int64
	err := r.countStmt.QueryRowContext(pCtx).Scan(&count)
	return count, err
}

func scanCryptoAsset(row scannable) (persist.CryptoAsset, error) {
	asset := persist.CryptoAsset{}
	err := row.Scan(&asset.ID, &asset.Version, &asset.CreationTime, &asset.LastUpdated, &asset.No, &asset.RealAssetID, &asset.OwnerID, &asset.OwnerAddress, &asset.MintAddress, &asset.UpdateAuthorityAddress, &asset.Name, &asset.Symbol, &asset.MetadataURI, &asset.SellerFeeBasisPoints, &asset.CreatorAddresses)
	if err != nil {
		return persist.CryptoAsset{}, err
	}
	return asset, nil
}

func scanCryptoAssets(rows *sql.Rows) ([]persist.CryptoAsset, error) {
	assets := make([]persist.CryptoAsset, 0, 10)
	for rows.Next() {
		asset, err := scanCryptoAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}
