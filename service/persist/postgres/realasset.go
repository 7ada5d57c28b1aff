package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/realtoken-app/go-realtoken/service/persist"
)

const realAssetColumns = `ID,VERSION,CREATED_AT,LAST_UPDATED,OWNER_ID,NAME,DESCRIPTION,ASSET_TYPE,LOCATION,PHOTO_URLS,PARAMETERS,STATUS,APPROVED_BY_GOV,TOKENIZED,GOV_COMMENT`

// RealAssetRepository represents a real asset repository in the postgres database
type RealAssetRepository struct {
	db                        *sql.DB
	createStmt                *sql.Stmt
	getByIDStmt               *sql.Stmt
	getByIDOwnerStmt          *sql.Stmt
	getByOwnerStmt            *sql.Stmt
	getByStatusesStmt         *sql.Stmt
	updateFieldsByIDOwnerStmt *sql.Stmt
	updateStatusByIDStmt      *sql.Stmt
	updateStatusByIDOwnerStmt *sql.Stmt
}

// NewRealAssetRepository creates a new postgres repository for interacting with real assets
func NewRealAssetRepository(db *sql.DB) *RealAssetRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO real_assets (ID,VERSION,OWNER_ID,NAME,DESCRIPTION,ASSET_TYPE,LOCATION,PHOTO_URLS,PARAMETERS,STATUS,APPROVED_BY_GOV,TOKENIZED,GOV_COMMENT) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING `+realAssetColumns+`;`)
	checkNoErr(err)

	getByIDStmt, err := db.PrepareContext(ctx, `SELECT `+realAssetColumns+` FROM real_assets WHERE ID = $1;`)
	checkNoErr(err)

	getByIDOwnerStmt, err := db.PrepareContext(ctx, `SELECT `+realAssetColumns+` FROM real_assets WHERE ID = $1 AND OWNER_ID = $2;`)
	checkNoErr(err)

	getByOwnerStmt, err := db.PrepareContext(ctx, `SELECT `+realAssetColumns+` FROM real_assets WHERE OWNER_ID = $1 ORDER BY CREATED_AT DESC;`)
	checkNoErr(err)

	getByStatusesStmt, err := db.PrepareContext(ctx, `SELECT `+realAssetColumns+` FROM real_assets WHERE STATUS = ANY($1);`)
	checkNoErr(err)

	updateFieldsByIDOwnerStmt, err := db.PrepareContext(ctx, `UPDATE real_assets SET NAME = $3, DESCRIPTION = $4, ASSET_TYPE = $5, LOCATION = $6, PHOTO_URLS = $7, PARAMETERS = $8, STATUS = $9, APPROVED_BY_GOV = false, GOV_COMMENT = '', LAST_UPDATED = now() WHERE ID = $1 AND OWNER_ID = $2;`)
	checkNoErr(err)

	updateStatusByIDStmt, err := db.PrepareContext(ctx, `UPDATE real_assets SET STATUS = $2, APPROVED_BY_GOV = $3, TOKENIZED = $4, GOV_COMMENT = $5, LAST_UPDATED = now() WHERE ID = $1;`)
	checkNoErr(err)

	updateStatusByIDOwnerStmt, err := db.PrepareContext(ctx, `UPDATE real_assets SET STATUS = $3, APPROVED_BY_GOV = $4, TOKENIZED = $5, GOV_COMMENT = $6, LAST_UPDATED = now() WHERE ID = $1 AND OWNER_ID = $2;`)
	checkNoErr(err)

	return &RealAssetRepository{db: db, createStmt: createStmt, getByIDStmt: getByIDStmt, getByIDOwnerStmt: getByIDOwnerStmt, getByOwnerStmt: getByOwnerStmt, getByStatusesStmt: getByStatusesStmt, updateFieldsByIDOwnerStmt: updateFieldsByIDOwnerStmt, updateStatusByIDStmt: updateStatusByIDStmt, updateStatusByIDOwnerStmt: updateStatusByIDOwnerStmt}
}

// Create inserts a new real asset
func (r *RealAssetRepository) Create(pCtx context.Context, pAsset persist.RealAsset) (persist.RealAsset, error) {
	if pAsset.ID == "" {
		pAsset.ID = persist.GenerateID()
	}
	row := r.createStmt.QueryRowContext(pCtx, pAsset.ID, pAsset.Version, pAsset.OwnerID, pAsset.Name, pAsset.Description, pAsset.AssetType, pAsset.Location, pAsset.PhotoURLs, pAsset.Parameters, pAsset.Status, pAsset.ApprovedByGov, pAsset.Tokenized, pAsset.GovComment)
	return scanRealAsset(row)
}

// GetByID retrieves a real asset by its ID
func (r *RealAssetRepository) GetByID(pCtx context.Context, pID persist.DBID) (persist.RealAsset, error) {
	asset, err := scanRealAsset(r.getByIDStmt.QueryRowContext(pCtx, pID))
	if err == sql.ErrNoRows {
		return persist.RealAsset{}, persist.ErrRealAssetNotFoundByID{ID: pID}
	}
	return asset, err
}

// GetByIDOwner retrieves a real asset by its ID, filtered to the given owner. A miss is
// indistinguishable from an asset owned by someone else.
func (r *RealAssetRepository) GetByIDOwner(pCtx context.Context, pID persist.DBID, pOwnerID persist.DBID) (persist.RealAsset, error) {
	asset, err := scanRealAsset(r.getByIDOwnerStmt.QueryRowContext(pCtx, pID, pOwnerID))
	if err == sql.ErrNoRows {
		return persist.RealAsset{}, persist.ErrRealAssetNotFoundByID{ID: pID}
	}
	return asset, err
}

// GetByOwner retrieves all real assets registered by an owner
func (r *RealAssetRepository) GetByOwner(pCtx context.Context, pOwnerID persist.DBID) ([]persist.RealAsset, error) {
	rows, err := r.getByOwnerStmt.QueryContext(pCtx, pOwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRealAssets(rows)
}

// GetByStatuses retrieves all real assets whose status is in the given set
func (r *RealAssetRepository) GetByStatuses(pCtx context.Context, pStatuses persist.RealAssetStatusList) ([]persist.RealAsset, error) {
	statuses := make([]string, len(pStatuses))
	for i, s := range pStatuses {
		statuses[i] = s.String()
	}
	rows, err := r.getByStatusesStmt.QueryContext(pCtx, pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRealAssets(rows)
}

// UpdateFieldsByIDOwner replaces the owner-editable fields of an asset and forces its
// status back to the given status (Draft), clearing any prior review.
func (r *RealAssetRepository) UpdateFieldsByIDOwner(pCtx context.Context, pID persist.DBID, pOwnerID persist.DBID, pUpdate persist.RealAssetUpdateInput) error {
	res, err := r.updateFieldsByIDOwnerStmt.ExecContext(pCtx, pID, pOwnerID, pUpdate.Name, pUpdate.Description, pUpdate.AssetType, pUpdate.Location, pUpdate.PhotoURLs, pUpdate.Parameters, persist.RealAssetStatusDraft)
	if err != nil {
		return err
	}
	return requireMatched(res, pID)
}

// UpdateStatusByID sets only the lifecycle fields of an asset
func (r *RealAssetRepository) UpdateStatusByID(pCtx context.Context, pID persist.DBID, pUpdate persist.RealAssetStatusUpdate) error {
	res, err := r.updateStatusByIDStmt.ExecContext(pCtx, pID, pUpdate.Status, pUpdate.ApprovedByGov, pUpdate.Tokenized, pUpdate.GovComment)
	if err != nil {
		return err
	}
	return requireMatched(res, pID)
}

// UpdateStatusByIDOwner sets only the lifecycle fields of an asset, filtered to the given owner
func (r *RealAssetRepository) UpdateStatusByIDOwner(pCtx context.Context, pID persist.DBID, pOwnerID persist.DBID, pUpdate persist.RealAssetStatusUpdate) error {
	res, err := r.updateStatusByIDOwnerStmt.ExecContext(pCtx, pID, pOwnerID, pUpdate.Status, pUpdate.ApprovedByGov, pUpdate.Tokenized, pUpdate.GovComment)
	if err != nil {
		return err
	}
	return requireMatched(res, pID)
}

func requireMatched(res sql.Result, pID persist.DBID) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return persist.ErrRealAssetNotFoundByID{ID: pID}
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRealAsset(row scannable) (persist.RealAsset, error) {
	asset := persist.RealAsset{}
	err := row.Scan(&asset.ID, &asset.Version, &asset.CreationTime, &asset.LastUpdated, &asset.OwnerID, &asset.Name, &asset.Description, &asset.AssetType, &asset.Location, &asset.PhotoURLs, &asset.Parameters, &asset.Status, &asset.ApprovedByGov, &asset.Tokenized, &asset.GovComment)
	if err != nil {
		return persist.RealAsset{}, err
	}
	return asset, nil
}

func scanRealAssets(rows *sql.Rows) ([]persist.RealAsset, error) {
	assets := make([]persist.RealAsset, 0, 10)
	for rows.Next() {
		asset, err := scanRealAsset(rows)
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
