package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/realtoken-app/go-realtoken/service/persist"
)

const approvalColumns = `ID,VERSION,CREATED_AT,LAST_UPDATED,REAL_ASSET_ID,APPROVER_ID,COMMENT`

// RealAssetApprovalRepository represents an approval audit repository in the postgres
// database. Rows are append-only; there is no update statement on purpose.
type RealAssetApprovalRepository struct {
	db                   *sql.DB
	createStmt           *sql.Stmt
	getByRealAssetIDStmt *sql.Stmt
}

// NewRealAssetApprovalRepository creates a new postgres repository for interacting with approval audit records
func NewRealAssetApprovalRepository(db *sql.DB) *RealAssetApprovalRepository {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO real_asset_approvals (ID,VERSION,REAL_ASSET_ID,APPROVER_ID,COMMENT) VALUES ($1,$2,$3,$4,$5) RETURNING `+approvalColumns+`;`)
	checkNoErr(err)

	getByRealAssetIDStmt, err := db.PrepareContext(ctx, `SELECT `+approvalColumns+` FROM real_asset_approvals WHERE REAL_ASSET_ID = $1 ORDER BY CREATED_AT;`)
	checkNoErr(err)

	return &RealAssetApprovalRepository{db: db, createStmt: createStmt, getByRealAssetIDStmt: getByRealAssetIDStmt}
}

// Create appends a new approval audit record
func (r *RealAssetApprovalRepository) Create(pCtx context.Context, pApproval persist.RealAssetApproval) (persist.RealAssetApproval, error) {
	if pApproval.ID == "" {
		pApproval.ID = persist.GenerateID()
	}
	approval := persist.RealAssetApproval{}
	err := r.createStmt.QueryRowContext(pCtx, pApproval.ID, pApproval.Version, pApproval.RealAssetID, pApproval.ApproverID, pApproval.Comment).
		Scan(&approval.ID, &approval.Version, &approval.CreationTime, &approval.LastUpdated, &approval.RealAssetID, &approval.ApproverID, &approval.Comment)
	if err != nil {
		return persist.RealAssetApproval{}, err
	}
	return approval, nil
}

// GetByRealAssetID retrieves every approval decision recorded for a real asset
func (r *RealAssetApprovalRepository) GetByRealAssetID(pCtx context.Context, pRealAssetID persist.DBID) ([]persist.RealAssetApproval, error) {
	rows, err := r.getByRealAssetIDStmt.QueryContext(pCtx, pRealAssetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make([]persist.RealAssetApproval, 0, 5)
	for rows.Next() {
		approval := persist.RealAssetApproval{}
		if err := rows.Scan(&approval.ID, &approval.Version, &approval.CreationTime, &approval.LastUpdated, &approval.RealAssetID, &approval.ApproverID, &approval.Comment); err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return approvals, nil
}
