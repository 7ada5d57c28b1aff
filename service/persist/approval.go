package persist

import (
	"context"
)

// RealAssetApproval is an append-only audit record of a government approval decision
type RealAssetApproval struct {
	ID           DBID            `json:"id" binding:"required"`
	Version      NullInt32       `json:"version"`
	CreationTime CreationTime    `json:"created_at"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`
	RealAssetID  DBID            `json:"real_asset_id"`
	ApproverID   DBID            `json:"approver_id"`
	Comment      NullString      `json:"comment"`
}

// RealAssetApprovalRepository represents a repository for interacting with approval audit records
type RealAssetApprovalRepository interface {
	Create(context.Context, RealAssetApproval) (RealAssetApproval, error)
	GetByRealAssetID(context.Context, DBID) ([]RealAssetApproval, error)
}
