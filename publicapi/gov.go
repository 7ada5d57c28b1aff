package publicapi

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/realtoken-app/go-realtoken/service/logger"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/validate"
)

// GovAPI exposes the government-reviewer operations. Role gating happens in the HTTP
// layer; these methods assume the caller already carries the GOV role.
type GovAPI struct {
	repos     *Repositories
	validator *validator.Validate
}

var pendingOnly = persist.RealAssetStatusList{persist.RealAssetStatusPendingApproval}

// GetPendingRealAssets returns every asset awaiting a government decision
func (api GovAPI) GetPendingRealAssets(ctx context.Context) ([]persist.RealAsset, error) {
	return api.repos.RealAssetRepository.GetByStatuses(ctx, pendingOnly)
}

// ApproveRealAsset approves a pending asset and appends an audit record of the decision
func (api GovAPI) ApproveRealAsset(ctx context.Context, approverID persist.DBID, assetID persist.DBID, comment string) (persist.RealAsset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"approverID": validate.WithTag(approverID, "required"),
		"assetID":    validate.WithTag(assetID, "required"),
	}); err != nil {
		return persist.RealAsset{}, err
	}

	asset, err := api.pendingAsset(ctx, assetID)
	if err != nil {
		return persist.RealAsset{}, err
	}

	comment = validate.SanitizationPolicy.Sanitize(comment)
	update := persist.RealAssetStatusUpdate{
		Status:        persist.RealAssetStatusApproved,
		ApprovedByGov: persist.NullBool(true),
		Tokenized:     asset.Tokenized,
		GovComment:    persist.NullString(comment),
	}
	if err := api.repos.RealAssetRepository.UpdateStatusByID(ctx, assetID, update); err != nil {
		return persist.RealAsset{}, err
	}

	approval := persist.RealAssetApproval{
		ID:          persist.GenerateID(),
		RealAssetID: assetID,
		ApproverID:  approverID,
		Comment:     persist.NullString(comment),
	}
	if _, err := api.repos.ApprovalRepository.Create(ctx, approval); err != nil {
		return persist.RealAsset{}, fmt.Errorf("error recording approval: %w", err)
	}

	logger.For(ctx).Infof("reviewer %s approved real asset %s", approverID, assetID)
	return api.repos.RealAssetRepository.GetByID(ctx, assetID)
}

// RejectRealAsset rejects a pending asset with a comment explaining the decision
func (api GovAPI) RejectRealAsset(ctx context.Context, approverID persist.DBID, assetID persist.DBID, comment string) (persist.RealAsset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"approverID": validate.WithTag(approverID, "required"),
		"assetID":    validate.WithTag(assetID, "required"),
	}); err != nil {
		return persist.RealAsset{}, err
	}

	asset, err := api.pendingAsset(ctx, assetID)
	if err != nil {
		return persist.RealAsset{}, err
	}

	update := persist.RealAssetStatusUpdate{
		Status:        persist.RealAssetStatusRejected,
		ApprovedByGov: persist.NullBool(false),
		Tokenized:     asset.Tokenized,
		GovComment:    persist.NullString(validate.SanitizationPolicy.Sanitize(comment)),
	}
	if err := api.repos.RealAssetRepository.UpdateStatusByID(ctx, assetID, update); err != nil {
		return persist.RealAsset{}, err
	}

	logger.For(ctx).Infof("reviewer %s rejected real asset %s", approverID, assetID)
	return api.repos.RealAssetRepository.GetByID(ctx, assetID)
}

// GetApprovalHistory returns the audit trail of approval decisions for an asset
func (api GovAPI) GetApprovalHistory(ctx context.Context, assetID persist.DBID) ([]persist.RealAssetApproval, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"assetID": validate.WithTag(assetID, "required"),
	}); err != nil {
		return nil, err
	}
	return api.repos.ApprovalRepository.GetByRealAssetID(ctx, assetID)
}

func (api GovAPI) pendingAsset(ctx context.Context, assetID persist.DBID) (persist.RealAsset, error) {
	asset, err := api.repos.RealAssetRepository.GetByID(ctx, assetID)
	if err != nil {
		return persist.RealAsset{}, err
	}
	if asset.Status != persist.RealAssetStatusPendingApproval {
		return persist.RealAsset{}, persist.ErrInvalidStatusTransition{ID: assetID, Current: asset.Status, Expected: pendingOnly}
	}
	return asset, nil
}
