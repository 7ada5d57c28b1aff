package publicapi

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/realtoken-app/go-realtoken/service/logger"
	"github.com/realtoken-app/go-realtoken/service/mediastore"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/util"
	"github.com/realtoken-app/go-realtoken/validate"
)

// RealAssetAPI exposes the owner-facing real asset operations
type RealAssetAPI struct {
	repos     *Repositories
	validator *validator.Validate
	store     *mediastore.Store
}

// CreateRealAssetInput are the fields an owner supplies when registering an asset
type CreateRealAssetInput struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	AssetType   persist.AssetType   `json:"asset_type" binding:"required"`
	Location    persist.Location    `json:"location"`
	PhotoURLs   []string            `json:"photo_list"`
	Parameters  []persist.Parameter `json:"parameters"`
}

// CreateRealAsset registers a new real asset in Draft status, owned by the caller
func (api RealAssetAPI) CreateRealAsset(ctx context.Context, ownerID persist.DBID, input CreateRealAssetInput) (persist.RealAsset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"ownerID":   validate.WithTag(ownerID, "required"),
		"name":      validate.WithTag(input.Name, "required"),
		"assetType": validate.WithTag(input.AssetType, "required,asset_type"),
	}); err != nil {
		return persist.RealAsset{}, err
	}

	asset := persist.RealAsset{
		ID:          persist.GenerateID(),
		OwnerID:     ownerID,
		Name:        persist.NullString(validate.SanitizationPolicy.Sanitize(input.Name)),
		Description: persist.NullString(validate.SanitizationPolicy.Sanitize(input.Description)),
		AssetType:   input.AssetType,
		Location:    input.Location,
		PhotoURLs:   toPhotoURLs(input.PhotoURLs),
		Parameters:  input.Parameters,
		Status:      persist.RealAssetStatusDraft,
	}

	created, err := api.repos.RealAssetRepository.Create(ctx, asset)
	if err != nil {
		return persist.RealAsset{}, fmt.Errorf("error creating real asset: %w", err)
	}

	logger.For(ctx).Infof("user %s registered real asset %s (%s)", ownerID, created.ID, created.AssetType)
	return created, nil
}

// GetRealAssetByID returns one of the caller's assets. A miss is indistinguishable from
// an asset owned by someone else.
func (api RealAssetAPI) GetRealAssetByID(ctx context.Context, ownerID persist.DBID, assetID persist.DBID) (persist.RealAsset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"assetID": validate.WithTag(assetID, "required"),
	}); err != nil {
		return persist.RealAsset{}, err
	}
	return api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
}

// GetRealAssetsByOwner returns every asset the caller has registered
func (api RealAssetAPI) GetRealAssetsByOwner(ctx context.Context, ownerID persist.DBID) ([]persist.RealAsset, error) {
	return api.repos.RealAssetRepository.GetByOwner(ctx, ownerID)
}

// GetActiveRealAssets returns every tokenized, active asset for the public marketplace listing
func (api RealAssetAPI) GetActiveRealAssets(ctx context.Context) ([]persist.RealAsset, error) {
	return api.repos.RealAssetRepository.GetByStatuses(ctx, persist.RealAssetStatusList{persist.RealAssetStatusActive})
}

// SubmitForApproval moves one of the caller's Draft assets to PendingApprovalByGov
func (api RealAssetAPI) SubmitForApproval(ctx context.Context, ownerID persist.DBID, assetID persist.DBID) (persist.RealAsset, error) {
	asset, err := api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
	if err != nil {
		return persist.RealAsset{}, err
	}
	if asset.Status != persist.RealAssetStatusDraft {
		return persist.RealAsset{}, persist.ErrInvalidStatusTransition{ID: assetID, Current: asset.Status, Expected: persist.RealAssetStatusList{persist.RealAssetStatusDraft}}
	}

	update := persist.RealAssetStatusUpdate{
		Status:        persist.RealAssetStatusPendingApproval,
		ApprovedByGov: asset.ApprovedByGov,
		Tokenized:     asset.Tokenized,
		GovComment:    asset.GovComment,
	}
	if err := api.repos.RealAssetRepository.UpdateStatusByIDOwner(ctx, assetID, ownerID, update); err != nil {
		return persist.RealAsset{}, err
	}

	return api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
}

// UpdateRealAsset replaces the owner-editable fields of a Draft or RejectedByGov asset.
// The asset always lands back in Draft: edits invalidate any prior review, and the
// owner must resubmit explicitly.
func (api RealAssetAPI) UpdateRealAsset(ctx context.Context, ownerID persist.DBID, assetID persist.DBID, input CreateRealAssetInput) (persist.RealAsset, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"name":      validate.WithTag(input.Name, "required"),
		"assetType": validate.WithTag(input.AssetType, "required,asset_type"),
	}); err != nil {
		return persist.RealAsset{}, err
	}

	asset, err := api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
	if err != nil {
		return persist.RealAsset{}, err
	}
	editable := persist.RealAssetStatusList{persist.RealAssetStatusDraft, persist.RealAssetStatusRejected}
	if !util.Contains(editable, asset.Status) {
		return persist.RealAsset{}, persist.ErrInvalidStatusTransition{ID: assetID, Current: asset.Status, Expected: editable}
	}

	update := persist.RealAssetUpdateInput{
		Name:        persist.NullString(validate.SanitizationPolicy.Sanitize(input.Name)),
		Description: persist.NullString(validate.SanitizationPolicy.Sanitize(input.Description)),
		AssetType:   input.AssetType,
		Location:    input.Location,
		PhotoURLs:   toPhotoURLs(input.PhotoURLs),
		Parameters:  input.Parameters,
	}
	if err := api.repos.RealAssetRepository.UpdateFieldsByIDOwner(ctx, assetID, ownerID, update); err != nil {
		return persist.RealAsset{}, err
	}

	return api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
}

// ArchiveRealAsset removes one of the caller's assets from circulation. Assets are
// never physically deleted.
func (api RealAssetAPI) ArchiveRealAsset(ctx context.Context, ownerID persist.DBID, assetID persist.DBID) (persist.RealAsset, error) {
	asset, err := api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
	if err != nil {
		return persist.RealAsset{}, err
	}
	if asset.Status == persist.RealAssetStatusArchived {
		return persist.RealAsset{}, persist.ErrInvalidStatusTransition{ID: assetID, Current: asset.Status, Expected: nil}
	}

	update := persist.RealAssetStatusUpdate{
		Status:        persist.RealAssetStatusArchived,
		ApprovedByGov: asset.ApprovedByGov,
		Tokenized:     asset.Tokenized,
		GovComment:    asset.GovComment,
	}
	if err := api.repos.RealAssetRepository.UpdateStatusByIDOwner(ctx, assetID, ownerID, update); err != nil {
		return persist.RealAsset{}, err
	}

	return api.repos.RealAssetRepository.GetByIDOwner(ctx, assetID, ownerID)
}

// UploadPhoto stores an asset photo in object storage and returns its URL
func (api RealAssetAPI) UploadPhoto(ctx context.Context, ownerID persist.DBID, filename string, contentType string, data []byte) (persist.NullString, error) {
	if err := validate.ValidateFields(api.validator, validate.ValidationMap{
		"filename": validate.WithTag(filename, "required"),
		"data":     validate.WithTag(data, "required"),
	}); err != nil {
		return "", err
	}
	return api.store.Put(ctx, ownerID, filename, contentType, data)
}

func toPhotoURLs(urls []string) persist.PhotoURLList {
	return util.MapWithoutError(urls, func(u string) persist.NullString { return persist.NullString(u) })
}
