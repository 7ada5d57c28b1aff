package persist

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

const (
	// RealAssetStatusDraft is the initial status of a newly registered asset
	RealAssetStatusDraft RealAssetStatus = "Draft"
	// RealAssetStatusPendingApproval means the asset awaits a government decision
	RealAssetStatusPendingApproval RealAssetStatus = "PendingApprovalByGov"
	// RealAssetStatusApproved means a government reviewer approved the asset
	RealAssetStatusApproved RealAssetStatus = "ApprovedByGov"
	// RealAssetStatusRejected means a government reviewer rejected the asset
	RealAssetStatusRejected RealAssetStatus = "RejectedByGov"
	// RealAssetStatusTokenizationInProgress means a mint transaction was accepted by the
	// chain and the asset awaits reconciliation
	RealAssetStatusTokenizationInProgress RealAssetStatus = "TokenizationInProgress"
	// RealAssetStatusActive means the asset's token was confirmed on-chain
	RealAssetStatusActive RealAssetStatus = "Active"
	// RealAssetStatusBlockchainError means the mint never landed on-chain; tokenization
	// may be retried
	RealAssetStatusBlockchainError RealAssetStatus = "BlockchainError"
	// RealAssetStatusSold means the asset's token was sold
	RealAssetStatusSold RealAssetStatus = "Sold"
	// RealAssetStatusStaked means the asset's token is staked
	RealAssetStatusStaked RealAssetStatus = "Staked"
	// RealAssetStatusArchived means the owner removed the asset from circulation
	RealAssetStatusArchived RealAssetStatus = "Archived"
)

const (
	// AssetTypeApartment is an apartment
	AssetTypeApartment AssetType = "Apartment"
	// AssetTypeHouse is a house
	AssetTypeHouse AssetType = "House"
	// AssetTypeGarage is a garage
	AssetTypeGarage AssetType = "Garage"
	// AssetTypeParking is a parking space
	AssetTypeParking AssetType = "Parking"
	// AssetTypeLand is a plot of land
	AssetTypeLand AssetType = "Land"
	// AssetTypeCommercial is a commercial property
	AssetTypeCommercial AssetType = "Commercial"
	// AssetTypeBusiness is a business property
	AssetTypeBusiness AssetType = "Business"
	// AssetTypeIndustrial is an industrial property
	AssetTypeIndustrial AssetType = "Industrial"
)

var allAssetTypes = []AssetType{AssetTypeApartment, AssetTypeHouse, AssetTypeGarage, AssetTypeParking, AssetTypeLand, AssetTypeCommercial, AssetTypeBusiness, AssetTypeIndustrial}

// RealAssetStatus represents where a real asset sits in its tokenization lifecycle
type RealAssetStatus string

func (s RealAssetStatus) String() string {
	return string(s)
}

// Value implements the driver.Valuer interface for RealAssetStatus
func (s RealAssetStatus) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements the sql.Scanner interface for RealAssetStatus
func (s *RealAssetStatus) Scan(value interface{}) error {
	if value == nil {
		*s = RealAssetStatusDraft
		return nil
	}
	*s = RealAssetStatus(value.(string))
	return nil
}

// RealAssetStatusList is a slice of statuses, used to implement scanner/valuer interfaces
type RealAssetStatusList []RealAssetStatus

// Value implements the driver.Valuer interface for RealAssetStatusList
func (l RealAssetStatusList) Value() (driver.Value, error) {
	return pq.Array(l).Value()
}

// Scan implements the sql.Scanner interface for RealAssetStatusList
func (l *RealAssetStatusList) Scan(value interface{}) error {
	return pq.Array(l).Scan(value)
}

// AssetType represents the kind of real-world property an asset describes
type AssetType string

func (t AssetType) String() string {
	return string(t)
}

// Valid reports whether the asset type is one of the known property kinds
func (t AssetType) Valid() bool {
	for _, at := range allAssetTypes {
		if t == at {
			return true
		}
	}
	return false
}

// Value implements the driver.Valuer interface for AssetType
func (t AssetType) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements the sql.Scanner interface for AssetType
func (t *AssetType) Scan(value interface{}) error {
	if value == nil {
		*t = AssetType("")
		return nil
	}
	*t = AssetType(value.(string))
	return nil
}

// Location represents a lat/lng point
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value implements the driver.Valuer interface for Location
func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for Location
func (l *Location) Scan(value interface{}) error {
	if value == nil {
		*l = Location{}
		return nil
	}
	return json.Unmarshal(value.([]byte), l)
}

// Parameter is a free-form name/value pair describing a property attribute
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParameterList is a slice of Parameters, stored as a jsonb document
type ParameterList []Parameter

// Value implements the driver.Valuer interface for ParameterList
func (l ParameterList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for ParameterList
func (l *ParameterList) Scan(value interface{}) error {
	if value == nil {
		*l = ParameterList{}
		return nil
	}
	return json.Unmarshal(value.([]byte), l)
}

// PhotoURLList is an ordered list of photo URLs
type PhotoURLList []NullString

// Value implements the driver.Valuer interface for PhotoURLList
func (l PhotoURLList) Value() (driver.Value, error) {
	return pq.Array(l).Value()
}

// Scan implements the sql.Scanner interface for PhotoURLList
func (l *PhotoURLList) Scan(value interface{}) error {
	return pq.Array(l).Scan(value)
}

// RealAsset represents a real-world property registered on the platform
type RealAsset struct {
	ID            DBID            `json:"id" binding:"required"`
	Version       NullInt32       `json:"version"`
	CreationTime  CreationTime    `json:"created_at"`
	LastUpdated   LastUpdatedTime `json:"last_updated"`
	OwnerID       DBID            `json:"owner_id"`
	Name          NullString      `json:"name"`
	Description   NullString      `json:"description"`
	AssetType     AssetType       `json:"asset_type"`
	Location      Location        `json:"location"`
	PhotoURLs     PhotoURLList    `json:"photo_list"`
	Parameters    ParameterList   `json:"parameters"`
	Status        RealAssetStatus `json:"status"`
	ApprovedByGov NullBool        `json:"is_approved_by_gov"`
	Tokenized     NullBool        `json:"is_tokenized"`
	GovComment    NullString      `json:"gov_comment"`
}

// RealAssetUpdateInput is the owner-editable subset of a real asset's fields. Applying
// it forces the asset's status back to Draft so a prior review is invalidated.
type RealAssetUpdateInput struct {
	Name        NullString    `json:"name"`
	Description NullString    `json:"description"`
	AssetType   AssetType     `json:"asset_type"`
	Location    Location      `json:"location"`
	PhotoURLs   PhotoURLList  `json:"photo_list"`
	Parameters  ParameterList `json:"parameters"`
}

// RealAssetStatusUpdate sets only the lifecycle fields of a real asset
type RealAssetStatusUpdate struct {
	Status        RealAssetStatus `json:"status"`
	ApprovedByGov NullBool        `json:"is_approved_by_gov"`
	Tokenized     NullBool        `json:"is_tokenized"`
	GovComment    NullString      `json:"gov_comment"`
}

// RealAssetRepository represents a repository for interacting with persisted real assets
type RealAssetRepository interface {
	Create(context.Context, RealAsset) (RealAsset, error)
	GetByID(context.Context, DBID) (RealAsset, error)
	GetByIDOwner(context.Context, DBID, DBID) (RealAsset, error)
	GetByOwner(context.Context, DBID) ([]RealAsset, error)
	GetByStatuses(context.Context, RealAssetStatusList) ([]RealAsset, error)
	UpdateFieldsByIDOwner(context.Context, DBID, DBID, RealAssetUpdateInput) error
	UpdateStatusByID(context.Context, DBID, RealAssetStatusUpdate) error
	UpdateStatusByIDOwner(context.Context, DBID, DBID, RealAssetStatusUpdate) error
}

// ErrRealAssetNotFoundByID is returned when a real asset is not found by id, or exists
// but does not belong to the caller. The two cases are deliberately indistinguishable.
type ErrRealAssetNotFoundByID struct {
	ID DBID
}

func (e ErrRealAssetNotFoundByID) Error() string {
	return fmt.Sprintf("real asset not found by ID: %s", e.ID)
}

// ErrInvalidStatusTransition is returned when an event is applied to an asset whose
// current status does not permit it
type ErrInvalidStatusTransition struct {
	ID       DBID
	Current  RealAssetStatus
	Expected RealAssetStatusList
}

func (e ErrInvalidStatusTransition) Error() string {
	return fmt.Sprintf("real asset %s has status %s, expected one of %v", e.ID, e.Current, e.Expected)
}
