package publicapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/realtoken-app/go-realtoken/service/mint"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/spf13/viper"
)

func newTestAPI(t *testing.T, chain sol.Client) (*PublicAPI, *Repositories) {
	t.Helper()
	viper.Set("AUTH_JWT_SECRET", "test-jwt-secret")
	viper.Set("AUTH_JWT_TTL_SECONDS", int64(3600))

	repos := &Repositories{
		RealAssetRepository:   newMemAssetRepo(),
		CryptoAssetRepository: &memCryptoRepo{},
		ApprovalRepository:    &memApprovalRepo{},
		UserRepository:        &memUserRepo{users: map[persist.DBID]persist.User{}},
	}
	minter := mint.NewMinter(mint.Config{
		AuthoritySeed:   "test-authority-seed",
		CollectionSeed:  "test-collection-seed",
		MintSeed:        "test-mint-seed",
		TokenSymbol:     "RTKN",
		MetadataBaseURI: "https://meta.example.com/tokens",
		SubmitDelay:     time.Millisecond,
		ConfirmDeadline: 250 * time.Millisecond,
	}, repos.RealAssetRepository, repos.CryptoAssetRepository, chain)

	return New(context.Background(), repos, chain, minter, nil), repos
}

func seedAsset(t *testing.T, repos *Repositories, ownerID persist.DBID, status persist.RealAssetStatus) persist.RealAsset {
	t.Helper()
	asset, err := repos.RealAssetRepository.Create(context.Background(), persist.RealAsset{
		ID:        persist.GenerateID(),
		OwnerID:   ownerID,
		Name:      persist.NullString("Seaside Apartment"),
		AssetType: persist.AssetTypeApartment,
		Status:    status,
	})
	if err != nil {
		t.Fatalf("failed to seed asset: %s", err)
	}
	return asset
}

type memAssetRepo struct {
	mu     sync.Mutex
	assets map[persist.DBID]persist.RealAsset
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{assets: map[persist.DBID]persist.RealAsset{}}
}

func (r *memAssetRepo) Create(ctx context.Context, asset persist.RealAsset) (persist.RealAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if asset.ID == "" {
		asset.ID = persist.GenerateID()
	}
	asset.CreationTime = persist.CreationTime(time.Now())
	r.assets[asset.ID] = asset
	return asset, nil
}

func (r *memAssetRepo) GetByID(ctx context.Context, id persist.DBID) (persist.RealAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return persist.RealAsset{}, persist.ErrRealAssetNotFoundByID{ID: id}
	}
	return asset, nil
}

func (r *memAssetRepo) GetByIDOwner(ctx context.Context, id persist.DBID, ownerID persist.DBID) (persist.RealAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok || asset.OwnerID != ownerID {
		return persist.RealAsset{}, persist.ErrRealAssetNotFoundByID{ID: id}
	}
	return asset, nil
}

func (r *memAssetRepo) GetByOwner(ctx context.Context, ownerID persist.DBID) ([]persist.RealAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []persist.RealAsset{}
	for _, a := range r.assets {
		if a.OwnerID == ownerID {
			res = append(res, a)
		}
	}
	return res, nil
}

func (r *memAssetRepo) GetByStatuses(ctx context.Context, statuses persist.RealAssetStatusList) ([]persist.RealAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []persist.RealAsset{}
	for _, a := range r.assets {
		for _, s := range statuses {
			if a.Status == s {
				res = append(res, a)
				break
			}
		}
	}
	return res, nil
}

func (r *memAssetRepo) UpdateFieldsByIDOwner(ctx context.Context, id persist.DBID, ownerID persist.DBID, input persist.RealAssetUpdateInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok || asset.OwnerID != ownerID {
		return persist.ErrRealAssetNotFoundByID{ID: id}
	}
	asset.Name = input.Name
	asset.Description = input.Description
	asset.AssetType = input.AssetType
	asset.Location = input.Location
	asset.PhotoURLs = input.PhotoURLs
	asset.Parameters = input.Parameters
	asset.Status = persist.RealAssetStatusDraft
	asset.ApprovedByGov = persist.NullBool(false)
	asset.GovComment = persist.NullString("")
	asset.LastUpdated = persist.LastUpdatedTime(time.Now())
	r.assets[id] = asset
	return nil
}

func (r *memAssetRepo) UpdateStatusByID(ctx context.Context, id persist.DBID, update persist.RealAssetStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return persist.ErrRealAssetNotFoundByID{ID: id}
	}
	r.assets[id] = applyStatusUpdate(asset, update)
	return nil
}

func (r *memAssetRepo) UpdateStatusByIDOwner(ctx context.Context, id persist.DBID, ownerID persist.DBID, update persist.RealAssetStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok || asset.OwnerID != ownerID {
		return persist.ErrRealAssetNotFoundByID{ID: id}
	}
	r.assets[id] = applyStatusUpdate(asset, update)
	return nil
}

func applyStatusUpdate(asset persist.RealAsset, update persist.RealAssetStatusUpdate) persist.RealAsset {
	asset.Status = update.Status
	asset.ApprovedByGov = update.ApprovedByGov
	asset.Tokenized = update.Tokenized
	asset.GovComment = update.GovComment
	asset.LastUpdated = persist.LastUpdatedTime(time.Now())
	return asset
}

type memCryptoRepo struct {
	mu     sync.Mutex
	tokens []persist.CryptoAsset
}

func (r *memCryptoRepo) Create(ctx context.Context, token persist.CryptoAsset) (persist.CryptoAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		token.ID = persist.GenerateID()
	}
	token.CreationTime = persist.CreationTime(time.Now())
	r.tokens = append(r.tokens, token)
	return token, nil
}

func (r *memCryptoRepo) GetByRealAssetID(ctx context.Context, realAssetID persist.DBID) (persist.CryptoAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.RealAssetID == realAssetID {
			return t, nil
		}
	}
	return persist.CryptoAsset{}, persist.ErrCryptoAssetNotFoundByRealAssetID{RealAssetID: realAssetID}
}

func (r *memCryptoRepo) GetByOwner(ctx context.Context, ownerID persist.DBID) ([]persist.CryptoAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []persist.CryptoAsset{}
	for _, t := range r.tokens {
		if t.OwnerID == ownerID {
			res = append(res, t)
		}
	}
	return res, nil
}

func (r *memCryptoRepo) GetByRealAssetIDsCreatedBefore(ctx context.Context, realAssetIDs persist.DBIDList, before time.Time) ([]persist.CryptoAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []persist.CryptoAsset{}
	for _, t := range r.tokens {
		if !t.CreationTime.Time().Before(before) {
			continue
		}
		for _, id := range realAssetIDs {
			if t.RealAssetID == id {
				res = append(res, t)
				break
			}
		}
	}
	return res, nil
}

func (r *memCryptoRepo) DeleteByRealAssetID(ctx context.Context, realAssetID persist.DBID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]persist.CryptoAsset, 0, len(r.tokens))
	for _, t := range r.tokens {
		if t.RealAssetID != realAssetID {
			kept = append(kept, t)
		}
	}
	r.tokens = kept
	return nil
}

func (r *memCryptoRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.tokens)), nil
}

type memApprovalRepo struct {
	mu        sync.Mutex
	approvals []persist.RealAssetApproval
}

func (r *memApprovalRepo) Create(ctx context.Context, approval persist.RealAssetApproval) (persist.RealAssetApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if approval.ID == "" {
		approval.ID = persist.GenerateID()
	}
	approval.CreationTime = persist.CreationTime(time.Now())
	r.approvals = append(r.approvals, approval)
	return approval, nil
}

func (r *memApprovalRepo) GetByRealAssetID(ctx context.Context, realAssetID persist.DBID) ([]persist.RealAssetApproval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []persist.RealAssetApproval{}
	for _, a := range r.approvals {
		if a.RealAssetID == realAssetID {
			res = append(res, a)
		}
	}
	return res, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[persist.DBID]persist.User
}

func (r *memUserRepo) Create(ctx context.Context, user persist.User) (persist.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username.String(), user.Username.String()) {
			return persist.User{}, persist.ErrUserAlreadyExists{Username: user.Username.String()}
		}
	}
	if user.ID == "" {
		user.ID = persist.GenerateID()
	}
	user.CreationTime = persist.CreationTime(time.Now())
	r.users[user.ID] = user
	return user, nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id persist.DBID) (persist.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return persist.User{}, persist.ErrUserNotFound{ID: id}
	}
	return user, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (persist.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username.String(), username) {
			return u, nil
		}
	}
	return persist.User{}, persist.ErrUserNotFound{Username: username}
}

// scriptedChain answers chain queries from fixed values
type scriptedChain struct {
	balance   uint64
	exists    bool
	blockhash string
}

func (c *scriptedChain) AccountExists(ctx context.Context, addr persist.Address) (bool, error) {
	return c.exists, nil
}

func (c *scriptedChain) GetBalance(ctx context.Context, addr persist.Address) (uint64, error) {
	return c.balance, nil
}

func (c *scriptedChain) GetLatestBlockhash(ctx context.Context) (string, error) {
	if c.blockhash == "" {
		return "TestBlockhash1111111111111111111111111111111", nil
	}
	return c.blockhash, nil
}

func (c *scriptedChain) Submit(ctx context.Context, signedTx []byte) (string, error) {
	return "ScriptedTxHash", nil
}

func (c *scriptedChain) GetConfirmationStatus(ctx context.Context, txHash string) (sol.ConfirmationStatus, error) {
	return sol.ConfirmationStatusConfirmed, nil
}
