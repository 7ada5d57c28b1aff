package mint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/service/sol"
)

type memAssetRepo struct {
	mu     sync.Mutex
	assets map[persist.DBID]persist.RealAsset
}

func newMemAssetRepo(assets ...persist.RealAsset) *memAssetRepo {
	r := &memAssetRepo{assets: map[persist.DBID]persist.RealAsset{}}
	for _, a := range assets {
		r.assets[a.ID] = a
	}
	return r
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

// failingStatusAssetRepo rejects every status update so the write ordering around it
// can be observed
type failingStatusAssetRepo struct {
	*memAssetRepo
}

func (r *failingStatusAssetRepo) UpdateStatusByID(ctx context.Context, id persist.DBID, update persist.RealAssetStatusUpdate) error {
	return errors.New("store unavailable")
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
	if token.CreationTime.Time().IsZero() {
		token.CreationTime = persist.CreationTime(time.Now())
	}
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

// fakeChain scripts chain responses per call site
type fakeChain struct {
	mu sync.Mutex

	accountExists bool
	blockhash     string
	submitErrs    []error
	submitHash    string
	submitCalls   int
	statuses      []sol.ConfirmationStatus
	statusCalls   int
	submissions   [][]byte
}

func (f *fakeChain) AccountExists(ctx context.Context, addr persist.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountExists, nil
}

func (f *fakeChain) GetBalance(ctx context.Context, addr persist.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeChain) GetLatestBlockhash(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockhash == "" {
		return "FakeBlockhash1111111111111111111111111111111", nil
	}
	return f.blockhash, nil
}

func (f *fakeChain) Submit(ctx context.Context, signedTx []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, signedTx)
	call := f.submitCalls
	f.submitCalls++
	if call < len(f.submitErrs) && f.submitErrs[call] != nil {
		return "", f.submitErrs[call]
	}
	if f.submitHash == "" {
		return "FakeTxHash", nil
	}
	return f.submitHash, nil
}

func (f *fakeChain) GetConfirmationStatus(ctx context.Context, txHash string) (sol.ConfirmationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.statusCalls
	f.statusCalls++
	if len(f.statuses) == 0 {
		return sol.ConfirmationStatusConfirmed, nil
	}
	if call >= len(f.statuses) {
		return f.statuses[len(f.statuses)-1], nil
	}
	return f.statuses[call], nil
}
