package mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/realtoken-app/go-realtoken/service/logger"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/realtoken-app/go-realtoken/util"
)

// Statuses from which tokenization may begin. BlockchainError is included so a failed
// mint can be retried.
var tokenizableStatuses = persist.RealAssetStatusList{persist.RealAssetStatusApproved, persist.RealAssetStatusBlockchainError}

// Config carries the fixed material and tuning knobs for the minter. It is constructed
// once at process start and passed in, never read from globals.
type Config struct {
	AuthoritySeed  string
	CollectionSeed string
	MintSeed       string

	TokenSymbol          string
	MetadataBaseURI      string
	SellerFeeBasisPoints int32

	SubmitAttempts  int
	SubmitDelay     time.Duration
	ConfirmDeadline time.Duration
}

// Minter builds, co-signs and records mint transactions for approved real assets
type Minter struct {
	cfg        Config
	assetRepo  persist.RealAssetRepository
	cryptoRepo persist.CryptoAssetRepository
	chain      sol.Client
}

// NewMinter creates a new Minter
func NewMinter(cfg Config, assetRepo persist.RealAssetRepository, cryptoRepo persist.CryptoAssetRepository, chain sol.Client) *Minter {
	if cfg.SubmitAttempts == 0 {
		cfg.SubmitAttempts = 3
	}
	if cfg.SubmitDelay == 0 {
		cfg.SubmitDelay = 2 * time.Second
	}
	if cfg.ConfirmDeadline == 0 {
		cfg.ConfirmDeadline = 45 * time.Second
	}
	return &Minter{cfg: cfg, assetRepo: assetRepo, cryptoRepo: cryptoRepo, chain: chain}
}

// ErrSubmitFailed is returned when the chain rejected a transaction on every attempt
type ErrSubmitFailed struct {
	Attempts int
	Last     error
}

func (e ErrSubmitFailed) Error() string {
	return fmt.Sprintf("transaction submission failed after %d attempts: %s", e.Attempts, e.Last)
}

func (e ErrSubmitFailed) Unwrap() error {
	return e.Last
}

// ErrConfirmationTimeout is returned when a submitted transaction did not reach
// confirmed status within the deadline. The asset's true state is resolved later by the
// reconciliation processor.
type ErrConfirmationTimeout struct {
	TxHash string
}

func (e ErrConfirmationTimeout) Error() string {
	return fmt.Sprintf("transaction %s was not confirmed before the deadline", e.TxHash)
}

// BeginTokenization builds the mint transaction for an asset and partially signs it with
// the platform authority and the derived mint key. The returned base64 transaction is
// handed to the owner's wallet for co-signing; asset status is untouched until
// ConfirmTokenization.
func (m *Minter) BeginTokenization(ctx context.Context, assetID persist.DBID, ownerID persist.DBID, ownerAddress persist.Address) (string, error) {
	asset, err := m.guardedAsset(ctx, assetID, ownerID)
	if err != nil {
		return "", err
	}

	no, err := m.sequenceNumberFor(ctx, asset.ID)
	if err != nil {
		return "", err
	}

	blockhash, err := m.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("error fetching blockhash: %w", err)
	}

	tx, _, err := m.buildTransaction(asset, no, ownerAddress, blockhash)
	if err != nil {
		return "", err
	}

	logger.For(ctx).Infof("built mint transaction for asset %s with sequence number %d", assetID, no)
	return tx.SerializeBase64()
}

// ConfirmTokenization rebuilds the transaction from BeginTokenization deterministically,
// attaches the owner's signature, submits it with bounded retries, and waits for the
// chain to confirm. Only then does it record the CryptoAsset, superseding any record
// left by a failed earlier attempt, and set the asset to TokenizationInProgress. The
// record is written before the status flips so a crash in between leaves the asset where
// the reconciliation loop can still find and resolve it.
func (m *Minter) ConfirmTokenization(ctx context.Context, assetID persist.DBID, ownerID persist.DBID, ownerSignature string, recentBlockhash string, ownerAddress persist.Address) (string, error) {
	// Re-checked: state may have changed between begin and confirm.
	asset, err := m.guardedAsset(ctx, assetID, ownerID)
	if err != nil {
		return "", err
	}

	no, err := m.sequenceNumberFor(ctx, asset.ID)
	if err != nil {
		return "", err
	}

	tx, mintKey, err := m.buildTransaction(asset, no, ownerAddress, recentBlockhash)
	if err != nil {
		return "", err
	}

	if err := tx.AttachSignature(ownerAddress, ownerSignature); err != nil {
		return "", err
	}

	raw, err := tx.Serialize()
	if err != nil {
		return "", err
	}

	txHash, err := m.submitWithRetry(ctx, raw)
	if err != nil {
		return "", err
	}

	if err := m.awaitConfirmation(ctx, txHash); err != nil {
		return "", err
	}

	authority, err := sol.DeriveKeypair(m.cfg.AuthoritySeed, 0)
	if err != nil {
		return "", err
	}

	cryptoAsset := persist.CryptoAsset{
		ID:                     persist.GenerateID(),
		No:                     persist.NullInt64(no),
		RealAssetID:            asset.ID,
		OwnerID:                ownerID,
		OwnerAddress:           ownerAddress,
		MintAddress:            mintKey.Address(),
		UpdateAuthorityAddress: authority.Address(),
		Name:                   asset.Name,
		Symbol:                 persist.NullString(fmt.Sprintf("%s%d", m.cfg.TokenSymbol, no)),
		MetadataURI:            persist.NullString(fmt.Sprintf("%s/%d.json", m.cfg.MetadataBaseURI, no)),
		SellerFeeBasisPoints:   persist.NullInt32(m.cfg.SellerFeeBasisPoints),
		CreatorAddresses:       persist.AddressList{authority.Address(), ownerAddress},
	}
	// A retry after BlockchainError leaves a record from the failed attempt behind;
	// clear it so the asset always has exactly one and the reconciliation loop judges
	// the submission that just confirmed, not the one that never landed.
	if err := m.cryptoRepo.DeleteByRealAssetID(ctx, asset.ID); err != nil {
		return "", fmt.Errorf("error clearing superseded crypto asset: %w", err)
	}
	if _, err := m.cryptoRepo.Create(ctx, cryptoAsset); err != nil {
		return "", fmt.Errorf("error persisting crypto asset: %w", err)
	}

	update := persist.RealAssetStatusUpdate{
		Status:        persist.RealAssetStatusTokenizationInProgress,
		ApprovedByGov: persist.NullBool(true),
		Tokenized:     persist.NullBool(true),
		GovComment:    asset.GovComment,
	}
	if err := m.assetRepo.UpdateStatusByID(ctx, asset.ID, update); err != nil {
		return "", fmt.Errorf("error updating asset status after mint: %w", err)
	}

	logger.For(ctx).Infof("mint transaction %s accepted for asset %s (no=%d, mint=%s)", txHash, asset.ID, no, mintKey.Address())
	return txHash, nil
}

func (m *Minter) guardedAsset(ctx context.Context, assetID persist.DBID, ownerID persist.DBID) (persist.RealAsset, error) {
	asset, err := m.assetRepo.GetByIDOwner(ctx, assetID, ownerID)
	if err != nil {
		return persist.RealAsset{}, err
	}
	if !util.Contains(tokenizableStatuses, asset.Status) {
		return persist.RealAsset{}, persist.ErrInvalidStatusTransition{ID: assetID, Current: asset.Status, Expected: tokenizableStatuses}
	}
	return asset, nil
}

// sequenceNumberFor returns the sequence number already assigned to the asset by a prior
// mint attempt, so a retry rebuilds the exact same transaction, and otherwise allocates
// the next number from the current mint count. Two concurrent first-time callers can
// observe the same count and derive the same sequence number; the platform's human-paced
// request rate makes the window acceptable for now.
// TODO allocate sequence numbers from a store-side counter once tokenization volume warrants it
func (m *Minter) sequenceNumberFor(ctx context.Context, assetID persist.DBID) (int64, error) {
	existing, err := m.cryptoRepo.GetByRealAssetID(ctx, assetID)
	if err == nil {
		return existing.No.Int64(), nil
	}
	if !errors.As(err, &persist.ErrCryptoAssetNotFoundByRealAssetID{}) {
		return 0, fmt.Errorf("error looking up prior mint attempt: %w", err)
	}

	count, err := m.cryptoRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("error counting crypto assets: %w", err)
	}
	return count + 1, nil
}

func (m *Minter) buildTransaction(asset persist.RealAsset, no int64, ownerAddress persist.Address, blockhash string) (sol.Transaction, sol.Keypair, error) {
	authority, err := sol.DeriveKeypair(m.cfg.AuthoritySeed, 0)
	if err != nil {
		return sol.Transaction{}, sol.Keypair{}, err
	}
	collection, err := sol.DeriveKeypair(m.cfg.CollectionSeed, 0)
	if err != nil {
		return sol.Transaction{}, sol.Keypair{}, err
	}
	mintKey, err := sol.DeriveKeypair(m.cfg.MintSeed, no)
	if err != nil {
		return sol.Transaction{}, sol.Keypair{}, err
	}

	msg := sol.Message{
		RecentBlockhash: blockhash,
		FeePayer:        authority.Address(),
		Instructions: []sol.Instruction{
			{
				Program:  sol.InstructionCreateMint,
				Accounts: []persist.Address{mintKey.Address(), authority.Address()},
				Params: map[string]string{
					"name":                    asset.Name.String(),
					"symbol":                  fmt.Sprintf("%s%d", m.cfg.TokenSymbol, no),
					"uri":                     fmt.Sprintf("%s/%d.json", m.cfg.MetadataBaseURI, no),
					"seller_fee_basis_points": fmt.Sprintf("%d", m.cfg.SellerFeeBasisPoints),
				},
			},
			{
				Program:  sol.InstructionCreateATA,
				Accounts: []persist.Address{mintKey.Address(), ownerAddress},
				Params:   map[string]string{},
			},
			{
				Program:  sol.InstructionVerifyCollection,
				Accounts: []persist.Address{mintKey.Address(), collection.Address()},
				Params:   map[string]string{},
			},
		},
	}

	tx := sol.Transaction{Message: msg}
	if err := tx.PartiallySign(authority, mintKey); err != nil {
		return sol.Transaction{}, sol.Keypair{}, err
	}
	return tx, mintKey, nil
}

func (m *Minter) submitWithRetry(ctx context.Context, raw []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= m.cfg.SubmitAttempts; attempt++ {
		txHash, err := m.chain.Submit(ctx, raw)
		if err == nil {
			return txHash, nil
		}
		lastErr = err
		logger.For(ctx).Warnf("transaction submission attempt %d/%d failed: %s", attempt, m.cfg.SubmitAttempts, err)
		if attempt < m.cfg.SubmitAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(m.cfg.SubmitDelay):
			}
		}
	}
	return "", ErrSubmitFailed{Attempts: m.cfg.SubmitAttempts, Last: lastErr}
}

// awaitConfirmation polls the transaction's status with incremental backoff until it is
// at least confirmed or the deadline passes. "Not yet visible" is retryable within the
// deadline, never fatal.
func (m *Minter) awaitConfirmation(ctx context.Context, txHash string) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ConfirmDeadline)
	defer cancel()

	wait := 500 * time.Millisecond
	for {
		status, err := m.chain.GetConfirmationStatus(ctx, txHash)
		if err != nil {
			logger.For(ctx).Warnf("error checking confirmation status of %s: %s", txHash, err)
		} else if status.AtLeastConfirmed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrConfirmationTimeout{TxHash: txHash}
		case <-time.After(wait):
		}
		if wait < 8*time.Second {
			wait *= 2
		}
	}
}
