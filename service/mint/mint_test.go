package mint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AuthoritySeed:        "test-authority-seed",
		CollectionSeed:       "test-collection-seed",
		MintSeed:             "test-mint-seed",
		TokenSymbol:          "RTKN",
		MetadataBaseURI:      "https://meta.example.com/tokens",
		SellerFeeBasisPoints: 250,
		SubmitAttempts:       3,
		SubmitDelay:          time.Millisecond,
		ConfirmDeadline:      250 * time.Millisecond,
	}
}

func approvedAsset(ownerID persist.DBID) persist.RealAsset {
	return persist.RealAsset{
		ID:      persist.GenerateID(),
		OwnerID: ownerID,
		Name:    persist.NullString("Test Villa"),
		Status:  persist.RealAssetStatusApproved,
	}
}

func ownerKeypairAndSign(t *testing.T, cfg Config, assetRepo persist.RealAssetRepository, cryptoRepo persist.CryptoAssetRepository, chain sol.Client, assetID persist.DBID, ownerID persist.DBID) (sol.Keypair, string, string) {
	t.Helper()

	owner, err := sol.DeriveKeypair("test-owner-seed", 0)
	require.NoError(t, err)

	m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
	encoded, err := m.BeginTokenization(context.Background(), assetID, ownerID, owner.Address())
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	tx, err := sol.DeserializeTransaction(raw)
	require.NoError(t, err)

	msg, err := tx.Message.Bytes()
	require.NoError(t, err)

	return owner, base58.Encode(owner.Sign(msg)), tx.Message.RecentBlockhash
}

func TestBeginTokenization(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	ownerID := persist.GenerateID()

	t.Run("builds a partially signed transaction without touching status", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{blockhash: "TestBlockhash"}
		m := NewMinter(testConfig(), assetRepo, cryptoRepo, chain)

		owner, err := sol.DeriveKeypair("test-owner-seed", 0)
		require.NoError(t, err)

		encoded, err := m.BeginTokenization(ctx, asset.ID, ownerID, owner.Address())
		a.NoError(err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		tx, err := sol.DeserializeTransaction(raw)
		require.NoError(t, err)

		a.Equal("TestBlockhash", tx.Message.RecentBlockhash)
		a.Len(tx.Message.Instructions, 3)
		a.Equal(sol.InstructionCreateMint, tx.Message.Instructions[0].Program)
		a.Len(tx.Signatures, 2, "authority and mint key should have signed")

		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusApproved, stored.Status)
		count, _ := cryptoRepo.Count(ctx)
		a.Zero(count)
	})

	t.Run("first mint gets sequence number one", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		m := NewMinter(testConfig(), assetRepo, cryptoRepo, &fakeChain{})

		owner, err := sol.DeriveKeypair("test-owner-seed", 0)
		require.NoError(t, err)

		encoded, err := m.BeginTokenization(ctx, asset.ID, ownerID, owner.Address())
		require.NoError(t, err)
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		tx, err := sol.DeserializeTransaction(raw)
		require.NoError(t, err)

		a.Equal("RTKN1", tx.Message.Instructions[0].Params["symbol"])
	})

	t.Run("sequence number is mint count plus one", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		for i := 0; i < 4; i++ {
			_, err := cryptoRepo.Create(ctx, persist.CryptoAsset{RealAssetID: persist.GenerateID()})
			require.NoError(t, err)
		}
		m := NewMinter(testConfig(), assetRepo, cryptoRepo, &fakeChain{})

		owner, err := sol.DeriveKeypair("test-owner-seed", 0)
		require.NoError(t, err)

		encoded, err := m.BeginTokenization(ctx, asset.ID, ownerID, owner.Address())
		require.NoError(t, err)
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		tx, err := sol.DeserializeTransaction(raw)
		require.NoError(t, err)

		a.Equal("RTKN5", tx.Message.Instructions[0].Params["symbol"])
	})

	t.Run("rejects an asset that is not approved", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		asset.Status = persist.RealAssetStatusDraft
		m := NewMinter(testConfig(), newMemAssetRepo(asset), &memCryptoRepo{}, &fakeChain{})

		_, err := m.BeginTokenization(ctx, asset.ID, ownerID, "addr")
		a.ErrorAs(err, &persist.ErrInvalidStatusTransition{})
	})

	t.Run("allows retry from BlockchainError", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		asset.Status = persist.RealAssetStatusBlockchainError
		m := NewMinter(testConfig(), newMemAssetRepo(asset), &memCryptoRepo{}, &fakeChain{})

		owner, err := sol.DeriveKeypair("test-owner-seed", 0)
		require.NoError(t, err)

		_, err = m.BeginTokenization(ctx, asset.ID, ownerID, owner.Address())
		a.NoError(err)
	})

	t.Run("hides assets of other owners", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		m := NewMinter(testConfig(), newMemAssetRepo(asset), &memCryptoRepo{}, &fakeChain{})

		_, err := m.BeginTokenization(ctx, asset.ID, persist.GenerateID(), "addr")
		a.ErrorAs(err, &persist.ErrRealAssetNotFoundByID{})
	})
}

func TestConfirmTokenization(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	ownerID := persist.GenerateID()
	cfg := testConfig()

	t.Run("submits, confirms, and records the mint", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{submitHash: "AcceptedTx"}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)

		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		txHash, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		a.NoError(err)
		a.Equal("AcceptedTx", txHash)

		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusTokenizationInProgress, stored.Status)
		a.True(stored.Tokenized.Bool())

		token, err := cryptoRepo.GetByRealAssetID(ctx, asset.ID)
		a.NoError(err)
		a.Equal(int64(1), token.No.Int64())
		a.Equal(ownerID, token.OwnerID)
		a.Equal(owner.Address(), token.OwnerAddress)
		a.Equal(persist.NullString("RTKN1"), token.Symbol)
		a.Len(token.CreatorAddresses, 2)
	})

	t.Run("submitted transaction carries all three signatures", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)

		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		require.NoError(t, err)

		require.Len(t, chain.submissions, 1)
		tx, err := sol.DeserializeTransaction(chain.submissions[0])
		require.NoError(t, err)
		a.Len(tx.Signatures, 3)
		a.Contains(tx.Signatures, owner.Address().String())
	})

	t.Run("rejects a signature over the wrong message", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{}

		owner, err := sol.DeriveKeypair("test-owner-seed", 0)
		require.NoError(t, err)
		badSig := base58.Encode(owner.Sign([]byte("not the transaction")))

		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err = m.ConfirmTokenization(ctx, asset.ID, ownerID, badSig, "blockhash", owner.Address())
		a.ErrorAs(err, &sol.ErrInvalidSignature{})

		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusApproved, stored.Status)
	})

	t.Run("retries submission and succeeds on a later attempt", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{submitErrs: []error{errors.New("node unavailable"), errors.New("node unavailable")}}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)

		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		a.NoError(err)
		a.Equal(3, chain.submitCalls)
	})

	t.Run("gives up after exhausting submit attempts", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		submitErr := errors.New("node unavailable")
		chain := &fakeChain{submitErrs: []error{submitErr, submitErr, submitErr}}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)

		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())

		submitFailed := ErrSubmitFailed{}
		a.ErrorAs(err, &submitFailed)
		a.Equal(3, submitFailed.Attempts)
		a.ErrorIs(err, submitErr)

		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusApproved, stored.Status, "status must not advance when submission never succeeded")
		count, _ := cryptoRepo.Count(ctx)
		a.Zero(count)
	})

	t.Run("a retry after a flagged mint supersedes the old record", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)
		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		require.NoError(t, err)

		first, err := cryptoRepo.GetByRealAssetID(ctx, asset.ID)
		require.NoError(t, err)

		// The reconciliation loop found no mint account and flagged the asset.
		require.NoError(t, assetRepo.UpdateStatusByID(ctx, asset.ID, persist.RealAssetStatusUpdate{
			Status:        persist.RealAssetStatusBlockchainError,
			ApprovedByGov: persist.NullBool(true),
			Tokenized:     persist.NullBool(true),
		}))

		owner, sig, blockhash = ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)
		m = NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err = m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		require.NoError(t, err)

		count, err := cryptoRepo.Count(ctx)
		require.NoError(t, err)
		a.Equal(int64(1), count, "the failed attempt's record must not linger")

		second, err := cryptoRepo.GetByRealAssetID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(first.No, second.No, "a retry rebuilds the same transaction")
		a.Equal(first.MintAddress, second.MintAddress)
		a.NotEqual(first.ID, second.ID)

		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusTokenizationInProgress, stored.Status)
	})

	t.Run("a failed status update leaves the asset retryable", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := &failingStatusAssetRepo{memAssetRepo: newMemAssetRepo(asset)}
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)
		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		a.Error(err)

		// The record was written first, so the asset never lands in
		// TokenizationInProgress without a record for the loop to judge.
		count, _ := cryptoRepo.Count(ctx)
		a.Equal(int64(1), count)
		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusApproved, stored.Status)
	})

	t.Run("times out when confirmation never arrives", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{statuses: []sol.ConfirmationStatus{sol.ConfirmationStatusNone}}

		owner, sig, blockhash := ownerKeypairAndSign(t, cfg, assetRepo, cryptoRepo, chain, asset.ID, ownerID)

		m := NewMinter(cfg, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		a.ErrorAs(err, &ErrConfirmationTimeout{})

		stored, err := assetRepo.GetByID(ctx, asset.ID)
		require.NoError(t, err)
		a.Equal(persist.RealAssetStatusApproved, stored.Status)
	})

	t.Run("waits through processed to confirmed", func(t *testing.T) {
		asset := approvedAsset(ownerID)
		assetRepo := newMemAssetRepo(asset)
		cryptoRepo := &memCryptoRepo{}
		chain := &fakeChain{statuses: []sol.ConfirmationStatus{sol.ConfirmationStatusNone, sol.ConfirmationStatusProcessed, sol.ConfirmationStatusFinalized}}

		cfgSlow := cfg
		cfgSlow.ConfirmDeadline = 5 * time.Second

		owner, sig, blockhash := ownerKeypairAndSign(t, cfgSlow, assetRepo, cryptoRepo, chain, asset.ID, ownerID)

		m := NewMinter(cfgSlow, assetRepo, cryptoRepo, chain)
		_, err := m.ConfirmTokenization(ctx, asset.ID, ownerID, sig, blockhash, owner.Address())
		a.NoError(err)
		a.GreaterOrEqual(chain.statusCalls, 3)
	})
}

func TestDerivedMintAddressIsStablePerSequence(t *testing.T) {
	a := assert.New(t)
	cfg := testConfig()

	for no := int64(1); no <= 3; no++ {
		first, err := sol.DeriveKeypair(cfg.MintSeed, no)
		require.NoError(t, err)
		second, err := sol.DeriveKeypair(cfg.MintSeed, no)
		require.NoError(t, err)
		a.Equal(first.Address(), second.Address(), fmt.Sprintf("sequence %d", no))
	}
}
