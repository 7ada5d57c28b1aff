package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/realtoken-app/go-realtoken/service/logger"
	"github.com/realtoken-app/go-realtoken/service/persist"
	sentryutil "github.com/realtoken-app/go-realtoken/service/sentry"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/realtoken-app/go-realtoken/util"
	"github.com/sirupsen/logrus"
)

const (
	defaultTickInterval = 5 * time.Second
	defaultGracePeriod  = 60 * time.Second
)

// Statuses that may still be resolved by looking at the chain
var pendingStatuses = persist.RealAssetStatusList{persist.RealAssetStatusTokenizationInProgress, persist.RealAssetStatusBlockchainError}

// Processor resolves assets stuck in TokenizationInProgress by checking whether their
// mint landed on-chain. It is the only bridge between "transaction submitted" and
// "asset durably active", deliberately decoupled from the request/response cycle so a
// dropped wallet connection cannot strand an asset.
type Processor struct {
	assetRepo    persist.RealAssetRepository
	cryptoRepo   persist.CryptoAssetRepository
	chain        sol.Client
	tickInterval time.Duration
	gracePeriod  time.Duration

	startOnce sync.Once
}

// NewProcessor creates a new Processor with the default tick interval and grace period
func NewProcessor(assetRepo persist.RealAssetRepository, cryptoRepo persist.CryptoAssetRepository, chain sol.Client) *Processor {
	return &Processor{
		assetRepo:    assetRepo,
		cryptoRepo:   cryptoRepo,
		chain:        chain,
		tickInterval: defaultTickInterval,
		gracePeriod:  defaultGracePeriod,
	}
}

// Start launches the reconciliation loop in its own goroutine. At most one loop runs
// per Processor; repeated calls are no-ops. The loop exits cleanly when ctx is
// cancelled, letting any in-flight tick finish first.
func (p *Processor) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go func() {
			defer sentryutil.RecoverAndRaise(ctx)
			ctx := logger.NewContextWithFields(ctx, logrus.Fields{"service": "reconcile"})
			logger.For(ctx).Info("starting tokenization reconciliation loop")

			ticker := time.NewTicker(p.tickInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					logger.For(ctx).Info("reconciliation loop shutting down")
					return
				case <-ticker.C:
					// A failed tick is retried naturally: the same stuck assets are
					// re-queried on the next one.
					if err := p.Tick(ctx); err != nil {
						logger.For(ctx).Errorf("reconciliation tick failed: %s", err)
						sentryutil.ReportError(ctx, err)
					}
				}
			}
		}()
	})
}

// Tick runs a single reconciliation pass: every asset awaiting resolution whose crypto
// asset is older than the grace period is flipped to Active or BlockchainError
// depending on whether its mint account exists on-chain. The grace period keeps us from
// judging a mint that is still propagating.
func (p *Processor) Tick(ctx context.Context) error {
	defer util.Track("reconcile.Tick", time.Now())

	assets, err := p.assetRepo.GetByStatuses(ctx, pendingStatuses)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}

	assetsByID := make(map[persist.DBID]persist.RealAsset, len(assets))
	for _, a := range assets {
		assetsByID[a.ID] = a
	}
	assetIDs := persist.DBIDList(util.MapWithoutError(assets, func(a persist.RealAsset) persist.DBID { return a.ID }))

	cryptoAssets, err := p.cryptoRepo.GetByRealAssetIDsCreatedBefore(ctx, assetIDs, time.Now().Add(-p.gracePeriod))
	if err != nil {
		return err
	}

	// Judge each asset by its newest mint attempt only. The store already collapses
	// to one row per asset, but a stale row from a superseded attempt must never drag
	// an asset whose retry landed back to BlockchainError.
	latest := make(map[persist.DBID]persist.CryptoAsset, len(cryptoAssets))
	for _, ca := range cryptoAssets {
		if cur, ok := latest[ca.RealAssetID]; ok && !ca.CreationTime.Time().After(cur.CreationTime.Time()) {
			continue
		}
		latest[ca.RealAssetID] = ca
	}

	for _, ca := range latest {
		asset, ok := assetsByID[ca.RealAssetID]
		if !ok {
			continue
		}
		if err := p.resolve(ctx, asset, ca); err != nil {
			logger.For(ctx).Errorf("error resolving asset %s: %s", asset.ID, err)
			sentryutil.ReportError(ctx, err)
		}
	}
	return nil
}

func (p *Processor) resolve(ctx context.Context, asset persist.RealAsset, ca persist.CryptoAsset) error {
	exists, err := p.chain.AccountExists(ctx, ca.MintAddress)
	if err != nil {
		return err
	}

	next := persist.RealAssetStatusBlockchainError
	if exists {
		next = persist.RealAssetStatusActive
	}
	if asset.Status == next {
		return nil
	}

	update := persist.RealAssetStatusUpdate{
		Status:        next,
		ApprovedByGov: asset.ApprovedByGov,
		Tokenized:     asset.Tokenized,
		GovComment:    asset.GovComment,
	}
	if err := p.assetRepo.UpdateStatusByID(ctx, asset.ID, update); err != nil {
		return err
	}

	logger.For(ctx).Infof("reconciled asset %s: mint %s exists=%t, status %s -> %s", asset.ID, ca.MintAddress, exists, asset.Status, next)
	return nil
}
