package server

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/realtoken-app/go-realtoken/db"
	"github.com/realtoken-app/go-realtoken/env"
	"github.com/realtoken-app/go-realtoken/middleware"
	"github.com/realtoken-app/go-realtoken/publicapi"
	"github.com/realtoken-app/go-realtoken/service/logger"
	"github.com/realtoken-app/go-realtoken/service/mediastore"
	"github.com/realtoken-app/go-realtoken/service/mint"
	"github.com/realtoken-app/go-realtoken/service/persist/postgres"
	"github.com/realtoken-app/go-realtoken/service/reconcile"
	"github.com/realtoken-app/go-realtoken/service/sol"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Clients bundles every external collaborator the server talks to
type Clients struct {
	Repos         *publicapi.Repositories
	Chain         sol.Client
	StorageClient *storage.Client
	Minter        *mint.Minter
	Processor     *reconcile.Processor
}

// Init wires the whole service together and returns the router plus the background
// processor, ready for the entrypoint to run.
func Init(ctx context.Context) (*gin.Engine, *reconcile.Processor) {
	SetDefaults()
	logger.InitWithGCPDefaults()
	InitSentry()
	env.VerifyEnvironment()

	if env.GetString("ENV") != "production" {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}

	clients := ClientInit(ctx)
	api := publicapi.New(ctx, clients.Repos, clients.Chain, clients.Minter, mediastore.NewStore(clients.StorageClient))

	router := gin.Default()
	router.Use(middleware.GinContextToContext(), middleware.Sentry(true), middleware.RequestLogger(), middleware.HandleCORS(), middleware.ErrLogger())

	return HandlersInit(router, api), clients.Processor
}

// ClientInit constructs the database, chain, and storage clients and the services built
// on top of them. Everything is created once here and passed down explicitly.
func ClientInit(ctx context.Context) *Clients {
	pgClient := postgres.NewClient()
	if err := db.RunMigrations(pgClient, env.GetString("MIGRATIONS_DIR")); err != nil {
		panic(err)
	}

	repos := &publicapi.Repositories{
		RealAssetRepository:   postgres.NewRealAssetRepository(pgClient),
		CryptoAssetRepository: postgres.NewCryptoAssetRepository(pgClient),
		ApprovalRepository:    postgres.NewRealAssetApprovalRepository(pgClient),
		UserRepository:        postgres.NewUserRepository(pgClient),
	}

	chain := sol.NewRPCClient(env.GetString("CHAIN_RPC_URL"), http.DefaultClient)

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		panic(err)
	}

	minter := mint.NewMinter(mint.Config{
		AuthoritySeed:        env.GetString("MINT_AUTHORITY_SEED"),
		CollectionSeed:       env.GetString("MINT_COLLECTION_SEED"),
		MintSeed:             env.GetString("MINT_KEY_SEED"),
		TokenSymbol:          env.GetString("TOKEN_SYMBOL"),
		MetadataBaseURI:      env.GetString("TOKEN_METADATA_BASE_URI"),
		SellerFeeBasisPoints: int32(env.GetInt("TOKEN_SELLER_FEE_BASIS_POINTS")),
	}, repos.RealAssetRepository, repos.CryptoAssetRepository, chain)

	processor := reconcile.NewProcessor(repos.RealAssetRepository, repos.CryptoAssetRepository, chain)

	return &Clients{
		Repos:         repos,
		Chain:         chain,
		StorageClient: storageClient,
		Minter:        minter,
		Processor:     processor,
	}
}

// InitSentry configures the global sentry client; a missing DSN disables reporting
func InitSentry() {
	if env.GetString("SENTRY_DSN") == "" {
		logger.For(nil).Info("sentry DSN not set, skipping sentry initialization")
		return
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              env.GetString("SENTRY_DSN"),
		Environment:      env.GetString("ENV"),
		TracesSampleRate: env.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
		AttachStacktrace: true,
	}); err != nil {
		logger.For(nil).Errorf("error initializing sentry: %s", err)
	}
}

// SetDefaults registers the default configuration for every environment variable the
// server reads
func SetDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("POSTGRES_HOST", "0.0.0.0")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "realtoken_backend")
	viper.SetDefault("POSTGRES_PASSWORD", "")
	viper.SetDefault("POSTGRES_DB", "postgres")
	viper.SetDefault("MIGRATIONS_DIR", "./db/migrations/core")

	viper.SetDefault("CHAIN_RPC_URL", "http://localhost:8899")
	viper.SetDefault("MINT_AUTHORITY_SEED", "local-authority-seed")
	viper.SetDefault("MINT_COLLECTION_SEED", "local-collection-seed")
	viper.SetDefault("MINT_KEY_SEED", "local-mint-seed")
	viper.SetDefault("TOKEN_SYMBOL", "RLT")
	viper.SetDefault("TOKEN_METADATA_BASE_URI", "https://metadata.realtoken.local")
	viper.SetDefault("TOKEN_SELLER_FEE_BASIS_POINTS", 500)

	viper.SetDefault("AUTH_JWT_SECRET", "local-jwt-secret")
	viper.SetDefault("AUTH_JWT_TTL_SECONDS", 86400)

	viper.SetDefault("GCLOUD_ASSET_CONTENT_BUCKET", "dev-asset-content")
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.2)

	viper.AutomaticEnv()
}

// gracefulShutdownTimeout bounds how long in-flight requests may run after a shutdown signal
const gracefulShutdownTimeout = 10 * time.Second

// Run serves the router until ctx is cancelled, then drains in-flight requests
func Run(ctx context.Context, router *gin.Engine) error {
	srv := &http.Server{
		Addr:    ":" + env.GetString("PORT"),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
