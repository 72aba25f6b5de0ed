package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"gatekeeper/internal/adapter/memstore"
	"gatekeeper/internal/adapter/repo"
	"gatekeeper/internal/domain"
	"gatekeeper/internal/http/handlers"
	"gatekeeper/internal/http/httpapi"
	"gatekeeper/internal/identity"
	"gatekeeper/internal/infra"
	"gatekeeper/internal/infra/geoip"
	"gatekeeper/internal/middleware"
	"gatekeeper/internal/quota"
	"gatekeeper/internal/token"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	codec, err := token.NewCodec(token.Config{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token configuration")
	}

	ctx := context.Background()
	checks := map[string]handlers.HealthCheck{}

	users, closeUsers := openUserStore(ctx, cfg, logger, checks)
	defer closeUsers()

	exemptions, closeExemptions := openExemptions(ctx, cfg, logger, checks)
	defer closeExemptions()

	var lookup middleware.CountryLookup
	if countries, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if countries != nil {
		lookup = countries.CountryCode
		defer countries.Close()
	}

	tracker := quota.NewTracker(users, exemptions, logger, cfg.StoreTimeout)
	resolver := identity.NewResolver(codec, users, cfg.StoreTimeout)

	app := &handlers.App{
		Users:            users,
		Tokens:           codec,
		Quota:            tracker,
		Logger:           logger,
		PurposeTTL:       cfg.PurposeTokenTTL,
		BootstrapKeyHash: cfg.BootstrapKeyHash,
		Checks:           checks,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Routes:         middleware.NewRouteTable(cfg.OpenPrefixes, cfg.PublicPrefixes),
		Resolver:       resolver,
		Admitter:       tracker,
		Logger:         logger,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  lookup,
		AuthRatePerMin: cfg.AuthRateLimitPerMin,
		RequestTimeout: cfg.HTTPWriteTimeout,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("store", cfg.StoreDriver).Msg("api listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func openUserStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, checks map[string]handlers.HealthCheck) (domain.UserRepository, func()) {
	if cfg.StoreDriver == infra.StoreDriverMemory {
		store := memstore.NewUserStore()
		if cfg.SeedFile != "" {
			n, err := memstore.LoadSeedFile(store, cfg.SeedFile)
			if err != nil {
				logger.Fatal().Err(err).Str("path", cfg.SeedFile).Msg("failed to load seed users")
			}
			logger.Info().Int("users", n).Msg("seeded memory store")
		}
		logger.Warn().Msg("using in-memory user store; data is lost on restart")
		return store, func() {}
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))
	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := users.EnsureSchema(migrateCtx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure schema")
		}
	}
	checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	return users, pool.Close
}

func openExemptions(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, checks map[string]handlers.HealthCheck) (domain.ExemptionStore, func()) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; exemptions are kept in process memory")
		return quota.NewMemoryExemptions(), func() {}
	}
	rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	return repo.NewRedisExemptions(rdb, cfg.ExemptionsKey), func() { _ = rdb.Close() }
}
