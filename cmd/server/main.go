package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	passportapi "go.pilab.hu/passport/api/echo"
	"go.pilab.hu/passport/cache"
	redistokencache "go.pilab.hu/passport/cache/redis"
	"go.pilab.hu/passport/config"
	"go.pilab.hu/passport/directory"
	"go.pilab.hu/passport/internal/authflow"
	"go.pilab.hu/passport/mongodb"
	"go.pilab.hu/passport/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("token_cache", cfg.TokenCacheBackend).
		Msg("Starting passport server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error disconnecting from MongoDB")
		}
	}()

	db := client.Database(cfg.MongoDBName)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure indexes")
	}

	passportRepo := mongodb.NewPassportRepository(db)
	policyRepo := mongodb.NewPolicyRepository(db)
	ruleRepo := mongodb.NewAutoIssueRuleRepository(db)
	tokenRepo := mongodb.NewDelegatedTokenRepository(db)

	tokenCache := buildTokenCache(cfg)

	dir := directory.NewHTTPClient(cfg.DirectoryBaseURL, cfg.DirectoryAPIKey)

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  cfg.OAuthRedirectURI,
		Scopes:       []string{cfg.OAuthScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.OAuthAuthorizeURL,
			TokenURL: cfg.OAuthTokenURL,
		},
	}

	passportSvc := services.NewPassportService(passportRepo, policyRepo, ruleRepo)
	joinSvc := services.NewJoinService(passportSvc, tokenRepo, tokenCache, dir,
		cfg.OAuthClientSecret, cfg.PublicBaseURL)
	oauthSvc := services.NewOAuthService(authflow.NewStore(), tokenRepo, tokenCache, joinSvc, oauthCfg)
	autoIssueSvc := services.NewAutoIssueService(ruleRepo, passportSvc)

	oauthSvc.StartSweeper(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("Request handled")
			return nil
		},
	}))

	passportapi.NewPassportAPI(joinSvc, oauthSvc, autoIssueSvc).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil {
			log.Info().Err(err).Msg("HTTP server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL, defaulting to info")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func buildTokenCache(cfg *config.Config) cache.TokenCache {
	ttl := time.Duration(cfg.TokenCacheTTLMin) * time.Minute

	if cfg.TokenCacheBackend == "redis" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return redistokencache.NewTokenCache(client, "passport", ttl)
	}
	return cache.NewMemoryTokenCache(ttl)
}
