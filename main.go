package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"urbansetu/config"
	"urbansetu/handler"
	"urbansetu/middleware"
	"urbansetu/realtime"
	"urbansetu/repository"
	"urbansetu/services"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	contractSweepInterval = time.Hour
	shutdownTimeout       = 15 * time.Second
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		utils.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	if missing := config.CheckRequired(); len(missing) > 0 && !utils.IsTestEnv() {
		utils.Logger().Fatal().Strs("missing", missing).Msg("required environment variables are not set")
	}
	utils.InitValidator()
}

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.Server.LogLevel, cfg.Server.LogFormat, os.Stderr)
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		utils.Logger().Fatal().Err(err).Msg("server exited with error")
	}
	utils.Info().Msg("Server shutdown complete")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	mongoClient, db, err := cfg.Database.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			utils.Error().Err(err).Msg("failed to disconnect MongoDB")
		}
	}()
	if err := repository.SetupIndexes(ctx, db); err != nil {
		return err
	}

	redisClient, err := services.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	var registry services.SessionRegistry = services.NewMemorySessionRegistry()
	if cfg.Session.Registry == "redis" {
		registry = services.NewRedisSessionRegistry(redisClient)
	}

	var objects services.ObjectStore
	if store, err := services.NewS3Store(ctx, services.S3Options(cfg.Storage)); err != nil {
		utils.Warn().Err(err).Msg("image storage disabled")
	} else {
		objects = store
	}

	mailer := services.NewSMTPMailer(services.SMTPOptions(cfg.Mail))
	tokens := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	blacklist := services.NewTokenBlacklist(redisClient, tokens)
	attempts := services.NewAttemptCounter(redisClient, "confirm_attempts", time.Hour)
	hub := realtime.NewHub()

	users := repository.GetUserRepo(db)
	listings := repository.GetListingRepo(db)
	agents := repository.GetAgentRepo(db)

	sessions := usecase.NewSessionManager(usecase.SessionManagerDeps{
		Users:    users,
		Audit:    repository.GetAuditRepo(db),
		Registry: registry,
		Tokens:   tokens,
		Geo:      services.NewGeolocator(cfg.Server.GeoLookupURL),
		Mailer:   mailer,
		Notifier: hub,
		Config:   cfg.Session,
	})
	coins := usecase.NewCoinService(repository.GetCoinRepo(db), hub)
	contracts := usecase.NewContractService(repository.GetContractRepo(db), listings, coins, hub)

	cookies := handler.NewCookieConfig(cfg)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	trackLimiter := middleware.NewRateLimiter(60, time.Minute)

	router := handler.NewRouter(handler.RouterDeps{
		Tokens:         tokens,
		Blacklist:      blacklist,
		Sessions:       sessions,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthLimiter:    authLimiter,
		TrackLimiter:   trackLimiter,

		Auth:     handler.NewAuthHandler(usecase.NewAuthService(users, sessions, tokens, blacklist, attempts), cookies),
		Session:  handler.NewSessionHandler(sessions, cookies),
		Forum:    handler.NewForumHandler(usecase.NewForumService(repository.GetForumRepo(db), users, hub)),
		Listing:  handler.NewListingHandler(usecase.NewListingService(listings, objects)),
		Contract: handler.NewContractHandler(contracts, coins),
		Agent: handler.NewAgentHandler(
			usecase.NewAgentService(agents, mailer, hub),
			usecase.NewReviewService(repository.GetReviewRepo(db), agents, listings, users, coins),
		),
		Content: handler.NewContentHandler(handler.ContentServices{
			Help:          usecase.NewHelpService(repository.GetHelpRepo(db)),
			Reports:       usecase.NewReportService(repository.GetReportRepo(db), hub),
			Subscriptions: usecase.NewSubscriptionService(repository.GetSubscriptionRepo(db), mailer),
			Updates:       usecase.NewUpdateService(repository.GetUpdateRepo(db), hub),
			Routes:        usecase.NewRouteService(repository.GetRouteRepo(db)),
		}),
		Visitor: handler.NewVisitorHandler(usecase.NewVisitorService(repository.GetVisitorRepo(db))),
		System: handler.NewSystemHandler(map[string]handler.PingFunc{
			"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}, hub.ClientCount),
		WebSocket: handler.NewWSHandler(hub, cfg.Server.AllowedOrigins),
	})

	go func() {
		if err := hub.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			utils.Error().Err(err).Msg("realtime hub stopped unexpectedly")
		}
	}()
	sessions.StartCleanupTask(ctx)
	contracts.StartCompletionTask(ctx, contractSweepInterval)
	authLimiter.StartCleanup(ctx, 10*time.Minute)
	trackLimiter.StartCleanup(ctx, 10*time.Minute)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Info().Msg("Shutdown signal received")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
