package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "gatepass/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"

	"gatepass/internal/archive"
	"gatepass/internal/auth"
	"gatepass/internal/cache"
	"gatepass/internal/config"
	"gatepass/internal/db"
	"gatepass/internal/events"
	"gatepass/internal/handler"
	"gatepass/internal/render"
	"gatepass/internal/repository"
	"gatepass/internal/router"
	"gatepass/internal/seed"
	"gatepass/internal/service"
)

// @title Hostel Gate Pass API
// @version 1.0
// @description Gate pass requests, warden decisions, gate exit/entry logging and printable pass documents.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "error", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	passRepo := repository.NewGatePassRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	attempts := auth.NewAttemptStore(cacheClient, 0, 0)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	archiver := newArchiver(ctx, cfg, logger)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, attempts, cacheClient, logger)
	userService := service.NewUserService(userRepo, cacheClient, logger)
	ledger := service.NewGatePassService(passRepo, userRepo, publisher, cacheClient, service.LedgerConfig{
		Location: cfg.Location(),
		Logger:   logger,
	})
	renderer := render.NewRenderer(render.NewSigner(cfg.JWTSecret), render.Options{Location: cfg.Location()})
	documents := service.NewDocumentService(passRepo, renderer, service.DocumentConfig{
		Archiver:      archiver,
		ArchivePrefix: cfg.ArchiveS3Prefix,
		Logger:        logger,
	})

	if cfg.SeedFile != "" {
		if err := seedUsers(ctx, cfg.SeedFile, userService, logger); err != nil {
			return err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	router.Register(e, jwtService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		GatePass: handler.NewGatePassHandler(ledger),
		Document: handler.NewDocumentHandler(documents),
	})

	logger.Info("swagger documentation available", "url", swaggerURL(cfg))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server starting", "addr", addr, "db_driver", cfg.DBDriver, "timezone", cfg.Location().String())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		logger.Warn("nats unavailable, lifecycle events disabled", "url", cfg.NATSURL, "error", err)
		return &events.NoopPublisher{}
	}
	return pub
}

func newArchiver(ctx context.Context, cfg *config.Config, logger *slog.Logger) archive.Archiver {
	if cfg.ArchiveS3Bucket == "" {
		return archive.Noop{}
	}
	a, err := archive.NewS3Archive(ctx, cfg.ArchiveS3Bucket, cfg.ArchiveS3Region, cfg.ArchiveS3Endpoint)
	if err != nil {
		logger.Warn("s3 archive unavailable, documents will not be archived", "bucket", cfg.ArchiveS3Bucket, "error", err)
		return archive.Noop{}
	}
	return a
}

func seedUsers(ctx context.Context, path string, users service.UserService, logger *slog.Logger) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	accounts, err := f.Accounts(0)
	if err != nil {
		return err
	}
	n, err := users.Seed(ctx, accounts)
	if err != nil {
		return err
	}
	logger.Info("seed file applied", "path", path, "users", n)
	return nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
