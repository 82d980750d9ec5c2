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

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"letterdesk/docs" // swagger docs
	"letterdesk/internal/auth"
	"letterdesk/internal/blob"
	"letterdesk/internal/cache"
	"letterdesk/internal/config"
	"letterdesk/internal/db"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/handler"
	"letterdesk/internal/identity"
	"letterdesk/internal/logger"
	"letterdesk/internal/metrics"
	"letterdesk/internal/model"
	"letterdesk/internal/notify"
	"letterdesk/internal/repository"
	"letterdesk/internal/router"
	"letterdesk/internal/service"
	"letterdesk/internal/settings"
)

// @title Letter Desk API
// @version 1.0
// @description Letter submission, CEO approval and public verification API with JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		fatal(log, "database init", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		log.Warn("RESET_DB set, dropping all tables")
		for _, table := range []interface{}{&model.Letter{}, &model.Setting{}, &model.User{}} {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Warn("drop table failed (may not exist)", "error", err)
			}
		}
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Letter{}, &model.Setting{}); err != nil {
		fatal(log, "auto-migrate", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn("redis unavailable, continuing without cache", "addr", cfg.RedisAddr, "error", err)
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		fatal(log, "blob store init", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(reg)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	letterRepo := repository.NewLetterRepository(gormDB)
	settingRepo := repository.NewSettingRepository(gormDB)

	settingsStore := settings.NewService(settingRepo,
		settings.WithLogger(log), settings.WithCacheTTL(cfg.SettingsCacheTTL))

	transport := notify.NewMailtrapTransport(notify.MailtrapConfig{
		Endpoint:  cfg.MailtrapEndpoint,
		APIKey:    cfg.MailtrapAPIKey,
		FromEmail: cfg.MailtrapFrom,
		FromName:  cfg.MailtrapFromName,
		Timeout:   cfg.MailTimeout,
	}, settingsStore)
	dispatcher := notify.NewDispatcher(transport, settingsStore, userRepo, cfg.BaseURL,
		notify.WithLogger(log), notify.WithMetrics(m))

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	opts := []service.Option{service.WithLogger(log), service.WithMetrics(m)}
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, opts...)
	userService := service.NewUserService(userRepo, cacheClient, opts...)
	letterService := service.NewLetterService(letterRepo, userRepo, blobs,
		identity.NewGenerator(cfg.BaseURL), dispatcher, opts...)
	verificationService := service.NewVerificationService(letterRepo, userRepo, opts...)
	settingsService := service.NewSettingsService(settingsStore, blobs, dispatcher, opts...)

	if err := ensureAdmin(ctx, userRepo, cfg, log); err != nil {
		fatal(log, "admin bootstrap", err)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:     handler.NewAuthHandler(authService, userService),
		Letters:  handler.NewLetterHandler(letterService),
		Verify:   handler.NewVerifyHandler(verificationService, letterService, settingsService),
		Users:    handler.NewUserHandler(userService),
		Settings: handler.NewSettingsHandler(settingsService),
	}, router.Deps{
		Logger:     log,
		TokenStore: tokenStore,
		Gatherer:   reg,
		Ready:      pingDB(gormDB),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	log.Info("swagger documentation available", "url", strings.TrimSuffix(cfg.BaseURL, "/")+"/swagger/index.html")

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server starting", "addr", addr, "db", cfg.DBDriver, "blob", cfg.BlobBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server start", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "local", "":
		return blob.NewLocalStore(cfg.UploadDir)
	default:
		return nil, errors.New("unknown BLOB_BACKEND " + cfg.BlobBackend)
	}
}

// ensureAdmin creates the configured admin account on first start so the
// user management API is reachable.
func ensureAdmin(ctx context.Context, users repository.UserRepository, cfg *config.Config, log *slog.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.FindByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	hash, err := service.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &model.User{
		Username:     cfg.AdminUsername,
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}); err != nil {
		return err
	}
	log.Info("admin account created", "username", cfg.AdminUsername)
	return nil
}

func pingDB(gormDB *gorm.DB) func() error {
	return func() error {
		sqlDB, err := gormDB.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
