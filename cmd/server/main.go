package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	app "github.com/stocktake/backend/internal/application/reconciliation"
	"github.com/stocktake/backend/internal/domain/reconcile"
	"github.com/stocktake/backend/internal/infrastructure/config"
	"github.com/stocktake/backend/internal/infrastructure/logger"
	"github.com/stocktake/backend/internal/infrastructure/persistence"
	"github.com/stocktake/backend/internal/infrastructure/storage"
	"github.com/stocktake/backend/internal/interfaces/http/handler"
	"github.com/stocktake/backend/internal/interfaces/http/middleware"
	"github.com/stocktake/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stocktake backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// File storage
	files, err := newFileStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}
	log.Info("File storage ready", zap.String("backend", cfg.Storage.Backend))

	if err := reconcile.SetLotPatterns(cfg.Reconcile.LotSitePattern, cfg.Reconcile.LotPlainPattern); err != nil {
		log.Fatal("Failed to apply lot number patterns", zap.Error(err))
	}

	// Application services
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	sessionService := app.NewSessionService(sessionRepo, files, cfg.Reconcile)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.AccessLog(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.NewRouter(engine).
		Register(handler.NewSessionHandler(sessionService, cfg.Session.Retention)).
		Register(handler.NewHealthHandler(db, cfg.App.Name)).
		Setup()

	// Background cleanup of expired sessions
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go runCleanup(cleanupCtx, sessionService, cfg.Session, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopCleanup()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newFileStore builds the configured storage backend.
func newFileStore(cfg *config.Config, log *zap.Logger) (storage.FileStore, error) {
	if cfg.Storage.Backend == "s3" {
		return storage.NewS3FileStore(&cfg.Storage, storage.WithLogger(log))
	}
	return storage.NewLocalFileStore(cfg.Storage.LocalDir)
}

// runCleanup periodically purges expired sessions and their files.
func runCleanup(ctx context.Context, svc *app.SessionService, cfg config.SessionConfig, log *zap.Logger) {
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx := logger.WithContext(ctx, log)
			if _, err := svc.Cleanup(runCtx, cfg.Retention); err != nil {
				log.Error("Session cleanup failed", zap.Error(err))
			}
		}
	}
}
