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
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"luthier-backend/config"
	"luthier-backend/internal/api"
	"luthier-backend/internal/auth"
	"luthier-backend/internal/db"
	"luthier-backend/internal/digest"
	"luthier-backend/internal/logger"
	"luthier-backend/internal/mw"
	"luthier-backend/internal/notification"
	"luthier-backend/internal/report"
	"luthier-backend/internal/store"
)

const serviceName = "luthier-backend"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("configuration loaded", zap.String("path", configPath))

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	log.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	if cfg.Storage.Records == "dynamodb" {
		ddb, err := db.NewDynamoDB(ctx, &cfg.Storage.DynamoDB)
		if err != nil {
			log.Fatal("failed to initialize dynamodb", zap.Error(err))
		}
		appStore = store.WithRecords(appStore, store.NewDynamoRecordStore(ddb, cfg.Storage.DynamoDB.Table))
		log.Info("service records stored in dynamodb", zap.String("table", cfg.Storage.DynamoDB.Table))
	}

	push := cfg.Notification.Push
	webpushOptions := notification.PushOptions(push.PublicKey, push.PrivateKey, push.Subject, time.Duration(push.TTL)*time.Second)
	if webpushOptions == nil {
		log.Warn("VAPID keys are not configured, browser notifications are disabled")
	}

	var whatsapp notification.MessageSender
	if sender := notification.NewTwilioSender(cfg.Notification.WhatsApp); sender != nil {
		whatsapp = sender
	} else {
		log.Info("twilio credentials not configured, clients are reached through wa.me links only")
	}

	pool := notification.NewWorkerPool(cfg.Notification.WorkerPoolSize, appStore, webpushOptions, whatsapp, log.Named("notification"))
	pool.Start(ctx)

	if cfg.Digest.Enabled {
		digestSvc := digest.NewService(cfg.Digest, appStore, appStore, pool, log.Named("digest"))
		if err := digestSvc.Start(ctx); err != nil {
			log.Fatal("failed to start digest scheduler", zap.Error(err))
		}
	}

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	handler := api.NewHandler(api.Deps{
		Store:       appStore,
		Auth:        auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.Expiry, 0),
		Reports:     report.Builder{},
		Pool:        pool,
		Webpush:     webpushOptions,
		Cache:       mw.NewResponseCache(cache.New(ttl, 2*ttl), ttl, auth.TenantID),
		CountryCode: cfg.Notification.DefaultCountryCode,
		Log:         log.Named("api"),
	})
	router := api.NewRouter(cfg.Server, handler, log.Named("http"))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("HTTP server Shutdown", zap.Error(err))
	}

	log.Info("server gracefully stopped")
}
