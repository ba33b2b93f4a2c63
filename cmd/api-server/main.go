package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/medconnect/booking-server/internal/api"
	"github.com/medconnect/booking-server/internal/booking"
	"github.com/medconnect/booking-server/internal/chat"
	"github.com/medconnect/booking-server/internal/config"
	"github.com/medconnect/booking-server/internal/db"
	"github.com/medconnect/booking-server/internal/notify"
	redisclient "github.com/medconnect/booking-server/internal/redis"
	"github.com/medconnect/booking-server/internal/storage"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.Connect(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	files, err := newFileStore(cfg)
	if err != nil {
		log.Fatalf("file store error: %v", err)
	}

	provider := notify.NewProvider(cfg.NotifyProvider, cfg.NotifyWebhookURL, cfg.NotifyWebhookToken)
	notifier := notify.NewDispatcher(notify.NewEmailNotifier(provider))

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	chats := chat.NewPgStore(pgPool)
	meetings := booking.NewMeetingLinker(cfg.MeetingBaseURL)
	svc := booking.NewService(repo, locker, chats, notifier, meetings)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Files:     files,
		PgPool:    pgPool,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}

func newFileStore(cfg config.Config) (storage.Store, error) {
	if cfg.UploadBackend == "s3" {
		return storage.NewS3Store(storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			KeyPrefix: cfg.S3KeyPrefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		}), nil
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
