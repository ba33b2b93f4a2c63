package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/medconnect/booking-server/internal/booking"
	"github.com/medconnect/booking-server/internal/chat"
	"github.com/medconnect/booking-server/internal/config"
	"github.com/medconnect/booking-server/internal/db"
	"github.com/medconnect/booking-server/internal/notify"
	redisclient "github.com/medconnect/booking-server/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s window=%s", cfg.Env, cfg.ReminderInterval, cfg.ReminderWindow)

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

	// Reminders go straight to the provider: the worker is already off the
	// request path, so it has no use for the async dispatcher.
	provider := notify.NewProvider(cfg.NotifyProvider, cfg.NotifyWebhookURL, cfg.NotifyWebhookToken)
	notifier := notify.NewEmailNotifier(provider)

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	chats := chat.NewPgStore(pgPool)
	meetings := booking.NewMeetingLinker(cfg.MeetingBaseURL)
	svc := booking.NewService(repo, locker, chats, notifier, meetings)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderWindow)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderWindow)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, window time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SendUpcomingReminders(runCtx, window); err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete in %s", time.Since(start))
}
