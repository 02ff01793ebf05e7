package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/havenwell/notify-engine/internal/channel"
	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/crisis"
	"github.com/havenwell/notify-engine/internal/engine"
	"github.com/havenwell/notify-engine/internal/pkg/distlock"
	"github.com/havenwell/notify-engine/internal/store"
	"github.com/havenwell/notify-engine/internal/timing"
	"github.com/havenwell/notify-engine/internal/worker"
)

func main() {
	log.Println("Starting HavenWell notification worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable (%v); falling back to Postgres advisory locks", err)
			redisClient = nil
		} else {
			log.Println("Connected to Redis")
		}
	}

	stores := store.New(db)

	emailAdapter := channel.NewEmailAdapter(cfg.SES)
	registry := channel.NewRegistry(
		emailAdapter,
		channel.NewWebPushAdapter(cfg.WebPush, stores.Push),
		channel.NewDiscordAdapter(cfg.Webhooks.DiscordURL, time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second),
		channel.NewSlackAdapter(cfg.Webhooks.SlackURL, time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second),
	)

	// The worker needs the full engine too: the dispatcher's retries and the
	// crisis fan-out both send notifications of their own.
	eng := engine.New(stores.Preferences, stores.Templates, stores.Queue, stores.Analytics)
	dispatcher := engine.NewDispatcher(stores.Queue, stores.Users, stores.InApp, registry, stores.Analytics, cfg.Queue.ChannelTimeout())

	var onCallUserID uuid.UUID
	if cfg.Crisis.OnCallUserID != "" {
		onCallUserID, err = uuid.Parse(cfg.Crisis.OnCallUserID)
		if err != nil {
			log.Fatalf("Invalid CRISIS_ONCALL_USER_ID: %v", err)
		}
	}
	var mailer crisis.ContactMailer
	if emailAdapter != nil {
		mailer = emailAdapter
	}
	detector := crisis.NewDetector(stores.Crisis, mailer, onCallUserID)
	detector.SetSender(eng)
	eng.SetCrisisInspector(detector)

	timingSvc := timing.NewService(stores.Analytics, time.Duration(cfg.Timing.LookbackDays)*24*time.Hour)

	scanLock := distlock.NewLock(redisClient, db, "notify:queue-scan", cfg.Queue.ScanInterval())

	processor := worker.NewQueueProcessor(stores.Queue, dispatcher, stores.Workers, scanLock, cfg.Queue)
	processor.Start()

	recovery := worker.NewQueueRecovery(stores.Queue, 2*time.Minute, cfg.Queue.StaleAge())
	recovery.Start()

	builder := worker.NewTimingBuilder(stores.Analytics, timingSvc,
		time.Duration(cfg.Timing.RecalcIntervalHours)*time.Hour,
		time.Duration(cfg.Timing.LookbackDays)*24*time.Hour)
	builder.Start()

	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	builder.Stop()
	recovery.Stop()
	processor.Stop()
	log.Println("Worker stopped")
}
