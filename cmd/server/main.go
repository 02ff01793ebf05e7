package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/havenwell/notify-engine/internal/api"
	"github.com/havenwell/notify-engine/internal/campaign"
	"github.com/havenwell/notify-engine/internal/channel"
	"github.com/havenwell/notify-engine/internal/config"
	"github.com/havenwell/notify-engine/internal/crisis"
	"github.com/havenwell/notify-engine/internal/engine"
	"github.com/havenwell/notify-engine/internal/store"
	"github.com/havenwell/notify-engine/internal/timing"
)

func main() {
	log.Println("Starting HavenWell notification server...")

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

	stores := store.New(db)

	// Delivery adapters. Nil adapters (missing credentials) simply leave
	// their channel unconfigured.
	emailAdapter := channel.NewEmailAdapter(cfg.SES)
	registry := channel.NewRegistry(
		emailAdapter,
		channel.NewWebPushAdapter(cfg.WebPush, stores.Push),
		channel.NewDiscordAdapter(cfg.Webhooks.DiscordURL, time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second),
		channel.NewSlackAdapter(cfg.Webhooks.SlackURL, time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second),
	)

	eng := engine.New(stores.Preferences, stores.Templates, stores.Queue, stores.Analytics)
	dispatcher := engine.NewDispatcher(stores.Queue, stores.Users, stores.InApp, registry, stores.Analytics, cfg.Queue.ChannelTimeout())
	eng.SetJobRunner(dispatcher)

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

	orchestrator := campaign.New(stores.Campaigns, stores.Users, eng)
	timingSvc := timing.NewService(stores.Analytics, time.Duration(cfg.Timing.LookbackDays)*24*time.Hour)

	server := api.NewServer(eng, orchestrator, timingSvc, stores, cfg.Server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("Server stopped")
}
