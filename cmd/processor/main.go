package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/apexsend/sequence-engine/internal/db"
	"github.com/apexsend/sequence-engine/internal/events"
	"github.com/apexsend/sequence-engine/internal/metrics"
	"github.com/apexsend/sequence-engine/internal/model"
	"github.com/apexsend/sequence-engine/internal/repository"
	"github.com/apexsend/sequence-engine/internal/sender"
	"github.com/apexsend/sequence-engine/internal/service"
)

// Standalone sweep runner for deployments without an HTTP cron caller.
// Overlap with other runners or with the HTTP process endpoint is safe;
// the per-row claim is the only coordination.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	db.Init()
	if err := db.Migrate(db.DB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	if err := metrics.Init(); err != nil {
		log.Fatalf("failed to init metrics: %v", err)
	}

	sequenceRepo := &repository.SequenceRepository{DB: db.DB}
	recipientRepo := &repository.RecipientRepository{DB: db.DB}
	scheduledRepo := &repository.ScheduledMessageRepository{DB: db.DB}

	senders := map[string]sender.Sender{
		model.ChannelEmail: sender.NewMockSender(model.ChannelEmail),
		model.ChannelSMS:   sender.NewMockSender(model.ChannelSMS),
	}

	processor := service.NewProcessor(scheduledRepo, sequenceRepo, recipientRepo, senders)

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		publisher, err := events.NewPublisher(url)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		processor.Events = publisher
	}

	interval := 60 * time.Second
	if v := os.Getenv("PROCESS_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}

	limit := 0 // processor applies its own default and clamp
	if v := os.Getenv("PROCESS_BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Processor running, sweeping every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := processor.ProcessPending(ctx, limit); err != nil {
			if ctx.Err() != nil {
				log.Println("Processor stopping")
				return
			}
			log.Println("⚠️ Sweep failed:", err)
		}

		select {
		case <-ctx.Done():
			log.Println("Processor stopping")
			return
		case <-ticker.C:
		}
	}
}
