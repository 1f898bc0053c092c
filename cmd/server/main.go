package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/apexsend/sequence-engine/internal/db"
	"github.com/apexsend/sequence-engine/internal/events"
	"github.com/apexsend/sequence-engine/internal/handler"
	"github.com/apexsend/sequence-engine/internal/metrics"
	"github.com/apexsend/sequence-engine/internal/model"
	"github.com/apexsend/sequence-engine/internal/repository"
	"github.com/apexsend/sequence-engine/internal/sender"
	"github.com/apexsend/sequence-engine/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
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

	messageService := &service.MessageService{
		SequenceRepo:  sequenceRepo,
		RecipientRepo: recipientRepo,
		ScheduledRepo: scheduledRepo,
	}

	senders := map[string]sender.Sender{
		model.ChannelEmail: sender.NewMockSender(model.ChannelEmail),
		model.ChannelSMS:   sender.NewMockSender(model.ChannelSMS),
	}

	processor := service.NewProcessor(scheduledRepo, sequenceRepo, recipientRepo, senders)

	// Delivery event fan-out is optional; the store is the source of truth.
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		publisher, err := events.NewPublisher(url)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		processor.Events = publisher
	}

	sequenceHandler := handler.NewSequenceHandler(messageService)
	processorHandler := handler.NewProcessorHandler(processor, messageService)

	processorToken := os.Getenv("PROCESSOR_TOKEN")
	if processorToken == "" {
		log.Println("⚠️ PROCESSOR_TOKEN not set; the process endpoint will reject all callers")
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Tenant-authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(handler.TenantAuth)
		r.Post("/sequences/{id}/enroll", sequenceHandler.EnrollHandler)
		r.Post("/sequences/{campaignId}/cancel", sequenceHandler.CancelHandler)
		r.Get("/sms/sequence-processor/stats", processorHandler.StatsHandler)
		r.Get("/sms/sequence-processor/{campaignId}/messages", processorHandler.MessagesHandler)
	})

	// Cron-facing surface, shared-secret auth
	r.Group(func(r chi.Router) {
		r.Use(handler.BearerAuth(processorToken))
		r.Post("/sms/sequence-processor/process", processorHandler.ProcessHandler)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("🚀 Server listening on :" + port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
