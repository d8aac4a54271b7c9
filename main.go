package main

import (
	"context"
	"log"

	api "mailroom-backend/cmd/api"
	listingdomain "mailroom-backend/internal/listing/domain"
	listingRepo "mailroom-backend/internal/listing/repository"
	mailDelivery "mailroom-backend/internal/mail/delivery"
	maildomain "mailroom-backend/internal/mail/domain"
	mailRepo "mailroom-backend/internal/mail/repository"
	webhookDelivery "mailroom-backend/internal/webhook/delivery"
	webhookUsecase "mailroom-backend/internal/webhook/usecase"
	"mailroom-backend/pkg/agent"
	"mailroom-backend/pkg/config"
	"mailroom-backend/pkg/database"
	"mailroom-backend/pkg/mailer"
	"mailroom-backend/pkg/retry"
	"mailroom-backend/pkg/snsverify"
	"mailroom-backend/pkg/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.WebhookSecret == "" {
		log.Fatal("WEBHOOK_SECRET must be configured")
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&maildomain.EmailAddress{},
		&maildomain.EmailThread{},
		&maildomain.EmailMessage{},
		&maildomain.EmailAttachment{},
		&maildomain.RawMessage{},
		&maildomain.DeliveryLog{},
		&listingdomain.Property{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	policy := retry.Policy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay}
	addressRepository := mailRepo.NewAddressRepository(db)
	mailRepository := mailRepo.NewMailRepository(db, policy)
	propertyRepository := listingRepo.NewPropertyRepository(db)

	ctx := context.Background()

	// Content fetcher for raw messages parked in object storage
	var fetcher webhookUsecase.ContentFetcher
	s3Fetcher, err := storage.NewS3Fetcher(ctx, cfg.AWSRegion)
	if err != nil {
		log.Printf("[WARN] S3 fetcher unavailable, notification content will degrade to empty: %v", err)
	} else {
		fetcher = s3Fetcher
	}

	// Sending transport for AI-composed replies
	var sender webhookUsecase.MailSender
	sesSender, err := mailer.NewSESSender(ctx, cfg.AWSRegion)
	if err != nil {
		log.Printf("[WARN] SES sender unavailable, replies will be persisted but not dispatched: %v", err)
		sender = mailer.NopSender{}
	} else {
		sender = sesSender
	}

	// External drafting agent
	agentClient := agent.NewClient(cfg.AgentBaseURL, cfg.AgentAPIKey)
	if cfg.AgentBaseURL == "" {
		log.Printf("[WARN] AGENT_BASE_URL not configured, inbound mail will be stored without AI replies")
	}

	// Wire up the ingestion pipeline
	pipeline := webhookUsecase.NewPipeline(addressRepository, mailRepository, propertyRepository, fetcher, agentClient, sender)
	verifier := snsverify.New(cfg.SNSCertDomain)

	webhookHandler := webhookDelivery.NewWebhookHandler(pipeline, verifier)
	inboxHandler := mailDelivery.NewInboxHandler(mailRepository)

	handler := api.NewHandler(webhookHandler, inboxHandler, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
