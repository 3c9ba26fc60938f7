package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medassist-ai/intake-platform/internal/api/router"
	"github.com/medassist-ai/intake-platform/internal/app/bootstrap"
	"github.com/medassist-ai/intake-platform/internal/automation"
	"github.com/medassist-ai/intake-platform/internal/booking"
	appconfig "github.com/medassist-ai/intake-platform/internal/config"
	"github.com/medassist-ai/intake-platform/internal/highlevel"
	"github.com/medassist-ai/intake-platform/internal/media"
	"github.com/medassist-ai/intake-platform/internal/notify"
	"github.com/medassist-ai/intake-platform/internal/observability/metrics"
	"github.com/medassist-ai/intake-platform/internal/survey"
	"github.com/medassist-ai/intake-platform/internal/tickets"
	"github.com/medassist-ai/intake-platform/internal/transcription"
	"github.com/medassist-ai/intake-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Postgres: pgx pool for intake repositories, database/sql for SLA tracking
	pool, sqlDB, err := bootstrap.BuildDatabase(rootCtx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer func() { _ = sqlDB.Close() }()

	redisClient := bootstrap.BuildRedisClient(rootCtx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Metrics
	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)
	intakeMetrics := metrics.NewIntakeMetrics(registry)

	// Calendar / CRM provider
	hlClient := highlevel.NewClient(
		cfg.HighLevelAPIKey,
		cfg.HighLevelLocationID,
		cfg.HighLevelCalendarID,
		logger,
		highlevel.WithBaseURL(cfg.HighLevelBaseURL),
		highlevel.WithDryRun(cfg.HighLevelDryRun),
	)

	// Automation outbox (shared event sink for bookings, tickets, surveys)
	outbox := automation.NewOutboxStore(pool)

	// Booking sessions
	bookingManager := booking.NewManager(booking.SessionConfig{
		Provider:           hlClient,
		Logger:             logger,
		Metrics:            bookingMetrics,
		Events:             outbox,
		ProviderTimezone:   cfg.ProviderTimezone,
		DefaultDisplayTZ:   cfg.DisplayTimezone,
		AppointmentMinutes: cfg.AppointmentMinutes,
		RangeDays:          cfg.AvailabilityDays,
		DefaultTitle:       cfg.AppointmentTitle,
	}, cfg.BookingSessionTTL, logger)
	defer bookingManager.Close()

	// AWS clients (S3 attachments, SES email)
	awsCfg, err := bootstrap.LoadAWSConfig(rootCtx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := bootstrap.BuildS3Client(awsCfg, cfg)
	sesClient := sesv2.NewFromConfig(awsCfg)

	mediaStore := media.NewStore(s3Client, cfg.MediaBucket, cfg.MaxAttachmentBytes, logger)
	mailer := notify.NewSenderFromConfig(cfg, sesClient, logger)

	// Webhook dispatcher draining the outbox
	dispatcher := automation.NewDispatcher(outbox, redisClient, automation.DispatcherConfig{
		WebhookURL:  cfg.AutomationWebhookURL,
		RetryBase:   cfg.AutomationRetryBase,
		Interval:    cfg.AutomationPollInterval,
		MaxAttempts: cfg.AutomationMaxAttempts,
	}, intakeMetrics, logger)
	go dispatcher.Start(rootCtx)

	// Tickets
	ticketRepo := tickets.NewRepository(pool)
	ticketService := tickets.NewService(ticketRepo, tickets.DefaultSLAPolicy(), hlClient, outbox, mailer, intakeMetrics, logger)
	var escalations tickets.EscalationNotifier
	if n := tickets.NewEmailEscalationNotifier(mailer, cfg.EscalationEmail); n != nil {
		escalations = n
	}
	slaTracker := tickets.NewSLATracker(sqlDB, ticketRepo, escalations, logger)
	go slaTracker.Run(rootCtx, cfg.SLASweepInterval)

	// Surveys (with optional voice-note transcription)
	googleSTT, err := transcription.NewGoogleTranscriber(rootCtx, cfg.GoogleSpeechCredentialsJSON, cfg.TranscriptionLanguage, logger)
	if err != nil {
		logger.Error("failed to initialize speech client", "error", err)
		os.Exit(1)
	}
	var transcriber transcription.Transcriber
	if googleSTT != nil {
		transcriber = googleSTT
		defer func() { _ = googleSTT.Close() }()
	}
	surveyRepo := survey.NewRepository(pool)
	surveyService := survey.NewService(surveyRepo, mediaStore, transcriber, hlClient, outbox, cfg.TranscriptionLanguage, intakeMetrics, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		BookingHandler:     booking.NewHandler(bookingManager, logger),
		TicketsHandler:     tickets.NewHandler(ticketService, logger),
		SurveyHandler:      survey.NewHandler(surveyService, logger),
		MediaHandler:       media.NewHandler(mediaStore, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        bootstrap.BuildRateLimiter(redisClient, cfg, logger),
		DefaultOrgID:       cfg.DefaultOrgID,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopBackground()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
