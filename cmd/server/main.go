package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/ai"
	"github.com/wisnuaji/payproof/internal/config"
	"github.com/wisnuaji/payproof/internal/isolation"
	"github.com/wisnuaji/payproof/internal/notification"
	"github.com/wisnuaji/payproof/internal/receipt"
	"github.com/wisnuaji/payproof/internal/repository"
	"github.com/wisnuaji/payproof/internal/server"
	"github.com/wisnuaji/payproof/internal/verify"
	"github.com/wisnuaji/payproof/pkg/database"
	"github.com/wisnuaji/payproof/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting payment proof verification service",
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	logRepo := repository.NewVerificationLogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize AI components
	visionClient := ai.NewClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Timeout,
		logger,
	)
	ocrExtractor := ai.NewTesseractExtractor(logger)

	// Initialize side-effect adapters
	notifier := notification.NewQueueNotifier(notificationRepo, logger)
	isolator := isolation.NewWebhookIsolator(cfg.Isolation.WebhookURL, cfg.Isolation.Timeout, logger)

	// Assemble the pipeline stages
	extractor := verify.NewExtractor(visionClient, ocrExtractor, cfg.Verification, logger)
	matcher := verify.NewMatcher(invoiceRepo.ListOpenByCustomer, invoiceRepo.GetByID, cfg.Verification, logger)
	validator := verify.NewValidator(visionClient, paymentRepo.ReferenceExists, cfg.Verification, logger)
	executor := verify.NewExecutor(db, invoiceRepo, paymentRepo, customerRepo, cfg.Verification, isolator, notifier, logger)

	pipeline := verify.NewPipeline(extractor, matcher, validator, executor,
		paymentRepo, customerRepo, settingsRepo, logRepo, logger)

	// Initialize receipt generator
	receiptGen := receipt.NewGenerator(cfg.Receipt.OutputDir, cfg.Receipt.CompanyName, logger)

	// Create HTTP server
	httpServer := server.New(cfg.Server, pipeline, logRepo, receiptGen, logger).HTTPServer()

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
