package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/autoshop/billing/internal/application/billing"
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/infrastructure/cache"
	"github.com/autoshop/billing/internal/infrastructure/config"
	"github.com/autoshop/billing/internal/infrastructure/event"
	"github.com/autoshop/billing/internal/infrastructure/logger"
	"github.com/autoshop/billing/internal/infrastructure/persistence"
	"github.com/autoshop/billing/internal/interfaces/http/handler"
	"github.com/autoshop/billing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting billing core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	uow := persistence.NewGormUnitOfWork(db.DB)

	// Outbound publishing: kafka transport behind a retrying publisher.
	// A publish that exhausts its attempts fails the surrounding transaction,
	// so the inbound event is redelivered rather than half-applied.
	transport := event.NewKafkaTransport(kafkaConfig(cfg.Kafka))
	publisher := event.NewRetryingPublisher(transport, event.RetryConfig{
		MaxAttempts: cfg.Event.PublishMaxAttempts,
		BackoffBase: cfg.Event.PublishBackoffBase,
	}, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("Error closing publisher", zap.Error(err))
		}
	}()

	// Application services and inbound event handlers
	quoteApprovedHandler := appbilling.NewQuoteApprovedHandler(uow, publisher, log)
	projectUpdatedHandler := appbilling.NewProjectUpdatedHandler(uow, publisher, log)
	paymentService := appbilling.NewPaymentService(uow, publisher, log)
	paymentResultHandler := appbilling.NewPaymentResultHandler(paymentService, log)

	// Duplicate pre-filter in front of the handlers. Redis when configured,
	// in-memory otherwise; either way the consumed_events table remains the
	// authoritative guard.
	idempotencyStore := cache.NewIdempotencyStore(cfg.Redis, log)
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	handlers := event.WrapHandlers(
		[]shared.EventHandler{quoteApprovedHandler, projectUpdatedHandler, paymentResultHandler},
		idempotencyStore,
		shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true},
		log,
	)

	dispatcher := event.NewDispatcher(event.NewCodec(), log)
	for _, h := range handlers {
		if err := dispatcher.Register(h); err != nil {
			log.Fatal("Failed to register event handler", zap.Error(err))
		}
	}
	log.Info("Event handlers registered",
		zap.Strings("quote_approved_events", quoteApprovedHandler.EventTypes()),
		zap.Strings("project_updated_events", projectUpdatedHandler.EventTypes()),
		zap.Strings("payment_result_events", paymentResultHandler.EventTypes()),
	)

	// Start the kafka consumer
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumer := event.NewKafkaConsumer(kafkaConfig(cfg.Kafka), dispatcher, log)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Start(consumerCtx)
	}()
	log.Info("Kafka consumer started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.Strings("topics", cfg.Kafka.InboundTopics),
		zap.String("group", cfg.Kafka.ConsumerGroup),
	)

	// Read side and HTTP surface
	queryService := appbilling.NewInvoiceQueryService(
		persistence.NewGormInvoiceRepository(db.DB),
		persistence.NewGormPaymentRepository(db.DB),
		log,
	)
	invoiceHandler := handler.NewInvoiceHandler(queryService, paymentService, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	engine.GET("/health", healthHandler(db))
	router.Setup(engine, invoiceHandler)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Stop consuming first so in-flight handlers finish before the DB closes
	stopConsumer()
	select {
	case <-consumerDone:
	case <-time.After(30 * time.Second):
		log.Warn("Kafka consumer did not stop in time")
	}
	if err := consumer.Close(); err != nil {
		log.Error("Error closing kafka consumer", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// kafkaConfig maps the loaded configuration onto the event package's settings
func kafkaConfig(cfg config.KafkaConfig) event.KafkaConfig {
	return event.KafkaConfig{
		Brokers:       cfg.Brokers,
		ConsumerGroup: cfg.ConsumerGroup,
		InboundTopics: cfg.InboundTopics,
		OutboundTopic: cfg.OutboundTopic,
		BatchTimeout:  cfg.BatchTimeout,
		MinBytes:      cfg.MinBytes,
		MaxBytes:      cfg.MaxBytes,
	}
}

// healthHandler reports readiness including database connectivity
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
