package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/cache"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/messaging"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment/chargily"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/ficmart-invoicing/internal/telemetry"
	"github.com/DanielPopoola/ficmart-invoicing/internal/worker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting invoicing service",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry, serviceVersion)
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to init meter provider", "error", err)
		os.Exit(1)
	}
	meter := otel.Meter(cfg.Telemetry.ServiceName)

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.RegisterPoolMetrics(meter); err != nil {
		logger.Warn("pool metrics unavailable", "error", err)
	}

	var publisher application.EventPublisher = messaging.NewLogPublisher(logger)
	if cfg.Kafka.Enabled {
		producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.InvoiceTopic)
		publisher = messaging.NewEventPublisher(producer, logger)
		logger.Info("publishing invoice events to kafka", "topic", cfg.Kafka.InvoiceTopic)
	}

	var invoiceCache application.InvoiceCache
	if cfg.Cache.Size > 0 {
		invoiceCache = cache.NewInvoiceCache(cfg.Cache.Size, cfg.Cache.TTL)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close event publisher", "error", err)
		}
	}()

	uow := postgres.NewUnitOfWork(db, publisher, logger)
	if invoiceCache != nil {
		uow.WithInvoiceCache(invoiceCache)
	}
	invoiceRepo := postgres.NewInvoiceRepository(db)

	chargilyClient := chargily.NewClient(cfg.Chargily, logger)
	gateway := payment.NewRetryGateway(payment.NewBreakerGateway(chargilyClient, cfg.Breaker, logger), cfg.Retry)

	registry, err := payment.NewRegistry(gateway)
	if err != nil {
		logger.Error("failed to build gateway registry", "error", err)
		os.Exit(1)
	}
	for _, method := range []domain.PaymentMethod{
		domain.PaymentMethodDebitCard,
		domain.PaymentMethodCreditCard,
		domain.PaymentMethodEdahabia,
		domain.PaymentMethodCIB,
	} {
		if err := registry.Route(method, chargily.Name); err != nil {
			logger.Error("failed to route payment method", "method", method, "error", err)
			os.Exit(1)
		}
	}

	processor, err := payment.NewAdapter(registry, logger, meter)
	if err != nil {
		logger.Error("failed to build payment processor", "error", err)
		os.Exit(1)
	}

	createService := services.NewCreateService(uow, cfg.Invoice.DefaultDueDays, cfg.Invoice.DefaultCurrency, logger)
	paymentService := services.NewPaymentService(invoiceRepo, uow, processor, logger)
	cancelService := services.NewCancelService(uow, logger)
	updateService := services.NewUpdateService(uow, logger)
	queryService := services.NewQueryService(invoiceRepo, invoiceCache)
	overdueService := services.NewOverdueService(invoiceRepo, uow, logger)
	settlementService := services.NewSettlementService(invoiceRepo, uow, processor, logger)
	orderHandlers := services.NewOrderEventHandlers(invoiceRepo, createService, cancelService, logger)

	webhookReconciler, err := services.NewWebhookReconciler(
		uow,
		processor,
		map[string]application.SignatureVerifier{chargily.Name: chargilyClient.Signer()},
		logger,
		meter,
	)
	if err != nil {
		logger.Error("failed to build webhook reconciler", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	handlers.NewHandlers(createService, paymentService, cancelService, updateService, queryService, logger).Register(mux)
	handlers.NewWebhookHandler(webhookReconciler, logger).Register(mux)
	handlers.RegisterHealth(mux, db.Ping)
	mux.Handle("GET /metrics", metricsHandler)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.RequestTimeout)(handler)

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Server.Port,
		Handler: otelhttp.NewHandler(handler, cfg.Telemetry.ServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	overdueWorker := worker.NewOverdueWorker(overdueService, cfg.Worker.OverdueInterval, cfg.Worker.BatchSize, logger)
	go overdueWorker.Start(workerCtx)

	checkoutReconciler := worker.NewReconciler(settlementService, cfg.Worker.SettlementInterval, cfg.Worker.SettlementMinAge, cfg.Worker.BatchSize, logger)
	go checkoutReconciler.Start(workerCtx)

	var consumer *messaging.Consumer
	if cfg.Kafka.Enabled {
		consumer = messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID, logger)
		orderWorker := worker.NewOrderEventsWorker(consumer, orderHandlers, cfg.Retry.BaseDelay, logger)
		go orderWorker.Start(workerCtx)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close order consumer", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownMeter(shutdownCtx); err != nil {
		logger.Error("meter provider shutdown failed", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer provider shutdown failed", "error", err)
	}

	logger.Info("server exited")
}
