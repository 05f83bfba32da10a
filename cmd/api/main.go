package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/adapters"
	"leadflow_backend/internal/adapters/storage"
	"leadflow_backend/internal/assignments"
	"leadflow_backend/internal/auth"
	"leadflow_backend/internal/campaigns"
	campaignservice "leadflow_backend/internal/campaigns/service"
	"leadflow_backend/internal/categories"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/router"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/sms"
	"leadflow_backend/migrations"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	if closeRelay := attachAMQPRelay(cfg, eventBus, log); closeRelay != nil {
		defer closeRelay()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	documentStorage := initDocumentStorage(ctx, cfg, log)

	schedulerClient, closeScheduler := initSchedulerClient(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	dispatchLock, closeRedis := initDispatchLock(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	mailSender := newMailSender(cfg, log)
	authModule := auth.NewModule(pool, cfg, mailSender, log)
	categoriesModule := categories.NewModule(pool, val, log)

	// Notification module subscribes to domain events and serves the read side
	notificationModule := notification.New(pool, authModule.Service(), log)
	notificationModule.RegisterHandlers(eventBus)

	leadDeps := leads.Dependencies{
		Categories: categoriesModule.Service(),
		Users:      authModule.Service(),
	}
	if documentStorage != nil {
		leadDeps.Storage = documentStorage
	}
	if schedulerClient != nil {
		leadDeps.Reminders = schedulerClient
	}
	leadsModule := leads.NewModule(pool, eventBus, val, leadDeps, cfg, cfg.GetMinioBucketLeadDocuments(), log)

	assignmentsModule := assignments.NewModule(pool, eventBus, authModule.Service(), categoriesModule.Service(), val, log)

	campaignDeps := campaignservice.Dependencies{
		Leads: adapters.NewCampaignRecipients(leadsModule.Directory()),
		Mail:  mailSender,
		SMS:   newSMSSender(cfg, log),
	}
	if dispatchLock != nil {
		campaignDeps.Lock = dispatchLock
	}
	if schedulerClient != nil {
		campaignDeps.Scheduler = schedulerClient
	}
	campaignsModule := campaigns.NewModule(pool, eventBus, campaignDeps, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolHealth(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			categoriesModule,
			leadsModule,
			assignmentsModule,
			campaignsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initDocumentStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) ports.DocumentStorage {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; lead document uploads disabled")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketLeadDocuments()
	if err := withRetry(ctx, log, "ensure lead-documents bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "leadDocumentsBucket", bucket)
	return storageSvc
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if !cfg.IsSchedulerEnabled() {
		log.Warn("REDIS_URL not configured; follow-up reminders and campaign scheduling disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initDispatchLock(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.DispatchLock, func()) {
	if !cfg.IsSchedulerEnabled() {
		return nil, nil
	}

	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil, nil
	}

	return scheduler.NewDispatchLock(rdb, 0), func() {
		_ = rdb.Close()
	}
}

func newMailSender(cfg *config.Config, log *logger.Logger) email.Mailer {
	if !cfg.IsSMTPEnabled() {
		log.Warn("SMTP_HOST not configured; campaign and reset mail is accepted but not delivered")
		return email.NoopSender{}
	}
	return email.NewSMTPSender(cfg)
}

func newSMSSender(cfg *config.Config, log *logger.Logger) sms.Sender {
	if !cfg.IsSMSEnabled() {
		log.Warn("Twilio not configured; campaign SMS is accepted but not delivered")
		return sms.NoopSender{Region: cfg.GetDefaultPhoneRegion()}
	}
	return sms.NewTwilioSender(cfg)
}

func attachAMQPRelay(cfg config.AMQPConfig, bus events.Bus, log *logger.Logger) func() {
	if !cfg.IsAMQPEnabled() {
		return nil
	}

	relay, err := platformevents.DialAMQPRelay(cfg.GetAMQPURL(), cfg.GetAMQPExchange(), log)
	if err != nil {
		log.Error("failed to connect amqp relay; events stay in-process", "error", err)
		return nil
	}
	relay.Attach(bus, events.AllNames()...)

	return func() {
		_ = relay.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
