package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/adapters"
	assignmentrepo "leadflow_backend/internal/assignments/repository"
	"leadflow_backend/internal/auth"
	"leadflow_backend/internal/campaigns"
	campaignservice "leadflow_backend/internal/campaigns/service"
	"leadflow_backend/internal/categories"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/sms"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if !cfg.IsSchedulerEnabled() {
		log.Error("REDIS_URL is required for the scheduler")
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	val := validator.New()

	// Worker-side wiring: reminders and campaign sends publish events that the
	// notification module turns into in-app notifications.
	mailSender := newMailSender(cfg)
	authModule := auth.NewModule(pool, cfg, mailSender, log)
	categoriesModule := categories.NewModule(pool, val, log)
	notificationModule := notification.New(pool, authModule.Service(), log)
	notificationModule.RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(pool, eventBus, val, leads.Dependencies{
		Categories: categoriesModule.Service(),
		Users:      authModule.Service(),
	}, cfg, cfg.GetMinioBucketLeadDocuments(), log)

	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	campaignsModule := campaigns.NewModule(pool, eventBus, campaignservice.Dependencies{
		Leads: adapters.NewCampaignRecipients(leadsModule.Directory()),
		Mail:  mailSender,
		SMS:   newSMSSender(cfg),
		Lock:  scheduler.NewDispatchLock(rdb, 0),
	}, val, log)

	sweeper := scheduler.NewOverdueSweeper(assignmentrepo.New(pool), cfg.GetOverdueSweepInterval(), log)
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, leadsModule.FollowUps(), campaignsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func newMailSender(cfg *config.Config) email.Mailer {
	if !cfg.IsSMTPEnabled() {
		return email.NoopSender{}
	}
	return email.NewSMTPSender(cfg)
}

func newSMSSender(cfg *config.Config) sms.Sender {
	if !cfg.IsSMSEnabled() {
		return sms.NoopSender{Region: cfg.GetDefaultPhoneRegion()}
	}
	return sms.NewTwilioSender(cfg)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
