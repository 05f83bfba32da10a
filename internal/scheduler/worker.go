package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// FollowUpReminder handles due follow-up reminders.
type FollowUpReminder interface {
	RemindFollowUp(ctx context.Context, leadID uuid.UUID, due time.Time) error
}

// CampaignDispatcher sends a scheduled campaign.
type CampaignDispatcher interface {
	DispatchScheduled(ctx context.Context, campaignID uuid.UUID) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	reminders FollowUpReminder
	campaigns CampaignDispatcher
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, reminders FollowUpReminder, campaigns CampaignDispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetSchedulerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		reminders: reminders,
		campaigns: campaigns,
		log:       log,
	}

	mux.HandleFunc(TaskFollowUpReminder, w.handleFollowUpReminder)
	mux.HandleFunc(TaskCampaignDispatch, w.handleCampaignDispatch)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleFollowUpReminder(ctx context.Context, task *asynq.Task) error {
	if w.reminders == nil {
		return nil
	}

	payload, err := ParseFollowUpReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.reminders.RemindFollowUp(ctx, leadID, payload.DueAt)
}

func (w *Worker) handleCampaignDispatch(ctx context.Context, task *asynq.Task) error {
	if w.campaigns == nil {
		return nil
	}

	payload, err := ParseCampaignDispatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.campaigns.DispatchScheduled(ctx, campaignID)
}
