package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/platform/apperr"
)

const (
	campaignNotFoundMessage = "Campaign not found"
	campaignLockedMessage   = "Cannot update a campaign that has already been sent."

	campaignColumns = `c.id, c.title, c.subject, c.description, c.type, c.category, c.status, c.created_by,
		c.scheduled_at, c.sent_at, c.delivered, c.created_at, c.updated_at`

	campaignSelect = `
		SELECT ` + campaignColumns + `,
			COALESCE(array_agg(cl.lead_id ORDER BY cl.lead_id) FILTER (WHERE cl.lead_id IS NOT NULL), '{}')
		FROM campaigns c
		LEFT JOIN campaign_leads cl ON cl.campaign_id = c.id`
)

// Repo implements the campaign repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.Title, &c.Subject, &c.Description, &c.Type, &c.Category, &c.Status, &c.CreatedBy,
		&c.ScheduledAt, &c.SentAt, &c.Delivered, &c.CreatedAt, &c.UpdatedAt, &c.LeadIDs)
	return c, err
}

// Create inserts the campaign and its lead links in one transaction.
func (r *Repo) Create(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Campaign{}, fmt.Errorf("begin create campaign: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO campaigns (id, title, subject, description, type, category, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, params.Title, params.Subject, params.Description, params.Type, params.Category, StatusDraft, params.CreatedBy)
	if err != nil {
		return Campaign{}, fmt.Errorf("insert campaign: %w", err)
	}

	if err := linkLeads(ctx, tx, id, params.LeadIDs); err != nil {
		return Campaign{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Campaign{}, fmt.Errorf("commit create campaign: %w", err)
	}
	return r.GetByID(ctx, id)
}

func linkLeads(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, leadIDs []uuid.UUID) error {
	batch := &pgx.Batch{}
	for _, leadID := range leadIDs {
		batch.Queue(`INSERT INTO campaign_leads (campaign_id, lead_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			campaignID, leadID)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("link campaign leads: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	campaign, err := scanCampaign(r.pool.QueryRow(ctx, campaignSelect+`
		WHERE c.id = $1
		GROUP BY c.id`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, apperr.NotFound(campaignNotFoundMessage)
		}
		return Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return campaign, nil
}

// ListByCreator returns the creator's campaigns, newest first.
func (r *Repo) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx, campaignSelect+`
		WHERE c.created_by = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	items := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return items, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateCampaignParams) (Campaign, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Campaign{}, fmt.Errorf("begin update campaign: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE campaigns SET
			title = COALESCE($2, title),
			subject = COALESCE($3, subject),
			description = COALESCE($4, description),
			type = COALESCE($5, type),
			category = COALESCE($6, category),
			updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'scheduled')`,
		params.ID, params.Title, params.Subject, params.Description, params.Type, params.Category)
	if err != nil {
		return Campaign{}, fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, params.ID); err != nil {
			return Campaign{}, err
		}
		return Campaign{}, apperr.Conflict(campaignLockedMessage)
	}

	if params.LeadIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM campaign_leads WHERE campaign_id = $1`, params.ID); err != nil {
			return Campaign{}, fmt.Errorf("unlink campaign leads: %w", err)
		}
		if err := linkLeads(ctx, tx, params.ID, params.LeadIDs); err != nil {
			return Campaign{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Campaign{}, fmt.Errorf("commit update campaign: %w", err)
	}
	return r.GetByID(ctx, params.ID)
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(campaignNotFoundMessage)
	}
	return nil
}

func (r *Repo) Schedule(ctx context.Context, id uuid.UUID, at time.Time) (Campaign, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = 'scheduled', scheduled_at = $2, updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'scheduled')`, id, at)
	if err != nil {
		return Campaign{}, fmt.Errorf("schedule campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return Campaign{}, err
		}
		return Campaign{}, apperr.Conflict(campaignLockedMessage)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) BeginSend(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = 'sending', updated_at = now()
		WHERE id = $1 AND status IN ('draft', 'scheduled')`, id)
	if err != nil {
		return false, fmt.Errorf("begin campaign send: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) FinishSend(ctx context.Context, id uuid.UUID, delivered int, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = 'sent', delivered = $2, sent_at = $3, updated_at = now()
		WHERE id = $1`, id, delivered, sentAt)
	if err != nil {
		return fmt.Errorf("finish campaign send: %w", err)
	}
	return nil
}

func (r *Repo) AbortSend(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = 'draft', scheduled_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'sending'`, id)
	if err != nil {
		return fmt.Errorf("abort campaign send: %w", err)
	}
	return nil
}
