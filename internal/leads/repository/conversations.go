package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrStatusTransition is returned when the locked lead can no longer move
	// to the requested status.
	ErrStatusTransition = errors.New("lead status transition not allowed")
)

type Conversation struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	Date         time.Time
	Conclusion   string
	IsProfitable *bool
	FollowUpDate *time.Time
	AddedBy      uuid.UUID
	AddedByRole  string
	IsDeleted    bool
	DeletedBy    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ConversationWithMeta joins a conversation with the lead, category and
// author fields shown in the conversation overview.
type ConversationWithMeta struct {
	Conversation
	LeadName      string
	LeadStatus    string
	FollowUpDates []string
	CategoryID    *uuid.UUID
	CategoryTitle *string
	CategoryColor *string
	AuthorName    string
}

// RecordConversationParams describes an interaction logged against a lead
// and the lead fields it changes.
type RecordConversationParams struct {
	LeadID       uuid.UUID
	Date         time.Time
	Conclusion   string
	IsProfitable *bool
	FollowUpDate *time.Time
	AddedBy      uuid.UUID
	AddedByRole  string

	// AppendFollowUp pushes the formatted follow-up date onto the lead history.
	AppendFollowUp string
	// Status is the new lead status; nil leaves it unchanged.
	Status *string
	// SetLeadProfitable copies IsProfitable onto the lead.
	SetLeadProfitable bool
	LastContact       time.Time
}

type ConversationFilter struct {
	LeadID         *uuid.UUID
	AddedBy        *uuid.UUID
	IncludeDeleted bool
}

const conversationColumns = `
	cv.id, cv.lead_id, cv.date, cv.conclusion, cv.is_profitable, cv.follow_up_date,
	cv.added_by, cv.added_by_role, cv.is_deleted, cv.deleted_by, cv.created_at, cv.updated_at`

func conversationDest(c *Conversation) []interface{} {
	return []interface{}{
		&c.ID, &c.LeadID, &c.Date, &c.Conclusion, &c.IsProfitable, &c.FollowUpDate,
		&c.AddedBy, &c.AddedByRole, &c.IsDeleted, &c.DeletedBy, &c.CreatedAt, &c.UpdatedAt,
	}
}

// RecordConversation inserts the conversation and applies the lead changes
// in one transaction. The lead row is locked so concurrent follow-ups on the
// same lead serialize, and the status change is checked against the locked row.
func (r *Repository) RecordConversation(ctx context.Context, params RecordConversationParams) (Conversation, Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("begin record conversation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1 AND is_deleted = false FOR UPDATE`, params.LeadID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, Lead{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("lock lead: %w", err)
	}
	if params.Status != nil && !domain.CanTransition(domain.Status(current), domain.Status(*params.Status)) {
		return Conversation{}, Lead{}, ErrStatusTransition
	}

	var conv Conversation
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations AS cv (id, lead_id, date, conclusion, is_profitable, follow_up_date, added_by, added_by_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+conversationColumns,
		uuid.New(), params.LeadID, params.Date, params.Conclusion, params.IsProfitable, params.FollowUpDate,
		params.AddedBy, params.AddedByRole,
	).Scan(conversationDest(&conv)...)
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("insert conversation: %w", err)
	}

	var appendFollowUp *string
	if params.AppendFollowUp != "" {
		appendFollowUp = &params.AppendFollowUp
	}
	_, err = tx.Exec(ctx, `
		UPDATE leads SET
			follow_up_dates = CASE WHEN $2::text IS NULL THEN follow_up_dates ELSE array_append(follow_up_dates, $2::text) END,
			status = COALESCE($3, status),
			is_profitable = CASE WHEN $4 THEN $5 ELSE is_profitable END,
			last_contact = $6,
			updated_at = now()
		WHERE id = $1
	`, params.LeadID, appendFollowUp, params.Status, params.SetLeadProfitable, params.IsProfitable, params.LastContact)
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("update lead after conversation: %w", err)
	}

	lead, err := scanLead(tx.QueryRow(ctx, `SELECT `+leadSelectColumns+` `+leadFromClause+` WHERE l.id = $1`, params.LeadID))
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("reload lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("commit record conversation: %w", err)
	}
	return conv, lead, nil
}

// GetConversation returns a non-deleted conversation.
func (r *Repository) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations cv WHERE cv.id = $1 AND cv.is_deleted = false`, id).
		Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// UpdateConversation changes the conclusion and/or outcome of a
// non-deleted conversation. Nil values keep the stored field.
func (r *Repository) UpdateConversation(ctx context.Context, id uuid.UUID, conclusion *string, isProfitable *bool) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		UPDATE conversations AS cv SET
			conclusion = COALESCE($2, cv.conclusion),
			is_profitable = COALESCE($3, cv.is_profitable),
			updated_at = now()
		WHERE cv.id = $1 AND cv.is_deleted = false
		RETURNING `+conversationColumns, id, conclusion, isProfitable).Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	return conv, nil
}

// SoftDeleteConversation tombstones a conversation. Rows are never removed.
func (r *Repository) SoftDeleteConversation(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) (Conversation, error) {
	var conv Conversation
	err := r.pool.QueryRow(ctx, `
		UPDATE conversations AS cv SET is_deleted = true, deleted_by = $2, updated_at = now()
		WHERE cv.id = $1 AND cv.is_deleted = false
		RETURNING `+conversationColumns, id, deletedBy).Scan(conversationDest(&conv)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("delete conversation: %w", err)
	}
	return conv, nil
}

func buildConversationWhere(filter ConversationFilter) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}
	if !filter.IncludeDeleted {
		clauses = append(clauses, "cv.is_deleted = false")
	}
	if filter.LeadID != nil {
		args = append(args, *filter.LeadID)
		clauses = append(clauses, fmt.Sprintf("cv.lead_id = $%d", len(args)))
	}
	if filter.AddedBy != nil {
		args = append(args, *filter.AddedBy)
		clauses = append(clauses, fmt.Sprintf("cv.added_by = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "true", args
	}
	return strings.Join(clauses, " AND "), args
}

// ListConversations returns conversations matching the filter, newest date first.
func (r *Repository) ListConversations(ctx context.Context, filter ConversationFilter) ([]Conversation, error) {
	where, args := buildConversationWhere(filter)
	rows, err := r.pool.Query(ctx, `SELECT `+conversationColumns+` FROM conversations cv WHERE `+where+` ORDER BY cv.date DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0)
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(conversationDest(&conv)...); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, conv)
	}
	return items, rows.Err()
}

// ListConversationsWithMeta returns non-deleted conversations joined with
// lead, category and author data. A nil author lists everyone's.
func (r *Repository) ListConversationsWithMeta(ctx context.Context, addedBy *uuid.UUID) ([]ConversationWithMeta, error) {
	where, args := buildConversationWhere(ConversationFilter{AddedBy: addedBy})
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`,
			l.name, l.status, l.follow_up_dates, c.id, c.title, c.color, COALESCE(u.name, '')
		FROM conversations cv
		JOIN leads l ON l.id = cv.lead_id
		LEFT JOIN categories c ON c.id = l.category_id
		LEFT JOIN users u ON u.id = cv.added_by
		WHERE `+where+`
		ORDER BY cv.date DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations with meta: %w", err)
	}
	defer rows.Close()

	items := make([]ConversationWithMeta, 0)
	for rows.Next() {
		var item ConversationWithMeta
		dest := append(conversationDest(&item.Conversation),
			&item.LeadName, &item.LeadStatus, &item.FollowUpDates,
			&item.CategoryID, &item.CategoryTitle, &item.CategoryColor, &item.AuthorName,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan conversation with meta: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
