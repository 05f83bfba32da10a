package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("lead not found")
	ErrDuplicateEmail = errors.New("lead email already exists")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID            uuid.UUID
	Name          string
	Email         *string
	Phone         *string
	CategoryID    *uuid.UUID
	CategoryTitle *string
	CategoryColor *string
	Position      string
	Source        string
	Notes         string
	Priority      string
	Status        string
	CreatedBy     *uuid.UUID
	AssignedTo    *uuid.UUID
	AssignedRole  *string
	IsProfitable  *bool
	DueDate       *time.Time
	FollowUpDates []string
	LastContact   *time.Time
	IsDeleted     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateLeadParams struct {
	Name         string
	Email        *string
	Phone        *string
	CategoryID   *uuid.UUID
	Position     string
	Source       string
	Notes        string
	Priority     string
	Status       string
	CreatedBy    *uuid.UUID
	AssignedTo   *uuid.UUID
	AssignedRole *string
}

// UpdateLeadParams holds a partial update. Nil pointers keep the stored value.
// ClearCategory removes the category reference.
type UpdateLeadParams struct {
	Name          *string
	Email         *string
	Phone         *string
	CategoryID    *uuid.UUID
	ClearCategory bool
	Position      *string
	Source        *string
	Notes         *string
	Priority      *string
	Status        *string
}

type ListParams struct {
	// Owner limits the page to leads assigned to this user, or created by
	// them and still unassigned.
	Owner      *uuid.UUID
	Status     *string
	Priority   *string
	CategoryID *uuid.UUID
	Offset     int
	Limit      int
}

const leadSelectColumns = `
	l.id, l.name, l.email, l.phone, l.category_id, c.title, c.color,
	COALESCE(l.position, ''), COALESCE(l.source, ''), COALESCE(l.notes, ''),
	l.priority, l.status, l.created_by, l.assigned_to, l.assigned_role, l.is_profitable,
	l.due_date, l.follow_up_dates, l.last_contact, l.is_deleted, l.created_at, l.updated_at`

const leadFromClause = `FROM leads l LEFT JOIN categories c ON c.id = l.category_id`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.CategoryID, &lead.CategoryTitle, &lead.CategoryColor,
		&lead.Position, &lead.Source, &lead.Notes,
		&lead.Priority, &lead.Status, &lead.CreatedBy, &lead.AssignedTo, &lead.AssignedRole, &lead.IsProfitable,
		&lead.DueDate, &lead.FollowUpDates, &lead.LastContact, &lead.IsDeleted, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (
			id, name, email, phone, category_id, position, source, notes,
			priority, status, created_by, assigned_to, assigned_role
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		id, params.Name, params.Email, params.Phone, params.CategoryID, params.Position, params.Source, params.Notes,
		params.Priority, params.Status, params.CreatedBy, params.AssignedTo, params.AssignedRole,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Lead{}, ErrDuplicateEmail
		}
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a non-deleted lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadSelectColumns+` `+leadFromClause+` WHERE l.id = $1 AND l.is_deleted = false`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// EmailInUse checks the address against non-deleted leads, optionally
// ignoring one lead (the one being updated).
func (r *Repository) EmailInUse(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leads
			WHERE lower(email) = lower($1) AND is_deleted = false
				AND ($2::uuid IS NULL OR id <> $2)
		)`, email, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check lead email: %w", err)
	}
	return exists, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE %s
		ORDER BY l.created_at DESC
		LIMIT $%d OFFSET $%d
	`, leadSelectColumns, leadFromClause, whereClause, argIdx, argIdx+1)

	leads, err := r.queryLeads(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{"l.is_deleted = false"}
	args := []interface{}{}
	argIdx := 1

	addEquals := func(column string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Owner != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(l.assigned_to = $%[1]d OR (l.assigned_to IS NULL AND l.created_by = $%[1]d))", argIdx))
		args = append(args, *params.Owner)
		argIdx++
	}
	if params.Status != nil {
		addEquals("l.status", *params.Status)
	}
	if params.Priority != nil {
		addEquals("l.priority", *params.Priority)
	}
	if params.CategoryID != nil {
		addEquals("l.category_id", *params.CategoryID)
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

// ListByCategory returns the non-deleted leads in a category, newest first.
func (r *Repository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]Lead, error) {
	return r.queryLeads(ctx, `SELECT `+leadSelectColumns+` `+leadFromClause+`
		WHERE l.category_id = $1 AND l.is_deleted = false
		ORDER BY l.created_at DESC`, categoryID)
}

// GetByIDs returns the non-deleted leads among ids.
func (r *Repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryLeads(ctx, `SELECT `+leadSelectColumns+` `+leadFromClause+`
		WHERE l.id = ANY($1) AND l.is_deleted = false`, ids)
}

func (r *Repository) queryLeads(ctx context.Context, query string, args ...interface{}) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			category_id = CASE WHEN $6 THEN NULL ELSE COALESCE($5, category_id) END,
			position = COALESCE($7, position),
			source = COALESCE($8, source),
			notes = COALESCE($9, notes),
			priority = COALESCE($10, priority),
			status = COALESCE($11, status),
			updated_at = now()
		WHERE id = $1 AND is_deleted = false
	`,
		id, params.Name, params.Email, params.Phone, params.CategoryID, params.ClearCategory,
		params.Position, params.Source, params.Notes, params.Priority, params.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Lead{}, ErrDuplicateEmail
		}
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Lead{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// SoftDelete tombstones an unassigned lead. It reports false when the lead
// is missing, already deleted, or assigned.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET is_deleted = true, updated_at = now()
		WHERE id = $1 AND is_deleted = false AND assigned_to IS NULL
	`, id)
	if err != nil {
		return false, fmt.Errorf("soft delete lead: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListCampaignIDs returns the campaigns a lead was linked to.
func (r *Repository) ListCampaignIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	return r.queryIDs(ctx, `SELECT campaign_id FROM campaign_leads WHERE lead_id = $1 ORDER BY campaign_id`, leadID)
}

// ListConversationIDs returns the ids of every conversation of a lead in
// creation order, tombstoned ones included.
func (r *Repository) ListConversationIDs(ctx context.Context, leadID uuid.UUID) ([]uuid.UUID, error) {
	return r.queryIDs(ctx, `SELECT id FROM conversations WHERE lead_id = $1 ORDER BY created_at ASC`, leadID)
}

func (r *Repository) queryIDs(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
