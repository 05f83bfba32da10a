package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/platform/apperr"
)

const assignmentColumns = `a.id, a.created_by, a.assigned_to, a.priority, a.due_date, a.status, a.notes, a.category_id, a.created_at`

// Repo implements the assignment repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new assignment repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Assign locks the requested leads, checks ownership, records the assignment
// and hands every lead to the assignee in one transaction.
func (r *Repo) Assign(ctx context.Context, params CreateAssignmentParams) (Assignment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Assignment{}, fmt.Errorf("begin assign: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	found, err := lockLeads(ctx, tx, params.LeadIDs)
	if err != nil {
		return Assignment{}, err
	}
	if err := CheckAssignable(params.LeadIDs, found, params.AssignedTo); err != nil {
		return Assignment{}, err
	}

	assignment := Assignment{
		ID:         uuid.New(),
		CreatedBy:  params.CreatedBy,
		AssignedTo: params.AssignedTo,
		Priority:   params.Priority,
		DueDate:    params.DueDate,
		Status:     "active",
		Notes:      params.Notes,
		CategoryID: params.CategoryID,
		LeadIDs:    params.LeadIDs,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO assignments (id, created_by, assigned_to, priority, due_date, status, notes, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		assignment.ID, assignment.CreatedBy, assignment.AssignedTo, assignment.Priority,
		assignment.DueDate, assignment.Status, assignment.Notes, assignment.CategoryID,
	).Scan(&assignment.CreatedAt)
	if err != nil {
		return Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}

	batch := &pgx.Batch{}
	for i, leadID := range params.LeadIDs {
		batch.Queue(`INSERT INTO assignment_leads (assignment_id, lead_id, position) VALUES ($1, $2, $3)`,
			assignment.ID, leadID, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return Assignment{}, fmt.Errorf("insert assignment leads: %w", err)
	}

	if params.CategoryID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE categories SET is_active = true, updated_at = now() WHERE id = $1 AND is_active = false`,
			*params.CategoryID); err != nil {
			return Assignment{}, fmt.Errorf("activate category: %w", err)
		}
	}

	for _, leadID := range params.LeadIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE leads
			SET assigned_to = $2,
				assigned_role = $3,
				status = 'in-progress',
				category_id = COALESCE($4, category_id),
				due_date = COALESCE($5, due_date),
				updated_at = now()
			WHERE id = $1 AND assigned_to IS NULL AND is_deleted = false`,
			leadID, params.AssignedTo, params.AssignedRole, params.CategoryID, params.DueDate)
		if err != nil {
			return Assignment{}, fmt.Errorf("assign lead %s: %w", leadID, err)
		}
		if tag.RowsAffected() == 0 {
			return Assignment{}, apperr.Conflict(fmt.Sprintf("Lead %s is already assigned to another worker", leadID))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Assignment{}, fmt.Errorf("commit assign: %w", err)
	}
	return assignment, nil
}

func lockLeads(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) (map[uuid.UUID]LeadOwnership, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, assigned_to, status
		FROM leads
		WHERE id = ANY($1) AND is_deleted = false
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock leads: %w", err)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]LeadOwnership, len(ids))
	for rows.Next() {
		var lead LeadOwnership
		if err := rows.Scan(&lead.ID, &lead.AssignedTo, &lead.Status); err != nil {
			return nil, fmt.Errorf("scan locked lead: %w", err)
		}
		found[lead.ID] = lead
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock leads: %w", err)
	}
	return found, nil
}

// List returns assignments with their lead ids in assignment order.
func (r *Repo) List(ctx context.Context, assignedTo *uuid.UUID) ([]Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `,
			COALESCE(array_agg(al.lead_id ORDER BY al.position) FILTER (WHERE al.lead_id IS NOT NULL), '{}')
		FROM assignments a
		LEFT JOIN assignment_leads al ON al.assignment_id = a.id
		WHERE ($1::uuid IS NULL OR a.assigned_to = $1)
		GROUP BY a.id
		ORDER BY a.created_at DESC`

	rows, err := r.pool.Query(ctx, query, assignedTo)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.CreatedBy, &a.AssignedTo, &a.Priority, &a.DueDate, &a.Status,
			&a.Notes, &a.CategoryID, &a.CreatedAt, &a.LeadIDs); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

// MarkOverdue flags active assignments whose due date is before now.
func (r *Repo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assignments
		SET status = 'overdue'
		WHERE status = 'active' AND due_date IS NOT NULL AND due_date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}
