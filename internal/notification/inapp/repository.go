package inapp

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"
	opDelete      = "notification.inapp.repository.delete"
	opDeleteAll   = "notification.inapp.repository.delete_all"

	errRepoNotConfigured = "in-app notification repository not configured"
	errNotFound          = "notification not found"

	selectColumns = `id, actor_id, recipient_id, recipient_role, title, message, type,
		related_kind, related_id, is_read, read_at, created_at`
)

// Repository persists notifications in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n           Notification
		relatedKind *string
		relatedID   *uuid.UUID
	)
	if err := row.Scan(
		&n.ID, &n.ActorID, &n.Recipient.ID, &n.Recipient.Role, &n.Title, &n.Message, &n.Type,
		&relatedKind, &relatedID, &n.IsRead, &n.ReadAt, &n.CreatedAt,
	); err != nil {
		return Notification{}, err
	}
	if relatedKind != nil && relatedID != nil {
		n.Related = &Ref{Kind: RefKind(*relatedKind), ID: *relatedID}
	}
	return n, nil
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}

	var (
		relatedKind *string
		relatedID   *uuid.UUID
	)
	if p.Related != nil {
		kind := string(p.Related.Kind)
		relatedKind, relatedID = &kind, &p.Related.ID
	}

	n, err := scanNotification(r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, actor_id, recipient_id, recipient_role, title, message, type, related_kind, related_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+selectColumns,
		uuid.New(), p.ActorID, p.Recipient.ID, string(p.Recipient.Role), p.Title, p.Message, string(p.Type), relatedKind, relatedID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Notification{}, apperr.Validation("unknown recipient").WithOp(opCreate)
		}
		return Notification{}, apperr.Internal(fmt.Sprintf("create notification failed: %v", err)).WithOp(opCreate)
	}
	return n, nil
}

func (r *Repository) List(ctx context.Context, to Recipient, limit, offset int) ([]Notification, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND recipient_role = $2
	`, to.ID, string(to.Role)).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND recipient_role = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, to.ID, string(to.Role), limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, to Recipient) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND recipient_role = $2 AND is_read = false
	`, to.ID, string(to.Role)).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, to Recipient, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND recipient_id = $2 AND recipient_role = $3
	`, id, to.ID, string(to.Role))
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errNotFound).WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, to Recipient) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true, read_at = now()
		WHERE recipient_id = $1 AND recipient_role = $2 AND is_read = false
	`, to.ID, string(to.Role))
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Delete(ctx context.Context, to Recipient, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND recipient_id = $2 AND recipient_role = $3
	`, id, to.ID, string(to.Role))
	if err != nil {
		return apperr.Internal(fmt.Sprintf("delete notification failed: %v", err)).WithOp(opDelete)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(errNotFound).WithOp(opDelete)
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context, to Recipient) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notifications WHERE recipient_id = $1 AND recipient_role = $2
	`, to.ID, string(to.Role))
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("delete notifications failed: %v", err)).WithOp(opDeleteAll)
	}
	return tag.RowsAffected(), nil
}
