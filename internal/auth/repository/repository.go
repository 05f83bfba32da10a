package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")
var ErrDuplicateEmail = errors.New("duplicate email")

const (
	opCreateUser   = "auth.repository.create_user"
	opGetUser      = "auth.repository.get_user"
	opListByRole   = "auth.repository.list_users_by_role"
	opGetUsersByID = "auth.repository.get_users_by_ids"
	opResetToken   = "auth.repository.reset_token"
	opSetPassword  = "auth.repository.set_password"

	userColumns = `id, name, email, password_hash, role, created_at, updated_at`

	listUsersByRoleQuery = `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY name ASC`
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		uuid.New(), params.Name, params.Email, params.PasswordHash, params.Role,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, apperr.Internal(fmt.Sprintf("create user failed: %v", err)).WithOp(opCreateUser)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, apperr.Internal(fmt.Sprintf("get user by email failed: %v", err)).WithOp(opGetUser)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, apperr.Internal(fmt.Sprintf("get user failed: %v", err)).WithOp(opGetUser)
	}
	return user, nil
}

func (r *Repository) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	return r.queryUsers(ctx, opListByRole, listUsersByRoleQuery, role)
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryUsers(ctx, opGetUsersByID, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
}

func (r *Repository) queryUsers(ctx context.Context, op, query string, args ...any) ([]User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("query users failed: %v", err)).WithOp(op)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan user failed: %v", err)).WithOp(op)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate users failed: %v", err)).WithOp(op)
	}
	return users, nil
}

// CreateResetToken stores a password reset digest for the user. Earlier
// unused tokens of the same user are retired so only the newest one works.
func (r *Repository) CreateResetToken(ctx context.Context, userID uuid.UUID, digest string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		WITH retired AS (
			UPDATE password_reset_tokens SET used_at = now()
			WHERE user_id = $1 AND used_at IS NULL
		)
		INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
		VALUES ($2, $1, $3)
	`, userID, digest, expiresAt)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("create reset token failed: %v", err)).WithOp(opResetToken)
	}
	return nil
}

// ConsumeResetToken marks an unused token as used and returns its owner and
// expiry. A token can be consumed once; ErrNotFound covers unknown and spent
// tokens alike.
func (r *Repository) ConsumeResetToken(ctx context.Context, digest string) (uuid.UUID, time.Time, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE password_reset_tokens SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL
		RETURNING user_id, expires_at
	`, digest).Scan(&userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, time.Time{}, apperr.Internal(fmt.Sprintf("consume reset token failed: %v", err)).WithOp(opResetToken)
	}
	return userID, expiresAt, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("update password failed: %v", err)).WithOp(opSetPassword)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
