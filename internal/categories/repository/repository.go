package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/platform/apperr"
)

const (
	categoryNotFoundMessage = "Category not found"
	duplicateTitleMessage   = "Category with this title already exists"

	categoryColumns = `id, title, description, color, is_active, created_at, updated_at`
)

// Repo implements the category repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new category repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Color, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateCategory creates a category. Titles are unique case-insensitively.
func (r *Repo) CreateCategory(ctx context.Context, params CreateCategoryParams) (Category, error) {
	query := `
		INSERT INTO categories (id, title, description, color)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + categoryColumns

	category, err := scanCategory(r.pool.QueryRow(ctx, query, uuid.New(), params.Title, params.Description, params.Color))
	if err != nil {
		if isUniqueViolation(err) {
			return Category{}, apperr.Conflict(duplicateTitleMessage)
		}
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// GetCategoryByID retrieves a category by ID.
func (r *Repo) GetCategoryByID(ctx context.Context, id uuid.UUID) (Category, error) {
	category, err := scanCategory(r.pool.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, apperr.NotFound(categoryNotFoundMessage)
		}
		return Category{}, fmt.Errorf("get category by id: %w", err)
	}
	return category, nil
}

// ListCategories lists all categories, newest first.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// UpdateCategory updates a category.
func (r *Repo) UpdateCategory(ctx context.Context, params UpdateCategoryParams) (Category, error) {
	query := `
		UPDATE categories
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			color = COALESCE($4, color),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + categoryColumns

	category, err := scanCategory(r.pool.QueryRow(ctx, query, params.ID, params.Title, params.Description, params.Color))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, apperr.NotFound(categoryNotFoundMessage)
		}
		if isUniqueViolation(err) {
			return Category{}, apperr.Conflict(duplicateTitleMessage)
		}
		return Category{}, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// DeleteCategory deletes a category.
func (r *Repo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(categoryNotFoundMessage)
	}
	return nil
}

// ActivateCategory sets is_active. Already active categories are left untouched.
func (r *Repo) ActivateCategory(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE categories SET is_active = true, updated_at = now()
			WHERE id = $1 AND is_active = false
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM updated) OR EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("activate category: %w", err)
	}
	if !exists {
		return apperr.NotFound(categoryNotFoundMessage)
	}
	return nil
}

// HasLeads reports whether any lead, deleted or not, references the category.
func (r *Repo) HasLeads(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE category_id = $1)`, id).Scan(&used); err != nil {
		return false, fmt.Errorf("check category leads: %w", err)
	}
	return used, nil
}
