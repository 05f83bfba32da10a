package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Category groups leads and is activated on first use.
type Category struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Color       string    `db:"color"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CreateCategoryParams contains data for creating a category.
type CreateCategoryParams struct {
	Title       string
	Description string
	Color       string
}

// UpdateCategoryParams contains data for updating a category.
// Nil fields keep their stored value.
type UpdateCategoryParams struct {
	ID          uuid.UUID
	Title       *string
	Description *string
	Color       *string
}

// Repository defines the category persistence operations.
type Repository interface {
	CreateCategory(ctx context.Context, params CreateCategoryParams) (Category, error)
	GetCategoryByID(ctx context.Context, id uuid.UUID) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, params UpdateCategoryParams) (Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ActivateCategory(ctx context.Context, id uuid.UUID) error
	HasLeads(ctx context.Context, id uuid.UUID) (bool, error)
}
