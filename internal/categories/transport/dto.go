package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateCategoryRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Color       string `json:"color" validate:"omitempty,len=7,hexcolor"`
}

// UpdateCategoryRequest has no isActive field. Activation is a side effect
// of leads and assignments referencing the category.
type UpdateCategoryRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Color       *string `json:"color,omitempty" validate:"omitempty,len=7,hexcolor"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CategoryListResponse struct {
	Items []CategoryResponse `json:"items"`
}
