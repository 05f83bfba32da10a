package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"leadflow_backend/internal/categories/repository"
	"leadflow_backend/internal/categories/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"
)

// DefaultColor is used when a category is created without a color.
const DefaultColor = "#000000"

// Service provides business logic for categories.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new category service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetCategoryByID retrieves a category by ID.
func (s *Service) GetCategoryByID(ctx context.Context, id uuid.UUID) (transport.CategoryResponse, error) {
	category, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		return transport.CategoryResponse{}, err
	}
	return toCategoryResponse(category), nil
}

// ListCategories retrieves all categories, newest first.
func (s *Service) ListCategories(ctx context.Context) (transport.CategoryListResponse, error) {
	items, err := s.repo.ListCategories(ctx)
	if err != nil {
		return transport.CategoryListResponse{}, err
	}

	resp := transport.CategoryListResponse{Items: make([]transport.CategoryResponse, 0, len(items))}
	for _, c := range items {
		resp.Items = append(resp.Items, toCategoryResponse(c))
	}
	return resp, nil
}

// CreateCategory creates a new inactive category.
func (s *Service) CreateCategory(ctx context.Context, req transport.CreateCategoryRequest) (transport.CategoryResponse, error) {
	color := strings.ToUpper(strings.TrimSpace(req.Color))
	if color == "" {
		color = DefaultColor
	}

	category, err := s.repo.CreateCategory(ctx, repository.CreateCategoryParams{
		Title:       strings.TrimSpace(req.Title),
		Description: sanitize.Text(req.Description),
		Color:       color,
	})
	if err != nil {
		return transport.CategoryResponse{}, err
	}

	s.log.Info("category created", "id", category.ID, "title", category.Title)
	return toCategoryResponse(category), nil
}

// UpdateCategory updates title, description or color.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, req transport.UpdateCategoryRequest) (transport.CategoryResponse, error) {
	if req.Title == nil && req.Description == nil && req.Color == nil {
		return transport.CategoryResponse{}, apperr.Validation("no fields to update")
	}

	params := repository.UpdateCategoryParams{ID: id, Description: sanitize.TextPtr(req.Description)}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		params.Title = &trimmed
	}
	if req.Color != nil {
		color := strings.ToUpper(strings.TrimSpace(*req.Color))
		params.Color = &color
	}

	category, err := s.repo.UpdateCategory(ctx, params)
	if err != nil {
		return transport.CategoryResponse{}, err
	}

	s.log.Info("category updated", "id", category.ID, "title", category.Title)
	return toCategoryResponse(category), nil
}

// DeleteCategory deletes a category if no lead references it.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	used, err := s.repo.HasLeads(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return apperr.Conflict("Category cannot be deleted as it is assigned to leads")
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.log.Info("category deleted", "id", id)
	return nil
}

// Ensure returns NotFound when the category does not exist.
func (s *Service) Ensure(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.GetCategoryByID(ctx, id)
	return err
}

// Activate marks the category active. It never deactivates and is a no-op
// for categories that are already active.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.ActivateCategory(ctx, id); err != nil {
		return err
	}
	s.log.Debug("category activated", "id", id)
	return nil
}

func toCategoryResponse(c repository.Category) transport.CategoryResponse {
	return transport.CategoryResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Color:       c.Color,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
