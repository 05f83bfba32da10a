// Package imports creates leads in bulk from spreadsheet uploads. Rows are
// validated and persisted independently: a bad row is reported and skipped,
// it never aborts the batch.
package imports

import (
	"context"
	"errors"
	"io"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/ports"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgMissingField     = "Missing required field: name or email"
	msgInvalidEmail     = "Invalid email format"
	msgInvalidPriority  = "Invalid priority"
	msgDuplicateEmail   = "Lead with this email already exists"
	msgDatabaseError    = "Database error or duplicate entry"
	msgAssigneeNotFound = "Assigned user not found in Worker list"
)

// Repository is the data access the import service needs.
type Repository interface {
	EmailInUse(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
}

// Config carries import limits and defaults.
type Config struct {
	PhoneRegion string
	MaxRows     int
}

// Service imports leads from uploaded files.
type Service struct {
	repo       Repository
	categories ports.CategoryService
	users      ports.UserDirectory
	bus        events.Bus
	cfg        Config
	log        *logger.Logger
}

// New creates an import service.
func New(repo Repository, categories ports.CategoryService, users ports.UserDirectory, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{repo: repo, categories: categories, users: users, bus: bus, cfg: cfg, log: log}
}

// Import parses the file and creates one lead per valid row. Managers may
// assign every imported lead to a worker and a category; a worker's imported
// leads are assigned to themselves.
func (s *Service) Import(ctx context.Context, by actor.Actor, fileName string, file io.Reader, opts transport.ImportOptions) (transport.ImportResult, error) {
	assignee, err := s.resolveAssignee(ctx, by, opts.AssignedTo)
	if err != nil {
		return transport.ImportResult{}, err
	}
	if opts.CategoryID != nil {
		if err := s.categories.Ensure(ctx, *opts.CategoryID); err != nil {
			return transport.ImportResult{}, err
		}
	}

	rows, err := Parse(fileName, file, s.cfg.MaxRows)
	if err != nil {
		return transport.ImportResult{}, apperr.Validation(err.Error())
	}
	if len(rows) == 0 {
		return transport.ImportResult{}, apperr.Validation("The file contains no lead rows")
	}

	status := domain.StatusNew
	if opts.CategoryID != nil && assignee != nil {
		status = domain.StatusInProgress
	}

	result := transport.ImportResult{
		TotalProcessed: len(rows),
		Errors:         []transport.ImportRowError{},
	}
	for _, row := range rows {
		if msg := s.importRow(ctx, by, row, assignee, opts.CategoryID, status); msg != "" {
			result.Failed++
			result.Errors = append(result.Errors, transport.ImportRowError{
				Row:   row.Number,
				Name:  row.Name,
				Email: row.Email,
				Error: msg,
			})
			continue
		}
		result.Successful++
	}

	if result.Successful == 0 {
		return result, nil
	}

	if opts.CategoryID != nil {
		if err := s.categories.Activate(ctx, *opts.CategoryID); err != nil {
			s.log.Error("activate category after import failed", "categoryId", *opts.CategoryID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.LeadsImported{
		BaseEvent:  events.NewBaseEvent(),
		Actor:      by,
		Successful: result.Successful,
		Failed:     result.Failed,
		Assignee:   assignee,
		CategoryID: opts.CategoryID,
	})

	s.log.Info("leads imported", "file", fileName, "successful", result.Successful, "failed", result.Failed)
	return result, nil
}

func (s *Service) resolveAssignee(ctx context.Context, by actor.Actor, assignedTo *uuid.UUID) (*actor.Actor, error) {
	if !by.IsManager() {
		if assignedTo != nil && *assignedTo != by.ID {
			return nil, apperr.Forbidden("Workers cannot assign imported leads")
		}
		self := by
		return &self, nil
	}
	if assignedTo == nil {
		return nil, nil
	}

	resolved, err := s.users.ResolveUser(ctx, *assignedTo)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound(msgAssigneeNotFound)
		}
		return nil, err
	}
	if resolved.Role != actor.RoleWorker {
		return nil, apperr.NotFound(msgAssigneeNotFound)
	}
	return &resolved, nil
}

// importRow persists one row and returns the failure reason, or "" on success.
func (s *Service) importRow(ctx context.Context, by actor.Actor, row Row, assignee *actor.Actor, categoryID *uuid.UUID, status domain.Status) string {
	email := domain.NormalizeEmail(row.Email)
	if row.Name == "" || email == "" {
		return msgMissingField
	}
	if !domain.ValidEmail(email) {
		return msgInvalidEmail
	}
	priority, ok := domain.ParsePriority(row.Priority)
	if !ok {
		return msgInvalidPriority
	}

	inUse, err := s.repo.EmailInUse(ctx, email, nil)
	if err != nil {
		s.log.Error("import email check failed", "row", row.Number, "error", err)
		return msgDatabaseError
	}
	if inUse {
		return msgDuplicateEmail
	}

	createdBy := by.ID
	params := repository.CreateLeadParams{
		Name:       row.Name,
		Email:      &email,
		CategoryID: categoryID,
		Position:   row.Position,
		Source:     row.Source,
		Notes:      sanitize.Text(row.Notes),
		Priority:   string(priority),
		Status:     string(status),
		CreatedBy:  &createdBy,
	}
	if normalized := phone.NormalizeE164In(row.Phone, s.cfg.PhoneRegion); normalized != "" {
		params.Phone = &normalized
	}
	if assignee != nil {
		role := string(assignee.Role)
		params.AssignedTo = &assignee.ID
		params.AssignedRole = &role
	}

	if _, err := s.repo.Create(ctx, params); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return msgDuplicateEmail
		}
		s.log.Error("import row failed", "row", row.Number, "error", err)
		return msgDatabaseError
	}
	return ""
}
