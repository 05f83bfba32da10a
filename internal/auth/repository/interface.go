package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the persistence operations of the users context.
type UserRepository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	ListUsersByRole(ctx context.Context, role string) ([]User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	CreateResetToken(ctx context.Context, userID uuid.UUID, digest string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, digest string) (uuid.UUID, time.Time, error)
}

// Ensure Repository implements UserRepository
var _ UserRepository = (*Repository)(nil)
