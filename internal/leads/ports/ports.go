// Package ports defines consumer-driven interfaces for the collaborators the
// leads domain depends on. Other modules satisfy them through small adapters
// wired in the composition root.
package ports

import (
	"context"
	"io"
	"time"

	"leadflow_backend/internal/shared/actor"

	"github.com/google/uuid"
)

// CategoryService resolves category references and flips their activation flag.
type CategoryService interface {
	// Ensure returns a NotFound error when the category does not exist.
	Ensure(ctx context.Context, id uuid.UUID) error
	// Activate marks the category active. Calling it again is a no-op.
	Activate(ctx context.Context, id uuid.UUID) error
}

// UserDirectory resolves users into {id, role} pairs.
type UserDirectory interface {
	// ResolveUser returns a NotFound error when the user does not exist.
	ResolveUser(ctx context.Context, id uuid.UUID) (actor.Actor, error)
	UserNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// PresignedURL is a temporary download link for a stored document.
type PresignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// DocumentStorage stores lead documents in object storage.
type DocumentStorage interface {
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (PresignedURL, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
	ValidateContentType(contentType string) error
	ValidateFileSize(sizeBytes int64) error
}

// ReminderScheduler enqueues a reminder for a future follow-up date.
type ReminderScheduler interface {
	ScheduleFollowUpReminder(ctx context.Context, leadID uuid.UUID, due time.Time) error
}
