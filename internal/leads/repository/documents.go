package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is the metadata of a file attached to a lead.
type Document struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	FileKey     string
	FileName    string
	ContentType string
	SizeBytes   int64
	Description *string
	CreatedAt   time.Time
}

// CreateDocumentParams contains parameters for creating a document record.
type CreateDocumentParams struct {
	LeadID      uuid.UUID
	FileKey     string
	FileName    string
	ContentType string
	SizeBytes   int64
	Description *string
}

// CreateDocument inserts a new document record.
func (r *Repository) CreateDocument(ctx context.Context, params CreateDocumentParams) (Document, error) {
	var doc Document
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_documents (id, lead_id, file_key, file_name, content_type, size_bytes, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, lead_id, file_key, file_name, content_type, size_bytes, description, created_at
	`, uuid.New(), params.LeadID, params.FileKey, params.FileName, params.ContentType, params.SizeBytes, params.Description).Scan(
		&doc.ID, &doc.LeadID, &doc.FileKey, &doc.FileName, &doc.ContentType, &doc.SizeBytes, &doc.Description, &doc.CreatedAt,
	)
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents for a lead, oldest first.
func (r *Repository) ListDocuments(ctx context.Context, leadID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, file_key, file_name, content_type, size_bytes, description, created_at
		FROM lead_documents
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.LeadID, &doc.FileKey, &doc.FileName, &doc.ContentType, &doc.SizeBytes, &doc.Description, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
