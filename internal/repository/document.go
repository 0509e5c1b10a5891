package repository

import (
	"context"
	"time"

	"docmanager/internal/model"
)

// DocumentFilter selects documents by attribute and upload time. Nil fields
// are unconstrained; From and To are inclusive bounds.
type DocumentFilter struct {
	Author      *string
	ContentType *string
	From        *time.Time
	To          *time.Time
}

// DocumentRepository defines persistence operations for documents.
// Implementations return sql.ErrNoRows when a single document is absent.
type DocumentRepository interface {
	// Create inserts the document and returns it with store-assigned fields populated.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)
	FindByID(ctx context.Context, id string) (*model.Document, error)
	Delete(ctx context.Context, id string) error
	// Search matches query as a case-insensitive literal substring of title or content.
	Search(ctx context.Context, query string, pq PageQuery) (*PageResult[model.Document], error)
	Filter(ctx context.Context, f DocumentFilter, pq PageQuery) (*PageResult[model.Document], error)
}
