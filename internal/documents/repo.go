package documents

import "context"

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// Update overwrites the mutable fields of an existing document.
	Update(ctx context.Context, doc Document) error
}
