package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/pagination"
)

// System stores uploaded documents: metadata rows in Postgres and the
// original bytes in blob storage. Classification reads documents through
// Text.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error)
	Find(ctx context.Context, id uuid.UUID) (*Document, error)

	// Create uploads the blob first and removes it again if the row cannot
	// be written.
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)

	// Delete removes the row, then the blob. A failed blob delete is
	// logged and not returned.
	Delete(ctx context.Context, id uuid.UUID) error

	// Text downloads the blob and returns the document with its extracted
	// plain text.
	Text(ctx context.Context, id uuid.UUID) (*Document, string, error)
}
