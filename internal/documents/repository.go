package documents

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/query"
	"github.com/JaimeStill/concord/pkg/repository"
	"github.com/JaimeStill/concord/pkg/storage"
)

// inserted returns a new row in projection order. The joined decision
// columns are NULL until the document is classified.
const inserted = `
	INSERT INTO documents(id, filename, content_type, size_bytes, page_count, storage_key)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, filename, content_type, size_bytes, page_count, storage_key, status, uploaded_at, updated_at,
		NULL::text, NULL::double precision, NULL::timestamptz`

type repo struct {
	db         *sql.DB
	blobs      storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New returns the Postgres and blob storage backed System.
func New(db *sql.DB, blobs storage.System, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		blobs:      blobs,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	b := filters.Apply(query.NewBuilder(projection, defaultSort).WhereSearch(page.Search, "Filename", "ContentType"))

	result, err := repository.QueryPage(ctx, r.db, b, page, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidFile, cmd.Filename)
	}

	id := uuid.New()
	key := storageKey(id, cmd.Filename)

	if err := r.blobs.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("store %s: %w", cmd.Filename, err)
	}

	args := []any{id, cmd.Filename, cmd.ContentType, int64(len(cmd.Data)), cmd.PageCount, key}
	d, err := repository.QueryOne(ctx, r.db, inserted, args, scanDocument)
	if err != nil {
		r.discard(ctx, key)
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document stored", "id", d.ID, "filename", d.Filename, "bytes", d.SizeBytes)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	var key string
	err := r.db.QueryRowContext(ctx, "DELETE FROM documents WHERE id = $1 RETURNING storage_key", id).Scan(&key)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.discard(ctx, key)
	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Text(ctx context.Context, id uuid.UUID) (*Document, string, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, "", err
	}

	body, err := r.blobs.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", doc.StorageKey, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", doc.StorageKey, err)
	}

	text, err := Extract(doc.Filename, data)
	if err != nil {
		return nil, "", err
	}

	r.logger.Debug("document text extracted", "id", id, "chars", len(text))
	return doc, text, nil
}

// discard removes a blob whose row is gone or was never written. Failures
// leave an orphaned blob and are only logged.
func (r *repo) discard(ctx context.Context, key string) {
	if err := r.blobs.Delete(ctx, key); err != nil {
		r.logger.Warn("orphaned blob", "key", key, "error", err)
	}
}

// storageKey places each upload under its own id so equal filenames never
// collide. The name is reduced to its base and path-escaped.
func storageKey(id uuid.UUID, filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		name = "document"
	}
	return "documents/" + id.String() + "/" + url.PathEscape(name)
}
