package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/query"
	"github.com/JaimeStill/concord/pkg/repository"
)

type repo struct {
	db         *sql.DB
	cache      *cache
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a prompt repository implementing the System interface.
// Effective instructions are cached in process and invalidated on writes.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) (System, error) {
	c, err := newCache()
	if err != nil {
		return nil, fmt.Errorf("create prompt cache: %w", err)
	}

	return &repo{
		db:         db,
		cache:      c,
		logger:     logger.With("system", "prompts"),
		pagination: pagination,
	}, nil
}

func (r *repo) Instructions(ctx context.Context, stage Stage) (string, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return "", err
	}

	if text, ok := r.cache.get(stage); ok {
		return text, nil
	}

	var text string
	err := r.db.QueryRowContext(
		ctx,
		"SELECT instructions FROM prompts WHERE stage = $1 AND active = true",
		stage,
	).Scan(&text)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		text, err = Instructions(stage)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("query active instructions for %s: %w", stage, err)
	}

	r.cache.set(stage, text)
	return text, nil
}

func (r *repo) Spec(_ context.Context, stage Stage) (string, error) {
	return Spec(stage)
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Prompt], error) {
	page.Normalize(r.pagination)

	b := filters.Apply(query.NewBuilder(projection, defaultSort).WhereSearch(page.Search, "Name", "Description"))

	result, err := repository.QueryPage(ctx, r.db, b, page, scanPrompt)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Prompt, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPrompt)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Prompt, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return r.write(ctx, "created", func(tx *sql.Tx) (Prompt, error) {
		return repository.QueryOne(ctx, tx,
			"INSERT INTO prompts(name, stage, instructions, description) VALUES ($1, $2, $3, $4) RETURNING "+returning,
			[]any{cmd.Name, cmd.Stage, cmd.Instructions, cmd.Description}, scanPrompt)
	})
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Prompt, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return r.write(ctx, "updated", func(tx *sql.Tx) (Prompt, error) {
		return repository.QueryOne(ctx, tx,
			"UPDATE prompts SET name = $1, stage = $2, instructions = $3, description = $4 WHERE id = $5 RETURNING "+returning,
			[]any{cmd.Name, cmd.Stage, cmd.Instructions, cmd.Description, id}, scanPrompt)
	})
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.write(ctx, "deleted", func(tx *sql.Tx) (Prompt, error) {
		return Prompt{ID: id}, repository.ExecExpectOne(ctx, tx, "DELETE FROM prompts WHERE id = $1", id)
	})
	return err
}

// Activate makes id the override for its stage. The stage's previous
// override is cleared in the same transaction so at most one prompt per
// stage is active.
func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*Prompt, error) {
	return r.write(ctx, "activated", func(tx *sql.Tx) (Prompt, error) {
		var stage Stage
		if err := tx.QueryRowContext(ctx, "SELECT stage FROM prompts WHERE id = $1", id).Scan(&stage); err != nil {
			return Prompt{}, err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE prompts SET active = false WHERE stage = $1 AND active AND id <> $2", stage, id,
		); err != nil {
			return Prompt{}, fmt.Errorf("clear active %s prompt: %w", stage, err)
		}
		return repository.QueryOne(ctx, tx,
			"UPDATE prompts SET active = true WHERE id = $1 RETURNING "+returning,
			[]any{id}, scanPrompt)
	})
}

func (r *repo) Deactivate(ctx context.Context, id uuid.UUID) (*Prompt, error) {
	return r.write(ctx, "deactivated", func(tx *sql.Tx) (Prompt, error) {
		return repository.QueryOne(ctx, tx,
			"UPDATE prompts SET active = false WHERE id = $1 RETURNING "+returning,
			[]any{id}, scanPrompt)
	})
}

// write runs fn in a transaction and drops cached instructions once it
// commits, since any prompt write can change a stage's override.
func (r *repo) write(ctx context.Context, action string, fn func(*sql.Tx) (Prompt, error)) (*Prompt, error) {
	p, err := repository.WithTx(ctx, r.db, fn)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.cache.clear()
	r.logger.Info("prompt "+action, "id", p.ID, "name", p.Name, "stage", p.Stage)
	return &p, nil
}
