package classifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/documents"
	"github.com/JaimeStill/concord/pkg/events"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/query"
	"github.com/JaimeStill/concord/pkg/repository"
	"github.com/JaimeStill/concord/workflow"
)

type repo struct {
	db          *sql.DB
	docs        documents.System
	classifier  workflow.Classifier
	publisher   events.Publisher
	logger      *slog.Logger
	pagination  pagination.Config
	concurrency int
}

// New creates a classification repository implementing the System interface.
// classifier runs the consensus workflow; concurrency bounds ClassifyBatch.
func New(
	db *sql.DB,
	docs documents.System,
	classifier workflow.Classifier,
	publisher events.Publisher,
	logger *slog.Logger,
	pagination pagination.Config,
	concurrency int,
) System {
	return &repo{
		db:          db,
		docs:        docs,
		classifier:  classifier,
		publisher:   publisher,
		logger:      logger.With("system", "classifications"),
		pagination:  pagination,
		concurrency: concurrency,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Classification], error) {
	page.Normalize(r.pagination)

	b := filters.Apply(query.NewBuilder(projection, defaultSort).WhereSearch(page.Search, "Rationale", "DocumentName"))

	result, err := repository.QueryPage(ctx, r.db, b, page, scanClassification)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Classification, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) FindByDocument(ctx context.Context, documentID uuid.UUID) (*Classification, error) {
	q, args := query.NewBuilder(projection).BuildSingle("DocumentID", documentID)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Classify(ctx context.Context, documentID uuid.UUID) (*Classification, error) {
	doc, text, err := r.docs.Text(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("classify document %s: %w", documentID, workflow.ErrEmptyDocument)
	}

	decision, err := r.classifier.Classify(ctx, doc.ID.String(), doc.Filename, text)
	if err != nil {
		return nil, fmt.Errorf("classify document %s: %w", documentID, err)
	}

	return r.store(ctx, documentID, decision)
}

func (r *repo) ClassifyBatch(ctx context.Context, documentIDs []uuid.UUID) []BatchResult {
	results := make([]BatchResult, len(documentIDs))
	inputs := make([]workflow.Document, 0, len(documentIDs))
	index := make(map[string]int, len(documentIDs))

	for i, id := range documentIDs {
		results[i].DocumentID = id

		if _, dup := index[id.String()]; dup {
			results[i].Error = fmt.Errorf("%w: duplicate document id", ErrInvalidInput).Error()
			continue
		}

		doc, text, err := r.docs.Text(ctx, id)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}

		index[id.String()] = i
		inputs = append(inputs, workflow.Document{ID: id.String(), Name: doc.Filename, Text: text})
	}

	for _, br := range workflow.ClassifyBatch(ctx, r.classifier, inputs, r.concurrency) {
		i := index[br.DocumentID]

		if br.Err != nil {
			if errors.Is(br.Err, workflow.ErrEmptyDocument) {
				r.logger.Warn("skipping empty document", "document_id", br.DocumentID, "name", br.DocumentName)
			}
			results[i].Error = br.Err.Error()
			continue
		}

		c, err := r.store(ctx, results[i].DocumentID, *br.Decision)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Classification = c
	}

	r.logger.Info("batch classified", "documents", len(documentIDs), "classified", countClassified(results))
	return results
}

// store upserts the decision, moves the document to review, and publishes
// EventDecisionCreated. A publish failure is logged and does not fail the call.
func (r *repo) store(ctx context.Context, documentID uuid.UUID, d workflow.Decision) (*Classification, error) {
	evidence, err := json.Marshal(d.Evidence)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}
	voteA, err := json.Marshal(d.VoteA)
	if err != nil {
		return nil, fmt.Errorf("marshal vote_a: %w", err)
	}
	voteB, err := json.Marshal(d.VoteB)
	if err != nil {
		return nil, fmt.Errorf("marshal vote_b: %w", err)
	}

	upsertQ := `
		WITH c AS (
			INSERT INTO classifications(
				document_id, label, confidence, rationale, evidence,
				vote_a, vote_b, consensus_reached, agreement_score, rounds_used
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (document_id) DO UPDATE SET
				label = EXCLUDED.label,
				confidence = EXCLUDED.confidence,
				rationale = EXCLUDED.rationale,
				evidence = EXCLUDED.evidence,
				vote_a = EXCLUDED.vote_a,
				vote_b = EXCLUDED.vote_b,
				consensus_reached = EXCLUDED.consensus_reached,
				agreement_score = EXCLUDED.agreement_score,
				rounds_used = EXCLUDED.rounds_used,
				classified_at = NOW(),
				validated_by = NULL,
				validated_at = NULL
			RETURNING *
		)
		SELECT ` + returning + `
		FROM c JOIN public.documents d ON d.id = c.document_id`

	upsertArgs := []any{
		documentID,
		string(d.Label),
		d.Confidence,
		d.Rationale,
		evidence,
		voteA,
		voteB,
		d.ConsensusReached,
		d.AgreementScore,
		d.RoundsUsed,
	}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Classification, error) {
		cl, err := repository.QueryOne(ctx, tx, upsertQ, upsertArgs, scanClassification)
		if err != nil {
			return Classification{}, fmt.Errorf("upsert classification: %w", err)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2",
			documents.StatusReview, documentID,
		); err != nil {
			return Classification{}, fmt.Errorf("update document status: %w", err)
		}

		return cl, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document classified",
		"id", c.ID,
		"document_id", documentID,
		"label", c.Label,
		"confidence", c.Confidence,
		"rounds_used", c.RoundsUsed,
		"consensus_reached", c.ConsensusReached,
	)

	if err := r.publisher.Publish(ctx, EventDecisionCreated, c.Decision()); err != nil {
		r.logger.Warn("decision event not published", "document_id", documentID, "error", err)
	}

	return &c, nil
}

func (r *repo) Validate(ctx context.Context, id uuid.UUID, cmd ValidateCommand) (*Classification, error) {
	if strings.TrimSpace(cmd.ValidatedBy) == "" {
		return nil, fmt.Errorf("%w: validated_by required", ErrInvalidInput)
	}

	validateQ := `
		WITH c AS (
			UPDATE classifications
			SET validated_by = $1, validated_at = NOW()
			WHERE id = $2
			RETURNING *
		)
		SELECT ` + returning + `
		FROM c JOIN public.documents d ON d.id = c.document_id`

	c, err := r.review(ctx, validateQ, []any{cmd.ValidatedBy, id})
	if err != nil {
		return nil, err
	}

	r.logger.Info("classification validated",
		"id", c.ID,
		"validated_by", cmd.ValidatedBy,
	)
	return c, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Classification, error) {
	label, err := workflow.ParseLabel(cmd.Label)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if strings.TrimSpace(cmd.Rationale) == "" || strings.TrimSpace(cmd.UpdatedBy) == "" {
		return nil, fmt.Errorf("%w: rationale and updated_by required", ErrInvalidInput)
	}

	updateQ := `
		WITH c AS (
			UPDATE classifications
			SET label = $1, rationale = $2, validated_by = $3, validated_at = NOW()
			WHERE id = $4
			RETURNING *
		)
		SELECT ` + returning + `
		FROM c JOIN public.documents d ON d.id = c.document_id`

	c, err := r.review(ctx, updateQ, []any{string(label), cmd.Rationale, cmd.UpdatedBy, id})
	if err != nil {
		return nil, err
	}

	r.logger.Info("classification updated",
		"id", c.ID,
		"label", c.Label,
		"updated_by", cmd.UpdatedBy,
	)
	return c, nil
}

// review applies a reviewer statement and completes the document, which
// must be awaiting review.
func (r *repo) review(ctx context.Context, q string, args []any) (*Classification, error) {
	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Classification, error) {
		cl, err := repository.QueryOne(ctx, tx, q, args, scanClassification)
		if err != nil {
			return Classification{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
			documents.StatusComplete, cl.DocumentID, documents.StatusReview,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Classification{}, ErrInvalidStatus
			}
			return Classification{}, fmt.Errorf("complete document %s: %w", cl.DocumentID, err)
		}

		return cl, nil
	})

	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM classifications WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("classification deleted", "id", id)
	return nil
}

func (r *repo) Export(ctx context.Context, filters Filters) ([]workflow.Decision, error) {
	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	q, args := qb.Build()
	items, err := repository.QueryMany(ctx, r.db, q, args, scanClassification)
	if err != nil {
		return nil, fmt.Errorf("export classifications: %w", err)
	}

	out := make([]workflow.Decision, len(items))
	for i, c := range items {
		out[i] = c.Decision()
	}
	return out, nil
}

func countClassified(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Classification != nil {
			n++
		}
	}
	return n
}
