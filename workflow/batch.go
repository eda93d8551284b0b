package workflow

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Classifier is the entry point consumed by batch callers. *Workflow
// implements it.
type Classifier interface {
	Classify(ctx context.Context, documentID, documentName, text string) (Decision, error)
}

// Document is one input to ClassifyBatch.
type Document struct {
	ID   string
	Name string
	Text string
}

// BatchResult holds the outcome for one document of a batch. Exactly one of
// Decision and Err is set.
type BatchResult struct {
	DocumentID   string
	DocumentName string
	Decision     *Decision
	Err          error
}

// ClassifyBatch classifies docs with at most concurrency documents in flight
// and returns one result per document in input order. A failing document
// never affects the others. Documents with blank text are reported as
// ErrEmptyDocument without invoking c.
func ClassifyBatch(ctx context.Context, c Classifier, docs []Document, concurrency int) []BatchResult {
	results := make([]BatchResult, len(docs))

	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))

	for i, doc := range docs {
		results[i] = BatchResult{DocumentID: doc.ID, DocumentName: doc.Name}

		if strings.TrimSpace(doc.Text) == "" {
			results[i].Err = ErrEmptyDocument
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			d, err := c.Classify(ctx, doc.ID, doc.Name, doc.Text)
			if err != nil {
				results[i].Err = err
				return nil
			}

			results[i].Decision = &d
			return nil
		})
	}

	g.Wait()
	return results
}

// Decisions returns the successful decisions of results in order.
func Decisions(results []BatchResult) []Decision {
	out := make([]Decision, 0, len(results))
	for _, r := range results {
		if r.Decision != nil {
			out = append(out, *r.Decision)
		}
	}
	return out
}
