package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/JaimeStill/concord/workflow"

// Workflow drives documents through the consensus round loop. A Workflow
// holds only read-only configuration and capabilities, so one instance may
// classify many documents concurrently.
type Workflow struct {
	cfg     RunConfig
	caps    Capabilities
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger used for round events.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors updated by each run.
func WithMetrics(m *Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) {
		if t != nil {
			w.tracer = t
		}
	}
}

// New validates cfg and caps and returns a Workflow. Any problem is reported
// as ErrInvalidConfig before a document is processed.
func New(cfg RunConfig, caps Capabilities, opts ...Option) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case caps.EvaluatorA == nil:
		return nil, fmt.Errorf("%w: evaluator A required", ErrInvalidConfig)
	case caps.EvaluatorB == nil:
		return nil, fmt.Errorf("%w: evaluator B required", ErrInvalidConfig)
	case caps.Reconciler == nil:
		return nil, fmt.Errorf("%w: reconciler required", ErrInvalidConfig)
	case caps.Arbitrator == nil:
		return nil, fmt.Errorf("%w: arbitrator required", ErrInvalidConfig)
	}

	w := &Workflow{
		cfg:    cfg,
		caps:   caps,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Config returns the workflow's run configuration.
func (w *Workflow) Config() RunConfig {
	return w.cfg
}

// loopState is the only state carried between rounds of a single run.
type loopState struct {
	round    int
	guidance *RetryGuidance
}

// Classify runs the round loop for one document and returns its Decision.
// A capability failure is returned as a *StageError and no Decision is
// produced.
func (w *Workflow) Classify(ctx context.Context, documentID, documentName, text string) (Decision, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.classify", trace.WithAttributes(
		attribute.String("document.id", documentID),
		attribute.String("document.name", documentName),
		attribute.Int("workflow.max_rounds", w.cfg.MaxRounds),
	))
	defer span.End()

	d, err := w.run(ctx, documentID, documentName, text)
	w.metrics.observeResult(d, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.logger.ErrorContext(ctx, "classification failed", "document_id", documentID, "error", err)
		return Decision{}, err
	}

	span.SetAttributes(
		attribute.String("decision.label", string(d.Label)),
		attribute.Int("decision.rounds_used", d.RoundsUsed),
		attribute.Bool("decision.consensus_reached", d.ConsensusReached),
	)

	w.logger.InfoContext(
		ctx, "classification complete",
		"document_id", documentID,
		"label", d.Label,
		"confidence", d.Confidence,
		"rounds_used", d.RoundsUsed,
		"consensus_reached", d.ConsensusReached,
	)

	return d, nil
}

func (w *Workflow) run(ctx context.Context, documentID, documentName, text string) (Decision, error) {
	st := loopState{round: 1}

	for {
		a, b, err := w.dispatch(ctx, documentName, text, st)
		if err != nil {
			return Decision{}, err
		}

		result := Evaluate(a, b, w.cfg.MinConfidence)

		w.logger.InfoContext(
			ctx, "round evaluated",
			"document_id", documentID,
			"round", st.round,
			"vote_a", a.String(),
			"vote_b", b.String(),
			"agreement_score", result.AgreementScore,
			"reached", result.Reached,
		)

		if result.Reached || st.round >= w.cfg.MaxRounds {
			return w.finalize(ctx, DecideRequest{
				DocumentID:       documentID,
				DocumentName:     documentName,
				RoundsUsed:       st.round,
				ConsensusReached: result.Reached,
				AgreementScore:   result.AgreementScore,
				VoteA:            a,
				VoteB:            b,
			})
		}

		guidance, err := w.reconcile(ctx, GuideRequest{
			DocumentName: documentName,
			Text:         text,
			Round:        st.round,
			VoteA:        a,
			VoteB:        b,
		})
		if err != nil {
			return Decision{}, err
		}

		st = loopState{round: st.round + 1, guidance: &guidance}
	}
}

// dispatch issues both evaluator calls concurrently and waits for both.
// The first failure cancels the sibling call.
func (w *Workflow) dispatch(ctx context.Context, documentName, text string, st loopState) (Vote, Vote, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.round", trace.WithAttributes(
		attribute.Int("workflow.round", st.round),
		attribute.Bool("workflow.guided", st.guidance != nil),
	))
	defer span.End()

	req := VoteRequest{
		DocumentName: documentName,
		Text:         text,
		Round:        st.round,
		Guidance:     st.guidance,
	}

	var a, b Vote
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := w.vote(gctx, "A", w.caps.EvaluatorA, req)
		a = v
		return err
	})

	g.Go(func() error {
		v, err := w.vote(gctx, "B", w.caps.EvaluatorB, req)
		b = v
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Vote{}, Vote{}, stageError(StageEvaluation, st.round, err)
	}

	return a, b, nil
}

func (w *Workflow) vote(ctx context.Context, name string, e Evaluator, req VoteRequest) (Vote, error) {
	start := time.Now()
	v, err := e.Vote(ctx, req)
	if err == nil {
		if verr := v.validate(); verr != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidVote, verr)
		}
	}
	w.metrics.observeCall(StageEvaluation, time.Since(start), err)

	if err != nil {
		return Vote{}, fmt.Errorf("evaluator %s: %w", name, err)
	}
	return v, nil
}

func (w *Workflow) reconcile(ctx context.Context, req GuideRequest) (RetryGuidance, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.reconcile", trace.WithAttributes(
		attribute.Int("workflow.round", req.Round),
	))
	defer span.End()

	start := time.Now()
	g, err := w.caps.Reconciler.Guide(ctx, req)
	if err == nil && g.instructions == "" {
		err = fmt.Errorf("%w: instructions required", ErrInvalidGuidance)
	}
	w.metrics.observeCall(StageReconciliation, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RetryGuidance{}, stageError(StageReconciliation, req.Round, err)
	}

	w.metrics.observeReconcile()
	w.logger.InfoContext(
		ctx, "reconcile complete",
		"round", req.Round,
		"guidance_length", len(g.instructions),
	)

	return g, nil
}

func (w *Workflow) finalize(ctx context.Context, req DecideRequest) (Decision, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.finalize", trace.WithAttributes(
		attribute.Int("workflow.rounds_used", req.RoundsUsed),
		attribute.Bool("workflow.consensus_reached", req.ConsensusReached),
	))
	defer span.End()

	start := time.Now()
	d, err := w.caps.Arbitrator.Decide(ctx, req)
	if err == nil {
		err = checkDecision(d, req)
	}
	w.metrics.observeCall(StageArbitration, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, stageError(StageArbitration, req.RoundsUsed, err)
	}

	d.Evidence = cloneEvidence(d.Evidence)
	return d, nil
}

// checkDecision enforces the Decision schema and that the arbitrator kept
// the run's metadata and votes intact.
func checkDecision(d Decision, req DecideRequest) error {
	if err := d.Validate(); err != nil {
		return err
	}

	switch {
	case d.DocumentID != req.DocumentID:
		return fmt.Errorf("%w: document_id %q, want %q", ErrInvalidDecision, d.DocumentID, req.DocumentID)
	case d.DocumentName != req.DocumentName:
		return fmt.Errorf("%w: document_name %q, want %q", ErrInvalidDecision, d.DocumentName, req.DocumentName)
	case d.RoundsUsed != req.RoundsUsed:
		return fmt.Errorf("%w: rounds_used %d, want %d", ErrInvalidDecision, d.RoundsUsed, req.RoundsUsed)
	case d.ConsensusReached != req.ConsensusReached:
		return fmt.Errorf("%w: consensus_reached %t, want %t", ErrInvalidDecision, d.ConsensusReached, req.ConsensusReached)
	case d.AgreementScore != req.AgreementScore:
		return fmt.Errorf("%w: agreement_score %v, want %v", ErrInvalidDecision, d.AgreementScore, req.AgreementScore)
	case !sameVote(d.VoteA, req.VoteA) || !sameVote(d.VoteB, req.VoteB):
		return fmt.Errorf("%w: votes differ from the final round", ErrInvalidDecision)
	}

	return nil
}

func sameVote(x, y Vote) bool {
	return x.label == y.label && x.confidence == y.confidence && x.rationale == y.rationale
}
