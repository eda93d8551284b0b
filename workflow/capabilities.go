package workflow

import "context"

// VoteRequest is the input to one evaluator call. Guidance is nil in the
// first round and holds only the previous round's guidance afterwards.
type VoteRequest struct {
	DocumentName string
	Text         string
	Round        int
	Guidance     *RetryGuidance
}

// GuideRequest is the input to a reconciliation call.
type GuideRequest struct {
	DocumentName string
	Text         string
	Round        int
	VoteA        Vote
	VoteB        Vote
}

// DecideRequest is the input to an arbitration call.
type DecideRequest struct {
	DocumentID       string
	DocumentName     string
	RoundsUsed       int
	ConsensusReached bool
	AgreementScore   float64
	VoteA            Vote
	VoteB            Vote
}

// Decision builds a validated Decision carrying the request's metadata and
// the arbitrated judgment.
func (r DecideRequest) Decision(label Label, confidence float64, rationale string, evidence []string) (Decision, error) {
	d := Decision{
		DocumentID:       r.DocumentID,
		DocumentName:     r.DocumentName,
		Label:            label,
		Confidence:       confidence,
		Rationale:        rationale,
		Evidence:         cloneEvidence(evidence),
		VoteA:            r.VoteA,
		VoteB:            r.VoteB,
		ConsensusReached: r.ConsensusReached,
		AgreementScore:   r.AgreementScore,
		RoundsUsed:       r.RoundsUsed,
	}

	if err := d.Validate(); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Evaluator produces a Vote for a document in a given round.
type Evaluator interface {
	Vote(ctx context.Context, req VoteRequest) (Vote, error)
}

// Reconciler produces retry guidance from two divergent votes.
type Reconciler interface {
	Guide(ctx context.Context, req GuideRequest) (RetryGuidance, error)
}

// Arbitrator produces the terminal Decision from the final pair of votes.
type Arbitrator interface {
	Decide(ctx context.Context, req DecideRequest) (Decision, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, req VoteRequest) (Vote, error)

func (f EvaluatorFunc) Vote(ctx context.Context, req VoteRequest) (Vote, error) {
	return f(ctx, req)
}

// ReconcilerFunc adapts a function to the Reconciler interface.
type ReconcilerFunc func(ctx context.Context, req GuideRequest) (RetryGuidance, error)

func (f ReconcilerFunc) Guide(ctx context.Context, req GuideRequest) (RetryGuidance, error) {
	return f(ctx, req)
}

// ArbitratorFunc adapts a function to the Arbitrator interface.
type ArbitratorFunc func(ctx context.Context, req DecideRequest) (Decision, error)

func (f ArbitratorFunc) Decide(ctx context.Context, req DecideRequest) (Decision, error) {
	return f(ctx, req)
}

// Capabilities is the set of collaborators a Workflow drives.
type Capabilities struct {
	EvaluatorA Evaluator
	EvaluatorB Evaluator
	Reconciler Reconciler
	Arbitrator Arbitrator
}

// PreferredVote applies the arbitration tie-break: the agreed vote when the
// labels match, otherwise the higher-confidence vote. A wins exact ties.
func PreferredVote(a, b Vote) Vote {
	if a.label == b.label || a.confidence >= b.confidence {
		return a
	}
	return b
}
