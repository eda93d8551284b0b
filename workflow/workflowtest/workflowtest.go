// Package workflowtest provides deterministic capability doubles for
// exercising the consensus workflow without a model backend.
package workflowtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JaimeStill/concord/workflow"
)

// MustVote returns a Vote or panics if the inputs are invalid.
func MustVote(label workflow.Label, confidence float64, rationale string, evidence ...string) workflow.Vote {
	v, err := workflow.NewVote(label, confidence, rationale, evidence)
	if err != nil {
		panic(err)
	}
	return v
}

// Evaluator returns scripted votes by round. Round n receives votes[n-1];
// rounds past the end of the script repeat the last vote.
type Evaluator struct {
	votes []workflow.Vote
	fails map[int]error
	block bool

	mu    sync.Mutex
	calls []workflow.VoteRequest
}

// NewEvaluator returns an Evaluator that plays back votes in round order.
func NewEvaluator(votes ...workflow.Vote) *Evaluator {
	return &Evaluator{votes: votes, fails: make(map[int]error)}
}

// FailOn makes the evaluator return err for the given round.
func (e *Evaluator) FailOn(round int, err error) *Evaluator {
	e.fails[round] = err
	return e
}

// Blocking makes every call wait for context cancellation and return the
// context's error.
func (e *Evaluator) Blocking() *Evaluator {
	e.block = true
	return e
}

func (e *Evaluator) Vote(ctx context.Context, req workflow.VoteRequest) (workflow.Vote, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	if e.block {
		<-ctx.Done()
		return workflow.Vote{}, ctx.Err()
	}

	if err, ok := e.fails[req.Round]; ok {
		return workflow.Vote{}, err
	}

	if len(e.votes) == 0 {
		return workflow.Vote{}, fmt.Errorf("no scripted vote for round %d", req.Round)
	}

	return e.votes[min(req.Round, len(e.votes))-1], nil
}

// Calls returns the requests received so far.
func (e *Evaluator) Calls() []workflow.VoteRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]workflow.VoteRequest(nil), e.calls...)
}

// Reconciler returns fixed guidance and records each request.
type Reconciler struct {
	instructions string
	err          error

	mu    sync.Mutex
	calls []workflow.GuideRequest
}

// NewReconciler returns a Reconciler that answers with instructions tagged
// by the round they follow.
func NewReconciler(instructions string) *Reconciler {
	return &Reconciler{instructions: instructions}
}

// Fail makes every call return err.
func (r *Reconciler) Fail(err error) *Reconciler {
	r.err = err
	return r
}

func (r *Reconciler) Guide(ctx context.Context, req workflow.GuideRequest) (workflow.RetryGuidance, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.mu.Unlock()

	if r.err != nil {
		return workflow.RetryGuidance{}, r.err
	}
	return workflow.NewRetryGuidance(fmt.Sprintf("%s (after round %d)", r.instructions, req.Round))
}

// Calls returns the requests received so far.
func (r *Reconciler) Calls() []workflow.GuideRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workflow.GuideRequest(nil), r.calls...)
}

// Arbitrator decides with workflow.PreferredVote and records each request.
type Arbitrator struct {
	err error

	mu    sync.Mutex
	calls []workflow.DecideRequest
}

// NewArbitrator returns an Arbitrator applying the preferred-vote rule.
func NewArbitrator() *Arbitrator {
	return &Arbitrator{}
}

// Fail makes every call return err.
func (a *Arbitrator) Fail(err error) *Arbitrator {
	a.err = err
	return a
}

func (a *Arbitrator) Decide(ctx context.Context, req workflow.DecideRequest) (workflow.Decision, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	a.mu.Unlock()

	if a.err != nil {
		return workflow.Decision{}, a.err
	}

	chosen := workflow.PreferredVote(req.VoteA, req.VoteB)
	return req.Decision(chosen.Label(), chosen.Confidence(), "scripted arbitration", chosen.Evidence())
}

// Calls returns the requests received so far.
func (a *Arbitrator) Calls() []workflow.DecideRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]workflow.DecideRequest(nil), a.calls...)
}

// Set bundles scripted capabilities so tests can inspect each one.
type Set struct {
	A          *Evaluator
	B          *Evaluator
	Reconciler *Reconciler
	Arbitrator *Arbitrator
}

// NewSet returns a Set with the given evaluators, a default reconciler and
// the preferred-vote arbitrator.
func NewSet(a, b *Evaluator) *Set {
	return &Set{
		A:          a,
		B:          b,
		Reconciler: NewReconciler("re-check the audience and sensitivity signals"),
		Arbitrator: NewArbitrator(),
	}
}

// Capabilities returns the Set as workflow capabilities.
func (s *Set) Capabilities() workflow.Capabilities {
	return workflow.Capabilities{
		EvaluatorA: s.A,
		EvaluatorB: s.B,
		Reconciler: s.Reconciler,
		Arbitrator: s.Arbitrator,
	}
}
