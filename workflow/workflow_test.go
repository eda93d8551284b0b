package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/concord/workflow"
	"github.com/JaimeStill/concord/workflow/workflowtest"
)

var mv = workflowtest.MustVote

func newWorkflow(t *testing.T, cfg workflow.RunConfig, set *workflowtest.Set) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.New(cfg, set.Capabilities())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return wf
}

func TestNew(t *testing.T) {
	set := workflowtest.NewSet(workflowtest.NewEvaluator(), workflowtest.NewEvaluator())

	t.Run("invalid config", func(t *testing.T) {
		_, err := workflow.New(workflow.RunConfig{MinConfidence: 0.4, MaxRounds: 3}, set.Capabilities())
		if !errors.Is(err, workflow.ErrInvalidConfig) {
			t.Errorf("err = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("zero max rounds", func(t *testing.T) {
		_, err := workflow.New(workflow.RunConfig{MinConfidence: 0.9, MaxRounds: 0}, set.Capabilities())
		if !errors.Is(err, workflow.ErrInvalidConfig) {
			t.Errorf("err = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("missing capability", func(t *testing.T) {
		caps := set.Capabilities()
		caps.Reconciler = nil
		_, err := workflow.New(workflow.DefaultRunConfig(), caps)
		if !errors.Is(err, workflow.ErrInvalidConfig) {
			t.Errorf("err = %v, want ErrInvalidConfig", err)
		}
	})
}

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name          string
		cfg           workflow.RunConfig
		votesA        []workflow.Vote
		votesB        []workflow.Vote
		wantLabel     workflow.Label
		wantReached   bool
		wantRounds    int
		wantReconcile int
	}{
		{
			name:          "immediate consensus",
			cfg:           workflow.RunConfig{MinConfidence: 0.90, MaxRounds: 3},
			votesA:        []workflow.Vote{mv(workflow.LabelConfidential, 0.95, "internal plan")},
			votesB:        []workflow.Vote{mv(workflow.LabelConfidential, 0.95, "internal plan")},
			wantLabel:     workflow.LabelConfidential,
			wantReached:   true,
			wantRounds:    1,
			wantReconcile: 0,
		},
		{
			name:          "consensus after one reconcile",
			cfg:           workflow.RunConfig{MinConfidence: 0.90, MaxRounds: 3},
			votesA:        []workflow.Vote{mv(workflow.LabelConfidential, 0.82, "internal"), mv(workflow.LabelConfidential, 0.96, "internal")},
			votesB:        []workflow.Vote{mv(workflow.LabelPublic, 0.83, "public"), mv(workflow.LabelConfidential, 0.96, "internal")},
			wantLabel:     workflow.LabelConfidential,
			wantReached:   true,
			wantRounds:    2,
			wantReconcile: 1,
		},
		{
			name:          "forced finalize at budget",
			cfg:           workflow.RunConfig{MinConfidence: 0.90, MaxRounds: 2},
			votesA:        []workflow.Vote{mv(workflow.LabelRestricted, 0.60, "ssn")},
			votesB:        []workflow.Vote{mv(workflow.LabelPublic, 0.61, "press")},
			wantLabel:     workflow.LabelPublic,
			wantReached:   false,
			wantRounds:    2,
			wantReconcile: 1,
		},
		{
			name:          "single round budget never reconciles",
			cfg:           workflow.RunConfig{MinConfidence: 0.90, MaxRounds: 1},
			votesA:        []workflow.Vote{mv(workflow.LabelRestricted, 0.70, "ssn")},
			votesB:        []workflow.Vote{mv(workflow.LabelPublic, 0.70, "press")},
			wantLabel:     workflow.LabelRestricted,
			wantReached:   false,
			wantRounds:    1,
			wantReconcile: 0,
		},
		{
			name:          "matching labels below threshold exhaust budget",
			cfg:           workflow.RunConfig{MinConfidence: 0.95, MaxRounds: 3},
			votesA:        []workflow.Vote{mv(workflow.LabelConfidential, 0.90, "internal")},
			votesB:        []workflow.Vote{mv(workflow.LabelConfidential, 0.91, "internal")},
			wantLabel:     workflow.LabelConfidential,
			wantReached:   false,
			wantRounds:    3,
			wantReconcile: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := workflowtest.NewSet(
				workflowtest.NewEvaluator(tt.votesA...),
				workflowtest.NewEvaluator(tt.votesB...),
			)
			wf := newWorkflow(t, tt.cfg, set)

			d, err := wf.Classify(context.Background(), "doc-1", "doc.txt", "document text")
			if err != nil {
				t.Fatalf("Classify error: %v", err)
			}

			if d.Label != tt.wantLabel {
				t.Errorf("Label = %s, want %s", d.Label, tt.wantLabel)
			}
			if d.ConsensusReached != tt.wantReached {
				t.Errorf("ConsensusReached = %v, want %v", d.ConsensusReached, tt.wantReached)
			}
			if d.RoundsUsed != tt.wantRounds {
				t.Errorf("RoundsUsed = %d, want %d", d.RoundsUsed, tt.wantRounds)
			}
			if d.RoundsUsed < 1 || d.RoundsUsed > tt.cfg.MaxRounds {
				t.Errorf("RoundsUsed %d outside [1, %d]", d.RoundsUsed, tt.cfg.MaxRounds)
			}
			if got := len(set.Reconciler.Calls()); got != tt.wantReconcile {
				t.Errorf("reconcile calls = %d, want %d", got, tt.wantReconcile)
			}
			if got := len(set.Arbitrator.Calls()); got != 1 {
				t.Errorf("arbitrator calls = %d, want 1", got)
			}
			if got := len(set.A.Calls()); got != tt.wantRounds {
				t.Errorf("evaluator A calls = %d, want %d", got, tt.wantRounds)
			}
			if got := len(set.B.Calls()); got != tt.wantRounds {
				t.Errorf("evaluator B calls = %d, want %d", got, tt.wantRounds)
			}
			if d.DocumentID != "doc-1" || d.DocumentName != "doc.txt" {
				t.Errorf("document identity = %s/%s", d.DocumentID, d.DocumentName)
			}
		})
	}
}

func TestClassifyReconcileCountMatchesRounds(t *testing.T) {
	for maxRounds := 1; maxRounds <= 5; maxRounds++ {
		for agreeAt := 1; agreeAt <= 6; agreeAt++ {
			votesA := make([]workflow.Vote, 0, agreeAt)
			votesB := make([]workflow.Vote, 0, agreeAt)
			for r := 1; r < agreeAt; r++ {
				votesA = append(votesA, mv(workflow.LabelRestricted, 0.7, "a"))
				votesB = append(votesB, mv(workflow.LabelPublic, 0.7, "b"))
			}
			votesA = append(votesA, mv(workflow.LabelConfidential, 0.95, "a"))
			votesB = append(votesB, mv(workflow.LabelConfidential, 0.95, "b"))

			set := workflowtest.NewSet(workflowtest.NewEvaluator(votesA...), workflowtest.NewEvaluator(votesB...))
			wf := newWorkflow(t, workflow.RunConfig{MinConfidence: 0.9, MaxRounds: maxRounds}, set)

			d, err := wf.Classify(context.Background(), "doc", "doc", "text")
			if err != nil {
				t.Fatalf("max=%d agree=%d: Classify error: %v", maxRounds, agreeAt, err)
			}

			reconciles := len(set.Reconciler.Calls())
			if d.ConsensusReached && reconciles != d.RoundsUsed-1 {
				t.Errorf("max=%d agree=%d: reconciles = %d, want %d", maxRounds, agreeAt, reconciles, d.RoundsUsed-1)
			}
			if !d.ConsensusReached && reconciles != maxRounds-1 {
				t.Errorf("max=%d agree=%d: reconciles = %d, want %d", maxRounds, agreeAt, reconciles, maxRounds-1)
			}
			if d.RoundsUsed != min(agreeAt, maxRounds) {
				t.Errorf("max=%d agree=%d: RoundsUsed = %d, want %d", maxRounds, agreeAt, d.RoundsUsed, min(agreeAt, maxRounds))
			}
		}
	}
}

func TestClassifyGuidance(t *testing.T) {
	disagreeA := mv(workflow.LabelConfidential, 0.8, "internal")
	disagreeB := mv(workflow.LabelPublic, 0.8, "public")

	set := workflowtest.NewSet(
		workflowtest.NewEvaluator(disagreeA),
		workflowtest.NewEvaluator(disagreeB),
	)
	wf := newWorkflow(t, workflow.RunConfig{MinConfidence: 0.9, MaxRounds: 3}, set)

	if _, err := wf.Classify(context.Background(), "doc", "doc", "text"); err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	for _, calls := range [][]workflow.VoteRequest{set.A.Calls(), set.B.Calls()} {
		if len(calls) != 3 {
			t.Fatalf("calls = %d, want 3", len(calls))
		}
		if calls[0].Guidance != nil {
			t.Errorf("round 1 guidance = %q, want none", calls[0].Guidance.Instructions())
		}
		for i, call := range calls[1:] {
			round := i + 2
			if call.Round != round {
				t.Errorf("call round = %d, want %d", call.Round, round)
			}
			if call.Guidance == nil {
				t.Fatalf("round %d has no guidance", round)
			}
			got := call.Guidance.Instructions()
			if !strings.HasSuffix(got, fmt.Sprintf("(after round %d)", round-1)) {
				t.Errorf("round %d guidance = %q, want guidance from round %d only", round, got, round-1)
			}
		}
	}

	for i, call := range set.Reconciler.Calls() {
		if call.Round != i+1 {
			t.Errorf("reconcile call %d round = %d, want %d", i, call.Round, i+1)
		}
	}
}

func TestClassifyEvaluationFailure(t *testing.T) {
	boom := errors.New("model unreachable")

	set := workflowtest.NewSet(
		workflowtest.NewEvaluator().FailOn(1, boom),
		workflowtest.NewEvaluator(mv(workflow.LabelPublic, 0.9, "public")),
	)
	wf := newWorkflow(t, workflow.DefaultRunConfig(), set)

	d, err := wf.Classify(context.Background(), "doc", "doc", "text")
	if err == nil {
		t.Fatalf("Classify = %+v, want error", d)
	}

	var se *workflow.StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if se.Stage != workflow.StageEvaluation || se.Round != 1 {
		t.Errorf("stage/round = %s/%d, want evaluation/1", se.Stage, se.Round)
	}
	if !errors.Is(err, workflow.ErrCapabilityFailed) {
		t.Error("err does not match ErrCapabilityFailed")
	}
	if !errors.Is(err, boom) {
		t.Error("err does not wrap the evaluator failure")
	}
	if len(set.Reconciler.Calls()) != 0 || len(set.Arbitrator.Calls()) != 0 {
		t.Error("workflow advanced past the failed round")
	}
}

func TestClassifyFailureCancelsSibling(t *testing.T) {
	boom := errors.New("rejected")

	set := workflowtest.NewSet(
		workflowtest.NewEvaluator().FailOn(1, boom),
		workflowtest.NewEvaluator().Blocking(),
	)
	wf := newWorkflow(t, workflow.DefaultRunConfig(), set)

	done := make(chan error, 1)
	go func() {
		_, err := wf.Classify(context.Background(), "doc", "doc", "text")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Classify did not return; sibling evaluator was not cancelled")
	}
}

func TestClassifyHostCancellation(t *testing.T) {
	set := workflowtest.NewSet(
		workflowtest.NewEvaluator().Blocking(),
		workflowtest.NewEvaluator().Blocking(),
	)
	wf := newWorkflow(t, workflow.DefaultRunConfig(), set)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := wf.Classify(ctx, "doc", "doc", "text")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	var se *workflow.StageError
	if !errors.As(err, &se) || se.Stage != workflow.StageEvaluation {
		t.Errorf("err = %v, want evaluation StageError", err)
	}
}

func TestClassifyInvalidCapabilityOutput(t *testing.T) {
	agreeA := mv(workflow.LabelConfidential, 0.8, "a")
	agreeB := mv(workflow.LabelPublic, 0.8, "b")

	tests := []struct {
		name      string
		mutate    func(*workflow.Capabilities)
		wantStage workflow.Stage
		wantRound int
		wantErr   error
	}{
		{
			name: "zero vote",
			mutate: func(c *workflow.Capabilities) {
				c.EvaluatorB = workflow.EvaluatorFunc(func(context.Context, workflow.VoteRequest) (workflow.Vote, error) {
					return workflow.Vote{}, nil
				})
			},
			wantStage: workflow.StageEvaluation,
			wantRound: 1,
			wantErr:   workflow.ErrInvalidVote,
		},
		{
			name: "empty guidance",
			mutate: func(c *workflow.Capabilities) {
				c.Reconciler = workflow.ReconcilerFunc(func(context.Context, workflow.GuideRequest) (workflow.RetryGuidance, error) {
					return workflow.RetryGuidance{}, nil
				})
			},
			wantStage: workflow.StageReconciliation,
			wantRound: 1,
			wantErr:   workflow.ErrInvalidGuidance,
		},
		{
			name: "reconciler failure",
			mutate: func(c *workflow.Capabilities) {
				c.Reconciler = workflowtest.NewReconciler("x").Fail(context.DeadlineExceeded)
			},
			wantStage: workflow.StageReconciliation,
			wantRound: 1,
			wantErr:   context.DeadlineExceeded,
		},
		{
			name: "arbitrator rewrites rounds_used",
			mutate: func(c *workflow.Capabilities) {
				c.Arbitrator = workflow.ArbitratorFunc(func(_ context.Context, req workflow.DecideRequest) (workflow.Decision, error) {
					req.RoundsUsed = 1
					return req.Decision(workflow.LabelConfidential, 0.9, "tampered", nil)
				})
			},
			wantStage: workflow.StageArbitration,
			wantRound: 2,
			wantErr:   workflow.ErrInvalidDecision,
		},
		{
			name: "arbitrator renames document",
			mutate: func(c *workflow.Capabilities) {
				c.Arbitrator = workflow.ArbitratorFunc(func(_ context.Context, req workflow.DecideRequest) (workflow.Decision, error) {
					d, err := req.Decision(workflow.LabelConfidential, 0.9, "renamed", nil)
					d.DocumentName = "renamed.txt"
					return d, err
				})
			},
			wantStage: workflow.StageArbitration,
			wantRound: 2,
			wantErr:   workflow.ErrInvalidDecision,
		},
		{
			name: "arbitrator returns empty decision",
			mutate: func(c *workflow.Capabilities) {
				c.Arbitrator = workflow.ArbitratorFunc(func(context.Context, workflow.DecideRequest) (workflow.Decision, error) {
					return workflow.Decision{}, nil
				})
			},
			wantStage: workflow.StageArbitration,
			wantRound: 2,
			wantErr:   workflow.ErrInvalidDecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := workflowtest.NewSet(workflowtest.NewEvaluator(agreeA), workflowtest.NewEvaluator(agreeB))
			caps := set.Capabilities()
			tt.mutate(&caps)

			wf, err := workflow.New(workflow.RunConfig{MinConfidence: 0.9, MaxRounds: 2}, caps)
			if err != nil {
				t.Fatalf("New error: %v", err)
			}

			_, err = wf.Classify(context.Background(), "doc", "doc", "text")

			var se *workflow.StageError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StageError", err)
			}
			if se.Stage != tt.wantStage || se.Round != tt.wantRound {
				t.Errorf("stage/round = %s/%d, want %s/%d", se.Stage, se.Round, tt.wantStage, tt.wantRound)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassifyOwnsDecisionEvidence(t *testing.T) {
	held := []string{"payroll register"}

	newArbitrated := func(t *testing.T, evidence []string) *workflow.Workflow {
		t.Helper()
		set := workflowtest.NewSet(
			workflowtest.NewEvaluator(mv(workflow.LabelRestricted, 0.95, "a")),
			workflowtest.NewEvaluator(mv(workflow.LabelRestricted, 0.95, "b")),
		)
		caps := set.Capabilities()
		caps.Arbitrator = workflow.ArbitratorFunc(func(_ context.Context, req workflow.DecideRequest) (workflow.Decision, error) {
			d, err := req.Decision(workflow.LabelRestricted, 0.95, "payroll data", nil)
			d.Evidence = evidence
			return d, err
		})
		wf, err := workflow.New(workflow.DefaultRunConfig(), caps)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}
		return wf
	}

	t.Run("nil evidence serializes as empty list", func(t *testing.T) {
		d, err := newArbitrated(t, nil).Classify(context.Background(), "doc", "payroll.txt", "text")
		if err != nil {
			t.Fatalf("Classify error: %v", err)
		}

		data, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("Marshal error: %v", err)
		}
		if !strings.Contains(string(data), `"evidence":[]`) {
			t.Errorf("decision json = %s, want empty evidence list", data)
		}
	})

	t.Run("returned evidence is a copy", func(t *testing.T) {
		d, err := newArbitrated(t, held).Classify(context.Background(), "doc", "payroll.txt", "text")
		if err != nil {
			t.Fatalf("Classify error: %v", err)
		}

		d.Evidence[0] = "changed"
		if held[0] != "payroll register" {
			t.Errorf("arbitrator evidence = %q, want unchanged", held[0])
		}
	})
}

func TestClassifyRetainsFinalVotes(t *testing.T) {
	lastA := mv(workflow.LabelRestricted, 0.97, "ssn found", "social security number")
	lastB := mv(workflow.LabelRestricted, 0.95, "ssn found")

	set := workflowtest.NewSet(
		workflowtest.NewEvaluator(mv(workflow.LabelConfidential, 0.8, "a"), lastA),
		workflowtest.NewEvaluator(mv(workflow.LabelPublic, 0.8, "b"), lastB),
	)
	wf := newWorkflow(t, workflow.DefaultRunConfig(), set)

	d, err := wf.Classify(context.Background(), "doc", "doc", "text")
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	if d.VoteA.Label() != lastA.Label() || d.VoteA.Confidence() != lastA.Confidence() {
		t.Errorf("VoteA = %s, want %s", d.VoteA, lastA)
	}
	if d.VoteB.Label() != lastB.Label() || d.VoteB.Confidence() != lastB.Confidence() {
		t.Errorf("VoteB = %s, want %s", d.VoteB, lastB)
	}
	if d.AgreementScore != (0.97+0.95)/2 {
		t.Errorf("AgreementScore = %v, want %v", d.AgreementScore, (0.97+0.95)/2)
	}
}
