package agents_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/internal/agents"
	"github.com/JaimeStill/concord/workflow"
)

func TestOfflineEvaluator(t *testing.T) {
	guidance, err := workflow.NewRetryGuidance(agents.OfflineGuidance)
	if err != nil {
		t.Fatalf("NewRetryGuidance error: %v", err)
	}

	tests := []struct {
		name     string
		agent    agents.Agent
		force    bool
		text     string
		round    int
		guidance *workflow.RetryGuidance
		label    workflow.Label
		conf     float64
	}{
		{"restricted term", agents.AgentA, false, "Contains the SSN of each employee.", 1, nil, workflow.LabelRestricted, 0.96},
		{"public term", agents.AgentB, false, "Draft press release for the launch.", 1, nil, workflow.LabelPublic, 0.94},
		{"restricted beats public", agents.AgentA, false, "Press release draft with source code excerpts.", 1, nil, workflow.LabelRestricted, 0.96},
		{"default confidential", agents.AgentA, false, "Quarterly product roadmap.", 1, nil, workflow.LabelConfidential, 0.92},
		{"guidance boost", agents.AgentA, false, "Quarterly product roadmap.", 2, &guidance, workflow.LabelConfidential, 0.95},
		{"guidance boost capped", agents.AgentA, false, "red team findings", 2, &guidance, workflow.LabelRestricted, 0.99},
		{"forced split A", agents.AgentA, true, "red team findings", 1, nil, workflow.LabelConfidential, 0.80},
		{"forced split B", agents.AgentB, true, "red team findings", 1, nil, workflow.LabelPublic, 0.81},
		{"forced split only round one", agents.AgentB, true, "Quarterly product roadmap.", 2, &guidance, workflow.LabelConfidential, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := agents.NewOfflineEvaluator(tt.agent, tt.force)
			v, err := e.Vote(context.Background(), workflow.VoteRequest{
				DocumentName: "doc.txt",
				Text:         tt.text,
				Round:        tt.round,
				Guidance:     tt.guidance,
			})
			if err != nil {
				t.Fatalf("Vote error: %v", err)
			}
			if v.Label() != tt.label {
				t.Errorf("label = %s, want %s", v.Label(), tt.label)
			}
			if diff := cmp.Diff(tt.conf, v.Confidence(), cmpApprox); diff != "" {
				t.Errorf("confidence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOfflineWorkflow(t *testing.T) {
	tests := []struct {
		name      string
		force     bool
		cfg       workflow.RunConfig
		text      string
		label     workflow.Label
		rounds    int
		consensus bool
	}{
		{"agreement in round one", false, workflow.DefaultRunConfig(), "Quarterly product roadmap.", workflow.LabelConfidential, 1, true},
		{"forced disagreement converges", true, workflow.DefaultRunConfig(), "Quarterly product roadmap.", workflow.LabelConfidential, 2, true},
		{"forced disagreement single round", true, workflow.RunConfig{MinConfidence: 0.9, MaxRounds: 1}, "Quarterly product roadmap.", workflow.LabelPublic, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := workflow.New(tt.cfg, agents.NewOffline(tt.force))
			if err != nil {
				t.Fatalf("New error: %v", err)
			}

			d, err := wf.Classify(context.Background(), "doc-1", "doc.txt", tt.text)
			if err != nil {
				t.Fatalf("Classify error: %v", err)
			}
			if d.Label != tt.label {
				t.Errorf("label = %s, want %s", d.Label, tt.label)
			}
			if d.RoundsUsed != tt.rounds {
				t.Errorf("rounds = %d, want %d", d.RoundsUsed, tt.rounds)
			}
			if d.ConsensusReached != tt.consensus {
				t.Errorf("consensus = %t, want %t", d.ConsensusReached, tt.consensus)
			}
			if d.Rationale != "Offline supervisor decision." {
				t.Errorf("rationale = %q", d.Rationale)
			}
		})
	}
}

func TestOfflineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	caps := agents.NewOffline(false)
	if _, err := caps.EvaluatorA.Vote(ctx, workflow.VoteRequest{Text: "x", Round: 1}); err == nil {
		t.Error("evaluator ignored cancellation")
	}
	if _, err := caps.Reconciler.Guide(ctx, workflow.GuideRequest{}); err == nil {
		t.Error("reconciler ignored cancellation")
	}
	if _, err := caps.Arbitrator.Decide(ctx, workflow.DecideRequest{}); err == nil {
		t.Error("arbitrator ignored cancellation")
	}
}
