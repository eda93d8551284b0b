package agents

import (
	"context"
	"slices"
	"strings"

	"github.com/JaimeStill/concord/workflow"
)

// Agent identifies which evaluator slot an offline evaluator fills.
type Agent string

const (
	AgentA Agent = "A"
	AgentB Agent = "B"
)

// OfflineGuidance is the fixed retry guidance of the offline reconciler.
const OfflineGuidance = "Re-evaluate intended audience and sensitivity signals."

const (
	retryBoost    = 0.03
	maxConfidence = 0.99
)

var restrictedTerms = []string{
	"social security number",
	"ssn",
	"credit card",
	"debit card",
	"account username and password",
	"network architecture",
	"source code",
	"vulnerability scan",
	"red team",
	"attorney-client",
}

var publicTerms = []string{
	"press release",
	"public website",
	"marketing brochure",
	"conference materials",
}

type judgment struct {
	label      workflow.Label
	confidence float64
	rationale  string
	evidence   []string
}

// heuristic classifies text by keyword matching against the rubric's
// clearest signals. Restricted terms win over public terms; anything else
// defaults to CONFIDENTIAL.
func heuristic(text string) judgment {
	lower := strings.ToLower(text)
	contains := func(term string) bool { return strings.Contains(lower, term) }

	switch {
	case slices.ContainsFunc(restrictedTerms, contains):
		return judgment{
			workflow.LabelRestricted, 0.96,
			"Matched restricted-risk terms in the rubric.",
			[]string{"restricted term match"},
		}
	case slices.ContainsFunc(publicTerms, contains):
		return judgment{
			workflow.LabelPublic, 0.94,
			"Matched clear public-facing terms.",
			[]string{"public term match"},
		}
	default:
		return judgment{
			workflow.LabelConfidential, 0.92,
			"Defaulted to confidential for internal-sensitive style content.",
			[]string{"default confidential rule"},
		}
	}
}

// OfflineEvaluator votes with the keyword heuristic.
type OfflineEvaluator struct {
	agent             Agent
	forceDisagreement bool
}

// NewOfflineEvaluator creates a heuristic evaluator for one slot. With
// forceDisagreement, round 1 splits A=CONFIDENTIAL(0.80) from B=PUBLIC(0.81).
func NewOfflineEvaluator(agent Agent, forceDisagreement bool) *OfflineEvaluator {
	return &OfflineEvaluator{agent: agent, forceDisagreement: forceDisagreement}
}

func (e *OfflineEvaluator) Vote(ctx context.Context, req workflow.VoteRequest) (workflow.Vote, error) {
	if err := ctx.Err(); err != nil {
		return workflow.Vote{}, err
	}

	j := heuristic(req.Text)

	switch {
	case e.forceDisagreement && req.Round == 1:
		j = e.disagreement()
	case req.Guidance != nil:
		j.confidence = min(maxConfidence, j.confidence+retryBoost)
	}

	return workflow.NewVote(j.label, j.confidence, j.rationale, j.evidence)
}

func (e *OfflineEvaluator) disagreement() judgment {
	if e.agent == AgentB {
		return judgment{
			workflow.LabelPublic, 0.81,
			"Agent B interpreted it as public-facing.",
			[]string{"conference materials"},
		}
	}
	return judgment{
		workflow.LabelConfidential, 0.80,
		"Agent A interpreted it as internal-sensitive.",
		[]string{"project plans"},
	}
}

// OfflineReconciler always returns OfflineGuidance.
func OfflineReconciler() workflow.Reconciler {
	return workflow.ReconcilerFunc(func(ctx context.Context, _ workflow.GuideRequest) (workflow.RetryGuidance, error) {
		if err := ctx.Err(); err != nil {
			return workflow.RetryGuidance{}, err
		}
		return workflow.NewRetryGuidance(OfflineGuidance)
	})
}

// OfflineArbitrator keeps the preferred vote of the final round.
func OfflineArbitrator() workflow.Arbitrator {
	return workflow.ArbitratorFunc(func(ctx context.Context, req workflow.DecideRequest) (workflow.Decision, error) {
		if err := ctx.Err(); err != nil {
			return workflow.Decision{}, err
		}
		chosen := workflow.PreferredVote(req.VoteA, req.VoteB)
		return req.Decision(
			chosen.Label(),
			chosen.Confidence(),
			"Offline supervisor decision.",
			chosen.Evidence(),
		)
	})
}

// NewOffline returns a complete offline capability set.
func NewOffline(forceDisagreement bool) workflow.Capabilities {
	return workflow.Capabilities{
		EvaluatorA: NewOfflineEvaluator(AgentA, forceDisagreement),
		EvaluatorB: NewOfflineEvaluator(AgentB, forceDisagreement),
		Reconciler: OfflineReconciler(),
		Arbitrator: OfflineArbitrator(),
	}
}
