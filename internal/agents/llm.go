package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/concord/internal/prompts"
	"github.com/JaimeStill/concord/pkg/formatting"
	"github.com/JaimeStill/concord/workflow"
)

type judgmentResponse struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Evidence   []string `json:"evidence"`
}

type guidanceResponse struct {
	Instructions string `json:"instructions"`
}

// caller composes the stage prompt, bounds the call by the role timeout,
// and returns the raw model reply.
type caller struct {
	chat    Chat
	prompts prompts.Source
	timeout time.Duration
}

func (c caller) call(ctx context.Context, stage prompts.Stage, user string) (string, error) {
	system, err := prompts.Compose(ctx, c.prompts, stage)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return c.chat.Complete(ctx, system, user)
}

func parseJudgment(content string) (workflow.Label, judgmentResponse, error) {
	resp, err := formatting.Parse[judgmentResponse](content)
	if err != nil {
		return "", resp, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	label, err := workflow.ParseLabel(resp.Label)
	if err != nil {
		return "", resp, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return label, resp, nil
}

// Evaluator votes on a document with one model.
type Evaluator struct {
	caller
}

// NewEvaluator creates an LLM-backed evaluator.
func NewEvaluator(chat Chat, src prompts.Source, timeout time.Duration) *Evaluator {
	return &Evaluator{caller{chat: chat, prompts: src, timeout: timeout}}
}

func (e *Evaluator) Vote(ctx context.Context, req workflow.VoteRequest) (workflow.Vote, error) {
	content, err := e.call(ctx, prompts.StageEvaluate, voteMessage(req))
	if err != nil {
		return workflow.Vote{}, err
	}

	label, resp, err := parseJudgment(content)
	if err != nil {
		return workflow.Vote{}, err
	}
	return workflow.NewVote(label, resp.Confidence, resp.Rationale, resp.Evidence)
}

// Reconciler drafts retry guidance with the supervisor model.
type Reconciler struct {
	caller
}

// NewReconciler creates an LLM-backed reconciler.
func NewReconciler(chat Chat, src prompts.Source, timeout time.Duration) *Reconciler {
	return &Reconciler{caller{chat: chat, prompts: src, timeout: timeout}}
}

func (r *Reconciler) Guide(ctx context.Context, req workflow.GuideRequest) (workflow.RetryGuidance, error) {
	content, err := r.call(ctx, prompts.StageReconcile, guideMessage(req))
	if err != nil {
		return workflow.RetryGuidance{}, err
	}

	resp, err := formatting.Parse[guidanceResponse](content)
	if err != nil {
		return workflow.RetryGuidance{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return workflow.NewRetryGuidance(resp.Instructions)
}

// Arbitrator produces the final decision with the supervisor model.
type Arbitrator struct {
	caller
}

// NewArbitrator creates an LLM-backed arbitrator.
func NewArbitrator(chat Chat, src prompts.Source, timeout time.Duration) *Arbitrator {
	return &Arbitrator{caller{chat: chat, prompts: src, timeout: timeout}}
}

func (a *Arbitrator) Decide(ctx context.Context, req workflow.DecideRequest) (workflow.Decision, error) {
	content, err := a.call(ctx, prompts.StageFinalize, decideMessage(req))
	if err != nil {
		return workflow.Decision{}, err
	}

	label, resp, err := parseJudgment(content)
	if err != nil {
		return workflow.Decision{}, err
	}
	return req.Decision(label, resp.Confidence, resp.Rationale, resp.Evidence)
}

func voteMessage(req workflow.VoteRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document name: %s\nRound: %d\n\n", req.DocumentName, req.Round)
	writeContent(&sb, req.Text)
	if req.Guidance != nil {
		fmt.Fprintf(&sb, "\nRetry context:\n%s\n", req.Guidance.Instructions())
	}
	return sb.String()
}

func guideMessage(req workflow.GuideRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document name: %s\nCurrent round: %d\n\n", req.DocumentName, req.Round)
	writeContent(&sb, req.Text)
	writeVotes(&sb, req.VoteA, req.VoteB)
	return sb.String()
}

func decideMessage(req workflow.DecideRequest) string {
	var sb strings.Builder
	sb.WriteString("Decision context:\n")
	fmt.Fprintf(&sb, "- document_id: %s\n", req.DocumentID)
	fmt.Fprintf(&sb, "- document_name: %s\n", req.DocumentName)
	fmt.Fprintf(&sb, "- rounds_used: %d\n", req.RoundsUsed)
	fmt.Fprintf(&sb, "- consensus_reached: %t\n", req.ConsensusReached)
	fmt.Fprintf(&sb, "- agreement_score: %.4f\n", req.AgreementScore)
	writeVotes(&sb, req.VoteA, req.VoteB)
	return sb.String()
}

func writeContent(sb *strings.Builder, text string) {
	sb.WriteString("Document content:\n\"\"\"\n")
	sb.WriteString(text)
	sb.WriteString("\n\"\"\"\n")
}

func writeVotes(sb *strings.Builder, a, b workflow.Vote) {
	for _, v := range []struct {
		name string
		vote workflow.Vote
	}{{"A", a}, {"B", b}} {
		data, err := json.MarshalIndent(v.vote, "", "  ")
		if err != nil {
			data = []byte(v.vote.String())
		}
		fmt.Fprintf(sb, "\nAgent %s vote:\n%s\n", v.name, data)
	}
}
