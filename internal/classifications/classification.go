// Package classifications implements the classification domain for Concord.
// It runs the consensus workflow for stored documents, persists the resulting
// decisions with both final-round votes, and supports human review.
package classifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/workflow"
)

// EventDecisionCreated is published after a decision is stored.
const EventDecisionCreated = "decisions.created"

// Classification is a stored workflow decision for a document.
type Classification struct {
	ID               uuid.UUID      `json:"id"`
	DocumentID       uuid.UUID      `json:"document_id"`
	DocumentName     string         `json:"document_name"`
	Label            workflow.Label `json:"label"`
	Confidence       float64        `json:"confidence"`
	Rationale        string         `json:"rationale"`
	Evidence         []string       `json:"evidence"`
	VoteA            workflow.Vote  `json:"vote_a"`
	VoteB            workflow.Vote  `json:"vote_b"`
	ConsensusReached bool           `json:"consensus_reached"`
	AgreementScore   float64        `json:"agreement_score"`
	RoundsUsed       int            `json:"rounds_used"`
	ClassifiedAt     time.Time      `json:"classified_at"`
	ValidatedBy      *string        `json:"validated_by"`
	ValidatedAt      *time.Time     `json:"validated_at"`
}

// Decision converts the stored row back into the workflow's decision shape.
func (c Classification) Decision() workflow.Decision {
	return workflow.Decision{
		DocumentID:       c.DocumentID.String(),
		DocumentName:     c.DocumentName,
		Label:            c.Label,
		Confidence:       c.Confidence,
		Rationale:        c.Rationale,
		Evidence:         c.Evidence,
		VoteA:            c.VoteA,
		VoteB:            c.VoteB,
		ConsensusReached: c.ConsensusReached,
		AgreementScore:   c.AgreementScore,
		RoundsUsed:       c.RoundsUsed,
	}
}

// ValidateCommand carries the data needed to validate a classification.
// ValidatedBy identifies the reviewer who confirmed the decision.
type ValidateCommand struct {
	ValidatedBy string `json:"validated_by"`
}

// UpdateCommand carries the data needed to manually override a classification.
// Label and Rationale overwrite the workflow's values.
// UpdatedBy identifies the reviewer (stored as validated_by).
type UpdateCommand struct {
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
	UpdatedBy string `json:"updated_by"`
}

// BatchCommand lists the documents to classify in one request.
type BatchCommand struct {
	DocumentIDs []uuid.UUID `json:"document_ids"`
}

// BatchResult reports the outcome for one document of a batch.
// On success, Classification is populated and Error is empty.
type BatchResult struct {
	DocumentID     uuid.UUID       `json:"document_id"`
	Classification *Classification `json:"classification,omitempty"`
	Error          string          `json:"error,omitempty"`
}
