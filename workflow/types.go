package workflow

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Label is a sensitivity classification.
type Label string

// Classification labels, ordered from most to least sensitive.
const (
	LabelRestricted   Label = "RESTRICTED"
	LabelConfidential Label = "CONFIDENTIAL"
	LabelPublic       Label = "PUBLIC"
)

var labels = []Label{LabelRestricted, LabelConfidential, LabelPublic}

// Labels returns every valid label.
func Labels() []Label {
	return slices.Clone(labels)
}

// Valid reports whether l is one of the defined labels.
func (l Label) Valid() bool {
	return slices.Contains(labels, l)
}

// ParseLabel converts s to a Label, ignoring case and surrounding whitespace.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown label %q", ErrInvalidVote, s)
	}
	return l, nil
}

// Vote is a single evaluator's judgment for one round. Votes are immutable:
// construct them with NewVote and read them through accessors.
type Vote struct {
	label      Label
	confidence float64
	rationale  string
	evidence   []string
}

// NewVote validates its inputs and returns a Vote.
func NewVote(label Label, confidence float64, rationale string, evidence []string) (Vote, error) {
	if err := validateJudgment(label, confidence, rationale); err != nil {
		return Vote{}, fmt.Errorf("%w: %w", ErrInvalidVote, err)
	}

	return Vote{
		label:      label,
		confidence: confidence,
		rationale:  rationale,
		evidence:   cloneEvidence(evidence),
	}, nil
}

// Label returns the vote's classification.
func (v Vote) Label() Label { return v.label }

// Confidence returns the vote's confidence in [0, 1].
func (v Vote) Confidence() float64 { return v.confidence }

// Rationale returns the evaluator's explanation.
func (v Vote) Rationale() string { return v.rationale }

// Evidence returns a copy of the supporting evidence.
func (v Vote) Evidence() []string { return slices.Clone(v.evidence) }

func (v Vote) String() string {
	return fmt.Sprintf("%s(%.2f)", v.label, v.confidence)
}

func (v Vote) validate() error {
	return validateJudgment(v.label, v.confidence, v.rationale)
}

type voteJSON struct {
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Evidence   []string `json:"evidence"`
}

func (v Vote) MarshalJSON() ([]byte, error) {
	return json.Marshal(voteJSON{
		Label:      v.label,
		Confidence: v.confidence,
		Rationale:  v.rationale,
		Evidence:   cloneEvidence(v.evidence),
	})
}

func (v *Vote) UnmarshalJSON(data []byte) error {
	var raw voteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := NewVote(raw.Label, raw.Confidence, raw.Rationale, raw.Evidence)
	if err != nil {
		return err
	}

	*v = parsed
	return nil
}

// RetryGuidance carries reconciliation instructions into the next round.
type RetryGuidance struct {
	instructions string
}

// NewRetryGuidance returns guidance with the given non-empty instructions.
func NewRetryGuidance(instructions string) (RetryGuidance, error) {
	if strings.TrimSpace(instructions) == "" {
		return RetryGuidance{}, fmt.Errorf("%w: instructions required", ErrInvalidGuidance)
	}
	return RetryGuidance{instructions: instructions}, nil
}

// Instructions returns the guidance text.
func (g RetryGuidance) Instructions() string {
	return g.instructions
}

// ConsensusResult is the agreement assessment for one round.
type ConsensusResult struct {
	AgreementScore float64 `json:"agreement_score"`
	LabelsMatch    bool    `json:"labels_match"`
	Reached        bool    `json:"reached"`
}

// Decision is the terminal classification for a document. VoteA and VoteB
// are the final round's votes. A Decision returned by the workflow owns its
// Evidence slice and is read-only from then on; code that needs a changed
// decision builds a new one.
type Decision struct {
	DocumentID       string   `json:"document_id"`
	DocumentName     string   `json:"document_name"`
	Label            Label    `json:"label"`
	Confidence       float64  `json:"confidence"`
	Rationale        string   `json:"rationale"`
	Evidence         []string `json:"evidence"`
	VoteA            Vote     `json:"vote_a"`
	VoteB            Vote     `json:"vote_b"`
	ConsensusReached bool     `json:"consensus_reached"`
	AgreementScore   float64  `json:"agreement_score"`
	RoundsUsed       int      `json:"rounds_used"`
}

// Validate checks the Decision's invariants.
func (d Decision) Validate() error {
	if err := validateJudgment(d.Label, d.Confidence, d.Rationale); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDecision, err)
	}
	if d.RoundsUsed < 1 {
		return fmt.Errorf("%w: rounds_used must be at least 1, got %d", ErrInvalidDecision, d.RoundsUsed)
	}
	if !inUnitInterval(d.AgreementScore) {
		return fmt.Errorf("%w: agreement_score %v outside [0, 1]", ErrInvalidDecision, d.AgreementScore)
	}
	if err := d.VoteA.validate(); err != nil {
		return fmt.Errorf("%w: vote_a: %w", ErrInvalidDecision, err)
	}
	if err := d.VoteB.validate(); err != nil {
		return fmt.Errorf("%w: vote_b: %w", ErrInvalidDecision, err)
	}
	return nil
}

// RunConfig bounds a workflow run.
type RunConfig struct {
	MinConfidence float64 `json:"min_confidence"`
	MaxRounds     int     `json:"max_rounds"`
}

// DefaultRunConfig returns a 0.90 threshold with a three round budget.
func DefaultRunConfig() RunConfig {
	return RunConfig{MinConfidence: 0.90, MaxRounds: 3}
}

// Validate reports ErrInvalidConfig when the threshold is outside
// [0.5, 1.0] or the round budget is below one.
func (c RunConfig) Validate() error {
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0.5 || c.MinConfidence > 1.0 {
		return fmt.Errorf("%w: min_confidence %v outside [0.5, 1.0]", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max_rounds must be at least 1, got %d", ErrInvalidConfig, c.MaxRounds)
	}
	return nil
}

func validateJudgment(label Label, confidence float64, rationale string) error {
	if !label.Valid() {
		return fmt.Errorf("unknown label %q", label)
	}
	if !inUnitInterval(confidence) {
		return fmt.Errorf("confidence %v outside [0, 1]", confidence)
	}
	if strings.TrimSpace(rationale) == "" {
		return fmt.Errorf("rationale required")
	}
	return nil
}

func inUnitInterval(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 1
}

func cloneEvidence(evidence []string) []string {
	if evidence == nil {
		return []string{}
	}
	return slices.Clone(evidence)
}
