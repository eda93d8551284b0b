// Package workflow implements the consensus classification workflow for Concord.
// Two evaluators vote on a document concurrently, their votes are scored for
// agreement, and the workflow either reconciles and retries or hands the last
// pair of votes to an arbitrator for the terminal Decision.
package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for workflow operations.
var (
	ErrInvalidConfig    = errors.New("invalid workflow configuration")
	ErrInvalidVote      = errors.New("invalid vote")
	ErrInvalidGuidance  = errors.New("invalid retry guidance")
	ErrInvalidDecision  = errors.New("invalid decision")
	ErrCapabilityFailed = errors.New("capability failed")
	ErrEmptyDocument    = errors.New("document text is empty")
)

// Stage identifies the capability boundary at which a run failed.
type Stage string

const (
	StageEvaluation     Stage = "evaluation"
	StageReconciliation Stage = "reconciliation"
	StageArbitration    Stage = "arbitration"
)

// StageError reports a capability failure together with the stage and
// round in which it occurred. It matches ErrCapabilityFailed under errors.Is.
type StageError struct {
	Stage Stage
	Round int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed in round %d: %v", e.Stage, e.Round, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrCapabilityFailed, e.Err}
}

func stageError(stage Stage, round int, err error) error {
	return &StageError{Stage: stage, Round: round, Err: err}
}
