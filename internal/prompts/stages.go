package prompts

import (
	"fmt"
	"slices"
)

// Stage names the workflow step whose agent a prompt instructs.
type Stage string

const (
	StageEvaluate  Stage = "evaluate"
	StageReconcile Stage = "reconcile"
	StageFinalize  Stage = "finalize"
)

var stages = []Stage{StageEvaluate, StageReconcile, StageFinalize}

// Stages lists the stages in workflow order.
func Stages() []Stage {
	return slices.Clone(stages)
}

// ParseStage accepts exactly the lowercase stage names.
func ParseStage(s string) (Stage, error) {
	if v := Stage(s); slices.Contains(stages, v) {
		return v, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidStage, s)
}

// UnmarshalText lets JSON bodies and TOML files carry only known stages.
func (s *Stage) UnmarshalText(text []byte) error {
	v, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
