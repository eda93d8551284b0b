package prompts

const evaluateSpec = `Respond with a JSON object matching this exact structure:

{
  "label": "<RESTRICTED|CONFIDENTIAL|PUBLIC>",
  "confidence": 0.0,
  "rationale": "<explanation>",
  "evidence": ["<rubric point>", "<rubric point>"]
}

Field constraints:
- label: exactly one of RESTRICTED, CONFIDENTIAL, PUBLIC.
- confidence: number between 0 and 1 inclusive.
- rationale: non-empty explanation grounded in the document text.
- evidence: rubric points matched by the document, possibly empty.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Judge only the document provided in this request`

const reconcileSpec = `Respond with a JSON object matching this exact structure:

{
  "instructions": "<retry guidance>"
}

Field constraints:
- instructions: non-empty guidance addressed to both agents.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Do not name the label the agents should choose`

const finalizeSpec = `Respond with a JSON object matching this exact structure:

{
  "label": "<RESTRICTED|CONFIDENTIAL|PUBLIC>",
  "confidence": 0.0,
  "rationale": "<explanation>",
  "evidence": ["<rubric point>"]
}

Field constraints:
- label: exactly one of RESTRICTED, CONFIDENTIAL, PUBLIC.
- confidence: number between 0 and 1 inclusive.
- rationale: non-empty explanation tied to the rubric and the agent votes.
- evidence: rubric points supporting the final label, possibly empty.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Decision metadata (rounds, consensus, votes) is recorded by the caller; do not repeat it`

var specs = map[Stage]string{
	StageEvaluate:  evaluateSpec,
	StageReconcile: reconcileSpec,
	StageFinalize:  finalizeSpec,
}

// Spec returns the hardcoded specification for a workflow stage.
// Specifications define the expected output format and behavioral constraints.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
