package workflow

// Evaluate scores agreement between two votes. Consensus is reached when the
// labels match and the mean confidence meets the threshold.
func Evaluate(a, b Vote, threshold float64) ConsensusResult {
	score := (a.confidence + b.confidence) / 2
	match := a.label == b.label

	return ConsensusResult{
		AgreementScore: score,
		LabelsMatch:    match,
		Reached:        match && score >= threshold,
	}
}
