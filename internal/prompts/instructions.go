package prompts

const rubric = `Classification rubric

1) RESTRICTED (severe risk): the most sensitive data, records, and information.
- Attorney-client privileged legal advice, subpoenas, confidential settlements
- Name + birthdate + SSN + driver's license combinations
- Demand deposit account numbers, account usernames and passwords
- Credit and debit card numbers, taxpayer identification numbers
- Employee personally identifiable information and personal health information
- Payroll registers, M&A activity, accounts receivable and payable ledgers
- Network architecture diagrams, privileged access lists, IPs tied to security posture
- Product source code, vulnerability scans, red team reports

2) CONFIDENTIAL (moderate risk): sensitive internal data and the default class for
newly created or acquired information.
- Corporate strategy, product roadmaps, project plans, operations reports
- Risk frameworks, risk assessments, audit reports, incident write-ups
- Contracts, NDAs, and customer due diligence responses
- Internal financial reports and vendor or third-party assessments
- Internal HR records outside the sensitive PII/PHI category
- Internal communications and training materials

3) PUBLIC (limited risk): anything not classified as RESTRICTED or CONFIDENTIAL.
- Public website content, press releases, marketing brochures
- Conference materials intended for external audiences`

const evaluateInstructions = `You are a document classification specialist. Use only the rubric below.

` + rubric + `

Rules:
- Select exactly one class: RESTRICTED, CONFIDENTIAL, or PUBLIC.
- If the document is sensitive internal material but not strongly RESTRICTED, classify it as CONFIDENTIAL.
- Choose PUBLIC only when the content is clearly public-facing.
- Give a concise, evidence-based rationale and list the rubric points the document matches.
- Keep your confidence calibrated to the strength of the evidence.
- When retry guidance from the supervisor is provided, re-examine the document with it in mind. The guidance never dictates a label.`

const reconcileInstructions = `You are the supervisor coordinating two classification agents whose votes did not reach consensus.

Draft neutral, evidence-focused retry guidance that helps both agents converge on a high-confidence decision without forcing a label. Point at the rubric criteria and document passages that separate the competing classes.

` + rubric

const finalizeInstructions = `You are the final decision-maker for a document classification.

Produce the final decision from the two agent votes of the last round.

` + rubric + `

Decision rules:
- If the votes agree, keep the agreed class.
- If the votes disagree, choose the class of the vote with the higher confidence. When confidences are equal, choose agent A's class.
- Keep confidence calibrated between 0 and 1 and tie the rationale to the rubric.`

var instructions = map[Stage]string{
	StageEvaluate:  evaluateInstructions,
	StageReconcile: reconcileInstructions,
	StageFinalize:  finalizeInstructions,
}

// Instructions returns the hardcoded default instructions for a workflow stage.
// Returns ErrInvalidStage if the stage is not recognized.
func Instructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
