package classifications

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/query"
	"github.com/JaimeStill/concord/pkg/repository"
	"github.com/JaimeStill/concord/workflow"
)

var projection = query.
	NewProjectionMap("public", "classifications", "c").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("label", "Label").
	Project("confidence", "Confidence").
	Project("rationale", "Rationale").
	Project("evidence", "Evidence").
	Project("vote_a", "VoteA").
	Project("vote_b", "VoteB").
	Project("consensus_reached", "ConsensusReached").
	Project("agreement_score", "AgreementScore").
	Project("rounds_used", "RoundsUsed").
	Project("classified_at", "ClassifiedAt").
	Project("validated_by", "ValidatedBy").
	Project("validated_at", "ValidatedAt").
	Join("public", "documents", "d", "JOIN", "d.id = c.document_id").
	Project("filename", "DocumentName")

// returning mirrors the projection for statements that write a row and
// read it back joined to its document.
var returning = projection.Columns()

var defaultSort = query.SortField{
	Field:      "ClassifiedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for classification queries.
// Nil fields are ignored. Labels matches any of the listed labels and
// Validated selects reviewed (true) or pending (false) decisions. The
// remaining fields use exact matching.
type Filters struct {
	Labels           []workflow.Label `json:"labels,omitempty"`
	DocumentID       *uuid.UUID       `json:"document_id,omitempty"`
	ConsensusReached *bool            `json:"consensus_reached,omitempty"`
	Validated        *bool            `json:"validated,omitempty"`
	ValidatedBy      *string          `json:"validated_by,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var pending *bool
	if f.Validated != nil {
		v := !*f.Validated
		pending = &v
	}

	labels := make([]any, len(f.Labels))
	for i, l := range f.Labels {
		labels[i] = string(l)
	}

	return b.
		WhereIn("Label", labels).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("ConsensusReached", f.ConsensusReached).
		WhereNull("ValidatedAt", pending).
		WhereEquals("ValidatedBy", f.ValidatedBy)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// label may repeat or hold a comma-separated list; unknown labels, malformed
// UUIDs and malformed booleans are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	for _, raw := range values["label"] {
		for part := range strings.SplitSeq(raw, ",") {
			l, err := workflow.ParseLabel(part)
			if err != nil || slices.Contains(f.Labels, l) {
				continue
			}
			f.Labels = append(f.Labels, l)
		}
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	f.ConsensusReached = parseBool(values.Get("consensus_reached"))
	f.Validated = parseBool(values.Get("validated"))

	if v := values.Get("validated_by"); v != "" {
		f.ValidatedBy = &v
	}

	return f
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}

func scanClassification(s repository.Scanner) (Classification, error) {
	var (
		c           Classification
		evidenceRaw []byte
		voteARaw    []byte
		voteBRaw    []byte
	)

	err := s.Scan(
		&c.ID,
		&c.DocumentID,
		&c.Label,
		&c.Confidence,
		&c.Rationale,
		&evidenceRaw,
		&voteARaw,
		&voteBRaw,
		&c.ConsensusReached,
		&c.AgreementScore,
		&c.RoundsUsed,
		&c.ClassifiedAt,
		&c.ValidatedBy,
		&c.ValidatedAt,
		&c.DocumentName,
	)
	if err != nil {
		return c, err
	}

	if len(evidenceRaw) > 0 {
		if err := json.Unmarshal(evidenceRaw, &c.Evidence); err != nil {
			return c, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}
	if c.Evidence == nil {
		c.Evidence = []string{}
	}

	if err := json.Unmarshal(voteARaw, &c.VoteA); err != nil {
		return c, fmt.Errorf("unmarshal vote_a: %w", err)
	}
	if err := json.Unmarshal(voteBRaw, &c.VoteB); err != nil {
		return c, fmt.Errorf("unmarshal vote_b: %w", err)
	}

	return c, nil
}
