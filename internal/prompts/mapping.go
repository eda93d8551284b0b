package prompts

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/concord/pkg/query"
	"github.com/JaimeStill/concord/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "prompts", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("stage", "Stage").
	Project("instructions", "Instructions").
	Project("description", "Description").
	Project("active", "Active")

// returning lists the projection's columns unqualified for RETURNING
// clauses on the unaliased table.
const returning = "id, name, stage, instructions, description, active"

var defaultSort = query.SortField{Field: "Name"}

// Filters narrows prompt listings. Stage and Active match exactly and Name
// is a substring match. Nil fields are ignored.
type Filters struct {
	Stage  *Stage  `json:"stage,omitempty"`
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Stage", f.Stage).
		WhereContains("Name", f.Name).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery reads stage, name and active. Unknown stages and
// malformed booleans are dropped.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if stage, err := ParseStage(values.Get("stage")); err == nil {
		f.Stage = &stage
	}
	if name := values.Get("name"); name != "" {
		f.Name = &name
	}
	if active, err := strconv.ParseBool(values.Get("active")); err == nil {
		f.Active = &active
	}
	return f
}

func scanPrompt(s repository.Scanner) (Prompt, error) {
	var p Prompt
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Stage,
		&p.Instructions,
		&p.Description,
		&p.Active,
	)
	return p, err
}
