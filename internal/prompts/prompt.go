// Package prompts implements the prompt domain for Concord. It holds the
// default instructions and output specs for each consensus stage and
// manages named instruction overrides stored in the database.
package prompts

import (
	"strings"

	"github.com/google/uuid"
)

// Prompt represents a named instruction override for a workflow stage.
type Prompt struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions"`
	Description  *string   `json:"description"`
	Active       bool      `json:"active"`
}

// CreateCommand carries the data needed to create a new prompt override.
type CreateCommand struct {
	Name         string  `json:"name"`
	Stage        Stage   `json:"stage"`
	Instructions string  `json:"instructions"`
	Description  *string `json:"description"`
}

// UpdateCommand carries the data needed to update an existing prompt override.
type UpdateCommand struct {
	Name         string  `json:"name"`
	Stage        Stage   `json:"stage"`
	Instructions string  `json:"instructions"`
	Description  *string `json:"description"`
}

// Validate reports ErrInvalidInput when the name or instructions are blank
// and ErrInvalidStage for an unknown stage.
func (c CreateCommand) Validate() error {
	return validateCommand(c.Name, c.Stage, c.Instructions)
}

// Validate reports ErrInvalidInput when the name or instructions are blank
// and ErrInvalidStage for an unknown stage.
func (c UpdateCommand) Validate() error {
	return validateCommand(c.Name, c.Stage, c.Instructions)
}

func validateCommand(name string, stage Stage, instructions string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(instructions) == "" {
		return ErrInvalidInput
	}
	if _, err := ParseStage(string(stage)); err != nil {
		return err
	}
	return nil
}
