package prompts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/pkg/pagination"
)

// Source resolves the prompt text used by each workflow stage.
type Source interface {
	// Instructions returns the active override for stage, or the default.
	Instructions(ctx context.Context, stage Stage) (string, error)
	// Spec returns the immutable output specification for stage.
	Spec(ctx context.Context, stage Stage) (string, error)
}

// System defines the public contract for prompt domain operations.
type System interface {
	Source

	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Prompt], error)

	Find(ctx context.Context, id uuid.UUID) (*Prompt, error)
	Create(ctx context.Context, cmd CreateCommand) (*Prompt, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*Prompt, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Prompt, error)
}

// Defaults is a Source serving the built-in instructions and specs. It is
// used when no database is available, such as by the command line client.
var Defaults Source = defaults{}

type defaults struct{}

func (defaults) Instructions(_ context.Context, stage Stage) (string, error) {
	return Instructions(stage)
}

func (defaults) Spec(_ context.Context, stage Stage) (string, error) {
	return Spec(stage)
}

// Compose returns the system prompt a capability sends for stage: the
// effective instructions followed by the output specification.
func Compose(ctx context.Context, src Source, stage Stage) (string, error) {
	instructions, err := src.Instructions(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load %s instructions: %w", stage, err)
	}
	spec, err := src.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load %s spec: %w", stage, err)
	}
	return instructions + "\n\n" + spec, nil
}
