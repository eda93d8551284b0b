package api

import (
	"fmt"

	"github.com/JaimeStill/concord/internal/agents"
	"github.com/JaimeStill/concord/internal/classifications"
	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/documents"
	"github.com/JaimeStill/concord/internal/prompts"
	"github.com/JaimeStill/concord/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Classifications classifications.System
	Documents       documents.System
	Prompts         prompts.System
	Workflow        *workflow.Workflow
}

// NewDomain creates all domain systems from the API runtime. The workflow
// capabilities resolve their instructions through the prompts system, so
// stored overrides take effect without a restart.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	promptsSystem, err := prompts.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)
	if err != nil {
		return nil, err
	}

	caps, err := agents.New(&cfg.Agents, promptsSystem, agents.Options{
		Logger: runtime.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("agents init failed: %w", err)
	}

	wf, err := workflow.New(
		cfg.Consensus.RunConfig(),
		caps,
		workflow.WithLogger(runtime.Logger),
		workflow.WithMetrics(runtime.Metrics),
		workflow.WithTracer(runtime.Telemetry.Tracer("concord/workflow")),
	)
	if err != nil {
		return nil, fmt.Errorf("workflow init failed: %w", err)
	}

	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	classificationsSystem := classifications.New(
		runtime.Database.Connection(),
		docsSystem,
		wf,
		runtime.Events,
		runtime.Logger,
		runtime.Pagination,
		cfg.Consensus.Concurrency,
	)

	return &Domain{
		Classifications: classificationsSystem,
		Documents:       docsSystem,
		Prompts:         promptsSystem,
		Workflow:        wf,
	}, nil
}
