// Package agents provides the capability implementations plugged into the
// consensus workflow: LLM-backed evaluators, reconciler, and arbitrator
// over the OpenAI, Anthropic, and Google SDKs, plus an offline heuristic
// set that needs no network access.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/prompts"
	"github.com/JaimeStill/concord/workflow"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrEmptyResponse   = errors.New("model returned an empty response")
	ErrInvalidResponse = errors.New("model response failed validation")
)

// Chat sends one system + user exchange to a model and returns the text of
// its reply. Implementations request JSON output where the provider supports it.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewChat builds the provider client for one role.
func NewChat(cfg config.AgentConfig) (Chat, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case config.ProviderGoogle:
		return NewGoogle(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// Options tunes capability assembly.
type Options struct {
	// ForceDisagreement makes the offline evaluators split in round 1.
	ForceDisagreement bool
	Logger            *slog.Logger
}

// New assembles the four workflow capabilities from the agents config.
// Each role is LLM-backed unless its provider is offline.
func New(cfg *config.AgentsConfig, src prompts.Source, opts Options) (workflow.Capabilities, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("system", "agents")

	evaluator := func(agent Agent, role config.AgentConfig) (workflow.Evaluator, error) {
		if role.Offline() {
			return NewOfflineEvaluator(agent, opts.ForceDisagreement), nil
		}
		chat, err := NewChat(role)
		if err != nil {
			return nil, err
		}
		return NewEvaluator(chat, src, role.TimeoutDuration()), nil
	}

	a, err := evaluator(AgentA, cfg.EvaluatorA)
	if err != nil {
		return workflow.Capabilities{}, fmt.Errorf("evaluator_a: %w", err)
	}
	b, err := evaluator(AgentB, cfg.EvaluatorB)
	if err != nil {
		return workflow.Capabilities{}, fmt.Errorf("evaluator_b: %w", err)
	}

	caps := workflow.Capabilities{EvaluatorA: a, EvaluatorB: b}

	if cfg.Supervisor.Offline() {
		caps.Reconciler = OfflineReconciler()
		caps.Arbitrator = OfflineArbitrator()
	} else {
		chat, err := NewChat(cfg.Supervisor)
		if err != nil {
			return workflow.Capabilities{}, fmt.Errorf("supervisor: %w", err)
		}
		timeout := cfg.Supervisor.TimeoutDuration()
		caps.Reconciler = NewReconciler(chat, src, timeout)
		caps.Arbitrator = NewArbitrator(chat, src, timeout)
	}

	logger.Info(
		"capabilities assembled",
		"evaluator_a", describe(cfg.EvaluatorA),
		"evaluator_b", describe(cfg.EvaluatorB),
		"supervisor", describe(cfg.Supervisor),
	)

	return caps, nil
}

func describe(c config.AgentConfig) string {
	if c.Offline() {
		return config.ProviderOffline
	}
	return c.Provider + "/" + c.Model
}
