package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Supported capability providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOffline   = "offline"
)

// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

var providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOffline}

var providerKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGoogle:    "GOOGLE_API_KEY",
}

var (
	evaluatorAEnv = newAgentEnv("EVALUATOR_A")
	evaluatorBEnv = newAgentEnv("EVALUATOR_B")
	supervisorEnv = newAgentEnv("SUPERVISOR")
)

// AgentConfig configures the model behind one workflow role.
type AgentConfig struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"`
	APIKey      string   `toml:"api_key"`
	Temperature *float64 `toml:"temperature"`
	Timeout     string   `toml:"timeout"`

	pinned bool
}

// AgentEnv maps agent fields to environment variable names.
type AgentEnv struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature string
	Timeout     string
}

func newAgentEnv(role string) *AgentEnv {
	prefix := "CONCORD_" + role + "_"
	return &AgentEnv{
		Provider:    prefix + "PROVIDER",
		Model:       prefix + "MODEL",
		BaseURL:     prefix + "BASE_URL",
		APIKey:      prefix + "API_KEY",
		Temperature: prefix + "TEMPERATURE",
		Timeout:     prefix + "TIMEOUT",
	}
}

// TemperatureValue returns the sampling temperature, zero when unset.
func (c *AgentConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *AgentConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Offline reports whether the role uses the built-in heuristic.
func (c *AgentConfig) Offline() bool {
	return c.Provider == ProviderOffline
}

// Finalize applies the role defaults, environment variable overrides, and validation.
func (c *AgentConfig) Finalize(env *AgentEnv, defaults AgentConfig) error {
	c.loadDefaults(defaults)
	if env != nil && !c.pinned {
		c.loadEnv(env)
	}
	if c.Provider == ProviderOpenAI {
		if c.Model == "" {
			c.Model = defaults.Model
		}
		if c.BaseURL == "" {
			c.BaseURL = DefaultBaseURL
		}
	}
	if c.APIKey == "" {
		if name, ok := providerKeyEnv[c.Provider]; ok {
			c.APIKey = os.Getenv(name)
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Temperature != nil {
		t := *overlay.Temperature
		c.Temperature = &t
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

// loadDefaults fills provider, temperature, and timeout. The default model
// and base URL only apply to the OpenAI provider and are set after env.
func (c *AgentConfig) loadDefaults(defaults AgentConfig) {
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.Temperature == nil && defaults.Temperature != nil {
		t := *defaults.Temperature
		c.Temperature = &t
	}
	if c.Timeout == "" {
		c.Timeout = defaults.Timeout
	}
}

func (c *AgentConfig) loadEnv(env *AgentEnv) {
	if v := os.Getenv(env.Provider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(env.Model); v != "" {
		c.Model = v
	}
	if v := os.Getenv(env.BaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(env.APIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(env.Temperature); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = &t
		}
	}
	if v := os.Getenv(env.Timeout); v != "" {
		c.Timeout = v
	}
}

func (c *AgentConfig) validate() error {
	if !slices.Contains(providers, c.Provider) {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Offline() {
		return nil
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key required for provider %s", c.Provider)
	}
	if t := c.TemperatureValue(); t < 0 || t > 2 {
		return fmt.Errorf("temperature %v outside [0, 2]", t)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout %q", c.Timeout)
	}
	return nil
}

// AgentsConfig holds the three workflow roles.
type AgentsConfig struct {
	EvaluatorA AgentConfig `toml:"evaluator_a"`
	EvaluatorB AgentConfig `toml:"evaluator_b"`
	Supervisor AgentConfig `toml:"supervisor"`
}

// Offline reports whether every role runs on the built-in heuristic.
func (c *AgentsConfig) Offline() bool {
	return c.EvaluatorA.Offline() && c.EvaluatorB.Offline() && c.Supervisor.Offline()
}

// SetOffline switches every role to the built-in heuristic. Environment
// overrides no longer apply to the roles afterwards.
func (c *AgentsConfig) SetOffline() {
	for _, role := range []*AgentConfig{&c.EvaluatorA, &c.EvaluatorB, &c.Supervisor} {
		role.Provider = ProviderOffline
		role.pinned = true
	}
}

// Finalize finalizes each role against its defaults and env names.
func (c *AgentsConfig) Finalize() error {
	if err := c.EvaluatorA.Finalize(evaluatorAEnv, roleDefaults("gpt-4.1-mini", 0)); err != nil {
		return fmt.Errorf("evaluator_a: %w", err)
	}
	if err := c.EvaluatorB.Finalize(evaluatorBEnv, roleDefaults("gpt-4o-mini", 0)); err != nil {
		return fmt.Errorf("evaluator_b: %w", err)
	}
	if err := c.Supervisor.Finalize(supervisorEnv, roleDefaults("gpt-4.1", 0.1)); err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay for each role.
func (c *AgentsConfig) Merge(overlay *AgentsConfig) {
	c.EvaluatorA.Merge(&overlay.EvaluatorA)
	c.EvaluatorB.Merge(&overlay.EvaluatorB)
	c.Supervisor.Merge(&overlay.Supervisor)
}

func roleDefaults(model string, temperature float64) AgentConfig {
	return AgentConfig{
		Provider:    ProviderOpenAI,
		Model:       model,
		Temperature: &temperature,
		Timeout:     "60s",
	}
}
