package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	NERBaseURL            string
	NERRequired           bool
	VoyageAPIKey          string
	VoyageModel           string
	ClaudeAPIKey          string
	ClaudeModel           string
	ClaudeMaxTokens       int
	MinSimilarity         float64
	VIPPatterns           string
	SlackWebhookURL       string
	APIToken              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store and index)")
	fs.StringVar(&c.NERBaseURL, "ner-base-url", "", "base URL of the entity recognizer sidecar")
	fs.BoolVar(&c.NERRequired, "require-ner", false, "refuse to start when the entity recognizer is unreachable")
	fs.StringVar(&c.VoyageAPIKey, "voyage-api-key", "", "API key for the Voyage embeddings API")
	fs.StringVar(&c.VoyageModel, "voyage-model", "voyage-3-lite", "Voyage embedding model to use")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.ClaudeMaxTokens, "claude-max-tokens", 1024, "max tokens per Claude reply (1..65536)")
	fs.Float64Var(&c.MinSimilarity, "min-similarity", 0.5, "similarity cutoff for neighbor retrieval (0..1)")
	fs.StringVar(&c.VIPPatterns, "vip-patterns", "", "comma-separated sender patterns that force Action-Required/P1")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for high-priority notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The entity recognizer sidecar is required; extraction fails closed without it
	if c.NERBaseURL == "" {
		errs = append(errs, errors.New("NER_BASE_URL is required"))
	}

	// Voyage API key is required for embeddings
	if c.VoyageAPIKey == "" {
		errs = append(errs, errors.New("VOYAGE_API_KEY is required"))
	}
	if c.VoyageModel == "" {
		errs = append(errs, errors.New("VOYAGE_MODEL is required"))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.ClaudeMaxTokens <= 0 || c.ClaudeMaxTokens > 65536 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_MAX_TOKENS %d (must be 1..65536)", c.ClaudeMaxTokens))
	}

	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("invalid MIN_SIMILARITY %g (must be 0..1)", c.MinSimilarity))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
