package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		NERBaseURL:            "http://localhost:8001",
		VoyageAPIKey:          "pa-test-key",
		VoyageModel:           "voyage-3-lite",
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
		ClaudeMaxTokens:       1024,
		MinSimilarity:         0.5,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.VoyageModel != "voyage-3-lite" {
		t.Errorf("VoyageModel = %q, want %q", c.VoyageModel, "voyage-3-lite")
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.ClaudeMaxTokens != 1024 {
		t.Errorf("ClaudeMaxTokens = %d, want 1024", c.ClaudeMaxTokens)
	}
	if c.MinSimilarity != 0.5 {
		t.Errorf("MinSimilarity = %g, want 0.5", c.MinSimilarity)
	}
	if c.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", c.DatabaseURL)
	}
	if c.NERRequired {
		t.Error("NERRequired = true, want false")
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-database-url", "postgres://sift:pw@db/sift",
		"-ner-base-url", "http://ner:8001",
		"-require-ner",
		"-voyage-api-key", "pa-override",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-opus-4-20250514",
		"-min-similarity", "0.7",
		"-vip-patterns", "boss@,ceo@",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.DatabaseURL != "postgres://sift:pw@db/sift" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.NERBaseURL != "http://ner:8001" {
		t.Errorf("NERBaseURL = %q", c.NERBaseURL)
	}
	if !c.NERRequired {
		t.Error("NERRequired = false, want true")
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.MinSimilarity != 0.7 {
		t.Errorf("MinSimilarity = %g, want 0.7", c.MinSimilarity)
	}
	if c.VIPPatterns != "boss@,ceo@" {
		t.Errorf("VIPPatterns = %q", c.VIPPatterns)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	withBase := func(mutate func(*Config)) Config {
		c := validBase()
		mutate(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: withBase(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 1, 2, 1
				c.ClaudeMaxTokens, c.MinSimilarity = 1, 0
			}),
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: withBase(func(c *Config) {
				c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = 299, 300, 65535
				c.ClaudeMaxTokens, c.MinSimilarity = 65536, 1
			}),
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       withBase(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       withBase(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds = 301, 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       withBase(func(c *Config) { c.ShutdownBudgetSeconds = 60 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			cfg:       withBase(func(c *Config) { c.ShutdownBudgetSeconds = 30 }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       withBase(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       withBase(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Required strings
		{
			name:      "missing ner base url",
			cfg:       withBase(func(c *Config) { c.NERBaseURL = "" }),
			wantErr:   true,
			errSubstr: []string{"NER_BASE_URL"},
		},
		{
			name:      "missing voyage api key",
			cfg:       withBase(func(c *Config) { c.VoyageAPIKey = "" }),
			wantErr:   true,
			errSubstr: []string{"VOYAGE_API_KEY"},
		},
		{
			name:      "missing voyage model",
			cfg:       withBase(func(c *Config) { c.VoyageModel = "" }),
			wantErr:   true,
			errSubstr: []string{"VOYAGE_MODEL"},
		},
		{
			name:      "missing claude api key",
			cfg:       withBase(func(c *Config) { c.ClaudeAPIKey = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "missing claude model",
			cfg:       withBase(func(c *Config) { c.ClaudeModel = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		// Optional strings stay optional
		{
			name: "empty database url and token are fine",
			cfg: withBase(func(c *Config) {
				c.DatabaseURL, c.APIToken, c.SlackWebhookURL, c.VIPPatterns = "", "", "", ""
			}),
			wantErr: false,
		},
		// Numeric ranges
		{
			name:      "max tokens zero",
			cfg:       withBase(func(c *Config) { c.ClaudeMaxTokens = 0 }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MAX_TOKENS"},
		},
		{
			name:      "max tokens above cap",
			cfg:       withBase(func(c *Config) { c.ClaudeMaxTokens = 65537 }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MAX_TOKENS"},
		},
		{
			name:      "min similarity negative",
			cfg:       withBase(func(c *Config) { c.MinSimilarity = -0.1 }),
			wantErr:   true,
			errSubstr: []string{"MIN_SIMILARITY"},
		},
		{
			name:      "min similarity above one",
			cfg:       withBase(func(c *Config) { c.MinSimilarity = 1.1 }),
			wantErr:   true,
			errSubstr: []string{"MIN_SIMILARITY"},
		},
		// Error accumulation: all fields invalid
		{
			name:    "all fields invalid",
			cfg:     Config{},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT",
				"NER_BASE_URL", "VOYAGE_API_KEY", "VOYAGE_MODEL",
				"CLAUDE_API_KEY", "CLAUDE_MODEL", "CLAUDE_MAX_TOKENS",
			},
		},
		// Extreme values
		{
			name: "extreme negative values",
			cfg: Config{
				DrainSeconds:          math.MinInt32,
				ShutdownBudgetSeconds: math.MinInt32,
				APIPort:               math.MinInt32,
				ClaudeMaxTokens:       math.MinInt32,
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "CLAUDE_MAX_TOKENS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, maxTokens int
		minSim                         float64
		ner, vkey, vmodel, ckey, cmodel string
	}{
		{60, 90, 8080, 1024, 0.5, "http://ner", "vk", "vm", "ck", "cm"},
		{1, 2, 1, 1, 0, "http://ner", "vk", "vm", "ck", "cm"},
		{299, 300, 65535, 65536, 1, "http://ner", "vk", "vm", "ck", "cm"},
		{0, 0, 0, 0, 0, "", "", "", "", ""},
		{-1, -1, -1, -1, -1, "", "", "", "", ""},
		{301, 302, 65536, 65537, 1.5, "", "", "", "", ""},
		{150, 100, 8080, 1024, 0.5, "http://ner", "vk", "vm", "ck", "cm"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, math.Inf(-1), "", "", "", "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.Inf(1), "", "", "", "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.maxTokens, s.minSim, s.ner, s.vkey, s.vmodel, s.ckey, s.cmodel)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, maxTokens int, minSim float64, ner, vkey, vmodel, ckey, cmodel string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			ClaudeMaxTokens:       maxTokens,
			MinSimilarity:         minSim,
			NERBaseURL:            ner,
			VoyageAPIKey:          vkey,
			VoyageModel:           vmodel,
			ClaudeAPIKey:          ckey,
			ClaudeModel:           cmodel,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		tokensOK := maxTokens >= 1 && maxTokens <= 65536
		simOK := !(minSim < 0 || minSim > 1)
		strsOK := ner != "" && vkey != "" && vmodel != "" && ckey != "" && cmodel != ""

		allValid := drainOK && budgetOK && portOK && crossOK && tokensOK && simOK && strsOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
