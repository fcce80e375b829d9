package config

import (
	"fmt"
	"os"
	"strconv"
)

// Settings holds every recognized configuration key from the external
// interfaces contract. Populated from environment variables (after LoadEnv
// has had a chance to inject a .env file into the process environment).
type Settings struct {
	OpenFDAAPIKey        string
	OpenFDATimeoutSecs   int
	OpenFDAMaxRetries    int

	LLMProvider  string // openrouter, openai, anthropic, bedrock, ollama
	LLMModel     string
	LLMGuardModel string // defaults to LLMModel when unset
	LLMAPIKey    string

	UsageSoftCapUSD      float64
	UsageHardCapUSD      float64
	UsageOperatorPassphrase string  // usage.Guard.Extend accepts this to raise the cap from UsageSoftCapUSD to UsageHardCapUSD; the controller never calls Extend, so a turn cannot present it

	SessionStoreURL string // SQLite file path; a leading "file:" is stripped
	CatalogDBPath   string // local device/firm catalog SQLite path, see internal/catalog

	RetryMax           int // agent-level PLAN retries, distinct from HTTP retries
	TurnDeadlineSeconds int

	RegionsConfigPath string // region -> countries membership YAML, see regions.go

	ExecLogPath string // append-only PLAN/DISPATCH/ASSESS/ANSWER/GUARD trail; "" disables it
}

// LoadSettings reads Settings from the process environment, applying the
// documented defaults for every key.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		OpenFDAAPIKey:      os.Getenv("OPENFDA_API_KEY"),
		OpenFDATimeoutSecs: getEnvIntOrDefault("OPENFDA_TIMEOUT_SECONDS", 30),
		OpenFDAMaxRetries:  getEnvIntOrDefault("OPENFDA_MAX_RETRIES", 3),

		LLMProvider:   getEnvOrDefault("LLM_PROVIDER", "openai"),
		LLMModel:      getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		LLMGuardModel: os.Getenv("LLM_GUARD_MODEL"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),

		UsageSoftCapUSD:         getEnvFloatOrDefault("USAGE_SOFT_CAP_USD", 1.50),
		UsageHardCapUSD:         getEnvFloatOrDefault("USAGE_HARD_CAP_USD", 25.00),
		UsageOperatorPassphrase: os.Getenv("USAGE_OPERATOR_PASSPHRASE"),

		SessionStoreURL: getEnvOrDefault("SESSION_STORE_URL", "file:./sessions.db"),
		CatalogDBPath:   getEnvOrDefault("CATALOG_DB_PATH", "./catalog.db"),

		RetryMax:            getEnvIntOrDefault("RETRY_MAX", 2),
		TurnDeadlineSeconds: getEnvIntOrDefault("TURN_DEADLINE_SECONDS", 60),

		RegionsConfigPath: getEnvOrDefault("REGIONS_CONFIG_PATH", ""),

		ExecLogPath: getEnvOrDefault("EXEC_LOG_PATH", ""),
	}
	if s.LLMGuardModel == "" {
		s.LLMGuardModel = s.LLMModel
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the documented ranges for every numeric key.
func (s *Settings) Validate() error {
	if s.OpenFDATimeoutSecs < 1 || s.OpenFDATimeoutSecs > 300 {
		return fmt.Errorf("openfda.timeout_seconds must be in [1,300], got %d", s.OpenFDATimeoutSecs)
	}
	if s.OpenFDAMaxRetries < 0 {
		return fmt.Errorf("openfda.max_retries cannot be negative, got %d", s.OpenFDAMaxRetries)
	}
	switch s.LLMProvider {
	case "openrouter", "openai", "anthropic", "bedrock", "ollama":
	default:
		return fmt.Errorf("llm.provider must be one of openrouter|openai|anthropic|bedrock|ollama, got %q", s.LLMProvider)
	}
	if s.UsageSoftCapUSD < 0 || s.UsageHardCapUSD < 0 {
		return fmt.Errorf("usage caps cannot be negative")
	}
	if s.UsageSoftCapUSD > s.UsageHardCapUSD {
		return fmt.Errorf("usage.soft_cap_usd (%.2f) cannot exceed usage.hard_cap_usd (%.2f)", s.UsageSoftCapUSD, s.UsageHardCapUSD)
	}
	if s.RetryMax < 0 {
		return fmt.Errorf("retry.max cannot be negative, got %d", s.RetryMax)
	}
	if s.TurnDeadlineSeconds < 1 {
		return fmt.Errorf("turn.deadline_seconds must be positive, got %d", s.TurnDeadlineSeconds)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
