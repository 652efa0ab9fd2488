// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"

	MissLogFile   = "file"
	MissLogSQLite = "sqlite"
)

type Config struct {
	DiscordToken  string
	CommandPrefix string

	AnalysisProvider    string
	AnthropicAPIKey     string
	GeminiAPIKey        string
	AnalysisModel       string
	AnalysisTemperature float64
	AnalysisMaxTokens   int

	DatasetPath    string
	MissLogPath    string
	MissLogBackend string

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	Port       string
	ChromePath string
	LogLevel   string
	LogFormat  string
}

// Load reads an optional .env file and then the environment. Values already
// in the environment win over the .env file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		DiscordToken:      env("DISCORD_TOKEN", ""),
		CommandPrefix:     env("COMMAND_PREFIX", "!market"),
		AnalysisProvider:  strings.ToLower(env("ANALYSIS_PROVIDER", ProviderAnthropic)),
		AnthropicAPIKey:   env("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:      env("GEMINI_API_KEY", ""),
		AnalysisModel:     env("ANALYSIS_MODEL", ""),
		DatasetPath:       env("DATASET_PATH", "merged_reventure_data.csv"),
		MissLogPath:       env("MISS_LOG_PATH", "missing_counties.log"),
		MissLogBackend:    strings.ToLower(env("MISS_LOG_BACKEND", MissLogFile)),
		GeocoderURL:       env("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: env("GEOCODER_USER_AGENT", "county-market-bot/1.0"),
		Port:              env("PORT", "8080"),
		ChromePath:        env("CHROME_PATH", ""),
		LogLevel:          env("LOG_LEVEL", "info"),
		LogFormat:         env("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.AnalysisTemperature, err = envFloat("ANALYSIS_TEMPERATURE", 0.7); err != nil {
		return Config{}, err
	}
	if cfg.AnalysisMaxTokens, err = envInt("ANALYSIS_MAX_TOKENS", 700); err != nil {
		return Config{}, err
	}
	if cfg.GeocoderTimeout, err = envDuration("GEOCODER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	switch cfg.AnalysisProvider {
	case ProviderAnthropic, ProviderGemini, ProviderNone:
	default:
		return Config{}, fmt.Errorf("ANALYSIS_PROVIDER must be one of anthropic, gemini, none (got %q)", cfg.AnalysisProvider)
	}
	switch cfg.MissLogBackend {
	case MissLogFile, MissLogSQLite:
	default:
		return Config{}, fmt.Errorf("MISS_LOG_BACKEND must be file or sqlite (got %q)", cfg.MissLogBackend)
	}
	return cfg, nil
}

// AnalysisKey returns the access key for the configured provider.
func (c Config) AnalysisKey() string {
	switch c.AnalysisProvider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func (c Config) analysisKeyName() string {
	if c.AnalysisProvider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// RequireSecrets reports every missing secret the caller needs in one error.
func (c Config) RequireSecrets(needChat, needAnalysis bool) error {
	var missing []string
	if needChat && c.DiscordToken == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if needAnalysis && c.AnalysisProvider != ProviderNone && c.AnalysisKey() == "" {
		missing = append(missing, c.analysisKeyName())
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env var(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envFloat(key string, def float64) (float64, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
