// Package config loads and saves the courier configuration file
// (~/.courier/config.json), with ${VAR} environment expansion.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for courier.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Stream   StreamConfig   `json:"stream"`
	History  HistoryConfig  `json:"history"`
	Telegram TelegramConfig `json:"telegram"`
}

type GeneralConfig struct {
	BaseURL      string `json:"baseUrl"`
	DefaultAgent string `json:"defaultAgent"`
	AgentsDir    string `json:"agentsDir"`          // extra agent manifests (YAML)
	LogLevel     string `json:"logLevel"`
	LogFile      string `json:"logFile,omitempty"`
}

type StreamConfig struct {
	Transport      string `json:"transport"`      // "sse" | "websocket"
	SubmitTimeout  int    `json:"submitTimeout"`  // seconds, submission POST only
	MaxAttachBytes int64  `json:"maxAttachBytes"` // per-file size cap before encode
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// TelegramConfig enables mirroring finished transcripts to a Telegram chat.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chatId,omitempty"`
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".courier"
	}
	return filepath.Join(home, ".courier")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	cfg.General.AgentsDir = expandPath(cfg.General.AgentsDir)
	cfg.General.LogFile = expandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func Validate(cfg *Config) error {
	if cfg.General.BaseURL == "" {
		return fmt.Errorf("general.baseUrl is required")
	}
	switch cfg.Stream.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("stream.transport must be \"sse\" or \"websocket\", got %q", cfg.Stream.Transport)
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram.enabled is true")
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with its environment value; ${VAR:-default}
// falls back to "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if v := os.Getenv(groups[1]); v != "" {
			return v
		}
		return groups[2]
	})
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
