package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath               = "MCP_CLARIFY_CONFIG"
	EnvTelegramPendingStorePath = "MCP_CLARIFY_TELEGRAM_PENDING_STORE"

	appDirName = "mcp-clarify"

	ChannelMCP      = "mcp"
	ChannelTelegram = "telegram"

	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Config struct {
	ServerName         string         `yaml:"server_name"`
	Transport          string         `yaml:"transport"`
	HTTPAddr           string         `yaml:"http_addr"`
	CORSAllowedOrigins []string       `yaml:"cors_allowed_origins"`
	RequestTimeout     string         `yaml:"request_timeout"`
	Channel            string         `yaml:"channel"`
	Log                LogConfig      `yaml:"log"`
	MCP                DialectConfig  `yaml:"mcp"`
	Telegram           TelegramConfig `yaml:"telegram"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DialectConfig lists the call shapes a channel accepts. Values are the
// names used by contract: text keys, schema argument names and encodings.
type DialectConfig struct {
	TextKeys   []string `yaml:"text_keys"`
	SchemaArgs []string `yaml:"schema_args"`
	Encodings  []string `yaml:"encodings"`
}

type TelegramConfig struct {
	BotToken            string `yaml:"bot_token"`
	ChatID              int64  `yaml:"chat_id"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	PendingStorePath    string `yaml:"pending_store_path"`
	// APIBase points at a self-hosted Bot API server. Empty means api.telegram.org.
	APIBase             string `yaml:"api_base,omitempty"`

	DialectConfig `yaml:",inline"`
}

func Default() Config {
	return Config{
		ServerName:         "mcp-clarify",
		Transport:          TransportStdio,
		HTTPAddr:           "127.0.0.1:8787",
		CORSAllowedOrigins: []string{"*"},
		RequestTimeout:     "0",
		Channel:            ChannelMCP,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		MCP: DefaultMCPDialect(),
		Telegram: TelegramConfig{
			PollIntervalSeconds: 2,
			DialectConfig:       DefaultTelegramDialect(),
		},
	}
}

func DefaultMCPDialect() DialectConfig {
	return DialectConfig{
		TextKeys:   []string{"message", "prompt"},
		SchemaArgs: []string{"response_schema", "schema", "positional", "response_type", "response_model"},
		Encodings:  []string{"json", "choice_type", "answer_type", "none"},
	}
}

// DefaultTelegramDialect accepts only schema-less calls: a chat cannot render
// a form, the option list is already part of the prompt text.
func DefaultTelegramDialect() DialectConfig {
	return DialectConfig{
		TextKeys:  []string{"message", "prompt"},
		Encodings: []string{"none"},
	}
}

func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return ExpandPath(p)
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName, "config.yaml"), nil
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, appDirName, "config.yaml"), nil
}

func DefaultStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appDirName), nil
}

func DefaultTelegramPendingStorePath() (string, error) {
	stateDir, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "telegram-pending.json"), nil
}

// EffectiveTelegramPendingStorePath resolves the pending store location:
// environment, then config, then the state-dir default.
func EffectiveTelegramPendingStorePath(cfg Config) (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvTelegramPendingStorePath)); p != "" {
		return ExpandPath(p)
	}
	if p := strings.TrimSpace(cfg.Telegram.PendingStorePath); p != "" {
		return ExpandPath(p)
	}
	return DefaultTelegramPendingStorePath()
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			ApplyDefaults(&cfg)
			return cfg, nil
		}
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

func Save(cfg Config) error {
	ApplyDefaults(&cfg)

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o600)
}

func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	def := Default()
	if strings.TrimSpace(cfg.ServerName) == "" {
		cfg.ServerName = def.ServerName
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport == "" {
		cfg.Transport = def.Transport
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = def.HTTPAddr
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = def.CORSAllowedOrigins
	}
	if strings.TrimSpace(cfg.RequestTimeout) == "" {
		cfg.RequestTimeout = def.RequestTimeout
	}
	cfg.Channel = strings.ToLower(strings.TrimSpace(cfg.Channel))
	if cfg.Channel == "" {
		cfg.Channel = def.Channel
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = def.Log.Level
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = def.Log.Format
	}
	applyDialectDefaults(&cfg.MCP, def.MCP)
	applyDialectDefaults(&cfg.Telegram.DialectConfig, def.Telegram.DialectConfig)
	if cfg.Telegram.PollIntervalSeconds <= 0 {
		cfg.Telegram.PollIntervalSeconds = def.Telegram.PollIntervalSeconds
	}
	if p := strings.TrimSpace(cfg.Telegram.PendingStorePath); p != "" {
		if expanded, err := ExpandPath(p); err == nil {
			cfg.Telegram.PendingStorePath = expanded
		}
	}
}

// applyDialectDefaults fills an unset dialect. Schema args may legitimately
// be empty (schema-less only), so they are defaulted only together with the
// encodings.
func applyDialectDefaults(d *DialectConfig, def DialectConfig) {
	if len(d.TextKeys) == 0 {
		d.TextKeys = def.TextKeys
	}
	if len(d.Encodings) == 0 {
		d.Encodings = def.Encodings
		if len(d.SchemaArgs) == 0 {
			d.SchemaArgs = def.SchemaArgs
		}
	}
}

// EffectiveTimeout returns the per-question timeout; zero means wait for the
// human indefinitely.
func EffectiveTimeout(cfg Config) (time.Duration, error) {
	ApplyDefaults(&cfg)
	raw := strings.TrimSpace(cfg.RequestTimeout)
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid request_timeout %q: %w", cfg.RequestTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("request_timeout must be >= 0")
	}
	return d, nil
}

func Set(cfg *Config, key string, value string) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	k := strings.ToLower(strings.TrimSpace(key))
	v := strings.TrimSpace(value)

	switch k {
	case "server_name":
		if v == "" {
			return fmt.Errorf("server_name must not be empty")
		}
		cfg.ServerName = v
	case "transport":
		v = strings.ToLower(v)
		if v != TransportStdio && v != TransportHTTP {
			return fmt.Errorf("transport must be stdio or http")
		}
		cfg.Transport = v
	case "http_addr", "addr":
		cfg.HTTPAddr = v
	case "cors_allowed_origins":
		cfg.CORSAllowedOrigins = splitList(v)
	case "request_timeout", "timeout":
		if v != "0" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			if d < 0 {
				return fmt.Errorf("request_timeout must be >= 0")
			}
		}
		cfg.RequestTimeout = v
	case "channel", "provider":
		v = strings.ToLower(v)
		if v != ChannelMCP && v != ChannelTelegram {
			return fmt.Errorf("channel must be mcp or telegram")
		}
		cfg.Channel = v
	case "log.level":
		cfg.Log.Level = strings.ToLower(v)
	case "log.format":
		v = strings.ToLower(v)
		if v != "console" && v != "json" {
			return fmt.Errorf("log.format must be console or json")
		}
		cfg.Log.Format = v
	case "mcp.text_keys":
		cfg.MCP.TextKeys = splitList(v)
	case "mcp.schema_args":
		cfg.MCP.SchemaArgs = splitList(v)
	case "mcp.encodings":
		cfg.MCP.Encodings = splitList(v)
	case "telegram.bot_token":
		cfg.Telegram.BotToken = v
	case "telegram.chat_id":
		chatID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram.chat_id: %w", err)
		}
		cfg.Telegram.ChatID = chatID
	case "telegram.poll_interval_seconds":
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("telegram.poll_interval_seconds must be a positive integer")
		}
		cfg.Telegram.PollIntervalSeconds = n
	case "telegram.pending_store_path", "telegram.store_path":
		expanded, err := ExpandPath(v)
		if err != nil {
			return err
		}
		cfg.Telegram.PendingStorePath = expanded
	case "telegram.api_base":
		cfg.Telegram.APIBase = strings.TrimRight(v, "/")
	case "telegram.text_keys":
		cfg.Telegram.TextKeys = splitList(v)
	case "telegram.schema_args":
		cfg.Telegram.SchemaArgs = splitList(v)
	case "telegram.encodings":
		cfg.Telegram.Encodings = splitList(v)
	default:
		return fmt.Errorf("unsupported key %q", key)
	}

	ApplyDefaults(cfg)
	return nil
}

func Marshal(cfg Config) ([]byte, error) {
	ApplyDefaults(&cfg)
	return yaml.Marshal(cfg)
}

func ExpandPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if raw == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(raw, "~/")), nil
	}
	return raw, nil
}

func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
