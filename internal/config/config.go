// Package config loads a named YAML configuration file describing the
// pipeline's chat bots, RPC endpoints, and storage. Secrets (bot tokens,
// the SQL and redis passwords) are kept out of the YAML file and overlaid
// from the environment: the SQL password via envconfig, the redis password
// and bot tokens from plain WATCHTOWER_* variables. A config file is
// therefore safe to check in.
package config

import (
	"fmt"
	"os"

	"github.com/blocksentry/watchtower/internal/pkg/validator"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// BotConfig describes one chat bot instance.
type BotConfig struct {
	ID         string `yaml:"id" validate:"required"`
	Token      string `yaml:"-"`
	Polling    bool   `yaml:"polling"`
	OpenAccess bool   `yaml:"open-access"`
}

// SQLConfig describes the shared relational store's connection.
type SQLConfig struct {
	Host     string `yaml:"host" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"-"`
	Database string `yaml:"database" validate:"required"`
}

// InlineButton is one templated button in a row of the notification's
// inline-keyboard grid. URLTemplate may reference $ADDRESS$ and other
// render-time placeholders.
type InlineButton struct {
	Text        string `yaml:"text" validate:"required"`
	URLTemplate string `yaml:"url-template" validate:"required"`
}

// RedisConfig configures the optional distributed dedup accelerator. A
// zero-value Addr disables it entirely.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

// KafkaConfig configures the optional best-effort delivery audit sink. A
// zero-length Brokers disables it entirely.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Config is the pipeline's full runtime configuration, per the shape in
// spec §6.
type Config struct {
	OwnerChatID     string           `yaml:"owner-chat-id" validate:"required"`
	Bots            []BotConfig      `yaml:"bots" validate:"required,min=1,dive"`
	RPCURLs         []string         `yaml:"rpc-urls" validate:"required,min=1"`
	ChainLabel      string           `yaml:"chain-label" validate:"required"`
	ExplorerBaseURL string           `yaml:"explorer-base-url" validate:"required"`
	ChartBaseURL    string           `yaml:"chart-base-url"`
	NativeSymbol    string           `yaml:"native-symbol" validate:"required"`
	MulticallAddr   string           `yaml:"multicall-address" validate:"required"`
	SQL             SQLConfig        `yaml:"sql" validate:"required"`
	InlineButtons   [][]InlineButton `yaml:"inline-buttons"`

	// DataDir holds the embedded bbolt database and the high-water-mark
	// file. Defaults to "data/<chain-label>" when empty.
	DataDir string `yaml:"data-dir"`
	// ListenAddr is the operator status HTTP server's bind address.
	// Defaults to ":8080" when empty.
	ListenAddr string      `yaml:"listen-addr"`
	Redis      RedisConfig `yaml:"redis"`
	Kafka      KafkaConfig `yaml:"kafka"`
}

// secrets is overlaid from the environment on top of the YAML-loaded
// config, keyed by bot id and by the fixed SQL password variable.
// envconfig can't address a slice element by an arbitrary yaml key, so
// bot tokens are read individually after the config file establishes
// which bot ids exist.
type secrets struct {
	SQLPassword string `envconfig:"SQL_PASSWORD" required:"true"`
}

// Load reads configs/<name>.yaml, overlays secrets from the environment,
// and validates the result.
func Load(name string) (*Config, error) {
	path := fmt.Sprintf("configs/%s.yaml", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	var sec secrets
	if err := envconfig.Process("watchtower", &sec); err != nil {
		return nil, fmt.Errorf("config: reading secrets from environment: %w", err)
	}
	cfg.SQL.Password = sec.SQLPassword
	cfg.Redis.Password = os.Getenv("WATCHTOWER_REDIS_PASSWORD")

	for i := range cfg.Bots {
		token := os.Getenv("WATCHTOWER_BOT_" + cfg.Bots[i].ID + "_TOKEN")
		if token == "" {
			return nil, fmt.Errorf("config: missing WATCHTOWER_BOT_%s_TOKEN in environment", cfg.Bots[i].ID)
		}
		cfg.Bots[i].Token = token
	}

	if err := validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s failed validation: %w", path, err)
	}

	return &cfg, nil
}

// DataDirOrDefault returns DataDir, falling back to a chain-scoped
// directory under "data" when unset.
func (c *Config) DataDirOrDefault() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return "data/" + c.ChainLabel
}

// ListenAddrOrDefault returns ListenAddr, falling back to ":8080" when
// unset.
func (c *Config) ListenAddrOrDefault() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return ":8080"
}
