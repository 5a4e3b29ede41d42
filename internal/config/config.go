// Package config provides YAML-based configuration loading for devteam.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Client delete policies.
const (
	DeleteOrphan  = "orphan"
	DeleteCascade = "cascade"
	DeleteBlock   = "block"
)

// Notification platforms.
const (
	PlatformNone    = ""
	PlatformSlack   = "slack"
	PlatformDiscord = "discord"
)

// Config is the top-level devteam configuration, loaded from config.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Seed       bool             `yaml:"seed"`
	Simulation SimulationConfig `yaml:"simulation"`
	Chat       ChatConfig       `yaml:"chat"`
	Clients    ClientsConfig    `yaml:"clients"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// ServerConfig holds dashboard listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects the slog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SimulationConfig tunes simulated department work.
type SimulationConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	MinIncrement  int           `yaml:"min_increment"`
	MaxIncrement  int           `yaml:"max_increment"`
	AllowParallel bool          `yaml:"allow_parallel"`
}

// ChatConfig tunes the simulated chat responder.
type ChatConfig struct {
	ReplyDelay time.Duration `yaml:"reply_delay"`
}

// ClientsConfig controls what happens to projects when their client is deleted.
type ClientsConfig struct {
	DeletePolicy string `yaml:"delete_policy"`
}

// NotifyConfig configures the optional chat-platform relay.
type NotifyConfig struct {
	Platform string        `yaml:"platform"`
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
	Events   EventsConfig  `yaml:"events"`

	// Digest is a cron expression for periodic project summaries; empty disables them.
	Digest string `yaml:"digest"`
}

// SlackConfig holds Slack credentials.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord credentials.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// EventsConfig toggles which event groups are relayed.
type EventsConfig struct {
	Clients     bool `yaml:"clients"`
	Projects    bool `yaml:"projects"`
	Departments bool `yaml:"departments"`
	Progress    bool `yaml:"progress"`
	Artifacts   bool `yaml:"artifacts"`
	Chat        bool `yaml:"chat"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Seed:   true,
		Simulation: SimulationConfig{
			TickInterval: time.Second,
			MinIncrement: 5,
			MaxIncrement: 20,
		},
		Chat:    ChatConfig{ReplyDelay: 1500 * time.Millisecond},
		Clients: ClientsConfig{DeletePolicy: DeleteOrphan},
		Notify: NotifyConfig{
			Events: EventsConfig{
				Projects:    true,
				Departments: true,
				Artifacts:   true,
			},
		},
	}
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, unmarshals YAML bytes over Default and
// returns a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

// applyDefaults fills in values left zero by the file.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Simulation.TickInterval == 0 {
		c.Simulation.TickInterval = time.Second
	}
	if c.Simulation.MinIncrement == 0 {
		c.Simulation.MinIncrement = 5
	}
	if c.Simulation.MaxIncrement == 0 {
		c.Simulation.MaxIncrement = 20
	}
	if c.Chat.ReplyDelay == 0 {
		c.Chat.ReplyDelay = 1500 * time.Millisecond
	}
	if c.Clients.DeletePolicy == "" {
		c.Clients.DeletePolicy = DeleteOrphan
	}
	c.Notify.Platform = strings.ToLower(c.Notify.Platform)
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if c.Simulation.TickInterval < time.Second {
		errs = append(errs, "simulation.tick_interval must be at least 1s")
	}
	if c.Simulation.MinIncrement < 0 || c.Simulation.MaxIncrement > 100 {
		errs = append(errs, "simulation increments must be within 0-100")
	}
	if c.Simulation.MinIncrement > c.Simulation.MaxIncrement {
		errs = append(errs, "simulation.min_increment must not exceed simulation.max_increment")
	}
	if c.Chat.ReplyDelay < 0 {
		errs = append(errs, "chat.reply_delay must not be negative")
	}
	switch c.Clients.DeletePolicy {
	case DeleteOrphan, DeleteCascade, DeleteBlock:
	default:
		errs = append(errs, fmt.Sprintf("clients.delete_policy %q must be orphan, cascade or block", c.Clients.DeletePolicy))
	}
	switch c.Notify.Platform {
	case PlatformNone:
	case PlatformSlack:
		if c.Notify.Slack.BotToken == "" {
			errs = append(errs, "notify.slack.bot_token is required")
		}
		if c.Notify.Slack.ChannelID == "" {
			errs = append(errs, "notify.slack.channel_id is required")
		}
	case PlatformDiscord:
		if c.Notify.Discord.BotToken == "" {
			errs = append(errs, "notify.discord.bot_token is required")
		}
		if c.Notify.Discord.ChannelID == "" {
			errs = append(errs, "notify.discord.channel_id is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q must be slack or discord", c.Notify.Platform))
	}
	if c.Notify.Digest != "" {
		if _, err := cron.ParseStandard(c.Notify.Digest); err != nil {
			errs = append(errs, fmt.Sprintf("notify.digest %q is not a valid cron expression", c.Notify.Digest))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
