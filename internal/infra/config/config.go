// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Tracking TrackingConfig `yaml:"tracking"`
	Report   ReportConfig   `yaml:"report"`
	Admin    AdminConfig    `yaml:"admin"`
	Redis    RedisConfig    `yaml:"redis"`
	Messages MessagesConfig `yaml:"messages"`
}

// DiscordConfig represents the bot connection and guild configuration.
type DiscordConfig struct {
	Token           string      `yaml:"token" validate:"required"`
	ApplicationID   string      `yaml:"application_id" validate:"required"`
	GuildID         string      `yaml:"guild_id" validate:"required"`
	TargetChannelID string      `yaml:"target_channel_id" validate:"required"`
	Roles           RolesConfig `yaml:"roles"`
	// KeepGlobalCommands skips deleting the application's global commands
	// before the guild commands are registered.
	KeepGlobalCommands bool `yaml:"keep_global_commands"`
}

// RolesConfig holds the role ids allowed to run tracking commands.
type RolesConfig struct {
	Admin string `yaml:"admin" validate:"required"`
	Host  string `yaml:"host" validate:"required"`
}

// TrackingConfig represents reward accounting configuration.
type TrackingConfig struct {
	BlockMinutes  int            `yaml:"block_minutes" default:"10" validate:"gte=1"`
	CoinsPerBlock int            `yaml:"coins_per_block" default:"25" validate:"gte=0"`
	RoleBoosts    map[string]int `yaml:"role_boosts" validate:"dive,gte=0"`
}

// ReportConfig represents report page layout configuration.
type ReportConfig struct {
	CharBudget   int `yaml:"char_budget" default:"1000" validate:"gte=100,lte=6000"`
	MaxFields    int `yaml:"max_fields" default:"25" validate:"gte=1,lte=25"`
	StartColor   int `yaml:"start_color" default:"65280"`
	ResultsColor int `yaml:"results_color" default:"39423"`
}

// AdminConfig represents the admin status API configuration.
type AdminConfig struct {
	Addr  string `yaml:"addr" default:":8080"`
	Token string `yaml:"token" validate:"required"`
}

// RedisConfig represents the report sink configuration.
// The sink is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Channel  string `yaml:"channel" default:"vctrack:reports"`
	ListKey  string `yaml:"list_key" default:"vctrack:reports:recent"`
	ListMax  int64  `yaml:"list_max" default:"50" validate:"gte=1"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Unauthorized    string `yaml:"unauthorized" default:"You need to be an Admin or Gamenight Host to use this command!"`
	WrongGuild      string `yaml:"wrong_guild" default:"This command can only be used in the configured server."`
	AlreadyActive   string `yaml:"already_active" default:"Tracking is already active!"`
	NotActive       string `yaml:"not_active" default:"No active tracking session!"`
	ChannelNotFound string `yaml:"channel_not_found" default:"Could not find the target voice channel!"`
	DeliveryFailure string `yaml:"delivery_failure" default:"An error occurred while sending the results. Please try again."`
	UserAdded       string `yaml:"user_added" default:"Now tracking user: %s"`
	MissingUser     string `yaml:"missing_user" default:"Please specify a user."`
	UnknownCommand  string `yaml:"unknown_command" default:"Unknown command."`
	DefaultError    string `yaml:"default_error" default:"Something went wrong, please try again."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, errors.Wrap(err, "failed to apply environment overrides")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_APPLICATION_ID"); v != "" {
		c.Discord.ApplicationID = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		c.Discord.GuildID = v
	}
	if v := os.Getenv("DISCORD_TARGET_CHANNEL_ID"); v != "" {
		c.Discord.TargetChannelID = v
	}
	if v := os.Getenv("DISCORD_ADMIN_ROLE_ID"); v != "" {
		c.Discord.Roles.Admin = v
	}
	if v := os.Getenv("DISCORD_HOST_ROLE_ID"); v != "" {
		c.Discord.Roles.Host = v
	}
	if v := os.Getenv("ROLE_BOOSTS"); v != "" {
		boosts, err := ParseRoleBoosts(v)
		if err != nil {
			return err
		}
		c.Tracking.RoleBoosts = boosts
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	return nil
}

// ParseRoleBoosts parses a "role=percent,role=percent" list.
func ParseRoleBoosts(s string) (map[string]int, error) {
	boosts := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		role, percent, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(role) == "" {
			return nil, errors.Newf("invalid role boost %q: expected role=percent", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(percent))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid boost percent for role %s", role)
		}
		if n < 0 {
			return nil, errors.Newf("boost percent for role %s must be non-negative", role)
		}
		boosts[strings.TrimSpace(role)] = n
	}
	return boosts, nil
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "unauthorized":
		return c.Messages.Unauthorized
	case "wrong_guild":
		return c.Messages.WrongGuild
	case "already_active":
		return c.Messages.AlreadyActive
	case "not_active":
		return c.Messages.NotActive
	case "channel_not_found":
		return c.Messages.ChannelNotFound
	case "delivery_failure":
		return c.Messages.DeliveryFailure
	case "missing_user":
		return c.Messages.MissingUser
	case "unknown_command":
		return c.Messages.UnknownCommand
	default:
		return c.Messages.DefaultError
	}
}

// UserAddedMessage fills the user tag into the adduser confirmation.
// The tag replaces every "%s"; a text without one gets the tag appended.
func (c *Config) UserAddedMessage(tag string) string {
	msg := c.Messages.UserAdded
	if !strings.Contains(msg, "%s") {
		return msg + " " + tag
	}
	return strings.ReplaceAll(msg, "%s", tag)
}

// CommandRoles returns the role ids allowed to run tracking commands.
func (c *Config) CommandRoles() []string {
	return []string{c.Discord.Roles.Admin, c.Discord.Roles.Host}
}

// Block returns the reward block duration.
func (c *Config) Block() time.Duration {
	return time.Duration(c.Tracking.BlockMinutes) * time.Minute
}

// RedisEnabled reports whether the report sink is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	return nil
}
