package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const maxMessageLimit = 100

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Discord configuration
	DiscordToken string `long:"discord-token" env:"DISCORD_TOKEN" description:"Discord bot token (required)"`
	ChannelID    string `long:"channel-id" env:"CHANNEL_ID" description:"Discord channel to mirror (required)"`

	// Server configuration
	Port    string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	BaseUrl string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`

	// Refresh configuration
	RefreshInterval int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"60" description:"Seconds between refresh cycles"`
	MessageLimit    int    `long:"message-limit" env:"MESSAGE_LIMIT" default:"10" description:"Number of recent messages to mirror (1-100)"`
	UpstreamTimeout int    `long:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"15" description:"Timeout in seconds for Discord API calls"`
	PreviewTimeout  int    `long:"preview-timeout" env:"PREVIEW_TIMEOUT" default:"10" description:"Timeout in seconds for a link preview lookup"`
	PreviewWorkers  int    `long:"preview-workers" env:"PREVIEW_WORKERS" default:"4" description:"Number of concurrent link preview lookups"`
	ChannelConfig   string `long:"channel-config" env:"CHANNEL_CONFIG" description:"Optional YAML file with feed metadata and filters"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"3DXOne News Mirror/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil
// when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DiscordToken:    raw.DiscordToken,
		ChannelID:       raw.ChannelID,
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		RefreshInterval: raw.RefreshInterval,
		MessageLimit:    raw.MessageLimit,
		UpstreamTimeout: raw.UpstreamTimeout,
		PreviewTimeout:  raw.PreviewTimeout,
		PreviewWorkers:  raw.PreviewWorkers,
		ChannelConfig:   raw.ChannelConfig,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.DiscordToken == "" {
		return fmt.Errorf("discord token is required (--discord-token or DISCORD_TOKEN)")
	}
	if cfg.ChannelID == "" {
		return fmt.Errorf("channel id is required (--channel-id or CHANNEL_ID)")
	}
	if _, err := strconv.ParseUint(cfg.ChannelID, 10, 64); err != nil {
		return fmt.Errorf("channel id must be a numeric snowflake, got %q", cfg.ChannelID)
	}
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535, got %q", cfg.Port)
	}
	if cfg.UserAgent == "" {
		return fmt.Errorf("user agent must not be empty (--user-agent or USER_AGENT)")
	}
	if cfg.RefreshInterval < 1 {
		return fmt.Errorf("refresh interval must be at least 1 second")
	}
	if cfg.MessageLimit < 1 || cfg.MessageLimit > maxMessageLimit {
		return fmt.Errorf("message limit must be between 1 and %d", maxMessageLimit)
	}
	if cfg.UpstreamTimeout < 1 {
		return fmt.Errorf("upstream timeout must be at least 1 second")
	}
	if cfg.PreviewTimeout < 1 {
		return fmt.Errorf("preview timeout must be at least 1 second")
	}
	if cfg.PreviewWorkers < 1 {
		return fmt.Errorf("preview workers must be at least 1")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
