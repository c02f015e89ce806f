package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent workflow system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Servers   ServersConfig   `mapstructure:"servers"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"` // per tool call
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"` // empty disables auth
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogFile string `mapstructure:"log_file"`
}

// WorkflowConfig controls pipeline execution behaviour.
type WorkflowConfig struct {
	MaxProcessingTime time.Duration    `mapstructure:"max_processing_time"` // bound for a whole run
	MaxSites          int              `mapstructure:"max_sites"`           // scrape cap for the collector
	ArtifactsDir      string           `mapstructure:"artifacts_dir"`
	Schedules         []ScheduleConfig `mapstructure:"schedules"`
}

// ScheduleConfig describes one recurring workflow trigger.
type ScheduleConfig struct {
	Cron    string `mapstructure:"cron"`
	Request string `mapstructure:"request"`
}

func (s ScheduleConfig) Validate() error {
	if strings.TrimSpace(s.Cron) == "" {
		return fmt.Errorf("workflow.schedules: cron expression required")
	}
	if strings.TrimSpace(s.Request) == "" {
		return fmt.Errorf("workflow.schedules: request required")
	}
	return nil
}

// ServersConfig holds per-backend settings. A backend whose required keys are
// empty is treated as unavailable and served by the mock adapter.
type ServersConfig struct {
	WebSearch  WebSearchConfig  `mapstructure:"web_search"`
	Firecrawl  FirecrawlConfig  `mapstructure:"firecrawl"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	Docstore   DocstoreConfig   `mapstructure:"docstore"`
	Gmail      GmailConfig      `mapstructure:"gmail"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Chart      ChartConfig      `mapstructure:"chart"`
}

// WebSearchConfig contains web search backend settings
type WebSearchConfig struct {
	Provider   string `mapstructure:"provider"` // serper or brave
	APIKey     string `mapstructure:"api_key"`
	MaxResults int    `mapstructure:"max_results"`
}

// FirecrawlConfig contains headless scraping settings
type FirecrawlConfig struct {
	Enabled   string        `mapstructure:"enabled"` // non-empty turns the live fetcher on
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxChars  int           `mapstructure:"max_chars"`
}

// FilesystemConfig contains the artifact filesystem root
type FilesystemConfig struct {
	Root string `mapstructure:"root"`
}

// DocstoreConfig contains document store settings
type DocstoreConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// GmailConfig contains SMTP delivery settings
type GmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// SlackConfig contains webhook notification settings
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// ChartConfig contains chart rendering settings
type ChartConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

func (w WorkflowConfig) Validate() error {
	if w.MaxProcessingTime <= 0 {
		return fmt.Errorf("workflow.max_processing_time must be > 0")
	}
	if w.MaxSites <= 0 {
		return fmt.Errorf("workflow.max_sites must be > 0")
	}
	for _, s := range w.Schedules {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfig loads config from an optional file plus AGENTFLOW_* env vars.
// All defaults leave every backend unconfigured so the system runs fully
// mocked out of the box.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", 30*time.Second)
	v.SetDefault("server.address", ":10001")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("workflow.max_processing_time", 5*time.Minute)
	v.SetDefault("workflow.max_sites", 5)
	v.SetDefault("workflow.artifacts_dir", "runs")
	v.SetDefault("servers.web_search.provider", "serper")
	v.SetDefault("servers.web_search.max_results", 5)
	v.SetDefault("servers.firecrawl.user_agent", "AgentFlow/1.0 (+workflow)")
	v.SetDefault("servers.firecrawl.timeout", 30*time.Second)
	v.SetDefault("servers.firecrawl.max_chars", 12000)
	v.SetDefault("servers.gmail.smtp_port", "587")

	// Empty defaults so AutomaticEnv can surface values viper has no other
	// record of (Unmarshal only sees registered keys).
	for _, key := range []string{
		"server.jwt_secret",
		"telemetry.log_file",
		"servers.web_search.api_key",
		"servers.firecrawl.enabled",
		"servers.filesystem.root",
		"servers.docstore.redis_addr",
		"servers.docstore.redis_password",
		"servers.gmail.smtp_host",
		"servers.gmail.username",
		"servers.gmail.password",
		"servers.gmail.from",
		"servers.gmail.to",
		"servers.slack.webhook_url",
		"servers.slack.channel",
		"servers.chart.endpoint",
	} {
		v.SetDefault(key, "")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AGENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults + env carry the system.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Workflow.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
