package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Alerting      AlertingConfig      `mapstructure:"alerting"`
	Summarizer    SummarizerConfig    `mapstructure:"summarizer"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type AlertingConfig struct {
	PolicyFile         string        `mapstructure:"policy_file"`
	CheckInterval      time.Duration `mapstructure:"check_interval"`
	EscalationInterval time.Duration `mapstructure:"escalation_interval"`
	DedupWindow        time.Duration `mapstructure:"dedup_window"`
	HistoryLimit       int           `mapstructure:"history_limit"`

	Temperature TemperatureCheckConfig `mapstructure:"temperature"`
	Vibration   VibrationCheckConfig   `mapstructure:"vibration"`
	HostProbe   HostProbeConfig        `mapstructure:"host_probe"`
}

type TemperatureCheckConfig struct {
	SensorType  string        `mapstructure:"sensor_type"`
	ThresholdC  float64       `mapstructure:"threshold_c"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	QueryWindow time.Duration `mapstructure:"query_window"`
}

type VibrationCheckConfig struct {
	SensorType   string        `mapstructure:"sensor_type"`
	Threshold    float64       `mapstructure:"threshold"`
	Duration     time.Duration `mapstructure:"duration"`
	SampleRateHz float64       `mapstructure:"sample_rate_hz"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

type HostProbeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type SummarizerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotificationsConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port"`
	Sender      string `mapstructure:"sender"`
	Password    string `mapstructure:"password"`
	Recipient   string `mapstructure:"recipient"`
	MinSeverity string `mapstructure:"min_severity"`
}

type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from ./configs/config.yaml (or the working
// directory), applies defaults, and overlays environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("summarizer.api_key", "LLM_API_KEY")
	viper.BindEnv("summarizer.base_url", "LLM_BASE_URL")
	viper.BindEnv("notifications.email.sender", "EMAIL_SENDER")
	viper.BindEnv("notifications.email.password", "EMAIL_PASSWORD")
	viper.BindEnv("notifications.email.recipient", "EMAIL_RECIPIENT")
	viper.BindEnv("notifications.webhook.url", "WEBHOOK_URL")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	viper.SetDefault("database.path", "./data/moby.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 25)

	// Alerting defaults
	viper.SetDefault("alerting.check_interval", "5s")
	viper.SetDefault("alerting.escalation_interval", "60s")
	viper.SetDefault("alerting.dedup_window", "5m")
	viper.SetDefault("alerting.history_limit", 100)
	viper.SetDefault("alerting.temperature.sensor_type", "temperature")
	viper.SetDefault("alerting.temperature.threshold_c", 50.0)
	viper.SetDefault("alerting.temperature.cooldown", "10m")
	viper.SetDefault("alerting.temperature.query_window", "1m")
	viper.SetDefault("alerting.vibration.sensor_type", "vibration")
	viper.SetDefault("alerting.vibration.threshold", 2.0)
	viper.SetDefault("alerting.vibration.duration", "5m")
	viper.SetDefault("alerting.vibration.sample_rate_hz", 16.0)
	viper.SetDefault("alerting.vibration.cooldown", "30m")
	viper.SetDefault("alerting.host_probe.enabled", false)
	viper.SetDefault("alerting.host_probe.interval", "30s")

	// Summarizer defaults
	viper.SetDefault("summarizer.enabled", false)
	viper.SetDefault("summarizer.base_url", "https://api.openai.com/v1")
	viper.SetDefault("summarizer.model", "gpt-4o-mini")
	viper.SetDefault("summarizer.timeout", "10s")

	// Notification defaults
	viper.SetDefault("notifications.email.enabled", false)
	viper.SetDefault("notifications.email.smtp_host", "smtp.gmail.com")
	viper.SetDefault("notifications.email.smtp_port", 587)
	viper.SetDefault("notifications.email.min_severity", "CRITICAL")
	viper.SetDefault("notifications.webhook.enabled", false)
	viper.SetDefault("notifications.webhook.timeout", "10s")

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
