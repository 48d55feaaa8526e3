package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Warmup        WarmupConfig        `mapstructure:"warmup"`
	Mailer        MailerConfig        `mapstructure:"mailer"`
	IMAP          IMAPConfig          `mapstructure:"imap"`
	Tracking      TrackingConfig      `mapstructure:"tracking"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// SchedulerConfig holds dispatch loop configuration
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
	BatchSize       int `mapstructure:"batch_size"`
}

// WarmupConfig holds warmup defaults
type WarmupConfig struct {
	DefaultSchedule string        `mapstructure:"default_schedule"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// MailerConfig holds Gmail API transport configuration
type MailerConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// IMAPConfig holds the inbound reply poller configuration
type IMAPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// TrackingConfig holds open/click tracking configuration
type TrackingConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	TrackOpens  bool   `mapstructure:"track_opens"`
	TrackClicks bool   `mapstructure:"track_clicks"`
}

// CollaboratorsConfig holds external collaborator endpoints
type CollaboratorsConfig struct {
	BookingURL string `mapstructure:"booking_url"`
	CRMBaseURL string `mapstructure:"crm_base_url"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("scheduler.interval_minutes", 5)
	viper.SetDefault("scheduler.batch_size", 50)

	viper.SetDefault("warmup.default_schedule", "standard")
	viper.SetDefault("warmup.cache_ttl", "30s")

	viper.SetDefault("imap.enabled", false)
	viper.SetDefault("imap.host", "imap.gmail.com")
	viper.SetDefault("imap.port", 993)

	viper.SetDefault("tracking.track_opens", true)
	viper.SetDefault("tracking.track_clicks", true)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.batch_size", "SCHEDULER_BATCH_SIZE")

	// Warmup
	viper.BindEnv("warmup.default_schedule", "WARMUP_DEFAULT_SCHEDULE")
	viper.BindEnv("warmup.cache_ttl", "WARMUP_CACHE_TTL")

	// Mailer
	viper.BindEnv("mailer.client_id", "MAILER_CLIENT_ID")
	viper.BindEnv("mailer.client_secret", "MAILER_CLIENT_SECRET")
	viper.BindEnv("mailer.refresh_token", "MAILER_REFRESH_TOKEN")
	viper.BindEnv("mailer.user_email", "MAILER_USER_EMAIL")

	// IMAP
	viper.BindEnv("imap.enabled", "IMAP_ENABLED")
	viper.BindEnv("imap.host", "IMAP_HOST")
	viper.BindEnv("imap.port", "IMAP_PORT")
	viper.BindEnv("imap.user", "IMAP_USER")
	viper.BindEnv("imap.password", "IMAP_PASSWORD")

	// Tracking
	viper.BindEnv("tracking.base_url", "TRACKING_BASE_URL")
	viper.BindEnv("tracking.track_opens", "TRACKING_TRACK_OPENS")
	viper.BindEnv("tracking.track_clicks", "TRACKING_TRACK_CLICKS")

	// Collaborators
	viper.BindEnv("collaborators.booking_url", "COLLAB_BOOKING_URL")
	viper.BindEnv("collaborators.crm_base_url", "COLLAB_CRM_BASE_URL")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if c.Mailer.ClientID == "" || c.Mailer.ClientSecret == "" || c.Mailer.RefreshToken == "" {
		return fmt.Errorf("mailer OAuth2 credentials are required")
	}

	if c.IMAP.Enabled {
		if c.IMAP.User == "" || c.IMAP.Password == "" {
			return fmt.Errorf("IMAP credentials are required when the inbound poller is enabled")
		}
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("scheduler batch size must be greater than 0")
	}

	return nil
}
