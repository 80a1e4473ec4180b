package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Mail struct {
		Transport string // "smtp" or "resend"
		FromEmail string
		FromName  string

		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string

		ResendAPIKey  string
		ResendBaseURL string
	}
	Alerts struct {
		LookbackHours      int
		MaxSendAttempts    int
		FallbackRecipients []string
	}
	Scheduler struct {
		Enabled         bool
		ConsolidateCron string
		DrainCron       string
		Timezone        string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Mail transport settings
	cfg.Mail.Transport = os.Getenv("MAIL_TRANSPORT")
	cfg.Mail.FromEmail = os.Getenv("MAIL_FROM_EMAIL")
	cfg.Mail.FromName = os.Getenv("MAIL_FROM_NAME")
	cfg.Mail.SMTPServer = os.Getenv("SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
		cfg.Mail.SMTPPort = p
	}
	cfg.Mail.Username = os.Getenv("SMTP_USERNAME")
	cfg.Mail.Password = os.Getenv("SMTP_PASSWORD")
	cfg.Mail.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.Mail.ResendBaseURL = os.Getenv("RESEND_BASE_URL")

	// Consolidation and delivery settings
	if h, err := strconv.Atoi(os.Getenv("LOOKBACK_HOURS")); err == nil {
		cfg.Alerts.LookbackHours = h
	}
	if n, err := strconv.Atoi(os.Getenv("MAX_SEND_ATTEMPTS")); err == nil {
		cfg.Alerts.MaxSendAttempts = n
	}
	if raw := os.Getenv("FALLBACK_RECIPIENTS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Alerts.FallbackRecipients); err != nil {
			return Config{}, fmt.Errorf("FALLBACK_RECIPIENTS must be a JSON array: %w", err)
		}
	}

	// Scheduler settings
	cfg.Scheduler.Enabled = os.Getenv("SCHEDULER_ENABLED") != "false"
	cfg.Scheduler.ConsolidateCron = os.Getenv("CONSOLIDATE_CRON")
	cfg.Scheduler.DrainCron = os.Getenv("DRAIN_CRON")
	cfg.Scheduler.Timezone = os.Getenv("SCHEDULER_TZ")

	// Kafka settings (ingest is disabled when the broker is empty)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Mail.FromEmail == "" {
		missing = append(missing, "MAIL_FROM_EMAIL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Mail.Transport == "" {
		cfg.Mail.Transport = "smtp"
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "Alert System"
	}
	if cfg.Mail.ResendBaseURL == "" {
		cfg.Mail.ResendBaseURL = "https://api.resend.com"
	}
	if cfg.Alerts.LookbackHours == 0 {
		cfg.Alerts.LookbackHours = 24
	}
	if cfg.Alerts.MaxSendAttempts == 0 {
		cfg.Alerts.MaxSendAttempts = 3
	}
	if cfg.Scheduler.ConsolidateCron == "" {
		cfg.Scheduler.ConsolidateCron = "0 8 * * *"
	}
	if cfg.Scheduler.DrainCron == "" {
		cfg.Scheduler.DrainCron = "0 * * * *"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "America/Santiago"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "light-alerts"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "alert-dispatch-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v1"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
