package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Kamar-Folarin/ticket-sync/pkg/utils"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Port        string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string
	Database    DatabaseConfig
	Jira        *JiraConfig
	Sync        *SyncConfig
	Telemetry   TelemetryConfig
}

// DatabaseConfig selects the primary storage backend. The other backend is
// used as a fallback when the primary cannot be opened.
type DatabaseConfig struct {
	Backend          string
	ConnectionString string
	SQLitePath       string
	ConnectTimeout   time.Duration
}

type TelemetryConfig struct {
	Enabled bool
	Stdout  bool
}

func Load() (*Config, error) {
	var err error
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Jira:        DefaultJiraConfig(),
		Sync:        DefaultSyncConfig(),
	}

	cfg.Database = DatabaseConfig{
		Backend:          getEnv("DB_BACKEND", ""),
		ConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		SQLitePath:       getEnv("SQLITE_PATH", "data/tickets.db"),
	}
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = BackendSQLite
		if cfg.Database.ConnectionString != "" {
			cfg.Database.Backend = BackendPostgres
		}
	}
	if cfg.Database.ConnectTimeout, err = getEnvDuration("DB_CONNECT_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.Jira.BaseURL = getEnv("JIRA_BASE_URL", "")
	cfg.Jira.Email = getEnv("JIRA_EMAIL", "")
	cfg.Jira.APIToken = getEnv("JIRA_API_TOKEN", "")
	cfg.Jira.ProjectKeys = getEnvList("JIRA_PROJECT_KEYS", nil)
	if cfg.Jira.PageSize, err = getEnvInt("JIRA_PAGE_SIZE", cfg.Jira.PageSize); err != nil {
		return nil, err
	}
	if cfg.Jira.Timeout, err = getEnvDuration("JIRA_TIMEOUT", cfg.Jira.Timeout); err != nil {
		return nil, err
	}
	if cfg.Jira.Retry.MaxRetries, err = getEnvInt("JIRA_MAX_RETRIES", cfg.Jira.Retry.MaxRetries); err != nil {
		return nil, err
	}

	s := cfg.Sync
	if s.Batch.Size, err = getEnvInt("SYNC_BATCH_SIZE", s.Batch.Size); err != nil {
		return nil, err
	}
	fullMinutes, err := getEnvInt("SYNC_FULL_INTERVAL_MINUTES", 0)
	if err != nil {
		return nil, err
	}
	s.FullInterval = time.Duration(fullMinutes) * time.Minute
	incrementalMinutes, err := getEnvInt("SYNC_INCREMENTAL_INTERVAL_MINUTES", 0)
	if err != nil {
		return nil, err
	}
	s.IncrementalInterval = time.Duration(incrementalMinutes) * time.Minute
	if s.HistoryLimit, err = getEnvInt("SYNC_HISTORY_LIMIT", s.HistoryLimit); err != nil {
		return nil, err
	}
	if s.SSEHeartbeatInterval, err = getEnvDuration("SSE_HEARTBEAT_INTERVAL", s.SSEHeartbeatInterval); err != nil {
		return nil, err
	}
	if s.SSEMaxLifetime, err = getEnvDuration("SSE_MAX_LIFETIME", s.SSEMaxLifetime); err != nil {
		return nil, err
	}
	if s.HealthTimeout, err = getEnvDuration("HEALTH_TIMEOUT", s.HealthTimeout); err != nil {
		return nil, err
	}
	if s.Retention.SyncHistoryDays, err = getEnvInt("RETENTION_SYNC_HISTORY_DAYS", s.Retention.SyncHistoryDays); err != nil {
		return nil, err
	}
	if s.Retention.TicketDays, err = getEnvInt("RETENTION_TICKET_DAYS", s.Retention.TicketDays); err != nil {
		return nil, err
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled: getEnvBool("OTEL_ENABLED", false),
		Stdout:  getEnvBool("OTEL_STDOUT", false),
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case BackendPostgres:
		if c.Database.ConnectionString == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required for the %s backend", BackendPostgres)
		}
	case BackendSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s backend", BackendSQLite)
		}
	default:
		return fmt.Errorf("unsupported DB_BACKEND %q", c.Database.Backend)
	}
	if c.Sync.Batch.Size <= 0 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.Sync.Batch.Size)
	}
	return nil
}

// ValidateRemote checks the settings needed to talk to Jira.
func (c *Config) ValidateRemote() error {
	if c.Jira.BaseURL == "" || c.Jira.APIToken == "" {
		return fmt.Errorf("missing required configuration (JIRA_BASE_URL and JIRA_API_TOKEN must be set)")
	}
	normalized, err := utils.NormalizeBaseURL(c.Jira.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid JIRA_BASE_URL: %w", err)
	}
	c.Jira.BaseURL = normalized
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
