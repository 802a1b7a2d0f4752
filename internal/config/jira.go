package config

import "time"

// JiraConfig holds Jira-specific configuration
type JiraConfig struct {
	BaseURL string
	// Email selects Basic auth (Jira Cloud). Without it APIToken is sent as a Bearer token.
	Email       string
	APIToken    string
	ProjectKeys []string
	PageSize    int
	Timeout     time.Duration
	Retry       RetryConfig
}

// RetryConfig holds request retry configuration
type RetryConfig struct {
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	RetryMultiplier float64
}

// DefaultJiraConfig returns the default Jira configuration
func DefaultJiraConfig() *JiraConfig {
	return &JiraConfig{
		PageSize: 100,
		Timeout:  30 * time.Second,
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialBackoff:  time.Second,
			MaxBackoff:      time.Minute,
			RetryMultiplier: 2.0,
		},
	}
}
