package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/medassist-ai/intake-platform/internal/tenancy"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// DefaultOrgID scopes requests that carry no X-Org-Id header.
	DefaultOrgID string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Calendar / CRM provider (HighLevel)
	HighLevelBaseURL    string
	HighLevelAPIKey     string
	HighLevelLocationID string
	HighLevelCalendarID string
	HighLevelDryRun     bool

	// Booking defaults
	ProviderTimezone     string
	DisplayTimezone      string
	AppointmentMinutes   int
	AvailabilityDays     int
	BookingSessionTTL    time.Duration
	AppointmentTitle     string

	// Workflow-automation webhook relay
	AutomationWebhookURL   string
	AutomationMaxAttempts  int
	AutomationRetryBase    time.Duration
	AutomationPollInterval time.Duration

	// Attachment / voice-note storage
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	MediaBucket         string
	MaxAttachmentBytes  int64

	// Speech-to-text
	GoogleSpeechCredentialsJSON string
	TranscriptionLanguage       string

	// Ticket acknowledgment email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	EscalationEmail   string
	SLASweepInterval  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		DefaultOrgID: getEnv("DEFAULT_ORG_ID", tenancy.DefaultOrgID),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		HighLevelBaseURL:    getEnv("HIGHLEVEL_BASE_URL", "https://rest.gohighlevel.com/v1"),
		HighLevelAPIKey:     getEnv("HIGHLEVEL_API_KEY", ""),
		HighLevelLocationID: getEnv("HIGHLEVEL_LOCATION_ID", ""),
		HighLevelCalendarID: getEnv("HIGHLEVEL_CALENDAR_ID", ""),
		HighLevelDryRun:     getEnvAsBool("HIGHLEVEL_DRY_RUN", false),

		ProviderTimezone:   getEnv("PROVIDER_TIMEZONE", "America/Chicago"),
		DisplayTimezone:    getEnv("DEFAULT_DISPLAY_TIMEZONE", "America/Chicago"),
		AppointmentMinutes: getEnvAsInt("APPOINTMENT_MINUTES", 45),
		AvailabilityDays:   getEnvAsInt("AVAILABILITY_DAYS", 28),
		BookingSessionTTL:  getEnvAsDuration("BOOKING_SESSION_TTL", 30*time.Minute),
		AppointmentTitle:   getEnv("APPOINTMENT_TITLE", "Onboarding Call"),

		AutomationWebhookURL:   getEnv("AUTOMATION_WEBHOOK_URL", ""),
		AutomationMaxAttempts:  getEnvAsInt("AUTOMATION_MAX_ATTEMPTS", 5),
		AutomationRetryBase:    getEnvAsDuration("AUTOMATION_RETRY_BASE_DELAY", 30*time.Second),
		AutomationPollInterval: getEnvAsDuration("AUTOMATION_POLL_INTERVAL", 10*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		MediaBucket:         getEnv("MEDIA_BUCKET", ""),
		MaxAttachmentBytes:  int64(getEnvAsInt("MAX_ATTACHMENT_BYTES", 10*1024*1024)),

		GoogleSpeechCredentialsJSON: getEnv("GOOGLE_SPEECH_CREDENTIALS_JSON", ""),
		TranscriptionLanguage:       getEnv("TRANSCRIPTION_LANGUAGE", "en-US"),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MedAssist Support"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		EscalationEmail:   getEnv("ESCALATION_EMAIL", ""),
		SLASweepInterval:  getEnvAsDuration("SLA_SWEEP_INTERVAL", 5*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
