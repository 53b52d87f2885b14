package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Realtime AI engine
	OpenAIAPIKey  string
	RealtimeURL   string
	RealtimeModel string

	// Twilio carrier
	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioPhoneNumber       string
	MyPhoneNumber           string
	TwilioAPIBaseURL        string
	TwilioValidateSignature bool
	BookingSMSEnabled       bool

	// Persistence and reference data
	DatabaseURL       string
	ReferenceDataFile string
	MatchThreshold    float64

	// Session state
	SessionStore   string
	SessionIdleTTL time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// HTTP surface
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	CallMeRatePerSec   float64
	CallMeBurst        int
}

// MissingEnvError lists every required variable that was not set.
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return "config: missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "5050"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		RealtimeURL:   getEnv("REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		RealtimeModel: getEnv("REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01"),

		TwilioAccountSID:        getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:         getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:       getEnv("TWILIO_PHONE_NUMBER", ""),
		MyPhoneNumber:           getEnv("MY_PHONE_NUMBER", ""),
		TwilioAPIBaseURL:        getEnv("TWILIO_API_BASE_URL", "https://api.twilio.com/2010-04-01"),
		TwilioValidateSignature: getEnvAsBool("TWILIO_VALIDATE_SIGNATURE", false),
		BookingSMSEnabled:       getEnvAsBool("BOOKING_SMS_ENABLED", false),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ReferenceDataFile: getEnv("REFERENCE_DATA_FILE", ""),
		MatchThreshold:    getEnvAsFloat("MATCH_THRESHOLD", 0.33),

		SessionStore:   strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		SessionIdleTTL: getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		CallMeRatePerSec:   getEnvAsFloat("CALL_ME_RATE_PER_SEC", 0.2),
		CallMeBurst:        getEnvAsInt("CALL_ME_BURST", 2),
	}
}

// Validate reports every required credential that is absent. The process
// cannot serve either transport without them.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"TWILIO_ACCOUNT_SID", c.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", c.TwilioAuthToken},
		{"TWILIO_PHONE_NUMBER", c.TwilioPhoneNumber},
		{"MY_PHONE_NUMBER", c.MyPhoneNumber},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvError{Keys: missing}
	}
	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported SESSION_STORE %q", c.SessionStore)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
