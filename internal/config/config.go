package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	SNSRegion      string
	SNSTopicARN    string // empty disables notice fan-out

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AllowedOrigins []string // CORS allowed origins

	BackendBaseURL string
	BackendAPIKey  string
	BackendTimeout time.Duration

	Signup Signup
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Snapshots string
}

// Signup holds the embedded-signup timing and trust settings.
type Signup struct {
	// TrustedOrigins are domain suffixes whose postMessage traffic is accepted.
	TrustedOrigins []string
	// FallbackDelay is how long a code waits for the hint message before exchanging without it.
	FallbackDelay time.Duration
	// PollInterval is the onboarding status poller period.
	PollInterval time.Duration
	// WebhookPingAttempts bounds the config re-fetches after a webhook ping.
	WebhookPingAttempts int
	WebhookPingInterval time.Duration
	// NoticeLimit is how many recent notices a workspace keeps.
	NoticeLimit int
}

// Load reads all configuration from environment variables. When
// TRUSTED_ORIGINS_FILE is set, the trusted origin list is read from that YAML file.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Snapshots: getEnv("DYNAMO_TABLE_SNAPSHOTS", "onboarding_snapshots"),
		},
		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN: getEnv("SNS_NOTICE_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		BackendBaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8080/api"), "/"),
		BackendAPIKey:  getEnv("BACKEND_API_KEY", ""),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),

		Signup: Signup{
			TrustedOrigins:      splitList(getEnv("TRUSTED_MESSAGE_ORIGINS", "facebook.com,facebook.net")),
			FallbackDelay:       getEnvDuration("SIGNUP_FALLBACK_DELAY", 2*time.Second),
			PollInterval:        getEnvDuration("ONBOARDING_POLL_INTERVAL", 5*time.Second),
			WebhookPingAttempts: getEnvInt("WEBHOOK_PING_ATTEMPTS", 5),
			WebhookPingInterval: getEnvDuration("WEBHOOK_PING_INTERVAL", 3*time.Second),
			NoticeLimit:         getEnvInt("NOTICE_LIMIT", 20),
		},
	}

	if path := getEnv("TRUSTED_ORIGINS_FILE", ""); path != "" {
		origins, err := LoadTrustedOrigins(path)
		if err != nil {
			return nil, err
		}
		cfg.Signup.TrustedOrigins = origins
	}
	return cfg, nil
}

type trustedOriginsFile struct {
	TrustedOrigins []string `yaml:"trusted_origins"`
}

// LoadTrustedOrigins reads a YAML document of the form
//
//	trusted_origins:
//	  - facebook.com
//	  - facebook.net
func LoadTrustedOrigins(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trusted origins: %w", err)
	}
	var f trustedOriginsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse trusted origins: %w", err)
	}
	var out []string
	for _, o := range f.TrustedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("trusted origins file %s lists no origins", path)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
