package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadString returns the secret under key, or fallback when it is missing.
func LoadString(ctx context.Context, m Manager, key, fallback string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return fallback
	}
	return value
}

// LoadStringRequired returns the secret under key or an error naming it.
func LoadStringRequired(ctx context.Context, m Manager, key string) (string, error) {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return "", fmt.Errorf("required secret %s: %w", key, err)
	}
	return value, nil
}

// ServiceSecrets holds the credentials the API process needs at startup
type ServiceSecrets struct {
	JWTSecret          string
	DatabaseURL        string
	RedisURL           string
	MapboxAccessToken  string
	AWSSecretAccessKey string
	SentryDSN          string
}

// LoadServiceSecrets reads every credential the API uses. JWT_SECRET and
// DATABASE_URL are required; the rest fall back to the values in defaults.
func LoadServiceSecrets(ctx context.Context, m Manager, defaults ServiceSecrets) (*ServiceSecrets, error) {
	jwtSecret, err := m.GetSecret(ctx, "JWT_SECRET")
	if err != nil {
		if !errors.Is(err, ErrNotFound) || defaults.JWTSecret == "" {
			return nil, fmt.Errorf("required secret JWT_SECRET: %w", err)
		}
		jwtSecret = defaults.JWTSecret
	}

	dbURL := LoadString(ctx, m, "DATABASE_URL", defaults.DatabaseURL)
	if dbURL == "" {
		return nil, fmt.Errorf("required secret DATABASE_URL: %w", ErrNotFound)
	}

	return &ServiceSecrets{
		JWTSecret:          jwtSecret,
		DatabaseURL:        dbURL,
		RedisURL:           LoadString(ctx, m, "REDIS_URL", defaults.RedisURL),
		MapboxAccessToken:  LoadString(ctx, m, "MAPBOX_ACCESS_TOKEN", defaults.MapboxAccessToken),
		AWSSecretAccessKey: LoadString(ctx, m, "AWS_SECRET_ACCESS_KEY", defaults.AWSSecretAccessKey),
		SentryDSN:          LoadString(ctx, m, "SENTRY_DSN", defaults.SentryDSN),
	}, nil
}

// AutoDetectBackend picks AWS Secrets Manager when it is explicitly enabled
// or the process runs on AWS compute, and environment variables otherwise.
func AutoDetectBackend() string {
	if getEnvBool("AWS_SECRETS_MANAGER_ENABLED") {
		return BackendAWS
	}
	if os.Getenv("AWS_REGION") != "" && os.Getenv("AWS_EXECUTION_ENV") != "" {
		return BackendAWS
	}
	return BackendEnv
}

// AutoDetectConfig returns a Config for the detected backend
func AutoDetectConfig() Config {
	cfg := Config{
		Backend:       AutoDetectBackend(),
		AWSRegion:     os.Getenv("AWS_REGION"),
		CacheDuration: 5 * time.Minute,
		Prefix:        os.Getenv("SECRETS_PREFIX"),
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}
	return cfg
}

func getEnvBool(key string) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && parsed
}
