// Package secrets loads service credentials from the environment or from
// AWS Secrets Manager, caching them for a configurable duration.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/jordanlanch/prospectroute/pkg/domain"
	"github.com/jordanlanch/prospectroute/pkg/logger"
)

const (
	BackendEnv = "env"
	BackendAWS = "aws-secrets-manager"
)

// ErrNotFound is returned when a backend has no value for a key.
var ErrNotFound = domain.NewNotFoundError("secret")

// Manager defines the interface for secrets management
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
	GetSecretJSON(ctx context.Context, key string, dest interface{}) error
	// RefreshCache drops every cached value so the next read goes to the backend.
	RefreshCache(ctx context.Context) error
	Close() error
}

// Config holds secrets manager configuration
type Config struct {
	Backend       string
	AWSRegion     string
	CacheDuration time.Duration
	// Prefix is prepended to every key looked up in AWS, e.g. "prospectroute/prod/".
	Prefix string
}

// DefaultConfig returns the development configuration
func DefaultConfig() Config {
	return Config{
		Backend:       BackendEnv,
		AWSRegion:     "us-east-1",
		CacheDuration: 5 * time.Minute,
	}
}

// NewManager creates a secrets manager for cfg.Backend
func NewManager(cfg Config, log logger.Logger) (Manager, error) {
	log = logger.OrDefault(log)
	switch cfg.Backend {
	case BackendAWS, "aws":
		log.Info("secrets backend selected", "backend", BackendAWS, "region", cfg.AWSRegion)
		return NewAWSSecretsManager(cfg, log)
	case BackendEnv, "environment", "":
		log.Info("secrets backend selected", "backend", BackendEnv)
		return NewEnvironmentManager(cfg), nil
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported secrets backend: %s", cfg.Backend))
	}
}

// ttlCache is the expiring key/value store both backends share.
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, now: time.Now, entries: make(map[string]cachedSecret)}
}

func (c *ttlCache) get(key string) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (c *ttlCache) set(key, value string) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedSecret{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *ttlCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedSecret)
}

func decodeJSON(ctx context.Context, m Manager, key string, dest interface{}) error {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("secret %s is not valid JSON: %w", key, err)
	}
	return nil
}

// EnvironmentManager reads secrets from process environment variables
type EnvironmentManager struct {
	cache  *ttlCache
	lookup func(string) (string, bool)
}

// NewEnvironmentManager creates an environment-backed manager
func NewEnvironmentManager(cfg Config) *EnvironmentManager {
	return &EnvironmentManager{cache: newTTLCache(cfg.CacheDuration), lookup: os.LookupEnv}
}

// GetSecret returns the value of the environment variable key
func (m *EnvironmentManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cache.get(key); ok {
		return value, nil
	}
	value, ok := m.lookup(key)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	m.cache.set(key, value)
	return value, nil
}

// GetSecretJSON decodes the JSON value stored under key into dest
func (m *EnvironmentManager) GetSecretJSON(ctx context.Context, key string, dest interface{}) error {
	return decodeJSON(ctx, m, key, dest)
}

func (m *EnvironmentManager) RefreshCache(ctx context.Context) error {
	m.cache.clear()
	return nil
}

func (m *EnvironmentManager) Close() error { return nil }

// secretValueAPI is the subset of the Secrets Manager client used here.
type secretValueAPI interface {
	GetSecretValueWithContext(ctx aws.Context, input *secretsmanager.GetSecretValueInput, opts ...request.Option) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager reads secrets from AWS Secrets Manager
type AWSSecretsManager struct {
	client secretValueAPI
	prefix string
	cache  *ttlCache
	logger logger.Logger
}

// NewAWSSecretsManager creates a Secrets Manager backed manager for cfg.AWSRegion
func NewAWSSecretsManager(cfg Config, log logger.Logger) (*AWSSecretsManager, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.AWSRegion)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return newAWSSecretsManager(secretsmanager.New(sess), cfg, log), nil
}

func newAWSSecretsManager(client secretValueAPI, cfg Config, log logger.Logger) *AWSSecretsManager {
	return &AWSSecretsManager{
		client: client,
		prefix: cfg.Prefix,
		cache:  newTTLCache(cfg.CacheDuration),
		logger: logger.OrDefault(log),
	}
}

// GetSecret fetches the string value of prefix+key
func (m *AWSSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cache.get(key); ok {
		return value, nil
	}

	out, err := m.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(m.prefix + key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", domain.NewUpstreamError("secrets manager", err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("%w: %s has no string value", ErrNotFound, key)
	}

	m.cache.set(key, *out.SecretString)
	m.logger.Debug("secret loaded", "key", key)
	return *out.SecretString, nil
}

// GetSecretJSON decodes the JSON value stored under key into dest
func (m *AWSSecretsManager) GetSecretJSON(ctx context.Context, key string, dest interface{}) error {
	return decodeJSON(ctx, m, key, dest)
}

func (m *AWSSecretsManager) RefreshCache(ctx context.Context) error {
	m.cache.clear()
	return nil
}

// Close is a no-op; SDK sessions hold no resources.
func (m *AWSSecretsManager) Close() error { return nil }
