package bubblehouse

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bubblehouse/connector/internal/infrastructure/config"
)

const (
	// DefaultBaseURL is the production Bubblehouse endpoint
	DefaultBaseURL = "https://app.bubblehouse.com"
	// DefaultAPIVersion is the API version requests are sent to
	DefaultAPIVersion = "v2023061"
	// DefaultTimeoutSeconds is the HTTP request timeout
	DefaultTimeoutSeconds = 30
	// tokenTTL is the lifetime of a request token
	tokenTTL = 5 * time.Minute
)

// Errors for Bubblehouse configuration
var (
	ErrConfigMissingShop   = errors.New("bubblehouse: shop is required")
	ErrConfigMissingKeyID  = errors.New("bubblehouse: key id is required")
	ErrConfigMissingSecret = errors.New("bubblehouse: shared secret is required")
	ErrConfigInvalidURL    = errors.New("bubblehouse: invalid base URL")
)

// Config holds the endpoint settings shared by all stores
type Config struct {
	BaseURL        string
	APIVersion     string
	TimeoutSeconds int
	// Default is used for stores without their own credentials. May be nil.
	Default *StoreCredentials
}

// StoreCredentials identify one Bubblehouse shop
type StoreCredentials struct {
	Shop         string
	KeyID        string
	SharedSecret string
}

// Validate fills defaults and checks the endpoint settings
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrConfigInvalidURL, c.BaseURL)
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Default != nil {
		return c.Default.Validate()
	}
	return nil
}

// Validate checks that all credential fields are present
func (s *StoreCredentials) Validate() error {
	if s.Shop == "" {
		return ErrConfigMissingShop
	}
	if s.KeyID == "" {
		return ErrConfigMissingKeyID
	}
	if s.SharedSecret == "" {
		return ErrConfigMissingSecret
	}
	return nil
}

// tokenClaims are the claims of a request token
type tokenClaims struct {
	jwt.RegisteredClaims
	Shop string `json:"shop"`
}

// Token returns an HS256 request token for the shop, valid for five minutes from now
func (s *StoreCredentials) Token(now time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		Shop: s.Shop,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.KeyID

	signed, err := token.SignedString([]byte(s.SharedSecret))
	if err != nil {
		return "", fmt.Errorf("bubblehouse: failed to sign token: %w", err)
	}
	return signed, nil
}

// FromSettings converts the loaded application settings.
// Default credentials are only set when a shop is configured.
func FromSettings(cfg config.BubblehouseConfig) (*Config, map[int64]*StoreCredentials) {
	c := &Config{
		BaseURL:        cfg.BaseURL,
		APIVersion:     cfg.APIVersion,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
	if cfg.Shop != "" {
		c.Default = &StoreCredentials{
			Shop:         cfg.Shop,
			KeyID:        cfg.KeyID,
			SharedSecret: cfg.SharedSecret,
		}
	}

	stores := make(map[int64]*StoreCredentials, len(cfg.Stores))
	for storeID, s := range cfg.Stores {
		stores[storeID] = &StoreCredentials{
			Shop:         s.Shop,
			KeyID:        s.KeyID,
			SharedSecret: s.SharedSecret,
		}
	}
	return c, stores
}
