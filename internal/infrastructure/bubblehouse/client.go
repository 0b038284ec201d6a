// Package bubblehouse is the HTTP client of the Bubblehouse loyalty platform.
package bubblehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/bubblehouse/connector/internal/domain/export"
	"github.com/bubblehouse/connector/internal/infrastructure/config"
	"github.com/bubblehouse/connector/internal/infrastructure/serializer"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024

// ErrStoreNotConfigured is returned when neither the store nor the default has credentials
var ErrStoreNotConfigured = fmt.Errorf("%w: bubblehouse store not configured", export.ErrTransport)

// Client implements export.RemoteExporter against the Bubblehouse API
type Client struct {
	config     *Config
	httpClient *http.Client
	serializer export.Serializer
	logger     *zap.Logger
	now        func() time.Time

	stores map[int64]*StoreCredentials
	mu     sync.RWMutex
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSerializer sets the encoder of request bodies. It should be the one the
// export log is written with, so a stored body is byte for byte what was sent.
func WithSerializer(s export.Serializer) Option {
	return func(c *Client) {
		c.serializer = s
	}
}

// WithClock replaces the clock used for token timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client with the given endpoint configuration
func NewClient(config *Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{
			Timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		serializer: serializer.NewJSONSerializer(),
		logger:     logger.Named("bubblehouse"),
		now:        time.Now,
		stores:     make(map[int64]*StoreCredentials),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromSettings creates a client with every configured store registered
func NewClientFromSettings(settings config.BubblehouseConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	cfg, stores := FromSettings(settings)
	c, err := NewClient(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	for storeID, creds := range stores {
		if err := c.SetStoreCredentials(storeID, creds); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetStoreCredentials sets the credentials for a specific store
func (c *Client) SetStoreCredentials(storeID int64, creds *StoreCredentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("store %d: %w", storeID, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores[storeID] = creds
	return nil
}

// credentials retrieves the credentials for a store, falling back to the default
func (c *Client) credentials(storeID int64) (*StoreCredentials, error) {
	c.mu.RLock()
	creds, ok := c.stores[storeID]
	c.mu.RUnlock()
	if ok {
		return creds, nil
	}
	if c.config.Default != nil {
		return c.config.Default, nil
	}
	return nil, fmt.Errorf("%w: store %d", ErrStoreNotConfigured, storeID)
}

// ExportData sends payload to the export endpoint of exportType for the store.
// A refusal reported by Bubblehouse returns false; an unreachable or failing
// service returns an error wrapping export.ErrTransport.
func (c *Client) ExportData(ctx context.Context, exportType export.ExportType, payload any, storeID int64) (bool, error) {
	creds, err := c.credentials(storeID)
	if err != nil {
		return false, err
	}

	body, err := c.serializer.Serialize(payload)
	if err != nil {
		return false, fmt.Errorf("%w: failed to encode payload: %v", export.ErrTransport, err)
	}

	token, err := creds.Token(c.now())
	if err != nil {
		return false, fmt.Errorf("%w: %v", export.ErrTransport, err)
	}

	endpoint, err := c.endpoint(creds.Shop, exportType)
	if err != nil {
		return false, fmt.Errorf("%w: %v", export.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: failed to create request: %v", export.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", export.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return false, fmt.Errorf("%w: failed to read response: %v", export.ErrTransport, err)
	}

	return c.interpret(resp.StatusCode, respBody, exportType, storeID)
}

// interpret maps an HTTP response to the export result
func (c *Client) interpret(status int, body []byte, exportType export.ExportType, storeID int64) (bool, error) {
	switch {
	case status >= 200 && status < 300:
		if len(bytes.TrimSpace(body)) == 0 {
			return true, nil
		}
		var parsed exportResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return false, fmt.Errorf("%w: unreadable response body: %v", export.ErrTransport, err)
		}
		if parsed.rejected() {
			c.logRejection(status, parsed.reason(), exportType, storeID)
			return false, nil
		}
		return true, nil

	case status >= 400 && status < 500:
		var parsed exportResponse
		reason := strings.TrimSpace(string(body))
		if err := json.Unmarshal(body, &parsed); err == nil && parsed.reason() != "" {
			reason = parsed.reason()
		}
		c.logRejection(status, reason, exportType, storeID)
		return false, nil

	default:
		return false, fmt.Errorf("%w: HTTP %d", export.ErrTransport, status)
	}
}

func (c *Client) logRejection(status int, reason string, exportType export.ExportType, storeID int64) {
	c.logger.Warn("Bubblehouse rejected export",
		zap.Int("status", status),
		zap.String("export_type", exportType.String()),
		zap.Int64("store_id", storeID),
		zap.String("reason", reason),
	)
}

// endpoint builds {base}/api/{version}/{shop}/{exportType}
func (c *Client) endpoint(shop string, exportType export.ExportType) (string, error) {
	if shop == "" || exportType == "" {
		return "", errors.New("bubblehouse: shop and export type are required")
	}
	return url.JoinPath(c.config.BaseURL, "api", c.config.APIVersion, shop, exportType.String())
}

var _ export.RemoteExporter = (*Client)(nil)
