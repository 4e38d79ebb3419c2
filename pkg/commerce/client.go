package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beanline/storefront/pkg/logger"
)

// Client talks to the remote cart service. One Client is shared by every
// session; per-session identity travels in Credentials.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new cart service client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetCart fetches the full cart, regular and subscription lines.
func (c *Client) GetCart(ctx context.Context, cred Credentials) (*CartResponse, error) {
	var resp CartResponse
	if err := c.doRequest(ctx, http.MethodGet, "/cart", nil, cred, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &resp, nil
}

// AddItem adds a product or adjusts the quantity of an existing line.
func (c *Client) AddItem(ctx context.Context, cred Credentials, req AddItemRequest) (*MutationResponse, error) {
	var resp MutationResponse
	if err := c.doRequest(ctx, http.MethodPost, "/cart/items", nil, cred, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return &resp, nil
}

// RemoveItem deletes a whole line regardless of quantity.
func (c *Client) RemoveItem(ctx context.Context, cred Credentials, req RemoveItemRequest) (*MutationResponse, error) {
	var resp MutationResponse
	if err := c.doRequest(ctx, http.MethodDelete, "/cart/items", nil, cred, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return &resp, nil
}

// ApplyCoupon looks up a coupon by code. Matching is case-insensitive on
// the service side.
func (c *Client) ApplyCoupon(ctx context.Context, cred Credentials, code string) (*CouponResponse, error) {
	query := url.Values{}
	query.Set("code", code)

	var resp CouponResponse
	if err := c.doRequest(ctx, http.MethodGet, "/cart/coupon", query, cred, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
	}
	return &resp, nil
}

// RemoveCoupon tells the service the coupon was dropped. The response body
// carries nothing of interest.
func (c *Client) RemoveCoupon(ctx context.Context, cred Credentials) error {
	if err := c.doRequest(ctx, http.MethodGet, "/cart/coupon/remove", nil, cred, nil, nil); err != nil {
		return fmt.Errorf("failed to remove coupon: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request to the cart service and decodes the
// JSON body into out. A non-2xx response whose body still decodes is handed
// back to the caller, since the service reports business failures as
// {"ok": false} with a 4xx status.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, cred Credentials, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachCredentials(req, cred)

	logger.Debug("Commerce request", map[string]interface{}{
		"method":      method,
		"path":        path,
		"customer_id": cred.CustomerID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if out == nil {
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if !ok {
			return fmt.Errorf("%w: %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(raw, 256))
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if !ok {
		logger.Debug("Commerce request rejected", map[string]interface{}{
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
		})
	}
	return nil
}

func (c *Client) attachCredentials(req *http.Request, cred Credentials) {
	if cred.SessionID != "" {
		req.AddCookie(&http.Cookie{Name: c.config.SessionCookie, Value: cred.SessionID})
	}
	if cred.CustomerID != 0 {
		req.AddCookie(&http.Cookie{
			Name:  c.config.CustomerCookie,
			Value: strconv.FormatUint(uint64(cred.CustomerID), 10),
		})
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
