package commerce

import "time"

// Config represents the configuration for the remote cart service client
type Config struct {
	// BaseURL is the cart API root, e.g. https://shop.example.com/api
	BaseURL string

	// Timeout bounds every request; zero means 10s
	Timeout time.Duration

	// SessionCookie carries the anonymous cart session id
	SessionCookie string

	// CustomerCookie carries the logged-in customer id, when there is one
	CustomerCookie string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.SessionCookie == "" {
		return ErrInvalidConfig
	}
	if c.CustomerCookie == "" {
		return ErrInvalidConfig
	}
	return nil
}
