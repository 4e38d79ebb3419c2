package commerce

import "errors"

var (
	// ErrInvalidConfig is returned by NewClient for an incomplete Config
	ErrInvalidConfig = errors.New("invalid commerce client config")

	// ErrNetworkError is returned when the request never produced a response
	ErrNetworkError = errors.New("network error")

	// ErrUnexpectedStatus is returned for non-2xx responses without a decodable body
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrMalformedResponse is returned when the response body is not the expected JSON
	ErrMalformedResponse = errors.New("malformed response")
)
