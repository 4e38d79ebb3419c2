package cart

import (
	"errors"
)

var (
	// ErrNetwork covers transport failures and timeouts talking to the service
	ErrNetwork = errors.New("cart service unreachable")

	// ErrRejected means the service answered ok:false / success:false
	ErrRejected = errors.New("rejected by cart service")

	// ErrMalformed means the service answered with something undecodable
	ErrMalformed = errors.New("malformed cart service response")

	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidCoupon   = errors.New("invalid coupon code")

	// ErrClosed is returned by every operation on a disposed store
	ErrClosed = errors.New("cart store closed")
)

// RejectedError carries the service's user-facing message for a rejected
// mutation. It matches ErrRejected under errors.Is.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Message
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Result is what every store operation hands back. Expected failures are
// reported here rather than as panics or bare errors; Err wraps one of the
// package sentinels and Message is safe to show to the shopper.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func success() Result {
	return Result{OK: true}
}

func failure(err error) Result {
	return Result{OK: false, Message: messageFor(err), Err: err}
}

func messageFor(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	switch {
	case errors.Is(err, ErrRejected):
		return "The cart could not be updated"
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be a non-zero whole number"
	case errors.Is(err, ErrInvalidCoupon):
		return "Please enter a coupon code"
	case errors.Is(err, ErrClosed):
		return "Your cart session has ended"
	default:
		return "We couldn't reach the shop. Please try again"
	}
}
