package errors

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/beanline/storefront/internal/cart"
)

// ErrorInfo is a code plus a message safe to show to the shopper.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseCartError maps a failed cart store result onto an HTTP status and
// error code. context is "coupon" for coupon operations and anything else
// for item operations; message is the store's user-facing message.
func ParseCartError(err error, message, context string) (int, ErrorInfo) {
	coupon := strings.EqualFold(context, "coupon")

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, ErrorInfo{Code: CartInvalidQuantity, Message: message}
	case errors.Is(err, cart.ErrInvalidCoupon):
		return http.StatusBadRequest, ErrorInfo{Code: CouponInvalid, Message: message}
	case errors.Is(err, cart.ErrRejected):
		if coupon {
			return http.StatusUnprocessableEntity, ErrorInfo{Code: CouponRejected, Message: message}
		}
		return http.StatusUnprocessableEntity, ErrorInfo{Code: CartRejected, Message: message}
	case errors.Is(err, cart.ErrClosed):
		return http.StatusConflict, ErrorInfo{Code: SessionClosed, Message: message}
	case errors.Is(err, cart.ErrMalformed):
		return http.StatusBadGateway, ErrorInfo{Code: UpstreamMalformed, Message: message}
	default:
		return http.StatusBadGateway, ErrorInfo{Code: UpstreamUnavailable, Message: message}
	}
}

// ParseError turns a persistence error into a user-facing code and message
// without leaking driver details.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}

	lower := strings.ToLower(err.Error())

	// postgres 23505, sqlite "UNIQUE constraint failed"
	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		if strings.Contains(lower, "code") {
			return ErrorInfo{Code: ResourceAlreadyExists, Message: "That coupon code is already taken"}
		}
		if strings.Contains(lower, "sku") {
			return ErrorInfo{Code: ResourceAlreadyExists, Message: "That SKU is already taken"}
		}
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "That record already exists"}
	}

	// postgres 23503
	if strings.Contains(lower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceConflict, Message: "The record is still referenced elsewhere"}
	}

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "timeout") {
		return ErrorInfo{Code: DatabaseError, Message: "The database is unavailable. Please try again shortly"}
	}

	return ErrorInfo{Code: InternalServerError, Message: "Something went wrong. Please try again shortly"}
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "coupon"):
		return "Coupon not found"
	case strings.Contains(lower, "variation"):
		return "That variation does not exist"
	case strings.Contains(lower, "product"):
		return "Product not found"
	case strings.Contains(lower, "cart"):
		return "That item is not in the cart"
	}
	return "The requested record was not found"
}
