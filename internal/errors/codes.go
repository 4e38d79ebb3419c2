package errors

// Error codes returned in the "error" field of every failure response.
// Format: CATEGORY_SPECIFIC_DETAIL. The frontend maps them to copy.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked = "AUTH_TOKEN_REVOKED"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Session (SESSION_) ====================
	SessionMissing = "SESSION_MISSING"
	SessionClosed  = "SESSION_CLOSED"

	// ==================== Cart (CART_) ====================
	CartInvalidQuantity = "CART_INVALID_QUANTITY"
	CartRejected        = "CART_REJECTED"
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartOutOfStock      = "CART_OUT_OF_STOCK"

	// ==================== Coupon (COUPON_) ====================
	CouponInvalid  = "COUPON_INVALID"
	CouponRejected = "COUPON_REJECTED"
	CouponNotFound = "COUPON_NOT_FOUND"
	CouponExpired  = "COUPON_EXPIRED"

	// ==================== Upstream (UPSTREAM_) ====================
	UpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	UpstreamMalformed   = "UPSTREAM_MALFORMED"

	// ==================== Server (SERVER_) ====================
	InternalServerError = "SERVER_INTERNAL_ERROR"
	DatabaseError       = "SERVER_DATABASE_ERROR"
)
