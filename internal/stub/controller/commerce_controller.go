package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/beanline/storefront/internal/errors"
	"github.com/beanline/storefront/internal/middleware"
	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/internal/stub/service"
	"github.com/beanline/storefront/pkg/commerce"
)

// CommerceController serves the remote cart contract the storefront's
// commerce client speaks. Carts are keyed by cookies; the customer cookie is
// trusted as-is, which is only acceptable for a development backend.
type CommerceController struct {
	commerceService service.CommerceService
	sessionCookie   string
	customerCookie  string
}

func NewCommerceController(commerceService service.CommerceService, sessionCookie, customerCookie string) *CommerceController {
	return &CommerceController{
		commerceService: commerceService,
		sessionCookie:   sessionCookie,
		customerCookie:  customerCookie,
	}
}

func (ctrl *CommerceController) RegisterRoutes(r gin.IRouter) {
	r.GET("/products", ctrl.ListProducts)

	cart := r.Group("/cart")
	{
		cart.GET("", ctrl.GetCart)
		cart.POST("/items", ctrl.AddItem)
		cart.DELETE("/items", ctrl.RemoveItem)
		cart.GET("/coupon", ctrl.ApplyCoupon)
		cart.GET("/coupon/remove", ctrl.RemoveCoupon)
	}
}

func (ctrl *CommerceController) ownerKey(c *gin.Context) string {
	sessionID, _ := c.Cookie(ctrl.sessionCookie)
	var customerID uint
	if raw, err := c.Cookie(ctrl.customerCookie); err == nil {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			customerID = uint(id)
		}
	}
	return model.OwnerKey(sessionID, customerID)
}

// ListProducts handles GET /products
func (ctrl *CommerceController) ListProducts(c *gin.Context) {
	products, err := ctrl.commerceService.ListProducts()
	if err != nil {
		status, message := persistenceError(c, err, "list products")
		c.JSON(status, commerce.MutationResponse{OK: false, Error: message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetCart handles GET /cart
func (ctrl *CommerceController) GetCart(c *gin.Context) {
	cart, err := ctrl.commerceService.GetCart(ctrl.ownerKey(c))
	if err != nil {
		status, message := ctrl.mutationError(c, err)
		c.JSON(status, commerce.CartResponse{OK: false, Error: message})
		return
	}
	c.JSON(http.StatusOK, commerce.CartResponse{OK: true, Cart: cart})
}

// AddItem handles POST /cart/items
func (ctrl *CommerceController) AddItem(c *gin.Context) {
	var req commerce.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, commerce.MutationResponse{OK: false, Error: "Invalid request body"})
		return
	}

	if err := ctrl.commerceService.AddItem(ctrl.ownerKey(c), req); err != nil {
		status, message := ctrl.mutationError(c, err)
		c.JSON(status, commerce.MutationResponse{OK: false, Error: message})
		return
	}
	c.JSON(http.StatusOK, commerce.MutationResponse{OK: true})
}

// RemoveItem handles DELETE /cart/items
func (ctrl *CommerceController) RemoveItem(c *gin.Context) {
	var req commerce.RemoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID <= 0 || req.VariationID < 0 {
		c.JSON(http.StatusBadRequest, commerce.MutationResponse{OK: false, Error: "Invalid request body"})
		return
	}

	err := ctrl.commerceService.RemoveItem(ctrl.ownerKey(c), uint(req.ProductID), uint(req.VariationID))
	if err != nil {
		status, message := ctrl.mutationError(c, err)
		c.JSON(status, commerce.MutationResponse{OK: false, Error: message})
		return
	}
	c.JSON(http.StatusOK, commerce.MutationResponse{OK: true})
}

// ApplyCoupon handles GET /cart/coupon?code=
func (ctrl *CommerceController) ApplyCoupon(c *gin.Context) {
	coupon, err := ctrl.commerceService.ApplyCoupon(ctrl.ownerKey(c), c.Query("code"))
	if err != nil {
		status, message := ctrl.couponError(c, err)
		c.JSON(status, commerce.CouponResponse{Success: false, Message: message})
		return
	}

	c.JSON(http.StatusOK, commerce.CouponResponse{
		Success: true,
		Coupon: &commerce.Coupon{
			Code:         coupon.Code,
			DiscountType: string(coupon.DiscountType),
			Amount:       coupon.Amount,
		},
	})
}

// RemoveCoupon handles GET /cart/coupon/remove
func (ctrl *CommerceController) RemoveCoupon(c *gin.Context) {
	if err := ctrl.commerceService.RemoveCoupon(ctrl.ownerKey(c)); err != nil {
		status, _ := ctrl.mutationError(c, err)
		c.JSON(status, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (ctrl *CommerceController) mutationError(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingOwner):
		return http.StatusBadRequest, "Missing cart session"
	case errors.Is(err, service.ErrInvalidProduct), errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusBadRequest, capitalize(err.Error())
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrVariationNotFound),
		errors.Is(err, service.ErrLineNotFound):
		return http.StatusNotFound, capitalize(err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, "Not enough stock for this product"
	}

	return persistenceError(c, err, "cart")
}

func (ctrl *CommerceController) couponError(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingOwner):
		return http.StatusBadRequest, "Missing cart session"
	case errors.Is(err, service.ErrCouponNotFound):
		return http.StatusNotFound, "Coupon not found"
	case errors.Is(err, service.ErrCouponDisabled):
		return http.StatusUnprocessableEntity, "This coupon is no longer available"
	case errors.Is(err, service.ErrCouponExpired):
		return http.StatusUnprocessableEntity, "This coupon has expired"
	}

	return persistenceError(c, err, "coupon")
}

// persistenceError logs a failure the service did not classify and maps it
// to a status and a message free of driver details.
func persistenceError(c *gin.Context, err error, context string) (int, string) {
	info := apperrors.ParseError(err, context)
	middleware.GetLoggerFromContext(c).Error("Commerce stub request failed", err, map[string]interface{}{
		"path": c.FullPath(),
		"code": info.Code,
	})

	switch info.Code {
	case apperrors.ResourceNotFound:
		return http.StatusNotFound, info.Message
	case apperrors.ResourceAlreadyExists, apperrors.ResourceConflict:
		return http.StatusConflict, info.Message
	case apperrors.DatabaseError:
		return http.StatusServiceUnavailable, info.Message
	}
	return http.StatusInternalServerError, info.Message
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
