package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"

	"github.com/beanline/storefront/internal/app/service"
	"github.com/beanline/storefront/internal/cart"
	apperrors "github.com/beanline/storefront/internal/errors"
	"github.com/beanline/storefront/internal/middleware"
	"github.com/beanline/storefront/internal/websocket"
	"github.com/beanline/storefront/pkg/money"
)

type CartController struct {
	cartService service.CartService
	formatter   *money.Formatter
	hub         *websocket.Hub
	upgrader    *gws.Upgrader
}

func NewCartController(cartService service.CartService, formatter *money.Formatter, hub *websocket.Hub, upgrader *gws.Upgrader) *CartController {
	return &CartController{
		cartService: cartService,
		formatter:   formatter,
		hub:         hub,
		upgrader:    upgrader,
	}
}

type AddToCartRequest struct {
	ProductID    int64            `json:"product_id" binding:"required,gt=0"`
	VariationID  int64            `json:"variation_id" binding:"gte=0"`
	Quantity     *int             `json:"quantity"`
	Name         string           `json:"name"`
	ImageURL     string           `json:"image_url"`
	Description  string           `json:"description"`
	Attributes   []cart.Attribute `json:"attributes"`
	Subscription bool             `json:"subscription"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// CartErrorResponse is the error envelope plus the cart as it stands after
// the failed operation, so the browser can re-render without a second call.
type CartErrorResponse struct {
	apperrors.ErrorResponse
	Cart service.CartView `json:"cart"`
}

// identity reads the session and customer set by the middleware chain.
func identity(c *gin.Context) (string, uint, bool) {
	sid, ok := middleware.GetSessionID(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.SessionMissing, "Your browser session is missing. Please reload the page")
		return "", 0, false
	}
	customerID, _ := middleware.GetCustomerID(c)
	return sid, customerID, true
}

func (ctrl *CartController) respond(c *gin.Context, snap cart.Snapshot, res cart.Result, context string) {
	view := service.NewCartView(snap, ctrl.formatter)
	if res.OK {
		c.JSON(http.StatusOK, gin.H{"cart": view})
		return
	}

	status, info := apperrors.ParseCartError(res.Err, res.Message, context)
	log := middleware.GetLoggerFromContext(c)
	fields := map[string]interface{}{
		"code":   info.Code,
		"status": status,
	}
	if res.Err != nil {
		fields["error"] = res.Err.Error()
	}
	log.Info("Cart operation failed", fields)

	c.JSON(status, CartErrorResponse{
		ErrorResponse: apperrors.ErrorResponse{Error: info.Code, Message: info.Message},
		Cart:          view,
	})
}

// GetCart returns the session's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	sid, customerID, ok := identity(c)
	if !ok {
		return
	}
	snap := ctrl.cartService.GetCart(c.Request.Context(), sid, customerID)
	c.JSON(http.StatusOK, gin.H{"cart": service.NewCartView(snap, ctrl.formatter)})
}

// RefreshCart reloads the cart from the cart service
// POST /api/v1/cart/refresh
func (ctrl *CartController) RefreshCart(c *gin.Context) {
	sid, customerID, ok := identity(c)
	if !ok {
		return
	}
	snap, res := ctrl.cartService.Refresh(c.Request.Context(), sid, customerID)
	ctrl.respond(c, snap, res, "cart")
}

// AddToCart adds a product or adjusts its quantity by a signed delta
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sid, customerID, ok := identity(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, apperrors.BindingFields(err))
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	snap, res := ctrl.cartService.AddItem(c.Request.Context(), sid, customerID, service.AddItemInput{
		ProductID:    req.ProductID,
		VariationID:  req.VariationID,
		Quantity:     quantity,
		Name:         req.Name,
		ImageURL:     req.ImageURL,
		Description:  req.Description,
		Attributes:   req.Attributes,
		Subscription: req.Subscription,
	})
	ctrl.respond(c, snap, res, "cart")
}

// RemoveFromCart deletes a whole line
// DELETE /api/v1/cart/items/:product_id?variation_id=
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	sid, customerID, ok := identity(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}
	var variationID int64
	if v := c.Query("variation_id"); v != "" {
		variationID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || variationID < 0 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid variation ID")
			return
		}
	}

	snap, res := ctrl.cartService.RemoveItem(c.Request.Context(), sid, customerID, productID, variationID)
	ctrl.respond(c, snap, res, "cart")
}

// ApplyCoupon replaces the applied coupon
// POST /api/v1/cart/coupon
func (ctrl *CartController) ApplyCoupon(c *gin.Context) {
	sid, customerID, ok := identity(c)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, apperrors.BindingFields(err))
		return
	}

	snap, res := ctrl.cartService.ApplyCoupon(c.Request.Context(), sid, customerID, req.Code)
	ctrl.respond(c, snap, res, "coupon")
}

// RemoveCoupon clears the applied coupon
// DELETE /api/v1/cart/coupon
func (ctrl *CartController) RemoveCoupon(c *gin.Context) {
	sid, customerID, ok := identity(c)
	if !ok {
		return
	}
	snap, res := ctrl.cartService.RemoveCoupon(c.Request.Context(), sid, customerID)
	ctrl.respond(c, snap, res, "coupon")
}

// Stream upgrades to a websocket that receives the cart on every change
// GET /api/v1/cart/ws
func (ctrl *CartController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sid, customerID, ok := identity(c)
	if !ok {
		return
	}

	// load the store and settle its identity before the socket attaches
	ctrl.cartService.GetCart(c.Request.Context(), sid, customerID)
	initial := func() interface{} {
		return service.CartEvent{Type: "cart", Cart: service.NewCartView(ctrl.cartService.Current(sid), ctrl.formatter)}
	}

	if err := websocket.Serve(ctrl.hub, ctrl.upgrader, c.Writer, c.Request, sid, initial); err != nil {
		// Upgrade has already written the HTTP error
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
