package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanline/storefront/internal/app/service"
	"github.com/beanline/storefront/internal/cart"
	apperrors "github.com/beanline/storefront/internal/errors"
	"github.com/beanline/storefront/internal/middleware"
	"github.com/beanline/storefront/internal/session"
	"github.com/beanline/storefront/internal/websocket"
	"github.com/beanline/storefront/pkg/money"
	"github.com/beanline/storefront/pkg/util"
)

const testJWTSecret = "controller-test-secret"

// scriptedRemote serves one shared cart and fails whatever it is told to.
type scriptedRemote struct {
	mu        sync.Mutex
	items     []cart.Item
	addErr    error
	fetchErr  error
	coupon    *cart.Coupon
	customers []uint
}

func (r *scriptedRemote) FetchCart(ctx context.Context, id cart.Identity) ([]cart.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers = append(r.customers, id.CustomerID)
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return append([]cart.Item(nil), r.items...), nil
}

func (r *scriptedRemote) AddItem(ctx context.Context, id cart.Identity, req cart.AddRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	for i := range r.items {
		if r.items[i].ProductID == req.ProductID && r.items[i].VariationID == req.Extra.VariationID {
			r.items[i].Quantity += req.Quantity
			return nil
		}
	}
	r.items = append(r.items, cart.Item{
		ProductID:   req.ProductID,
		VariationID: req.Extra.VariationID,
		Quantity:    req.Quantity,
		UnitPrice:   decimal.NewFromInt(20),
		Name:        req.Extra.Name,
	})
	return nil
}

func (r *scriptedRemote) RemoveItem(ctx context.Context, id cart.Identity, key cart.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, item := range r.items {
		if item.Key() != key {
			kept = append(kept, item)
		}
	}
	r.items = kept
	return nil
}

func (r *scriptedRemote) ApplyCoupon(ctx context.Context, id cart.Identity, code string) (*cart.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coupon == nil || r.coupon.Code != code {
		return nil, &cart.RejectedError{Message: "Coupon \"" + code + "\" does not exist"}
	}
	c := *r.coupon
	return &c, nil
}

func (r *scriptedRemote) RemoveCoupon(ctx context.Context, id cart.Identity) error {
	return nil
}

type cartControllerHarness struct {
	router   *gin.Engine
	remote   *scriptedRemote
	registry *session.Registry
	hub      *websocket.Hub
	cookie   *http.Cookie
}

func setupCartControllerTest(t *testing.T) *cartControllerHarness {
	gin.SetMode(gin.TestMode)

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	formatter := money.NewFormatter(money.Config{Symbol: "$", Precision: 2})
	remote := &scriptedRemote{}
	registry := session.NewRegistry(remote, service.NewHubPublisher(hub, formatter))
	t.Cleanup(registry.CloseAll)

	cartService := service.NewCartService(registry)
	ctrl := NewCartController(cartService, formatter, hub, websocket.NewUpgrader([]string{"*"}))
	auth := middleware.NewAuthMiddleware(testJWTSecret, nil)

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.NewSessionMiddleware("test-session", "secret", time.Hour, false).Handle())
	group := router.Group("/cart", auth.OptionalAuthenticate())
	group.GET("", ctrl.GetCart)
	group.POST("/refresh", ctrl.RefreshCart)
	group.POST("/items", ctrl.AddToCart)
	group.DELETE("/items/:product_id", ctrl.RemoveFromCart)
	group.POST("/coupon", ctrl.ApplyCoupon)
	group.DELETE("/coupon", ctrl.RemoveCoupon)
	group.GET("/ws", ctrl.Stream)

	return &cartControllerHarness{router: router, remote: remote, registry: registry, hub: hub}
}

func (h *cartControllerHarness) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "test-session" {
			h.cookie = c
		}
	}

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func cartOf(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	c, ok := resp["cart"].(map[string]interface{})
	require.True(t, ok, "response has a cart: %v", resp)
	return c
}

func totalOf(t *testing.T, resp map[string]interface{}) string {
	totals := cartOf(t, resp)["totals"].(map[string]interface{})
	return totals["total_formatted"].(string)
}

func TestCartController_GetCart_NewSession(t *testing.T) {
	h := setupCartControllerTest(t)

	w, resp := h.do(t, http.MethodGet, "/cart", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cartOf(t, resp)["items"])
	assert.Equal(t, "$0.00", totalOf(t, resp))
	require.NotNil(t, h.cookie)
	assert.Equal(t, 1, h.registry.Len())
}

func TestCartController_AddAndRemove(t *testing.T) {
	h := setupCartControllerTest(t)

	w, resp := h.do(t, http.MethodPost, "/cart/items", gin.H{"product_id": 3, "quantity": 2, "name": "Colombia"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := cartOf(t, resp)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "$40.00", totalOf(t, resp))

	w, resp = h.do(t, http.MethodPost, "/cart/items", gin.H{"product_id": 3}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$60.00", totalOf(t, resp), "quantity defaults to one")

	w, resp = h.do(t, http.MethodDelete, "/cart/items/3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cartOf(t, resp)["items"])
}

func TestCartController_AddToCart_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		addErr     error
		wantStatus int
		wantCode   string
	}{
		{"missing product", gin.H{"quantity": 1}, nil, http.StatusBadRequest, apperrors.ValidationInvalidInput},
		{"zero quantity", gin.H{"product_id": 1, "quantity": 0}, nil, http.StatusBadRequest, apperrors.CartInvalidQuantity},
		{"rejected", gin.H{"product_id": 1}, &cart.RejectedError{Message: "Sold out"}, http.StatusUnprocessableEntity, apperrors.CartRejected},
		{"service down", gin.H{"product_id": 1}, cart.ErrNetwork, http.StatusBadGateway, apperrors.UpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupCartControllerTest(t)
			h.remote.addErr = tt.addErr

			w, resp := h.do(t, http.MethodPost, "/cart/items", tt.body, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, resp["error"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestCartController_AddToCart_ReportsInvalidFields(t *testing.T) {
	h := setupCartControllerTest(t)

	w, resp := h.do(t, http.MethodPost, "/cart/items", gin.H{"product_id": 1, "variation_id": -4}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidInput, resp["error"])
	assert.Equal(t, map[string]interface{}{"variation_id": "must be at least 0"}, resp["fields"])
	assert.Empty(t, h.remote.items)
}

func TestCartController_RejectedAddReturnsRolledBackCart(t *testing.T) {
	h := setupCartControllerTest(t)
	h.remote.items = []cart.Item{{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	h.remote.addErr = &cart.RejectedError{Message: "Only 2 left"}

	w, resp := h.do(t, http.MethodPost, "/cart/items", gin.H{"product_id": 1, "quantity": 1}, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Only 2 left", resp["message"])
	items := cartOf(t, resp)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]interface{})["quantity"])
}

func TestCartController_RemoveFromCart_InvalidIDs(t *testing.T) {
	h := setupCartControllerTest(t)

	w, _ := h.do(t, http.MethodDelete, "/cart/items/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(t, http.MethodDelete, "/cart/items/1?variation_id=x", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartController_Coupon(t *testing.T) {
	h := setupCartControllerTest(t)
	h.remote.items = []cart.Item{{ProductID: 1, Quantity: 5, UnitPrice: decimal.NewFromInt(20)}}
	h.remote.coupon = &cart.Coupon{Code: "FLAT150", DiscountType: cart.DiscountFixedCart, Amount: decimal.NewFromInt(150)}

	w, resp := h.do(t, http.MethodPost, "/cart/coupon", gin.H{"code": "FLAT150"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$0.00", totalOf(t, resp))

	w, resp = h.do(t, http.MethodPost, "/cart/coupon", gin.H{"code": "NOPE"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperrors.CouponRejected, resp["error"])
	assert.Equal(t, "$0.00", totalOf(t, resp), "a failed apply keeps the current coupon")

	w, resp = h.do(t, http.MethodPost, "/cart/coupon", gin.H{"code": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CouponInvalid, resp["error"])

	w, resp = h.do(t, http.MethodDelete, "/cart/coupon", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, cartOf(t, resp)["coupon"])
	assert.Equal(t, "$100.00", totalOf(t, resp))
}

func TestCartController_RefreshFailureEmptiesCart(t *testing.T) {
	h := setupCartControllerTest(t)
	h.remote.items = []cart.Item{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(20)}}
	h.do(t, http.MethodGet, "/cart", nil, "")

	h.remote.fetchErr = cart.ErrMalformed
	w, resp := h.do(t, http.MethodPost, "/cart/refresh", nil, "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, apperrors.UpstreamMalformed, resp["error"])
	assert.Empty(t, cartOf(t, resp)["items"])
}

func TestCartController_LoginSwitchesIdentity(t *testing.T) {
	h := setupCartControllerTest(t)
	tokens, err := util.GenerateTokenPair(12, "c@example.com", testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	h.do(t, http.MethodGet, "/cart", nil, "")
	w, resp := h.do(t, http.MethodGet, "/cart", nil, tokens.AccessToken)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, cartOf(t, resp)["logged_in"])
	h.remote.mu.Lock()
	defer h.remote.mu.Unlock()
	assert.Equal(t, []uint{0, 12}, h.remote.customers)
}

func TestCartController_Stream(t *testing.T) {
	h := setupCartControllerTest(t)
	h.remote.items = []cart.Item{{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	w, _ := h.do(t, http.MethodGet, "/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	server := httptest.NewServer(h.router)
	t.Cleanup(server.Close)
	header := http.Header{"Cookie": {h.cookie.Name + "=" + h.cookie.Value}}
	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/cart/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	readCart := func() map[string]interface{} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event map[string]interface{}
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, "cart", event["type"])
		return event
	}

	assert.Equal(t, "$20.00", totalOf(t, readCart()))

	w, _ = h.do(t, http.MethodPost, "/cart/items", gin.H{"product_id": 1}, "")
	require.Equal(t, http.StatusOK, w.Code)

	// the add publishes loading, optimistic and confirmed states
	for i := 0; ; i++ {
		require.Less(t, i, 6, "no snapshot carried the added item")
		if totalOf(t, readCart()) == "$30.00" {
			break
		}
	}
}
