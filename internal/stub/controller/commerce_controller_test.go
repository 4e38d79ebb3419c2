package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/beanline/storefront/internal/db"
	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/internal/stub/repository"
	"github.com/beanline/storefront/internal/stub/service"
	"github.com/beanline/storefront/pkg/commerce"
)

type stubHarness struct {
	router  *gin.Engine
	product model.Product
	monthly model.Product
}

func setupCommerceControllerTest(t *testing.T) *stubHarness {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	productRepo := repository.NewProductRepository(testDB)
	couponRepo := repository.NewCouponRepository(testDB)
	svc := service.NewCommerceService(productRepo, repository.NewCartLineRepository(testDB), couponRepo)

	h := &stubHarness{
		product: model.Product{Name: "House Espresso", SKU: "HOUSE", RegularPrice: decimal.RequireFromString("13.00")},
		monthly: model.Product{Name: "Monthly", SKU: "SUB", RegularPrice: decimal.RequireFromString("30"), Subscription: true},
	}
	require.NoError(t, productRepo.Create(&h.product))
	require.NoError(t, productRepo.Create(&h.monthly))
	require.NoError(t, couponRepo.Create(&model.Coupon{Code: "beans5", DiscountType: model.DiscountFixedCart, Amount: decimal.NewFromInt(5), Enabled: true}))

	h.router = gin.New()
	NewCommerceController(svc, "cart_session", "cart_customer").RegisterRoutes(h.router)
	return h
}

func (h *stubHarness) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

var session = &http.Cookie{Name: "cart_session", Value: "s-1"}

func TestCommerceController_CartRoundTrip(t *testing.T) {
	h := setupCommerceControllerTest(t)

	w := h.do(t, http.MethodPost, "/cart/items", commerce.AddItemRequest{ProductID: int64(h.product.ID), Quantity: 2}, session)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodPost, "/cart/items", commerce.AddItemRequest{ProductID: int64(h.monthly.ID), Quantity: 1}, session)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/cart", nil, session)
	require.Equal(t, http.StatusOK, w.Code)

	var resp commerce.CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Cart)
	require.Len(t, resp.Cart.Products, 1)
	assert.Equal(t, 2, resp.Cart.Products[0].Quantity)
	assert.True(t, resp.Cart.Products[0].Price.Amount.Equal(decimal.NewFromInt(13)))
	assert.Len(t, resp.Cart.SubscriptionProducts, 1)
	assert.Contains(t, w.Body.String(), `"finalPrice"`)

	w = h.do(t, http.MethodDelete, "/cart/items", commerce.RemoveItemRequest{ProductID: int64(h.product.ID)}, session)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/cart", nil, session)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Cart.Products)
}

func TestCommerceController_CustomerCookieSelectsCart(t *testing.T) {
	h := setupCommerceControllerTest(t)
	customer := &http.Cookie{Name: "cart_customer", Value: "42"}

	w := h.do(t, http.MethodPost, "/cart/items", commerce.AddItemRequest{ProductID: int64(h.product.ID), Quantity: 1}, session, customer)
	require.Equal(t, http.StatusOK, w.Code)

	var resp commerce.CartResponse
	w = h.do(t, http.MethodGet, "/cart", nil, session)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Cart.Products)

	w = h.do(t, http.MethodGet, "/cart", nil, &http.Cookie{Name: "cart_session", Value: "other"}, customer)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Cart.Products, 1)
}

func TestCommerceController_MutationFailures(t *testing.T) {
	h := setupCommerceControllerTest(t)

	tests := []struct {
		name       string
		method     string
		body       interface{}
		cookies    []*http.Cookie
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing session",
			method:     http.MethodPost,
			body:       commerce.AddItemRequest{ProductID: int64(h.product.ID), Quantity: 1},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing cart session",
		},
		{
			name:       "zero quantity",
			method:     http.MethodPost,
			body:       commerce.AddItemRequest{ProductID: int64(h.product.ID)},
			cookies:    []*http.Cookie{session},
			wantStatus: http.StatusBadRequest,
			wantError:  "Quantity must not be zero",
		},
		{
			name:       "unknown product",
			method:     http.MethodPost,
			body:       commerce.AddItemRequest{ProductID: 999, Quantity: 1},
			cookies:    []*http.Cookie{session},
			wantStatus: http.StatusNotFound,
			wantError:  "Product not found",
		},
		{
			name:       "remove absent line",
			method:     http.MethodDelete,
			body:       commerce.RemoveItemRequest{ProductID: int64(h.product.ID)},
			cookies:    []*http.Cookie{session},
			wantStatus: http.StatusNotFound,
			wantError:  "Product is not in the cart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, tt.method, "/cart/items", tt.body, tt.cookies...)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp commerce.MutationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.OK)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestCommerceController_Coupon(t *testing.T) {
	h := setupCommerceControllerTest(t)

	w := h.do(t, http.MethodGet, "/cart/coupon?code=BEANS5", nil, session)
	require.Equal(t, http.StatusOK, w.Code)

	var resp commerce.CouponResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Coupon)
	assert.Equal(t, "beans5", resp.Coupon.Code)
	assert.Equal(t, commerce.DiscountFixedCart, resp.Coupon.DiscountType)
	assert.True(t, resp.Coupon.Amount.Equal(decimal.NewFromInt(5)))

	w = h.do(t, http.MethodGet, "/cart/coupon?code=nope", nil, session)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp = commerce.CouponResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Coupon not found", resp.Message)

	w = h.do(t, http.MethodGet, "/cart/coupon/remove", nil, session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestCommerceController_ListProducts(t *testing.T) {
	h := setupCommerceControllerTest(t)

	w := h.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Products []model.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 2)
}

// brokenService fails every call with err, the way a repository error
// escapes the service unclassified.
type brokenService struct {
	service.CommerceService
	err error
}

func (b brokenService) ListProducts() ([]model.Product, error) { return nil, b.err }
func (b brokenService) GetCart(string) (*commerce.Cart, error) { return nil, b.err }
func (b brokenService) ApplyCoupon(string, string) (*model.Coupon, error) { return nil, b.err }

func TestCommerceController_PersistenceFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"cart not found", "/cart", fmt.Errorf("owner lookup: %w", gorm.ErrRecordNotFound), http.StatusNotFound, "That item is not in the cart"},
		{"coupon not found", "/cart/coupon?code=x", gorm.ErrRecordNotFound, http.StatusNotFound, "Coupon not found"},
		{"duplicate line", "/cart", errors.New("UNIQUE constraint failed: cart_lines.owner_key"), http.StatusConflict, "That record already exists"},
		{"database down", "/products", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "The database is unavailable. Please try again shortly"},
		{"driver detail hidden", "/cart", errors.New("pq: relation cart_lines does not exist"), http.StatusInternalServerError, "Something went wrong. Please try again shortly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			NewCommerceController(brokenService{err: tt.err}, "cart_session", "cart_customer").RegisterRoutes(router)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.AddCookie(session)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error+resp.Message)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}
