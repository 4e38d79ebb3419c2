package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/beanline/storefront/internal/db"
	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/internal/stub/repository"
	"github.com/beanline/storefront/pkg/commerce"
)

type commerceFixture struct {
	service  *commerceService
	db       *gorm.DB
	beans    model.Product
	variable model.Product
	monthly  model.Product
}

func setupCommerceServiceTest(t *testing.T) *commerceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	productRepo := repository.NewProductRepository(testDB)
	svc := NewCommerceService(
		productRepo,
		repository.NewCartLineRepository(testDB),
		repository.NewCouponRepository(testDB),
	).(*commerceService)

	f := &commerceFixture{service: svc, db: testDB}

	f.beans = model.Product{
		Name:          "Colombia Huila",
		SKU:           "COL",
		RegularPrice:  decimal.RequireFromString("14.50"),
		SalePrice:     decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
		ManageStock:   true,
		StockQuantity: 5,
	}
	f.variable = model.Product{
		Name:         "Ethiopia",
		SKU:          "ETH",
		RegularPrice: decimal.RequireFromString("16"),
		Variations: []model.Variation{
			{
				SKU: "ETH-250",
				Attributes: []model.VariationAttribute{
					{Position: 0, Name: "weight", Value: "250g"},
					{Position: 1, Name: "grind", Value: "filter"},
				},
			},
			{
				SKU:   "ETH-1KG",
				Price: decimal.NewNullDecimal(decimal.RequireFromString("54")),
			},
		},
	}
	f.monthly = model.Product{
		Name:         "Monthly",
		SKU:          "SUB",
		RegularPrice: decimal.RequireFromString("30"),
		Subscription: true,
	}
	for _, p := range []*model.Product{&f.beans, &f.variable, &f.monthly} {
		require.NoError(t, productRepo.Create(p))
	}
	return f
}

func (f *commerceFixture) cart(t *testing.T, owner string) *commerce.Cart {
	t.Helper()
	cart, err := f.service.GetCart(owner)
	require.NoError(t, err)
	return cart
}

func add(productID uint, quantity int) commerce.AddItemRequest {
	return commerce.AddItemRequest{ProductID: int64(productID), Quantity: quantity}
}

func TestCommerceService_AddItem_CreatesAndMerges(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)

	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, 2)))
	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, 1)))

	cart := f.cart(t, owner)
	require.Len(t, cart.Products, 1)
	line := cart.Products[0]
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, "Colombia Huila", line.Name)
	assert.True(t, line.Price.Amount.Equal(decimal.RequireFromString("12.5")), "sale price wins")
}

func TestCommerceService_AddItem_VariationsAreSeparateLines(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)
	small, large := f.variable.Variations[0], f.variable.Variations[1]

	req := add(f.variable.ID, 1)
	req.VariationID = int64(small.ID)
	require.NoError(t, f.service.AddItem(owner, req))
	req.VariationID = int64(large.ID)
	require.NoError(t, f.service.AddItem(owner, req))

	cart := f.cart(t, owner)
	require.Len(t, cart.Products, 2)
	assert.True(t, cart.Products[0].Price.Amount.Equal(decimal.NewFromInt(16)))
	assert.Equal(t, commerce.Attributes{{Name: "weight", Value: "250g"}, {Name: "grind", Value: "filter"}}, cart.Products[0].Attributes)
	assert.True(t, cart.Products[1].Price.Amount.Equal(decimal.NewFromInt(54)))
}

func TestCommerceService_AddItem_DecrementToZeroRemoves(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)

	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, 2)))
	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, -1)))
	assert.Equal(t, 1, f.cart(t, owner).Products[0].Quantity)

	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, -3)))
	assert.Empty(t, f.cart(t, owner).Products)
}

func TestCommerceService_AddItem_Errors(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)

	tests := []struct {
		name    string
		owner   string
		req     commerce.AddItemRequest
		wantErr error
	}{
		{name: "missing owner", owner: "", req: add(f.beans.ID, 1), wantErr: ErrMissingOwner},
		{name: "zero quantity", owner: owner, req: add(f.beans.ID, 0), wantErr: ErrInvalidQuantity},
		{name: "bad product id", owner: owner, req: commerce.AddItemRequest{ProductID: -1, Quantity: 1}, wantErr: ErrInvalidProduct},
		{name: "unknown product", owner: owner, req: add(9999, 1), wantErr: ErrProductNotFound},
		{name: "unknown variation", owner: owner, req: commerce.AddItemRequest{ProductID: int64(f.variable.ID), VariationID: 9999, Quantity: 1}, wantErr: ErrVariationNotFound},
		{name: "decrement of absent line", owner: owner, req: add(f.beans.ID, -1), wantErr: ErrLineNotFound},
		{name: "over stock", owner: owner, req: add(f.beans.ID, 6), wantErr: ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.AddItem(tt.owner, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.cart(t, owner).Products)
}

func TestCommerceService_AddItem_StockCountsExistingLine(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)

	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, 4)))
	assert.ErrorIs(t, f.service.AddItem(owner, add(f.beans.ID, 2)), ErrInsufficientStock)
	assert.Equal(t, 4, f.cart(t, owner).Products[0].Quantity)
}

func TestCommerceService_AddItem_KeepsRequestedMetadata(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)

	req := add(f.beans.ID, 1)
	req.Name = "Huila (gift)"
	req.Attributes = commerce.Attributes{{Name: "note", Value: "happy birthday"}, {Name: "", Value: "dropped"}}
	require.NoError(t, f.service.AddItem(owner, req))

	line := f.cart(t, owner).Products[0]
	assert.Equal(t, "Huila (gift)", line.Name)
	assert.Equal(t, commerce.Attributes{{Name: "note", Value: "happy birthday"}}, line.Attributes)
}

func TestCommerceService_GetCart_SplitsSubscriptions(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)

	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, 1)))
	require.NoError(t, f.service.AddItem(owner, add(f.monthly.ID, 1)))

	cart := f.cart(t, owner)
	require.Len(t, cart.Products, 1)
	require.Len(t, cart.SubscriptionProducts, 1)
	assert.Equal(t, int64(f.monthly.ID), cart.SubscriptionProducts[0].ProductID)
}

func TestCommerceService_CartsAreIsolatedByOwner(t *testing.T) {
	f := setupCommerceServiceTest(t)
	anonymous := model.OwnerKey("abc", 0)
	customer := model.OwnerKey("abc", 7)

	require.NoError(t, f.service.AddItem(anonymous, add(f.beans.ID, 1)))

	assert.Len(t, f.cart(t, anonymous).Products, 1)
	assert.Empty(t, f.cart(t, customer).Products)
	assert.Equal(t, "customer:7", customer)
}

func TestCommerceService_RemoveItem(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)
	small := f.variable.Variations[0]

	req := add(f.variable.ID, 1)
	req.VariationID = int64(small.ID)
	require.NoError(t, f.service.AddItem(owner, req))
	require.NoError(t, f.service.AddItem(owner, add(f.beans.ID, 1)))

	assert.ErrorIs(t, f.service.RemoveItem(owner, f.variable.ID, 0), ErrLineNotFound)
	require.NoError(t, f.service.RemoveItem(owner, f.variable.ID, small.ID))

	cart := f.cart(t, owner)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, int64(f.beans.ID), cart.Products[0].ProductID)

	var orphans int64
	require.NoError(t, f.db.Model(&model.CartLineAttribute{}).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestCommerceService_ApplyCoupon(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)
	couponRepo := repository.NewCouponRepository(f.db)

	yesterday := time.Now().Add(-24 * time.Hour)
	require.NoError(t, couponRepo.Create(&model.Coupon{Code: "WELCOME10", DiscountType: model.DiscountPercent, Amount: decimal.NewFromInt(10), Enabled: true}))
	require.NoError(t, couponRepo.Create(&model.Coupon{Code: "old", DiscountType: model.DiscountPercent, Amount: decimal.NewFromInt(20), Enabled: true, ExpiresAt: &yesterday}))
	require.NoError(t, couponRepo.Create(&model.Coupon{Code: "off", DiscountType: model.DiscountFixedCart, Amount: decimal.NewFromInt(5), Enabled: true}))
	require.NoError(t, f.db.Model(&model.Coupon{}).Where("code = ?", "off").UpdateColumn("enabled", false).Error)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{name: "case insensitive", code: "  Welcome10 ", wantErr: nil},
		{name: "blank", code: " ", wantErr: ErrCouponNotFound},
		{name: "unknown", code: "nope", wantErr: ErrCouponNotFound},
		{name: "expired", code: "OLD", wantErr: ErrCouponExpired},
		{name: "disabled", code: "off", wantErr: ErrCouponDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupon, err := f.service.ApplyCoupon(owner, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, coupon)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "welcome10", coupon.Code)
			assert.Equal(t, model.DiscountPercent, coupon.DiscountType)
		})
	}

	applied, err := couponRepo.FindApplied(owner)
	require.NoError(t, err)
	assert.Equal(t, "welcome10", applied.Code)

	require.NoError(t, f.service.RemoveCoupon(owner))
	_, err = couponRepo.FindApplied(owner)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommerceService_ApplyCoupon_Replaces(t *testing.T) {
	f := setupCommerceServiceTest(t)
	owner := model.OwnerKey("abc", 0)
	couponRepo := repository.NewCouponRepository(f.db)

	require.NoError(t, couponRepo.Create(&model.Coupon{Code: "a", DiscountType: model.DiscountPercent, Amount: decimal.NewFromInt(10), Enabled: true}))
	require.NoError(t, couponRepo.Create(&model.Coupon{Code: "b", DiscountType: model.DiscountFixedCart, Amount: decimal.NewFromInt(5), Enabled: true}))

	_, err := f.service.ApplyCoupon(owner, "a")
	require.NoError(t, err)
	_, err = f.service.ApplyCoupon(owner, "b")
	require.NoError(t, err)

	applied, err := couponRepo.FindApplied(owner)
	require.NoError(t, err)
	assert.Equal(t, "b", applied.Code)

	var rows int64
	require.NoError(t, f.db.Model(&model.AppliedCoupon{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
