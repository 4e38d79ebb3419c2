package service

import (
	"errors"
	"strings"
	"time"

	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/internal/stub/repository"
	"github.com/beanline/storefront/pkg/commerce"
	"github.com/beanline/storefront/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrMissingOwner      = errors.New("missing cart session")
	ErrInvalidProduct    = errors.New("invalid product id")
	ErrInvalidQuantity   = errors.New("quantity must not be zero")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariationNotFound = errors.New("variation not found")
	ErrLineNotFound      = errors.New("product is not in the cart")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponDisabled    = errors.New("coupon is disabled")
	ErrCouponExpired     = errors.New("coupon has expired")
)

// CommerceService is the cart backend the storefront talks to. Carts are
// addressed by owner key (see model.OwnerKey).
type CommerceService interface {
	ListProducts() ([]model.Product, error)
	GetCart(ownerKey string) (*commerce.Cart, error)
	AddItem(ownerKey string, req commerce.AddItemRequest) error
	RemoveItem(ownerKey string, productID, variationID uint) error
	ApplyCoupon(ownerKey, code string) (*model.Coupon, error)
	RemoveCoupon(ownerKey string) error
}

type commerceService struct {
	productRepo  repository.ProductRepository
	cartLineRepo repository.CartLineRepository
	couponRepo   repository.CouponRepository
	now          func() time.Time
}

func NewCommerceService(
	productRepo repository.ProductRepository,
	cartLineRepo repository.CartLineRepository,
	couponRepo repository.CouponRepository,
) CommerceService {
	return &commerceService{
		productRepo:  productRepo,
		cartLineRepo: cartLineRepo,
		couponRepo:   couponRepo,
		now:          time.Now,
	}
}

func (s *commerceService) ListProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

// GetCart renders the owner's lines, splitting subscription products out.
// Lines whose product has since been deleted are skipped.
func (s *commerceService) GetCart(ownerKey string) (*commerce.Cart, error) {
	if ownerKey == "" {
		return nil, ErrMissingOwner
	}

	lines, err := s.cartLineRepo.FindByOwner(ownerKey)
	if err != nil {
		return nil, err
	}

	cart := &commerce.Cart{
		Products:             []commerce.LineItem{},
		SubscriptionProducts: []commerce.LineItem{},
	}
	for _, line := range lines {
		if line.Product.ID == 0 {
			continue
		}
		item, err := s.lineItem(line)
		if err != nil {
			return nil, err
		}
		if line.Product.Subscription {
			cart.SubscriptionProducts = append(cart.SubscriptionProducts, item)
		} else {
			cart.Products = append(cart.Products, item)
		}
	}
	return cart, nil
}

func (s *commerceService) lineItem(line model.CartLine) (commerce.LineItem, error) {
	price := line.Product.FinalPrice()
	if line.VariationID != 0 {
		variation, err := s.productRepo.FindVariation(line.ProductID, line.VariationID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return commerce.LineItem{}, err
		}
		if variation != nil {
			price = variation.PriceFor(line.Product)
		}
	}

	var attrs commerce.Attributes
	for _, a := range line.Attributes {
		attrs = append(attrs, commerce.Attribute{Name: a.Name, Value: a.Value})
	}

	return commerce.LineItem{
		ProductID:   int64(line.ProductID),
		VariationID: int64(line.VariationID),
		Quantity:    line.Quantity,
		Price:       commerce.NewPrice(price),
		Name:        firstNonEmpty(line.Name, line.Product.Name),
		ImageURL:    firstNonEmpty(line.ImageURL, line.Product.ImageURL),
		Description: firstNonEmpty(line.Description, line.Product.Description),
		Attributes:  attrs,
	}, nil
}

// AddItem adjusts an existing line by req.Quantity, removing it when the
// result is not positive, or creates the line for a positive quantity.
func (s *commerceService) AddItem(ownerKey string, req commerce.AddItemRequest) error {
	if ownerKey == "" {
		return ErrMissingOwner
	}
	if req.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if req.Quantity == 0 {
		return ErrInvalidQuantity
	}

	productID := uint(req.ProductID)
	variationID := uint(0)
	if req.VariationID > 0 {
		variationID = uint(req.VariationID)
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	var variation *model.Variation
	if variationID != 0 {
		variation, err = s.productRepo.FindVariation(productID, variationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVariationNotFound
			}
			return err
		}
	}

	line, err := s.cartLineRepo.FindLine(ownerKey, productID, variationID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if line != nil {
		quantity := line.Quantity + req.Quantity
		if quantity <= 0 {
			logger.Info("Cart line adjusted to zero, removing", map[string]interface{}{
				"owner_key":    ownerKey,
				"product_id":   productID,
				"variation_id": variationID,
			})
			return s.cartLineRepo.Delete(line.ID)
		}
		if !inStock(product, variation, quantity) {
			return ErrInsufficientStock
		}
		return s.cartLineRepo.UpdateQuantity(line.ID, quantity)
	}

	if req.Quantity < 0 {
		return ErrLineNotFound
	}
	if !inStock(product, variation, req.Quantity) {
		return ErrInsufficientStock
	}

	newLine := &model.CartLine{
		OwnerKey:    ownerKey,
		ProductID:   productID,
		VariationID: variationID,
		Quantity:    req.Quantity,
		Name:        strings.TrimSpace(req.Name),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Description: strings.TrimSpace(req.Description),
		Attributes:  lineAttributes(variation, req.Attributes),
	}
	if err := s.cartLineRepo.Create(newLine); err != nil {
		return err
	}

	logger.Info("Cart line created", map[string]interface{}{
		"owner_key":    ownerKey,
		"product_id":   productID,
		"variation_id": variationID,
		"quantity":     req.Quantity,
	})
	return nil
}

func (s *commerceService) RemoveItem(ownerKey string, productID, variationID uint) error {
	if ownerKey == "" {
		return ErrMissingOwner
	}
	if productID == 0 {
		return ErrInvalidProduct
	}

	line, err := s.cartLineRepo.FindLine(ownerKey, productID, variationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLineNotFound
		}
		return err
	}
	return s.cartLineRepo.Delete(line.ID)
}

func (s *commerceService) ApplyCoupon(ownerKey, code string) (*model.Coupon, error) {
	if ownerKey == "" {
		return nil, ErrMissingOwner
	}
	if model.NormalizeCouponCode(code) == "" {
		return nil, ErrCouponNotFound
	}

	coupon, err := s.couponRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	if !coupon.Enabled {
		return nil, ErrCouponDisabled
	}
	if coupon.ExpiredAt(s.now()) {
		return nil, ErrCouponExpired
	}

	if err := s.couponRepo.Apply(ownerKey, coupon.ID); err != nil {
		return nil, err
	}

	logger.Info("Coupon applied", map[string]interface{}{
		"owner_key": ownerKey,
		"code":      coupon.Code,
	})
	return coupon, nil
}

func (s *commerceService) RemoveCoupon(ownerKey string) error {
	if ownerKey == "" {
		return ErrMissingOwner
	}
	return s.couponRepo.RemoveApplied(ownerKey)
}

func inStock(product *model.Product, variation *model.Variation, quantity int) bool {
	if variation != nil {
		return variation.InStock(quantity)
	}
	return product.InStock(quantity)
}

// lineAttributes prefers the variation's own attributes over whatever the
// client sent.
func lineAttributes(variation *model.Variation, requested commerce.Attributes) []model.CartLineAttribute {
	var attrs []model.CartLineAttribute
	if variation != nil && len(variation.Attributes) > 0 {
		for i, a := range variation.Attributes {
			attrs = append(attrs, model.CartLineAttribute{Position: i, Name: a.Name, Value: a.Value})
		}
		return attrs
	}
	for i, a := range requested {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		attrs = append(attrs, model.CartLineAttribute{Position: i, Name: a.Name, Value: a.Value})
	}
	return attrs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
