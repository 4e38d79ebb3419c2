package db

import (
	"time"

	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func models() []interface{} {
	return []interface{}{
		&model.Product{},
		&model.Variation{},
		&model.VariationAttribute{},
		&model.CartLine{},
		&model.CartLineAttribute{},
		&model.Coupon{},
		&model.AppliedCoupon{},
	}
}

// Migrate runs the stub's schema migrations against DB.
func Migrate() error {
	return MigrateDB(DB)
}

func MigrateDB(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	all := models()
	if err := db.AutoMigrate(all...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(all),
	})
	return nil
}

// Seed loads the demo catalog and coupons into DB.
func Seed() error {
	return SeedDB(DB)
}

// SeedDB is a no-op when products already exist.
func SeedDB(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Catalog already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding catalog...")

	return db.Transaction(func(tx *gorm.DB) error {
		for _, product := range seedProducts() {
			if err := tx.Create(&product).Error; err != nil {
				logger.Error("Failed to seed product", err, map[string]interface{}{
					"sku": product.SKU,
				})
				return err
			}
		}
		for _, coupon := range seedCoupons(time.Now()) {
			if err := tx.Create(&coupon).Error; err != nil {
				logger.Error("Failed to seed coupon", err, map[string]interface{}{
					"code": coupon.Code,
				})
				return err
			}
		}

		logger.Info("Catalog seeded successfully")
		return nil
	})
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func salePrice(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func seedProducts() []model.Product {
	return []model.Product{
		{
			Name:         "Ethiopia Yirgacheffe",
			SKU:          "ETH-YIRG",
			Description:  "Washed heirloom, bergamot and jasmine.",
			ImageURL:     "/images/ethiopia-yirgacheffe.jpg",
			RegularPrice: price("16.00"),
			Variations: []model.Variation{
				{
					SKU: "ETH-YIRG-250-WB",
					Attributes: []model.VariationAttribute{
						{Position: 0, Name: "weight", Value: "250g"},
						{Position: 1, Name: "grind", Value: "whole bean"},
					},
				},
				{
					SKU:   "ETH-YIRG-1KG-WB",
					Price: salePrice("54.00"),
					Attributes: []model.VariationAttribute{
						{Position: 0, Name: "weight", Value: "1kg"},
						{Position: 1, Name: "grind", Value: "whole bean"},
					},
				},
			},
		},
		{
			Name:          "Colombia Huila",
			SKU:           "COL-HUILA",
			Description:   "Red apple, panela, round body.",
			ImageURL:      "/images/colombia-huila.jpg",
			RegularPrice:  price("14.50"),
			SalePrice:     salePrice("12.50"),
			ManageStock:   true,
			StockQuantity: 40,
		},
		{
			Name:         "House Espresso Blend",
			SKU:          "HOUSE-ESP",
			Description:  "Chocolate and hazelnut, built for milk.",
			ImageURL:     "/images/house-espresso.jpg",
			RegularPrice: price("13.00"),
		},
		{
			Name:         "Monthly Roaster's Choice",
			SKU:          "SUB-MONTHLY",
			Description:  "Two rotating single origins every month.",
			ImageURL:     "/images/roasters-choice.jpg",
			RegularPrice: price("30.00"),
			Subscription: true,
		},
	}
}

func seedCoupons(now time.Time) []model.Coupon {
	expired := now.AddDate(0, 0, -1)
	return []model.Coupon{
		{Code: "welcome10", DiscountType: model.DiscountPercent, Amount: price("10"), Enabled: true},
		{Code: "beans5", DiscountType: model.DiscountFixedCart, Amount: price("5"), Enabled: true},
		{Code: "summer-sale", DiscountType: model.DiscountPercent, Amount: price("20"), Enabled: true, ExpiresAt: &expired},
	}
}
