package repository

import (
	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/pkg/logger"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.Product, error)
	FindByID(id uint) (*model.Product, error)
	FindVariation(productID, variationID uint) (*model.Variation, error)
	Count() (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func preloadVariations(db *gorm.DB) *gorm.DB {
	return db.Preload("Variations").Preload("Variations.Attributes", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name": product.Name,
		"sku":  product.SKU,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
			"sku":  product.SKU,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"variations": len(product.Variations),
	})
	return nil
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	logger.Debug("Finding all products in database")

	var products []model.Product
	if err := preloadVariations(r.db).Order("id ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to find all products in database", err)
		return nil, err
	}

	logger.Debug("Products found in database", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := preloadVariations(r.db).First(&product, id).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindVariation(productID, variationID uint) (*model.Variation, error) {
	var variation model.Variation
	err := r.db.Where("product_id = ?", productID).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&variation, variationID).Error
	if err != nil {
		logger.Error("Failed to find product variation in database", err, map[string]interface{}{
			"product_id":   productID,
			"variation_id": variationID,
		})
		return nil, err
	}
	return &variation, nil
}

func (r *productRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Product{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count products in database", err)
		return 0, err
	}
	return count, nil
}
