package repository

import (
	"errors"

	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/pkg/logger"
	"gorm.io/gorm"
)

type CartLineRepository interface {
	Create(line *model.CartLine) error
	FindByOwner(ownerKey string) ([]model.CartLine, error)
	FindLine(ownerKey string, productID, variationID uint) (*model.CartLine, error)
	UpdateQuantity(id uint, quantity int) error
	Delete(id uint) error
	DeleteByOwner(ownerKey string) error
}

type cartLineRepository struct {
	db *gorm.DB
}

func NewCartLineRepository(db *gorm.DB) CartLineRepository {
	return &cartLineRepository{db: db}
}

func (r *cartLineRepository) Create(line *model.CartLine) error {
	logger.Debug("Creating cart line in database", map[string]interface{}{
		"owner_key":    line.OwnerKey,
		"product_id":   line.ProductID,
		"variation_id": line.VariationID,
		"quantity":     line.Quantity,
	})

	if err := r.db.Create(line).Error; err != nil {
		logger.Error("Failed to create cart line in database", err, map[string]interface{}{
			"owner_key":  line.OwnerKey,
			"product_id": line.ProductID,
		})
		return err
	}

	logger.Debug("Cart line created in database", map[string]interface{}{
		"cart_line_id": line.ID,
		"owner_key":    line.OwnerKey,
	})
	return nil
}

// FindByOwner returns the owner's lines in insertion order with product and
// attributes loaded.
func (r *cartLineRepository) FindByOwner(ownerKey string) ([]model.CartLine, error) {
	logger.Debug("Finding cart lines by owner in database", map[string]interface{}{
		"owner_key": ownerKey,
	})

	var lines []model.CartLine
	err := r.db.Where("owner_key = ?", ownerKey).
		Preload("Product").
		Preload("Attributes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		logger.Error("Failed to find cart lines by owner in database", err, map[string]interface{}{
			"owner_key": ownerKey,
		})
		return nil, err
	}

	logger.Debug("Cart lines found by owner in database", map[string]interface{}{
		"owner_key": ownerKey,
		"count":     len(lines),
	})
	return lines, nil
}

func (r *cartLineRepository) FindLine(ownerKey string, productID, variationID uint) (*model.CartLine, error) {
	var line model.CartLine
	err := r.db.Where("owner_key = ? AND product_id = ? AND variation_id = ?", ownerKey, productID, variationID).
		First(&line).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find cart line in database", err, map[string]interface{}{
				"owner_key":    ownerKey,
				"product_id":   productID,
				"variation_id": variationID,
			})
		}
		return nil, err
	}
	return &line, nil
}

func (r *cartLineRepository) UpdateQuantity(id uint, quantity int) error {
	logger.Debug("Updating cart line quantity in database", map[string]interface{}{
		"cart_line_id": id,
		"quantity":     quantity,
	})

	if err := r.db.Model(&model.CartLine{}).Where("id = ?", id).Update("quantity", quantity).Error; err != nil {
		logger.Error("Failed to update cart line quantity in database", err, map[string]interface{}{
			"cart_line_id": id,
		})
		return err
	}
	return nil
}

func (r *cartLineRepository) Delete(id uint) error {
	logger.Debug("Deleting cart line from database", map[string]interface{}{
		"cart_line_id": id,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_line_id = ?", id).Delete(&model.CartLineAttribute{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.CartLine{}, id).Error
	})
	if err != nil {
		logger.Error("Failed to delete cart line from database", err, map[string]interface{}{
			"cart_line_id": id,
		})
		return err
	}
	return nil
}

func (r *cartLineRepository) DeleteByOwner(ownerKey string) error {
	logger.Debug("Deleting cart lines by owner from database", map[string]interface{}{
		"owner_key": ownerKey,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		lineIDs := tx.Model(&model.CartLine{}).Select("id").Where("owner_key = ?", ownerKey)
		if err := tx.Where("cart_line_id IN (?)", lineIDs).Delete(&model.CartLineAttribute{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_key = ?", ownerKey).Delete(&model.CartLine{}).Error
	})
	if err != nil {
		logger.Error("Failed to delete cart lines by owner from database", err, map[string]interface{}{
			"owner_key": ownerKey,
		})
		return err
	}
	return nil
}
