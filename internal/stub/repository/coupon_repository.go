package repository

import (
	"errors"

	"github.com/beanline/storefront/internal/stub/model"
	"github.com/beanline/storefront/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CouponRepository interface {
	Create(coupon *model.Coupon) error
	FindByCode(code string) (*model.Coupon, error)
	Apply(ownerKey string, couponID uint) error
	FindApplied(ownerKey string) (*model.Coupon, error)
	RemoveApplied(ownerKey string) error
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(coupon *model.Coupon) error {
	logger.Debug("Creating coupon in database", map[string]interface{}{
		"code":          coupon.Code,
		"discount_type": coupon.DiscountType,
	})

	if err := r.db.Create(coupon).Error; err != nil {
		logger.Error("Failed to create coupon in database", err, map[string]interface{}{
			"code": coupon.Code,
		})
		return err
	}
	return nil
}

// FindByCode matches case-insensitively; codes are stored lowercase.
func (r *couponRepository) FindByCode(code string) (*model.Coupon, error) {
	normalized := model.NormalizeCouponCode(code)
	logger.Debug("Finding coupon by code in database", map[string]interface{}{
		"code": normalized,
	})

	var coupon model.Coupon
	if err := r.db.Where("code = ?", normalized).First(&coupon).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find coupon by code in database", err, map[string]interface{}{
				"code": normalized,
			})
		}
		return nil, err
	}
	return &coupon, nil
}

// Apply replaces whatever coupon the owner had.
func (r *couponRepository) Apply(ownerKey string, couponID uint) error {
	logger.Debug("Applying coupon in database", map[string]interface{}{
		"owner_key": ownerKey,
		"coupon_id": couponID,
	})

	applied := model.AppliedCoupon{OwnerKey: ownerKey, CouponID: couponID}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"coupon_id", "updated_at"}),
	}).Create(&applied).Error
	if err != nil {
		logger.Error("Failed to apply coupon in database", err, map[string]interface{}{
			"owner_key": ownerKey,
			"coupon_id": couponID,
		})
		return err
	}
	return nil
}

func (r *couponRepository) FindApplied(ownerKey string) (*model.Coupon, error) {
	var applied model.AppliedCoupon
	err := r.db.Where("owner_key = ?", ownerKey).Preload("Coupon").First(&applied).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find applied coupon in database", err, map[string]interface{}{
				"owner_key": ownerKey,
			})
		}
		return nil, err
	}
	return &applied.Coupon, nil
}

func (r *couponRepository) RemoveApplied(ownerKey string) error {
	logger.Debug("Removing applied coupon from database", map[string]interface{}{
		"owner_key": ownerKey,
	})

	if err := r.db.Where("owner_key = ?", ownerKey).Delete(&model.AppliedCoupon{}).Error; err != nil {
		logger.Error("Failed to remove applied coupon from database", err, map[string]interface{}{
			"owner_key": ownerKey,
		})
		return err
	}
	return nil
}
