package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercent   DiscountType = "percent"
	DiscountFixedCart DiscountType = "fixed_cart"
)

type Coupon struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	Code         string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	DiscountType DiscountType    `gorm:"type:varchar(32);not null" json:"discount_type"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Enabled      bool            `gorm:"not null;default:true" json:"enabled"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// BeforeSave stores codes lowercase so lookups can ignore case.
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = NormalizeCouponCode(c.Code)
	return nil
}

func (c Coupon) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

func NormalizeCouponCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// AppliedCoupon records the coupon a cart owner currently has applied.
type AppliedCoupon struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OwnerKey  string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"owner_key"`
	CouponID  uint      `gorm:"not null;index" json:"coupon_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Coupon Coupon `gorm:"foreignKey:CouponID" json:"coupon"`
}

func (AppliedCoupon) TableName() string {
	return "applied_coupons"
}
