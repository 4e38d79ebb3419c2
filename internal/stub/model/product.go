package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	Name          string              `gorm:"not null" json:"name"`
	SKU           string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Description   string              `gorm:"type:text" json:"description"`
	ImageURL      string              `json:"image_url"`
	RegularPrice  decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"regular_price"`
	SalePrice     decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"sale_price"`
	Subscription  bool                `gorm:"default:false" json:"subscription"`
	ManageStock   bool                `gorm:"default:false" json:"manage_stock"`
	StockQuantity int                 `gorm:"default:0" json:"stock_quantity"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `gorm:"index" json:"-"`

	// Relationships
	Variations []Variation `gorm:"foreignKey:ProductID" json:"variations,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// FinalPrice is the sale price when one is set, otherwise the regular price.
func (p Product) FinalPrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.RegularPrice
}

// InStock reports whether quantity more units can sit in a cart.
func (p Product) InStock(quantity int) bool {
	return !p.ManageStock || quantity <= p.StockQuantity
}

// Variation is a purchasable variant of a product (grind, bag size, ...).
// A nil Price inherits the parent's final price.
type Variation struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	ProductID     uint                `gorm:"not null;index" json:"product_id"`
	SKU           string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`
	Price         decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"price"`
	ManageStock   bool                `gorm:"default:false" json:"manage_stock"`
	StockQuantity int                 `gorm:"default:0" json:"stock_quantity"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `gorm:"index" json:"-"`

	Attributes []VariationAttribute `gorm:"foreignKey:VariationID" json:"attributes,omitempty"`
}

func (Variation) TableName() string {
	return "product_variations"
}

func (v Variation) PriceFor(parent Product) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return parent.FinalPrice()
}

func (v Variation) InStock(quantity int) bool {
	return !v.ManageStock || quantity <= v.StockQuantity
}

type VariationAttribute struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	VariationID uint   `gorm:"not null;index" json:"variation_id"`
	Position    int    `gorm:"not null;default:0" json:"position"`
	Name        string `gorm:"type:varchar(64);not null" json:"name"`
	Value       string `gorm:"type:varchar(128);not null" json:"value"`
}

func (VariationAttribute) TableName() string {
	return "product_variation_attributes"
}
