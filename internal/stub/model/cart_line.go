package model

import (
	"fmt"
	"time"
)

// OwnerKey addresses a cart: a logged-in customer owns theirs, otherwise
// the anonymous session does.
func OwnerKey(sessionID string, customerID uint) string {
	if customerID != 0 {
		return fmt.Sprintf("customer:%d", customerID)
	}
	if sessionID == "" {
		return ""
	}
	return "session:" + sessionID
}

// CartLine is one row of a cart, unique per (owner, product, variation).
// VariationID is 0 for simple products.
type CartLine struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OwnerKey    string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_cart_line_owner_product" json:"owner_key"`
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_cart_line_owner_product" json:"product_id"`
	VariationID uint      `gorm:"not null;default:0;uniqueIndex:idx_cart_line_owner_product" json:"variation_id"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	Name        string    `json:"name"`
	ImageURL    string    `json:"image_url"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Product    Product             `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Attributes []CartLineAttribute `gorm:"foreignKey:CartLineID;constraint:OnDelete:CASCADE" json:"attributes,omitempty"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

type CartLineAttribute struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	CartLineID uint   `gorm:"not null;index" json:"cart_line_id"`
	Position   int    `gorm:"not null;default:0" json:"position"`
	Name       string `gorm:"type:varchar(64);not null" json:"name"`
	Value      string `gorm:"type:varchar(128);not null" json:"value"`
}

func (CartLineAttribute) TableName() string {
	return "cart_line_attributes"
}
