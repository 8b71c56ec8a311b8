package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  uint            `gorm:"index;not null" json:"category_id"`
	Category    Category        `json:"category"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Slug        string          `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	OldPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"old_price"`
	NewPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"new_price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Available   bool            `gorm:"not null" json:"available"`
	CreatedAt   time.Time       `gorm:"index" json:"created"`
	UpdatedAt   time.Time       `json:"updated"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// OnSale reports whether the old price is shown struck through.
func (p Product) OnSale() bool {
	return p.OldPrice.GreaterThan(p.NewPrice)
}
