package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is unique per (user, product).
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_rating_user_product;not null" json:"user_id"`
	User      User      `json:"-"`
	ProductID uint      `gorm:"uniqueIndex:idx_rating_user_product;index;not null" json:"product_id"`
	Product   Product   `json:"-"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}
