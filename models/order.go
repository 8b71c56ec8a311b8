package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"    // Placed, awaiting payment
	OrderStatusProcessing OrderStatus = "processing" // Paid, being prepared
	OrderStatusDelivered  OrderStatus = "delivered"  // Customer received the items
	OrderStatusCanceled   OrderStatus = "canceled"   // Payment failed or was abandoned
)

var ErrInvalidOrderStatus = errors.New("invalid order status")

// ParseOrderStatus maps user input onto a known status.
func ParseOrderStatus(status string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(status))) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCanceled:
		return OrderStatusCanceled, nil
	default:
		return "", ErrInvalidOrderStatus
	}
}

type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"index;not null" json:"user_id"`
	User          User        `json:"-"`
	FirstName     string      `gorm:"size:100;not null" json:"first_name"`
	LastName      string      `gorm:"size:100;not null" json:"last_name"`
	Email         string      `gorm:"size:254;not null" json:"email"`
	Address       string      `gorm:"size:250;not null" json:"address"`
	City          string      `gorm:"size:100;not null" json:"city"`
	PostalCode    string      `gorm:"size:20;not null" json:"postal_code"`
	Note          string      `json:"note"`
	Paid          bool        `gorm:"not null" json:"paid"`
	Status        OrderStatus `gorm:"type:VARCHAR(20);not null;default:'pending'" json:"status"`
	OrderRef      string      `gorm:"size:64;uniqueIndex" json:"order_ref"`
	TransactionID string      `gorm:"size:100" json:"transaction_id"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem prices are copied from the product when the order is placed and
// never follow later price changes.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index;not null" json:"order_id"`
	ProductID   uint            `gorm:"index;not null" json:"product_id"`
	Product     Product         `json:"-"`
	ProductName string          `gorm:"size:200" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
}

func (i OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Cost())
	}
	return total
}

func (o Order) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
