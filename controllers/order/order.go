package orderControllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/junaidrashid-git/eshop/models"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
)

// CheckoutForm holds the shipping details collected at checkout.
type CheckoutForm struct {
	FirstName  string `form:"first_name" json:"first_name" binding:"required,max=100"`
	LastName   string `form:"last_name" json:"last_name" binding:"required,max=100"`
	Email      string `form:"email" json:"email" binding:"required,email,max=254"`
	Address    string `form:"address" json:"address" binding:"required,max=250"`
	City       string `form:"city" json:"city" binding:"required,max=100"`
	PostalCode string `form:"postal_code" json:"postal_code" binding:"required,max=20"`
	Note       string `form:"note" json:"note" binding:"max=2000"`
}

// -------- Helpers --------

// generateOrderRef returns the tran_id sent to the gateway, e.g.
// 20250908-9F1C2B7A04D3E5F6. The gateway caps tran_id at 30 characters.
func generateOrderRef() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return time.Now().Format("20060102") + "-" + strings.ToUpper(id[:16])
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func loadOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Preload("User").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_items.id") }).
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// -------- Core Logic --------

// PlaceOrder turns the user's cart into a pending, unpaid order. Each line
// is priced at the product's current new_price. The cart is emptied and
// marked checked out in the same transaction.
func PlaceOrder(ctx context.Context, db *gorm.DB, userID uint, form CheckoutForm) (*models.Order, error) {
	var order *models.Order

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		var items []models.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cart.ID).Order("id").Find(&items).Error; err != nil {
			return err
		}

		var orderItems []models.OrderItem
		for _, item := range items {
			// product deleted since it was added
			if item.Product.ID == 0 {
				continue
			}
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   item.ProductID,
				ProductName: item.Product.Name,
				Price:       item.Product.NewPrice,
				Quantity:    item.Quantity,
			})
		}
		if len(orderItems) == 0 {
			return ErrEmptyCart
		}

		order = &models.Order{
			UserID:     userID,
			FirstName:  strings.TrimSpace(form.FirstName),
			LastName:   strings.TrimSpace(form.LastName),
			Email:      models.NormalizeEmail(form.Email),
			Address:    strings.TrimSpace(form.Address),
			City:       strings.TrimSpace(form.City),
			PostalCode: strings.TrimSpace(form.PostalCode),
			Note:       strings.TrimSpace(form.Note),
			Status:     models.OrderStatusPending,
			OrderRef:   generateOrderRef(),
			Items:      orderItems,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Model(&cart).Update("checked_out", true).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FulfillOrder records a confirmed payment: the order becomes paid and
// processing, and every line's quantity comes off product stock (never
// below zero). Calling it again for a paid order changes nothing and
// reports false.
func FulfillOrder(ctx context.Context, db *gorm.DB, orderID uint, transactionID string) (*models.Order, bool, error) {
	var fulfilled bool
	var order *models.Order

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !locked.Paid {
			if err := tx.Model(locked).Updates(map[string]interface{}{
				"paid":           true,
				"status":         models.OrderStatusProcessing,
				"transaction_id": transactionID,
			}).Error; err != nil {
				return err
			}

			var items []models.OrderItem
			if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
				return err
			}
			for _, item := range items {
				if err := tx.Unscoped().Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					Update("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", item.Quantity, item.Quantity)).
					Error; err != nil {
					return err
				}
			}
			fulfilled = true
		}

		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return order, fulfilled, nil
}

// CancelOrder cancels an order the customer abandoned or whose payment
// failed. Paid orders and orders already past pending are left alone.
func CancelOrder(ctx context.Context, db *gorm.DB, orderID uint) (bool, error) {
	result := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND paid = ? AND status = ?", orderID, false, models.OrderStatusPending).
		Update("status", models.OrderStatusCanceled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateOrderStatus is the staff-side status change (e.g. to delivered).
func UpdateOrderStatus(ctx context.Context, db *gorm.DB, orderID uint, status models.OrderStatus) (*models.Order, error) {
	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := tx.Model(locked).Update("status", status).Error; err != nil {
			return err
		}
		order, err = loadOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindUserOrder loads an order with its items. A non-zero userID restricts
// the lookup to that user's orders.
func FindUserOrder(ctx context.Context, db *gorm.DB, orderID, userID uint) (*models.Order, error) {
	q := db.WithContext(ctx)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	return loadOrder(q, orderID)
}

// ListOrders returns orders newest first, optionally filtered by status.
func ListOrders(ctx context.Context, db *gorm.DB, status models.OrderStatus) ([]models.Order, error) {
	q := db.WithContext(ctx).Preload("Items").Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
