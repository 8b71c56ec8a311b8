package cartControllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/templates"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// -------- Core Logic --------

// GetOrCreateCart returns the user's cart with items and products loaded,
// creating an empty one on first use.
func GetOrCreateCart(ctx context.Context, db *gorm.DB, userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error; err != nil {
		return nil, err
	}

	cart = models.Cart{}
	if err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.added_at, cart_items.id") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func findProduct(ctx context.Context, db *gorm.DB, productID uint, availableOnly bool) (*models.Product, error) {
	q := db.WithContext(ctx)
	if availableOnly {
		q = q.Where("available = ?", true)
	}
	var product models.Product
	if err := q.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func findCart(ctx context.Context, db *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// AddToCart puts quantity units of an available product in the user's cart,
// adding to the line if the product is already there. A cart that went
// through checkout becomes active again.
func AddToCart(ctx context.Context, db *gorm.DB, userID, productID uint, quantity int) (*models.Product, error) {
	product, err := findProduct(ctx, db, productID, true)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return product, ErrInvalidQuantity
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart := models.Cart{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
			Create(&cart).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return err
		}
		if cart.CheckedOut {
			if err := tx.Model(&cart).Update("checked_out", false).Error; err != nil {
				return err
			}
		}

		item := models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: quantity}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("cart_items.quantity + ?", quantity),
			}),
		}).Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateCartItem sets a line's quantity. Zero or less removes the line; the
// returned bool reports whether that happened.
func UpdateCartItem(ctx context.Context, db *gorm.DB, userID, productID uint, quantity int) (*models.Product, bool, error) {
	cart, err := findCart(ctx, db, userID)
	if err != nil {
		return nil, false, err
	}
	product, err := findProduct(ctx, db, productID, false)
	if err != nil {
		return nil, false, err
	}

	q := db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cart.ID, product.ID)
	var result *gorm.DB
	removed := quantity <= 0
	if removed {
		result = q.Delete(&models.CartItem{})
	} else {
		result = q.Model(&models.CartItem{}).Update("quantity", quantity)
	}
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, ErrItemNotFound
	}
	return product, removed, nil
}

// RemoveFromCart deletes the product's line from the user's cart.
func RemoveFromCart(ctx context.Context, db *gorm.DB, userID, productID uint) (*models.Product, error) {
	product, _, err := UpdateCartItem(ctx, db, userID, productID, 0)
	return product, err
}

// -------- Handlers --------

func productIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// quantityField reads the posted quantity, defaulting to 1 when absent.
func quantityField(c *gin.Context) (int, error) {
	raw := c.PostForm("quantity")
	if raw == "" {
		return 1, nil
	}
	return strconv.Atoi(raw)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCartNotFound) || errors.Is(err, ErrItemNotFound)
}

// GET /cart/
func CartDetail(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		cart, err := GetOrCreateCart(c.Request.Context(), db, user.ID)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("failed to load cart")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		templates.Render(c, http.StatusOK, "cart.html", gin.H{
			"Title": "Your cart",
			"Cart":  cart,
		})
	}
}

// POST /cart/add/:product_id/
func AddItem(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := productIDParam(c)
		if !ok {
			templates.NotFound(c)
			return
		}
		user := middleware.CurrentUser(c)
		sess := session.FromContext(c)

		quantity, err := quantityField(c)
		if err != nil {
			quantity = 0
		}

		product, err := AddToCart(c.Request.Context(), db, user.ID, productID, quantity)
		switch {
		case errors.Is(err, ErrProductNotFound):
			templates.NotFound(c)
			return
		case errors.Is(err, ErrInvalidQuantity):
			sess.Flash(session.LevelError, "Please enter a quantity of at least 1.")
			c.Redirect(http.StatusFound, "/product/"+product.Slug+"/")
			return
		case err != nil:
			log.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "product_id": productID}).Error("add to cart failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		sess.Flash(session.LevelSuccess, fmt.Sprintf("%d x %s added to your cart.", quantity, product.Name))
		c.Redirect(http.StatusFound, "/product/"+product.Slug+"/")
	}
}

// POST /cart/update/:product_id/
func UpdateItem(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := productIDParam(c)
		if !ok {
			templates.NotFound(c)
			return
		}
		user := middleware.CurrentUser(c)
		sess := session.FromContext(c)

		quantity, err := quantityField(c)
		if err != nil {
			sess.Flash(session.LevelError, "Please enter a valid quantity.")
			c.Redirect(http.StatusFound, "/cart/")
			return
		}

		product, removed, err := UpdateCartItem(c.Request.Context(), db, user.ID, productID, quantity)
		switch {
		case isNotFound(err):
			templates.NotFound(c)
			return
		case err != nil:
			log.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "product_id": productID}).Error("cart update failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		if removed {
			sess.Flash(session.LevelSuccess, product.Name+" has been removed from your cart.")
		} else {
			sess.Flash(session.LevelSuccess, "Cart updated successfully.")
		}
		c.Redirect(http.StatusFound, "/cart/")
	}
}

// POST /cart/remove/:product_id/
func RemoveItem(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := productIDParam(c)
		if !ok {
			templates.NotFound(c)
			return
		}
		user := middleware.CurrentUser(c)

		product, err := RemoveFromCart(c.Request.Context(), db, user.ID, productID)
		switch {
		case isNotFound(err):
			templates.NotFound(c)
			return
		case err != nil:
			log.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "product_id": productID}).Error("cart remove failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		session.FromContext(c).Flash(session.LevelSuccess, product.Name+" has been removed from your cart.")
		c.Redirect(http.StatusFound, "/cart/")
	}
}

// GET /admin/api/users/:user_id/cart
func GetAdminUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		var cart models.Cart
		if err := db.WithContext(c.Request.Context()).
			Preload("Items.Product").
			Where("user_id = ?", userID).
			First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"cart":       cart,
			"total":      cart.Total(),
			"item_count": cart.ItemCount(),
		})
	}
}
