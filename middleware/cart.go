package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
)

// CartCount puts the number of units in the user's cart into the context
// for the header badge. A failed count leaves the badge at zero.
func CartCount(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.Next()
			return
		}

		var total int64
		err := db.WithContext(c.Request.Context()).
			Model(&models.CartItem{}).
			Joins("JOIN carts ON carts.id = cart_items.cart_id").
			Where("carts.user_id = ?", user.ID).
			Select("COALESCE(SUM(cart_items.quantity), 0)").
			Scan(&total).Error
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("failed to count cart items")
			total = 0
		}
		c.Set(CartCountKey, int(total))
		c.Next()
	}
}
