package orderControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	cartControllers "github.com/junaidrashid-git/eshop/controllers/cart"
	"github.com/junaidrashid-git/eshop/forms"
	"github.com/junaidrashid-git/eshop/metrics"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/templates"
)

func redirectEmptyCart(c *gin.Context) {
	session.FromContext(c).Flash(session.LevelError, "Your cart is empty.")
	c.Redirect(http.StatusFound, "/cart/")
}

// GET /checkout/
func CheckoutPage(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		cart, err := cartControllers.GetOrCreateCart(c.Request.Context(), db, user.ID)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("failed to load cart")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if len(cart.Items) == 0 {
			redirectEmptyCart(c)
			return
		}

		templates.Render(c, http.StatusOK, "checkout.html", gin.H{
			"Title": "Checkout",
			"Form": CheckoutForm{
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Email:     user.Email,
			},
			"Errors": map[string]string{},
			"Cart":   cart,
		})
	}
}

// POST /checkout/
func Checkout(db *gorm.DB, hub *Hub, m *metrics.Metrics, log *logrus.Logger) gin.HandlerFunc {
	forms.Setup()
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := middleware.CurrentUser(c)
		sess := session.FromContext(c)

		cart, err := cartControllers.GetOrCreateCart(ctx, db, user.ID)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("failed to load cart")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if len(cart.Items) == 0 {
			redirectEmptyCart(c)
			return
		}

		var form CheckoutForm
		if err := c.ShouldBind(&form); err != nil {
			sess.Flash(session.LevelError, "Please correct the errors below.")
			templates.Render(c, http.StatusOK, "checkout.html", gin.H{
				"Title":  "Checkout",
				"Form":   form,
				"Errors": forms.Errors(err),
				"Cart":   cart,
			})
			return
		}

		order, err := PlaceOrder(ctx, db, user.ID, form)
		if errors.Is(err, ErrEmptyCart) {
			redirectEmptyCart(c)
			return
		}
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("failed to place order")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		log.WithFields(logrus.Fields{
			"order_id":  order.ID,
			"order_ref": order.OrderRef,
			"user_id":   user.ID,
			"total":     order.TotalCost().StringFixed(2),
		}).Info("order placed")
		m.OrderPlaced()
		hub.Broadcast(EventOrderPlaced, *order)

		sess.SetOrderID(order.ID)
		sess.Flash(session.LevelSuccess, "Your order has been placed successfully.")
		c.Redirect(http.StatusFound, "/payment/process/")
	}
}
