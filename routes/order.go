package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/junaidrashid-git/eshop/controllers/order"
	"github.com/junaidrashid-git/eshop/middleware"
)

func SetupOrderRoutes(shop *gin.RouterGroup, d Deps) {
	checkout := shop.Group("/checkout", middleware.RequireLogin())
	{
		checkout.GET("/", orderControllers.CheckoutPage(d.DB, d.Log))
		checkout.POST("/", orderControllers.Checkout(d.DB, d.Hub, d.Metrics, d.Log))
	}
}
