package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/junaidrashid-git/eshop/controllers/cart"
	productcontroller "github.com/junaidrashid-git/eshop/controllers/product"
	ratingControllers "github.com/junaidrashid-git/eshop/controllers/rating"
	userControllers "github.com/junaidrashid-git/eshop/controllers/user"
	"github.com/junaidrashid-git/eshop/middleware"
)

// SetupCatalogRoutes registers the public product pages.
func SetupCatalogRoutes(shop *gin.RouterGroup, d Deps) {
	shop.GET("/", productcontroller.Home(d.DB, d.Log))
	shop.GET("/products/", productcontroller.ProductList(d.DB, d.Log))
	shop.GET("/products/:category_slug/", productcontroller.ProductList(d.DB, d.Log))
	shop.GET("/product/:slug/", productcontroller.ProductDetail(d.DB, d.Log))
}

// SetupUserRoutes registers the pages that need a logged-in customer.
func SetupUserRoutes(shop *gin.RouterGroup, d Deps) {
	cart := shop.Group("/cart", middleware.RequireLogin())
	{
		cart.GET("/", cartControllers.CartDetail(d.DB, d.Log))
		cart.POST("/add/:product_id/", cartControllers.AddItem(d.DB, d.Log))
		cart.POST("/update/:product_id/", cartControllers.UpdateItem(d.DB, d.Log))
		cart.POST("/remove/:product_id/", cartControllers.RemoveItem(d.DB, d.Log))
	}

	rate := shop.Group("/rate", middleware.RequireLogin())
	{
		rate.GET("/:product_id/", ratingControllers.RatePage(d.DB, d.Log))
		rate.POST("/:product_id/", ratingControllers.Rate(d.DB, d.Log))
	}

	profile := shop.Group("/profile", middleware.RequireLogin())
	{
		profile.GET("/", userControllers.Profile(d.DB, d.Log))
		profile.GET("/update/", userControllers.ProfileUpdatePage())
		profile.POST("/update/", userControllers.ProfileUpdate(d.DB, d.Disk, d.Log))
	}
}
