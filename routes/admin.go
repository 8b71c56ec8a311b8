package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	cartControllers "github.com/junaidrashid-git/eshop/controllers/cart"
	orderControllers "github.com/junaidrashid-git/eshop/controllers/order"
	productcontroller "github.com/junaidrashid-git/eshop/controllers/product"
	userControllers "github.com/junaidrashid-git/eshop/controllers/user"
	"github.com/junaidrashid-git/eshop/middleware"
)

// SetupAdminRoutes registers all "/admin/api/*" endpoints. Requires API-Key middleware.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	adminGroup := r.Group("/admin/api")
	adminGroup.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	adminGroup.Use(middleware.ValidateAPIKey(d.Config.AdminAPIKey))
	{
		// ─────────── User Management ───────────
		adminGroup.GET("/users", userControllers.GetAllUsers(d.DB))
		adminGroup.GET("/users/:user_id", userControllers.GetUserByID(d.DB))
		adminGroup.PUT("/users/:user_id", userControllers.UpdateUserFlags(d.DB))
		adminGroup.GET("/users/:user_id/cart", cartControllers.GetAdminUserCart(d.DB))

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", productcontroller.CreateProduct(d.DB, d.Disk, d.Log))
			productAdmin.GET("", productcontroller.GetProducts(d.DB))
			productAdmin.POST("/import", productcontroller.ImportProductsFromExcel(d.DB, d.Log))
			productAdmin.GET("/export", productcontroller.ExportProductsToExcel(d.DB, d.Log))
			productAdmin.GET("/:id", productcontroller.GetProductByID(d.DB))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(d.DB, d.Disk, d.Log))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(d.DB))
		}

		// ─────────── Category Management ───────────
		categoryAdmin := adminGroup.Group("/categories")
		{
			categoryAdmin.POST("", productcontroller.CreateCategory(d.DB))
			categoryAdmin.GET("", productcontroller.GetAllCategories(d.DB))
			categoryAdmin.GET("/:id", productcontroller.GetCategoryByID(d.DB))
			categoryAdmin.PUT("/:id", productcontroller.UpdateCategory(d.DB))
			categoryAdmin.DELETE("/:id", productcontroller.DeleteCategoryHandler(d.DB))
		}

		// ─────────── Orders ───────────
		orders := adminGroup.Group("/orders")
		{
			orders.GET("", orderControllers.GetAllOrdersHandler(d.DB))
			// websocket endpoint for real-time order updates
			orders.GET("/ws", d.Hub.Handler())
			orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(d.DB))
			orders.PUT("/:orderID/status", orderControllers.UpdateOrderStatusHandler(d.DB, d.Hub, d.Log))
		}
	}
}
