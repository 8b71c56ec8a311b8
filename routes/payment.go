package routes

import (
	"github.com/gin-gonic/gin"

	paymentControllers "github.com/junaidrashid-git/eshop/controllers/payment"
	"github.com/junaidrashid-git/eshop/middleware"
)

// SetupPaymentRoutes registers the gateway hand-off and its callbacks. The
// browser returns from the gateway with a cross-site POST, so the callbacks
// do not require a session; the IPN is server-to-server and signed.
func SetupPaymentRoutes(r *gin.Engine, shop *gin.RouterGroup, d Deps) {
	p := &paymentControllers.Payments{
		DB:      d.DB,
		Gateway: d.Gateway,
		Mailer:  d.Mailer,
		Config:  d.Config,
		Hub:     d.Hub,
		Metrics: d.Metrics,
		Log:     d.Log,
	}

	payment := shop.Group("/payment")
	{
		payment.GET("/process/", middleware.RequireLogin(), p.Process())
		payment.GET("/complete/:order_id/", middleware.RequireLogin(), p.Complete())

		for _, method := range []string{"GET", "POST"} {
			payment.Handle(method, "/success/:order_id/", p.Success())
			payment.Handle(method, "/fail/:order_id/", p.Fail())
			payment.Handle(method, "/cancel/:order_id/", p.Cancel())
		}
	}

	r.POST("/payment/ipn/",
		middleware.GatewaySignature(d.Config.Payment.StorePassword, d.Log),
		p.IPN(),
	)
}
