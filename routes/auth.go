package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/junaidrashid-git/eshop/auth"
	"github.com/junaidrashid-git/eshop/middleware"
)

// SetupAuthRoutes registers login, registration and email verification.
// Form posts are rate limited per client IP.
func SetupAuthRoutes(shop *gin.RouterGroup, d Deps, limiter *middleware.RateLimiter) {
	throttle := limiter.Handler()

	shop.GET("/login/", auth.LoginPage())
	shop.POST("/login/", throttle, auth.Login(d.DB, d.Log))
	shop.GET("/logout/", auth.Logout(d.Log))
	shop.GET("/register/", auth.RegisterPage())
	shop.POST("/register/", throttle, auth.Register(d.DB, d.Mailer, d.Tokens, d.Config, d.Log))
	shop.GET("/verify-email/:uidb64/:token/", auth.VerifyEmail(d.DB, d.Tokens, d.Log))
	shop.GET("/email-verification-sent/", auth.VerificationSent())

	// Google sign-in only when Firebase is configured
	if d.Google != nil {
		shop.POST("/auth/google/", throttle, auth.GoogleLogin(d.DB, d.Google, d.Log))
	}
}
