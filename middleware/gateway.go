package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/junaidrashid-git/eshop/payment"
)

// GatewaySignature rejects server-to-server gateway notifications whose
// verify_sign does not match the store password.
func GatewaySignature(storePassword string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form for signature verification"})
			c.Abort()
			return
		}

		if err := payment.VerifySignature(c.Request.PostForm, storePassword); err != nil {
			log.WithFields(logrus.Fields{
				"tran_id": c.Request.PostForm.Get("tran_id"),
				"ip":      c.ClientIP(),
			}).Warn("gateway notification with invalid signature")
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid gateway signature"})
			c.Abort()
			return
		}
		c.Next()
	}
}
