package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UnverifiedAllowedPrefixes are reachable by a logged-in user who has not
// confirmed their email yet.
var UnverifiedAllowedPrefixes = []string{
	"/verify-email/",
	"/logout/",
	"/email-verification-sent/",
	"/login/",
	"/admin/",
	"/static/",
	"/media/",
}

// EmailVerified sends authenticated but unverified users to the
// verification notice. Anonymous users pass through.
func EmailVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.IsVerified {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range UnverifiedAllowedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		c.Redirect(http.StatusFound, "/email-verification-sent/")
		c.Abort()
	}
}
