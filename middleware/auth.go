package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/session"
)

// Context keys shared with the templates package.
const (
	UserKey      = "user"
	CartCountKey = "cart_count"
)

// LoadUser resolves the session's user id into a *models.User. Sessions
// pointing at a deleted or deactivated user are logged out.
func LoadUser(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		if sess == nil || sess.UserID() == 0 {
			c.Next()
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).First(&user, sess.UserID()).Error
		switch {
		case err == nil && user.IsActive:
			c.Set(UserKey, &user)
		case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
			sess.SetUserID(0)
		default:
			log.WithError(err).Error("failed to load session user")
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// RequireLogin redirects anonymous visitors to the login page, remembering
// where they were headed.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			target := "/login/?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
