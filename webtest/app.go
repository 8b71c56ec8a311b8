package webtest

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/logger"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/templates"
)

const loginPath = "/__test/login/"

// NewEngine returns a gin engine set up like the storefront: HTML pages,
// in-memory sessions, the current user and the cart badge. Routes under
// test are added by the caller.
func NewEngine(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := templates.Load(func(key string) string { return "/media/" + key })
	require.NoError(t, err)

	log := logger.Discard()
	r := gin.New()
	r.HTMLRender = renderer
	r.Use(
		session.Middleware(session.NewMemoryStore(), session.DefaultOptions(), log),
		middleware.LoadUser(db, log),
		middleware.CartCount(db, log),
	)
	r.GET(loginPath+":id", func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		session.FromContext(c).SetUserID(uint(id))
		c.Status(http.StatusNoContent)
	})
	return r
}

// LoginAs signs the browser in without going through the login form.
// Only works against engines built by NewEngine.
func (b *Browser) LoginAs(userID uint) {
	b.Get(fmt.Sprintf("%s%d", loginPath, userID))
}
