package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/auth"
	"github.com/junaidrashid-git/eshop/config"
	orderControllers "github.com/junaidrashid-git/eshop/controllers/order"
	"github.com/junaidrashid-git/eshop/mail"
	"github.com/junaidrashid-git/eshop/metrics"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/payment"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/storage"
	"github.com/junaidrashid-git/eshop/templates"
)

// Deps is everything the router hands out to handlers. Google and Metrics
// may be nil.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Log      *logrus.Logger
	Mailer   mail.Mailer
	Gateway  payment.Gateway
	Disk     storage.Disk
	Sessions session.Store
	Hub      *orderControllers.Hub
	Tokens   *auth.VerificationTokens
	Google   auth.IDTokenVerifier
	Metrics  *metrics.Metrics

	// Done stops background cleanup started by the router.
	Done <-chan struct{}
}

// NewRouter is the single entry-point that wires up the storefront, payment
// callbacks and the staff API.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Hub == nil {
		d.Hub = orderControllers.NewHub(d.Log)
	}
	renderer, err := templates.Load(d.Disk.URL)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HTMLRender = renderer
	r.MaxMultipartMemory = 32 << 20

	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", d.Metrics.Handler())
	}
	if len(d.Config.AllowedHosts) > 0 {
		r.Use(middleware.AllowedHosts(d.Config.AllowedHosts))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// uploads are only served from here when they live on local disk
	if local, ok := d.Disk.(*storage.LocalDisk); ok {
		prefix := "/" + strings.Trim(d.Config.Storage.MediaURL, "/")
		r.Static(prefix, local.Root())
	}

	opts := session.DefaultOptions()
	if d.Config.Session.CookieName != "" {
		opts.CookieName = d.Config.Session.CookieName
	}
	if d.Config.Session.TTL > 0 {
		opts.TTL = d.Config.Session.TTL
	}
	opts.Secure = d.Config.Session.Secure

	shop := r.Group("/",
		session.Middleware(d.Sessions, opts, d.Log),
		middleware.LoadUser(d.DB, d.Log),
		middleware.EmailVerified(),
		middleware.CartCount(d.DB, d.Log),
	)

	limiter := middleware.NewRateLimiter(d.Config.LoginRatePerMinute, d.Log)
	if d.Done != nil {
		limiter.StartCleanup(5*time.Minute, d.Done)
	}

	SetupCatalogRoutes(shop, d)
	SetupAuthRoutes(shop, d, limiter)
	SetupUserRoutes(shop, d)
	SetupOrderRoutes(shop, d)
	SetupPaymentRoutes(r, shop, d)
	SetupAdminRoutes(r, d)

	r.NoRoute(session.Middleware(d.Sessions, opts, d.Log), middleware.LoadUser(d.DB, d.Log), templates.NotFound)
	return r, nil
}
