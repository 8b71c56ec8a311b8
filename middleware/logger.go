package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if user := CurrentUser(c); user != nil {
			fields["user_id"] = user.ID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := log.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// AllowedHosts rejects requests whose Host header is not listed. "*"
// allows any host; a leading dot matches subdomains.
func AllowedHosts(hosts []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if i := strings.LastIndex(host, ":"); i != -1 && !strings.Contains(host[i:], "]") {
			host = host[:i]
		}
		host = strings.ToLower(host)

		for _, allowed := range hosts {
			allowed = strings.ToLower(allowed)
			switch {
			case allowed == "*", allowed == host:
				c.Next()
				return
			case strings.HasPrefix(allowed, ".") &&
				(host == allowed[1:] || strings.HasSuffix(host, allowed)):
				c.Next()
				return
			}
		}
		c.AbortWithStatus(http.StatusBadRequest)
	}
}
