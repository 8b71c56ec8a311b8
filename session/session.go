// Package session keeps per-browser state (logged-in user, pending order,
// flash messages) server-side, keyed by a random id in a cookie.
//
// Usage (handler):
//
//	sess := session.FromContext(c)
//	sess.SetOrderID(order.ID)
//	sess.Flash(session.LevelSuccess, "Your order has been placed successfully.")
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by a Store for unknown or expired ids.
var ErrNotFound = errors.New("session: not found")

// Store persists encoded session data.
type Store interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type data struct {
	UserID   uint      `json:"user_id,omitempty"`
	OrderID  uint      `json:"order_id,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Path       string
}

func DefaultOptions() Options {
	return Options{
		CookieName: "sessionid",
		TTL:        14 * 24 * time.Hour,
		Path:       "/",
	}
}

// Session is the request's handle on its session. Mutations are persisted by
// the middleware once the handler chain returns.
type Session struct {
	id        string
	data      data
	opts      Options
	store     Store
	w         http.ResponseWriter
	fresh     bool
	cookieSet bool
	changed   bool
}

const contextKey = "session"

func newID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Middleware loads the session named by the request cookie, or starts an
// empty one, and saves it after the handlers have run.
func Middleware(store Store, opts Options, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sess := &Session{opts: opts, store: store, w: c.Writer}

		if id, err := c.Cookie(opts.CookieName); err == nil && id != "" {
			raw, err := store.Get(ctx, id)
			switch {
			case err == nil:
				if err := json.Unmarshal(raw, &sess.data); err != nil {
					log.WithError(err).Warn("discarding undecodable session")
				} else {
					sess.id = id
				}
			case !errors.Is(err, ErrNotFound):
				log.WithError(err).Error("session load failed")
			}
		}
		if sess.id == "" {
			sess.id = newID()
			sess.fresh = true
		}

		c.Set(contextKey, sess)
		c.Next()

		if err := sess.save(ctx); err != nil {
			log.WithError(err).Error("session save failed")
		}
	}
}

// FromContext returns the request's session, or nil outside the middleware.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() uint { return s.data.UserID }

func (s *Session) SetUserID(id uint) {
	s.data.UserID = id
	s.touch()
}

func (s *Session) OrderID() uint { return s.data.OrderID }

func (s *Session) SetOrderID(id uint) {
	s.data.OrderID = id
	s.touch()
}

// Flash queues a message for the next rendered page.
func (s *Session) Flash(level, text string) {
	s.data.Messages = append(s.data.Messages, Message{Level: level, Text: text})
	s.touch()
}

// Flashes returns and clears the queued messages.
func (s *Session) Flashes() []Message {
	msgs := s.data.Messages
	if len(msgs) > 0 {
		s.data.Messages = nil
		s.touch()
	}
	return msgs
}

// Rotate moves the data to a new id. Called on login to defeat fixation.
func (s *Session) Rotate(ctx context.Context) error {
	var err error
	if !s.fresh {
		err = s.store.Delete(ctx, s.id)
	}
	s.id = newID()
	s.fresh = true
	s.cookieSet = false
	s.touch()
	return err
}

// Invalidate drops all data and rotates the id (logout).
func (s *Session) Invalidate(ctx context.Context) error {
	s.data = data{}
	return s.Rotate(ctx)
}

// touch marks the session dirty and, for a new session, writes the cookie
// while the response headers are still open.
func (s *Session) touch() {
	s.changed = true
	if s.fresh && !s.cookieSet && s.w != nil {
		http.SetCookie(s.w, &http.Cookie{
			Name:     s.opts.CookieName,
			Value:    s.id,
			Path:     s.opts.Path,
			MaxAge:   int(s.opts.TTL.Seconds()),
			HttpOnly: true,
			Secure:   s.opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		s.cookieSet = true
	}
}

func (s *Session) save(ctx context.Context) error {
	if !s.changed {
		return nil
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.id, raw, s.opts.TTL); err != nil {
		return err
	}
	s.changed = false
	return nil
}
