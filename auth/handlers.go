package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/config"
	"github.com/junaidrashid-git/eshop/forms"
	"github.com/junaidrashid-git/eshop/mail"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/templates"
)

func logIn(c *gin.Context, user *models.User) error {
	sess := session.FromContext(c)
	err := sess.Rotate(c.Request.Context())
	sess.SetUserID(user.ID)
	c.Set(middleware.UserKey, user)
	return err
}

// safeNext only follows site-relative redirects.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// GET /login/
func LoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.CurrentUser(c) != nil {
			c.Redirect(http.StatusFound, "/")
			return
		}
		templates.Render(c, http.StatusOK, "login.html", gin.H{
			"Title": "Login",
			"Next":  c.Query("next"),
		})
	}
}

// POST /login/
func Login(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.PostForm("email")
		password := c.PostForm("password")
		sess := session.FromContext(c)

		user, err := Authenticate(c.Request.Context(), db, email, password)
		if err != nil {
			if !errors.Is(err, ErrInvalidCredentials) {
				log.WithError(err).Error("login failed")
			}
			sess.Flash(session.LevelError, "Invalid credentials")
			templates.Render(c, http.StatusOK, "login.html", gin.H{
				"Title": "Login",
				"Email": email,
				"Next":  c.Query("next"),
			})
			return
		}

		if err := logIn(c, user); err != nil {
			log.WithError(err).Warn("could not drop previous session")
		}
		sess.Flash(session.LevelSuccess, "Login successful")
		log.WithField("user_id", user.ID).Info("user logged in")
		c.Redirect(http.StatusFound, safeNext(c.Query("next")))
	}
}

// GET /logout/
func Logout(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		if err := sess.Invalidate(c.Request.Context()); err != nil {
			log.WithError(err).Warn("could not delete session on logout")
		}
		sess.Flash(session.LevelSuccess, "You have been logged out.")
		c.Redirect(http.StatusFound, "/login/")
	}
}

// GET /register/
func RegisterPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		templates.Render(c, http.StatusOK, "register.html", gin.H{
			"Title":  "Register",
			"Form":   RegistrationForm{},
			"Errors": map[string]string{},
		})
	}
}

// POST /register/
func Register(db *gorm.DB, mailer mail.Mailer, tokens *VerificationTokens, cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	forms.Setup()
	return func(c *gin.Context) {
		sess := session.FromContext(c)

		var form RegistrationForm
		bindErr := c.ShouldBind(&form)
		fieldErrors := forms.Errors(bindErr)

		var user *models.User
		if bindErr == nil {
			var err error
			user, err = RegisterUser(c.Request.Context(), db, form)
			switch {
			case errors.Is(err, ErrEmailTaken):
				fieldErrors["email"] = "Email already exists."
			case err != nil:
				log.WithError(err).Error("registration failed")
				fieldErrors["form"] = "Something went wrong. Please try again."
			}
		}

		if len(fieldErrors) > 0 {
			sess.Flash(session.LevelError, "Registration failed. Please correct the errors below.")
			form.Password1, form.Password2 = "", ""
			templates.Render(c, http.StatusOK, "register.html", gin.H{
				"Title":  "Register",
				"Form":   form,
				"Errors": fieldErrors,
			})
			return
		}

		SendVerificationEmail(c, mailer, tokens, cfg, log, user)

		log.WithField("user_id", user.ID).Info("user registered")
		sess.Flash(session.LevelSuccess, "Registration successful. Please check your email to verify your account.")
		c.Redirect(http.StatusFound, "/email-verification-sent/")
	}
}

// SendVerificationEmail mails the verification link. Failures are logged;
// the account already exists at this point.
func SendVerificationEmail(c *gin.Context, mailer mail.Mailer, tokens *VerificationTokens, cfg *config.Config, log *logrus.Logger, user *models.User) {
	path, err := tokens.VerificationPath(user)
	if err != nil {
		log.WithError(err).Error("could not create verification token")
		return
	}
	msg := mail.VerificationEmail(*user, cfg.AbsoluteURL(c.Request, path))
	if err := mailer.Send(c.Request.Context(), msg); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("verification email failed")
	}
}

// GET /verify-email/:uidb64/:token/
func VerifyEmail(db *gorm.DB, tokens *VerificationTokens, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)

		user, err := MarkVerified(c.Request.Context(), db, tokens, c.Param("uidb64"), c.Param("token"))
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				log.WithError(err).Error("email verification failed")
			}
			sess.Flash(session.LevelError, "Verification link is invalid or expired.")
			c.Redirect(http.StatusFound, "/login/")
			return
		}

		log.WithField("user_id", user.ID).Info("email verified")
		sess.Flash(session.LevelSuccess, "Email verified successfully! You can now log in.")
		c.Redirect(http.StatusFound, "/login/")
	}
}

// GET /email-verification-sent/
func VerificationSent() gin.HandlerFunc {
	return func(c *gin.Context) {
		templates.Render(c, http.StatusOK, "email_verification_sent.html", gin.H{
			"Title": "Verify your email",
		})
	}
}
