package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go"
	firebaseauth "firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/config"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/session"
)

// GoogleIdentity is what a verified Google ID token tells us.
type GoogleIdentity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type FirebaseVerifier struct {
	client    *firebaseauth.Client
	projectID string
}

// NewFirebaseVerifier returns nil, nil when Firebase is not configured;
// Google sign-in is then left off the router.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.CredentialsJSON == "" || cfg.ProjectID == "" {
		return nil, nil
	}

	opt := option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, projectID: cfg.ProjectID}, nil
}

func (f *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	token, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if token.Audience != f.projectID {
		return nil, errors.New("invalid token audience")
	}

	id := &GoogleIdentity{UID: token.UID}
	id.Email, _ = token.Claims["email"].(string)
	id.EmailVerified, _ = token.Claims["email_verified"].(bool)
	id.Name, _ = token.Claims["name"].(string)
	id.Picture, _ = token.Claims["picture"].(string)
	if id.Email == "" {
		return nil, errors.New("token has no email claim")
	}
	return id, nil
}

// FindOrCreateGoogleUser links a Google identity to an account by email.
// Google has already confirmed the address when EmailVerified is set.
func FindOrCreateGoogleUser(ctx context.Context, db *gorm.DB, id *GoogleIdentity) (*models.User, error) {
	email := models.NormalizeEmail(id.Email)

	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:          email,
			Username:       strings.SplitN(email, "@", 2)[0],
			ProfilePicture: id.Picture,
			Provider:       "google",
			IsVerified:     id.EmailVerified,
			IsActive:       true,
		}
		user.SetFullName(id.Name)
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case err != nil:
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if id.EmailVerified && !user.IsVerified {
		user.IsVerified = true
		if err := db.WithContext(ctx).Model(&user).Update("is_verified", true).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// GoogleLogin accepts {"idToken": "..."} from the Firebase JS SDK and logs
// the browser session in.
func GoogleLogin(db *gorm.DB, verifier IDTokenVerifier, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IDToken string `json:"idToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), req.IDToken)
		if err != nil {
			log.WithError(err).Warn("google sign-in rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google ID token"})
			return
		}

		user, err := FindOrCreateGoogleUser(c.Request.Context(), db, identity)
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
			return
		}
		if err != nil {
			log.WithError(err).Error("google sign-in failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		if err := logIn(c, user); err != nil {
			log.WithError(err).Error("session rotate failed")
		}
		sess := session.FromContext(c)
		sess.Flash(session.LevelSuccess, "Login successful")

		c.JSON(http.StatusOK, gin.H{"message": "Login successful", "redirect": "/"})
	}
}
