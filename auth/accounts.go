package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/models"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RegistrationForm mirrors the signup page.
type RegistrationForm struct {
	Email     string `form:"email" binding:"required,email,max=254"`
	FirstName string `form:"first_name" binding:"max=30"`
	LastName  string `form:"last_name" binding:"max=30"`
	Password1 string `form:"password1" binding:"required,min=8"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

// RegisterUser creates an active, unverified account.
func RegisterUser(ctx context.Context, db *gorm.DB, form RegistrationForm) (*models.User, error) {
	email := models.NormalizeEmail(form.Email)

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &models.User{
		Email:     email,
		Username:  strings.SplitN(email, "@", 2)[0],
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Provider:  "email",
		IsActive:  true,
	}
	if err := user.SetPassword(form.Password1); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		// lost a race with another signup for the same address
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks an email/password pair. Inactive accounts are
// rejected the same way as a wrong password.
func Authenticate(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	if err := db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkVerified flips is_verified once the emailed token checks out.
func MarkVerified(ctx context.Context, db *gorm.DB, tokens *VerificationTokens, uidb64, token string) (*models.User, error) {
	id, err := DecodeUID(uidb64)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := tokens.Check(&user, token); err != nil {
		return nil, err
	}

	user.IsVerified = true
	if err := db.WithContext(ctx).Model(&user).Update("is_verified", true).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
