package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Username       string     `gorm:"size:150" json:"username"`
	FirstName      string     `gorm:"size:150" json:"first_name"`
	LastName       string     `gorm:"size:150" json:"last_name"`
	PasswordHash   string     `json:"-"`
	Address        Address    `gorm:"embedded" json:"address"`
	ProfilePicture string     `json:"profile_picture"`
	Provider       string     `gorm:"size:32" json:"provider"`
	IsVerified     bool       `gorm:"not null" json:"is_verified"`
	IsStaff        bool       `gorm:"not null" json:"is_staff"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	LastLogin      *time.Time `json:"last_login"`
	DateJoined     time.Time  `gorm:"autoCreateTime" json:"date_joined"`
}

// Address model embedded in User
type Address struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	Mobile       string `json:"mobile"`
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches. Users without a password
// (Google sign-in) never match.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetFullName splits on whitespace: the first word becomes the first name,
// the rest the last name.
func (u *User) SetFullName(full string) {
	parts := strings.Fields(full)
	u.FirstName, u.LastName = "", ""
	if len(parts) > 0 {
		u.FirstName = parts[0]
	}
	if len(parts) > 1 {
		u.LastName = strings.Join(parts[1:], " ")
	}
}

// DisplayName falls back to the username, then the email.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
