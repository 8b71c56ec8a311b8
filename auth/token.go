package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/junaidrashid-git/eshop/models"
)

var ErrInvalidToken = errors.New("verification link is invalid or expired")

const purposeVerifyEmail = "verify_email"

// VerificationTokens issues the signed token in email verification links.
// The token embeds a digest of the user's password hash, email and verified
// flag, so it stops working once any of them changes (in particular once
// the address has been verified).
type VerificationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type verifyClaims struct {
	Purpose string `json:"purpose"`
	State   string `json:"state"`
	jwt.RegisteredClaims
}

func NewVerificationTokens(secret string, ttl time.Duration) *VerificationTokens {
	return &VerificationTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func userState(u *models.User) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%t", u.ID, u.PasswordHash, u.Email, u.IsVerified)))
	return hex.EncodeToString(sum[:16])
}

func (t *VerificationTokens) Make(u *models.User) (string, error) {
	now := t.now()
	claims := verifyClaims{
		Purpose: purposeVerifyEmail,
		State:   userState(u),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Check reports whether token was issued for u in its current state.
func (t *VerificationTokens) Check(u *models.User, token string) error {
	var claims verifyClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.Purpose != purposeVerifyEmail ||
		claims.Subject != strconv.FormatUint(uint64(u.ID), 10) ||
		claims.State != userState(u) {
		return ErrInvalidToken
	}
	return nil
}

// EncodeUID is the url-safe form of a user id used in verification links.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func DecodeUID(s string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// VerificationPath is the site-relative link mailed to a new user.
func (t *VerificationTokens) VerificationPath(u *models.User) (string, error) {
	token, err := t.Make(u)
	if err != nil {
		return "", err
	}
	return "/verify-email/" + EncodeUID(u.ID) + "/" + token + "/", nil
}
