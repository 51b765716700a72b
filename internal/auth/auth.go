// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	subjectUser  = "user"
	subjectAdmin = "admin"

	bcryptCost = 12
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry either a user id or an admin id, never both.
type Claims struct {
	UserID  string `json:"userId,omitempty"`
	AdminID string `json:"adminId,omitempty"`
	Type    string `json:"type"`
	jwt.RegisteredClaims
}

// Tokens signs and parses HS256 tokens with a shared secret.
type Tokens struct {
	secret  []byte
	expires time.Duration
	now     func() time.Time
}

func NewTokens(secret string, expires time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), expires: expires, now: time.Now}
}

func (t *Tokens) IssueUser(userID string) (string, error) {
	return t.issue(Claims{UserID: userID, Type: subjectUser})
}

func (t *Tokens) IssueAdmin(adminID string) (string, error) {
	return t.issue(Claims{AdminID: adminID, Type: subjectAdmin})
}

func (t *Tokens) issue(claims Claims) (string, error) {
	now := t.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.expires))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseUser returns the user id carried by a user token.
func (t *Tokens) ParseUser(tokenString string) (string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Type != subjectUser || claims.UserID == "" {
		return "", fmt.Errorf("%w: not a user token", ErrInvalidToken)
	}
	return claims.UserID, nil
}

// ParseAdmin returns the admin id carried by an admin token.
func (t *Tokens) ParseAdmin(tokenString string) (string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Type != subjectAdmin || claims.AdminID == "" {
		return "", fmt.Errorf("%w: admin token required", ErrInvalidToken)
	}
	return claims.AdminID, nil
}

func (t *Tokens) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
