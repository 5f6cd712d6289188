package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// AdminLevel is the minimum member level treated as platform admin
const AdminLevel = 10

// Claims is the JWT payload issued by the platform auth service
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Level    int    `json:"level,omitempty"`
}

// IsPlatformAdmin reports whether the claims carry an admin-grade level
func (c *Claims) IsPlatformAdmin() bool {
	return c.Level >= AdminLevel
}

// Manager issues and verifies HMAC-signed tokens
type Manager struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
}

// NewManager creates a new JWT manager
func NewManager(secret, issuer string, expiry time.Duration) *Manager {
	return &Manager{
		secretKey: []byte(secret),
		issuer:    issuer,
		expiry:    expiry,
	}
}

// GenerateToken creates a signed token for the given user
func (m *Manager) GenerateToken(userID, nickname string, level int) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
		UserID:   userID,
		Nickname: nickname,
		Level:    level,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken parses and validates a token string
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
