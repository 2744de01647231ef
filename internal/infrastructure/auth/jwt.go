package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/pharmledger/internal/domain"
)

// Claims carries the actor and organization a request acts for.
type Claims struct {
	ActorID        string `json:"actor_id"`
	OrganizationID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// Scope converts the claims into a query scope.
func (c *Claims) Scope() domain.Scope {
	return domain.Scope{ActorID: c.ActorID, OrganizationID: c.OrganizationID}
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate signs a token for scope. Tokens are normally minted by the
// upstream identity service; this is used by the CLI and tests.
func (m *JWTManager) Generate(scope domain.Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		ActorID:        scope.ActorID,
		OrganizationID: scope.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   scope.ActorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify verifies a JWT token and returns the claims
func (m *JWTManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	// older tokens only carry the subject
	if claims.ActorID == "" {
		claims.ActorID = claims.Subject
	}
	if claims.ActorID == "" {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
