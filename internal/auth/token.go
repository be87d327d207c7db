package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// LegacyTokenClaims is the payload of a locally minted bearer token. Used only
// in legacy mode, while the identity provider is not yet available.
type LegacyTokenClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// LegacyTokenManager signs and verifies short-lived bearer tokens with a
// symmetric secret. There is no refresh; clients re-authenticate on expiry.
type LegacyTokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewLegacyTokenManager creates a new LegacyTokenManager
func NewLegacyTokenManager(secret string, expiry time.Duration) *LegacyTokenManager {
	return &LegacyTokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Expiry reports the lifetime of minted tokens.
func (tm *LegacyTokenManager) Expiry() time.Duration {
	return tm.expiry
}

// Mint creates a signed token carrying the subject username and local user id.
func (tm *LegacyTokenManager) Mint(username string, userID int64) (string, error) {
	now := time.Now()

	claims := &LegacyTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry and returns the claims.
func (tm *LegacyTokenManager) Verify(tokenString string) (*LegacyTokenClaims, error) {
	claims := &LegacyTokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Subject == "" || claims.UserID == 0 {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
