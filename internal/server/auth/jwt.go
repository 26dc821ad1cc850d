// Package auth issues and verifies the access tokens that identify registry
// callers, and answers the ownership questions the workflow asks about them.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the principal alongside the registered JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid"`
	Site   string   `json:"site,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

func GenerateToken(p models.Principal, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: p.UserID,
		Site:   p.Site,
		Roles:  p.Roles,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString and returns the principal it names.
// An expired token yields common.ErrTokenExpired.
func ParseToken(tokenString string, secretKey []byte) (models.Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Principal{}, common.ErrTokenExpired
		}
		return models.Principal{}, err
	}

	if !token.Valid || claims.UserID == "" {
		return models.Principal{}, common.ErrInvalidToken
	}

	return models.Principal{UserID: claims.UserID, Site: claims.Site, Roles: claims.Roles}, nil
}
