package services

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

// AuthService, kimlik doğrulama iş mantığı interface'i.
//
// Token ÜRETİMİ bu servise ait değildir — imzalı, yenilenebilir credential
// auth collaborator tarafından verilir. Burada sadece doğrulama yapılır:
// HTTP middleware ve WebSocket handshake aynı metodu kullanır.
type AuthService interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

type authService struct {
	jwtSecret string
}

// NewAuthService, constructor.
func NewAuthService(jwtSecret string) AuthService {
	return &authService{jwtSecret: jwtSecret}
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
//
// İmza algoritması kontrolü önemli: "alg: none" veya RS256 ile gelen
// token'lar reddedilir — sadece HMAC kabul edilir.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	if claims.PrincipalID == "" {
		return nil, fmt.Errorf("%w: token missing principal_id", pkg.ErrUnauthorized)
	}

	return claims, nil
}
