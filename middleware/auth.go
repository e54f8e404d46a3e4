// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// "next" parametresi zincirdeki bir sonraki handler'dır. Middleware kendi
// işini yapar (ör: token doğrula), sonra next'i çağırır. Hata varsa next'i
// çağırmaz — request burada durur.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akinalp/destek/handlers"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/services"
)

// AuthMiddleware, JWT token doğrulama middleware'ı.
type AuthMiddleware struct {
	authService   services.AuthService
	principalRepo repository.PrincipalRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService, principalRepo repository.PrincipalRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService:   authService,
		principalRepo: principalRepo,
	}
}

// Require, JWT token zorunlu kılan middleware.
// Token yoksa veya geçersizse → 401 Unauthorized.
//
// HTTP header formatı: Authorization: Bearer <token>
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		// Token geçerli ama principal silinmiş olabilir — DB'den doğrula.
		principal, err := m.principalRepo.GetByID(r.Context(), claims.PrincipalID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "principal not found")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
