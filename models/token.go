package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT token'ın içindeki veriler (payload).
//
// Token üretimi auth collaborator'a aittir — bu servis sadece doğrular.
// Payload'da principal ID'si, rolü ve token'ın expire süresi bulunur.
// Server her request'te bu token'ı doğrular — DB'ye gitmeden
// kullanıcının kim olduğunu bilir.
//
// Bu struct models paketinde tanımlanır çünkü:
// - Birden fazla katman (services, ws, middleware) tarafından kullanılır
// - Circular dependency'yi önler — her katman models'e bağımlı olabilir
type TokenClaims struct {
	PrincipalID string `json:"principal_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}
