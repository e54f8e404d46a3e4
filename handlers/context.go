// Package handlers, HTTP endpoint'lerinin giriş noktalarını barındırır.
//
// Handler'lar sadece HTTP detaylarıyla ilgilenir: request parse, context'ten
// principal okuma, service çağrısı, response yazma. İş mantığı service
// katmanındadır.
package handlers

// contextKey, context value çakışmalarını önlemek için özel tip.
// String yerine özel tip kullanmak Go idiyomudur — başka paketlerin
// aynı string key ile yazdığı değerlerle karışmaz.
type contextKey string

// UserContextKey, auth middleware'ın doğrulanmış principal'ı context'e
// koyduğu anahtar. Handler'lar r.Context().Value(UserContextKey) ile okur.
const UserContextKey contextKey = "user"
