package models

import "time"

// PrincipalRole, bir principal'ın rolüdür: son kullanıcı veya destek temsilcisi.
type PrincipalRole string

const (
	RoleUser  PrincipalRole = "user"
	RoleAgent PrincipalRole = "agent"
)

// Principal, authenticate olmuş bir aktörü temsil eder.
//
// İki rol vardır: "user" (son kullanıcı) ve "agent" (destek temsilcisi).
// Bir user en fazla bir agent'a atanır (assignments tablosu) — eşleştirme
// bu subsystem'in dışında yapılır, burada sadece okunur.
//
// Online/offline durumu burada TUTULMAZ — presence, canlı bağlantı
// sayısından türetilir (ws.PresenceTracker) ve kalıcı değildir.
type Principal struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	DisplayName *string       `json:"display_name"` // Nullable — ayarlanmamışsa nil
	Role        PrincipalRole `json:"role"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsAgent, principal'ın destek temsilcisi olup olmadığını döner.
func (p *Principal) IsAgent() bool {
	return p.Role == RoleAgent
}

// Assignment, bir user ↔ agent eşleştirmesini temsil eder.
// user_id üzerinde UNIQUE constraint vardır — bir kullanıcının tek temsilcisi olur.
type Assignment struct {
	UserID    string    `json:"user_id"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
}
