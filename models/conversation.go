package models

// AgentConversationItem, agent inbox'ının tek bir satırı: atanmış bir
// kullanıcı, son mesaj ve okunmamış mesaj sayısı.
//
// Detay konuşma görünümünden (mesaj listesi) ayrı bir projeksiyondur —
// satırın tam history'si yüklenmeden render edilebilir.
type AgentConversationItem struct {
	User        *Principal     `json:"user"`
	LastMessage *DirectMessage `json:"last_message"` // Nullable — henüz mesaj yoksa nil
	UnreadCount int            `json:"unread_count"`
}
