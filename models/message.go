package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DirectMessage, iki principal arasındaki tek bir mesajı temsil eder.
//
// Oluşturulduktan sonra immutable'dır — düzenleme/silme yoktur.
// ID server tarafından atanır (UUID); aynı principal'ın iki tab'ından
// eşzamanlı gönderimler bile çakışamaz. CreatedAt da server saatidir.
//
// Sıralama invariant'ı: bir konuşmadaki mesajlar (created_at, id) çiftine
// göre total order'dadır. Client, history + canlı event merge'lerinde bu
// sırayı asla geriye döndürmemelidir.
type DirectMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Before, m'nin other'dan önce gelip gelmediğini (created_at, id) total
// order'ına göre döner. created_at eşitse id ile tie-break yapılır.
func (m *DirectMessage) Before(other *DirectMessage) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// PeerOf, mesajın viewer açısından karşı tarafını döner.
// Viewer gönderen ise alıcıyı, alıcı ise göndereni verir.
func (m *DirectMessage) PeerOf(viewerID string) string {
	if m.SenderID == viewerID {
		return m.RecipientID
	}
	return m.SenderID
}

// CreateMessageRequest, yeni mesaj gönderme isteği.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// Validate, CreateMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *CreateMessageRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("message content is required")
	}
	if contentLen > 2000 {
		return fmt.Errorf("message content must be at most 2000 characters")
	}
	return nil
}
