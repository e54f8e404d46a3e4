package repository

import (
	"context"
	"time"
)

// ReadStateRepository, okunma durumu takibi için interface.
//
// Bir (principal, peer) çifti için "en son ne zamana kadar okundu" bilgisi
// tutulur. Konuşma focus'landığında (history fetch) Upsert çağrılır —
// unread count sıfırlanmış olur.
type ReadStateRepository interface {
	Upsert(ctx context.Context, principalID, peerID string, lastReadAt time.Time) error
	// Get, last_read_at değerini döner. Kayıt yoksa zero time döner (hata değil).
	Get(ctx context.Context, principalID, peerID string) (time.Time, error)
}
