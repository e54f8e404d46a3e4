package repository

import (
	"context"
	"time"

	"github.com/akinalp/destek/models"
)

// MessageRepository, mesaj veritabanı işlemleri için interface.
//
//   - Create: Yeni mesaj kaydet (ID ve created_at service katmanında atanır)
//   - ListConversation: İki principal arasındaki tüm mesajları total order'da getir
//   - LastMessage: Konuşmanın en yeni mesajını getir (inbox satırı için)
//   - CountFromSince: Bir peer'dan gelen, verilen zamandan yeni mesaj sayısı
//     (unread count hesabı)
type MessageRepository interface {
	Create(ctx context.Context, msg *models.DirectMessage) error
	ListConversation(ctx context.Context, aID, bID string) ([]models.DirectMessage, error)
	LastMessage(ctx context.Context, aID, bID string) (*models.DirectMessage, error)
	CountFromSince(ctx context.Context, fromID, toID string, since time.Time) (int, error)
}
