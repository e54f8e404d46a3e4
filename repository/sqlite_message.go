package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akinalp/destek/models"
)

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db *sql.DB
}

// NewSQLiteMessageRepo, constructor — interface döner.
func NewSQLiteMessageRepo(db *sql.DB) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

// Create, yeni bir mesaj kaydeder.
// ID ve created_at çağıran tarafından (service) atanmış olmalıdır.
func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.DirectMessage) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (id, sender_id, recipient_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SenderID, msg.RecipientID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListConversation, iki principal arasındaki tüm mesajları total order'da döner.
//
// ORDER BY created_at, id — aynı saniyede yazılan mesajlarda id tie-break
// yapar. Client merge algoritması da aynı sırayı kullanır.
func (r *sqliteMessageRepo) ListConversation(ctx context.Context, aID, bID string) ([]models.DirectMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at
		FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at, id`,
		aID, bID, bID, aID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	var messages []models.DirectMessage
	for rows.Next() {
		var m models.DirectMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	if messages == nil {
		messages = []models.DirectMessage{}
	}
	return messages, nil
}

// LastMessage, konuşmanın en yeni mesajını döner. Mesaj yoksa nil (hata değil) —
// inbox satırı "henüz mesaj yok" durumunu gösterebilmeli.
func (r *sqliteMessageRepo) LastMessage(ctx context.Context, aID, bID string) (*models.DirectMessage, error) {
	var m models.DirectMessage
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at
		FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		aID, bID, bID, aID,
	).Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}
	return &m, nil
}

// CountFromSince, fromID'den toID'ye gönderilmiş ve since'ten yeni olan
// mesaj sayısını döner. since zero value ise tüm mesajlar sayılır.
func (r *sqliteMessageRepo) CountFromSince(ctx context.Context, fromID, toID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE sender_id = ? AND recipient_id = ? AND created_at > ?`,
		fromID, toID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
