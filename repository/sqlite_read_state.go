package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqliteReadStateRepo, ReadStateRepository interface'inin SQLite implementasyonu.
type sqliteReadStateRepo struct {
	db *sql.DB
}

// NewSQLiteReadStateRepo, constructor — interface döner.
func NewSQLiteReadStateRepo(db *sql.DB) ReadStateRepository {
	return &sqliteReadStateRepo{db: db}
}

// Upsert, (principal, peer) çiftinin last_read_at değerini günceller veya oluşturur.
//
// MAX(excluded, mevcut) — eşzamanlı iki tab'ın out-of-order upsert'leri
// okunma zamanını geriye taşıyamaz.
func (r *sqliteReadStateRepo) Upsert(ctx context.Context, principalID, peerID string, lastReadAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO read_states (principal_id, peer_id, last_read_at)
		VALUES (?, ?, ?)
		ON CONFLICT(principal_id, peer_id)
		DO UPDATE SET last_read_at = MAX(excluded.last_read_at, read_states.last_read_at)`,
		principalID, peerID, lastReadAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert read state: %w", err)
	}
	return nil
}

// Get, last_read_at değerini döner. Kayıt yoksa zero time — "hiç okunmadı".
func (r *sqliteReadStateRepo) Get(ctx context.Context, principalID, peerID string) (time.Time, error) {
	var lastReadAt time.Time
	err := r.db.QueryRowContext(ctx,
		"SELECT last_read_at FROM read_states WHERE principal_id = ? AND peer_id = ?",
		principalID, peerID,
	).Scan(&lastReadAt)

	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get read state: %w", err)
	}
	return lastReadAt, nil
}
