package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

// sqlitePrincipalRepo, PrincipalRepository interface'inin SQLite implementasyonu.
type sqlitePrincipalRepo struct {
	db *sql.DB
}

// NewSQLitePrincipalRepo, constructor — interface döner.
func NewSQLitePrincipalRepo(db *sql.DB) PrincipalRepository {
	return &sqlitePrincipalRepo{db: db}
}

// GetByID, ID ile principal döner.
func (r *sqlitePrincipalRepo) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, display_name, role, created_at FROM principals WHERE id = ?",
		id,
	)
	return scanPrincipal(row)
}

// GetAssignedAgent, kullanıcının atanmış temsilcisini döner.
// Atama yoksa ErrNotFound.
func (r *sqlitePrincipalRepo) GetAssignedAgent(ctx context.Context, userID string) (*models.Principal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.username, p.display_name, p.role, p.created_at
		FROM assignments a
		JOIN principals p ON p.id = a.agent_id
		WHERE a.user_id = ?`,
		userID,
	)
	return scanPrincipal(row)
}

// ListAssignedUsers, temsilciye atanmış tüm kullanıcıları döner.
// Agent inbox'ının satır kaynağıdır.
func (r *sqlitePrincipalRepo) ListAssignedUsers(ctx context.Context, agentID string) ([]models.Principal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.username, p.display_name, p.role, p.created_at
		FROM assignments a
		JOIN principals p ON p.id = a.user_id
		WHERE a.agent_id = ?
		ORDER BY p.username`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned users: %w", err)
	}
	defer rows.Close()

	var users []models.Principal
	for rows.Next() {
		var p models.Principal
		var displayName sql.NullString

		if err := rows.Scan(&p.ID, &p.Username, &displayName, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		if displayName.Valid {
			p.DisplayName = &displayName.String
		}
		users = append(users, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assigned users: %w", err)
	}

	if users == nil {
		users = []models.Principal{}
	}
	return users, nil
}

// ArePaired, iki principal arasında assignment olup olmadığını döner.
// Yön bağımsızdır — (user, agent) veya (agent, user) fark etmez.
func (r *sqlitePrincipalRepo) ArePaired(ctx context.Context, aID, bID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assignments
		WHERE (user_id = ? AND agent_id = ?) OR (user_id = ? AND agent_id = ?)`,
		aID, bID, bID, aID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pairing: %w", err)
	}
	return count > 0, nil
}

// scanPrincipal, tek satırlık principal sorgularının ortak scan'i.
func scanPrincipal(row *sql.Row) (*models.Principal, error) {
	var p models.Principal
	var displayName sql.NullString

	err := row.Scan(&p.ID, &p.Username, &displayName, &p.Role, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: principal not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	if displayName.Valid {
		p.DisplayName = &displayName.String
	}
	return &p, nil
}
