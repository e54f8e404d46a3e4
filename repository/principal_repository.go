package repository

import (
	"context"

	"github.com/akinalp/destek/models"
)

// PrincipalRepository, principal ve assignment okuma işlemleri için interface.
//
// Assignment işlemleri read-only'dir — user ↔ agent eşleştirmesi bu
// subsystem'in dışında yönetilir:
//   - GetAssignedAgent: Kullanıcının atanmış temsilcisini döner
//   - ListAssignedUsers: Temsilcinin atanmış kullanıcılarını döner
//   - ArePaired: İki principal'ın eşleştirilmiş olup olmadığını kontrol eder
//     (mesajlaşma ve typing relay yetki kontrolü için)
type PrincipalRepository interface {
	GetByID(ctx context.Context, id string) (*models.Principal, error)
	GetAssignedAgent(ctx context.Context, userID string) (*models.Principal, error)
	ListAssignedUsers(ctx context.Context, agentID string) ([]models.Principal, error)
	ArePaired(ctx context.Context, aID, bID string) (bool, error)
}
