package services

import (
	"context"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/repository"
)

// PrincipalService, principal okuma iş mantığı interface'i.
//
//   - AssignedAgent: Kullanıcının atanmış temsilcisini döner — kullanıcı
//     istemcisi açılışta konuşacağı peer'ı buradan çözer
type PrincipalService interface {
	AssignedAgent(ctx context.Context, userID string) (*models.Principal, error)
}

type principalService struct {
	principalRepo repository.PrincipalRepository
}

// NewPrincipalService, constructor.
func NewPrincipalService(principalRepo repository.PrincipalRepository) PrincipalService {
	return &principalService{principalRepo: principalRepo}
}

// AssignedAgent, kullanıcının atanmış temsilcisini döner.
// Atama yoksa ErrNotFound — kullanıcı henüz bir temsilciye bağlanmamış.
// Atamalar bu subsystem'in dışında yönetilir, buradan sadece okunur.
func (s *principalService) AssignedAgent(ctx context.Context, userID string) (*models.Principal, error) {
	return s.principalRepo.GetAssignedAgent(ctx, userID)
}
