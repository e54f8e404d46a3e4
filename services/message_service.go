package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/ws"
)

// MessageService, mesajlaşma iş mantığı interface'i.
//
//   - Send: Yeni mesaj gönder — ID ve created_at server atar, iki tarafın
//     tüm bağlantılarına WS fan-out yapılır
//   - ListConversation: Viewer ile peer arasındaki tüm mesajları total
//     order'da getir; yan etki olarak konuşmayı okundu işaretler
//     (focus = resync = read reset)
//   - AgentConversations: Agent inbox projeksiyonu — atanmış kullanıcı başına
//     son mesaj + unread count
type MessageService interface {
	Send(ctx context.Context, senderID, peerID string, req *models.CreateMessageRequest) (*models.DirectMessage, error)
	ListConversation(ctx context.Context, viewerID, peerID string) ([]models.DirectMessage, error)
	AgentConversations(ctx context.Context, agentID string) ([]models.AgentConversationItem, error)
}

type messageService struct {
	principalRepo repository.PrincipalRepository
	messageRepo   repository.MessageRepository
	readStateRepo repository.ReadStateRepository
	hub           ws.EventPublisher
	limiter       *ratelimit.MessageRateLimiter
}

// NewMessageService, constructor.
func NewMessageService(
	principalRepo repository.PrincipalRepository,
	messageRepo repository.MessageRepository,
	readStateRepo repository.ReadStateRepository,
	hub ws.EventPublisher,
	limiter *ratelimit.MessageRateLimiter,
) MessageService {
	return &messageService{
		principalRepo: principalRepo,
		messageRepo:   messageRepo,
		readStateRepo: readStateRepo,
		hub:           hub,
		limiter:       limiter,
	}
}

// Send, yeni bir mesaj oluşturur ve iki tarafa fan-out yapar.
//
// ID server tarafından atanır (UUID) — aynı principal'ın iki tab'ından
// eşzamanlı gönderimler çakışamaz, client'lar push edilen kopyayı bu ID
// ile de-duplicate eder. created_at da server saatidir: konuşma içi total
// order tek bir saatten beslenir.
//
// Fan-out HER İKİ tarafa yapılır: alıcının tüm bağlantıları VE gönderenin
// diğer tab'ları aynı message_create event'ini alır.
func (s *messageService) Send(ctx context.Context, senderID, peerID string, req *models.CreateMessageRequest) (*models.DirectMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if senderID == peerID {
		return nil, fmt.Errorf("%w: cannot message yourself", pkg.ErrBadRequest)
	}

	// Sadece eşleştirilmiş user↔agent çiftleri mesajlaşabilir.
	paired, err := s.principalRepo.ArePaired(ctx, senderID, peerID)
	if err != nil {
		return nil, err
	}
	if !paired {
		return nil, fmt.Errorf("%w: principals are not paired", pkg.ErrForbidden)
	}

	if !s.limiter.Allow(senderID) {
		return nil, fmt.Errorf("%w: too many messages, retry in %d seconds",
			pkg.ErrRateLimited, s.limiter.CooldownSeconds(senderID))
	}

	msg := &models.DirectMessage{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: peerID,
		Content:     req.Content,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	// DB kaydından SONRA broadcast — client'lar asla store'da olmayan
	// bir mesaj görmez.
	event := ws.Event{Op: ws.OpMessageCreate, Data: msg}
	s.hub.BroadcastToUser(peerID, event)
	s.hub.BroadcastToUser(senderID, event)

	return msg, nil
}

// ListConversation, viewer ile peer arasındaki mesajları döner ve konuşmayı
// okundu işaretler.
//
// Focus her zaman bir resync noktasıdır: client bağlantı kopukluklarında
// kaçırdığını buradan telafi eder, server da aynı anda unread sayacını
// sıfırlamış olur.
func (s *messageService) ListConversation(ctx context.Context, viewerID, peerID string) ([]models.DirectMessage, error) {
	paired, err := s.principalRepo.ArePaired(ctx, viewerID, peerID)
	if err != nil {
		return nil, err
	}
	if !paired {
		return nil, fmt.Errorf("%w: principals are not paired", pkg.ErrForbidden)
	}

	messages, err := s.messageRepo.ListConversation(ctx, viewerID, peerID)
	if err != nil {
		return nil, err
	}

	// Okundu işareti en yeni mesajın zamanına kadar — request'in işlendiği
	// ana kadar değil. Fetch ile eşzamanlı gelen yeni mesaj unread kalır.
	lastReadAt := time.Now().UTC()
	if n := len(messages); n > 0 {
		lastReadAt = messages[n-1].CreatedAt
	}
	if err := s.readStateRepo.Upsert(ctx, viewerID, peerID, lastReadAt); err != nil {
		return nil, err
	}

	return messages, nil
}

// AgentConversations, agent inbox'ını döner: atanmış kullanıcı başına bir
// satır — kullanıcı bilgisi, son mesaj ve unread count.
func (s *messageService) AgentConversations(ctx context.Context, agentID string) ([]models.AgentConversationItem, error) {
	agent, err := s.principalRepo.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !agent.IsAgent() {
		return nil, fmt.Errorf("%w: inbox is only available to agents", pkg.ErrForbidden)
	}

	users, err := s.principalRepo.ListAssignedUsers(ctx, agentID)
	if err != nil {
		return nil, err
	}

	items := make([]models.AgentConversationItem, 0, len(users))
	for i := range users {
		user := users[i]

		last, err := s.messageRepo.LastMessage(ctx, agentID, user.ID)
		if err != nil {
			return nil, err
		}

		lastReadAt, err := s.readStateRepo.Get(ctx, agentID, user.ID)
		if err != nil {
			return nil, err
		}

		unread, err := s.messageRepo.CountFromSince(ctx, user.ID, agentID, lastReadAt)
		if err != nil {
			return nil, err
		}

		items = append(items, models.AgentConversationItem{
			User:        &user,
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	return items, nil
}
