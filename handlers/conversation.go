package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/services"
)

// ConversationHandler, konuşma endpoint'lerini yöneten struct.
//
// limiter handler'da da tutulur: 429 response'una Retry-After header'ı
// ekleyebilmek için kalan cooldown süresi gerekir.
type ConversationHandler struct {
	messageService services.MessageService
	limiter        *ratelimit.MessageRateLimiter
}

// NewConversationHandler, constructor.
func NewConversationHandler(messageService services.MessageService, limiter *ratelimit.MessageRateLimiter) *ConversationHandler {
	return &ConversationHandler{
		messageService: messageService,
		limiter:        limiter,
	}
}

// History godoc
// GET /api/conversations/{peerId}/messages
// Viewer ile peer arasındaki tüm mesajları eskiden yeniye döner.
//
// Bu endpoint aynı zamanda konuşmayı okundu işaretler — client bir
// konuşmaya odaklandığında bunu çağırır, unread sayacı sıfırlanır.
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.Principal)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	peerID := r.PathValue("peerId")
	if peerID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "peerId is required")
		return
	}

	messages, err := h.messageService.ListConversation(r.Context(), user.ID, peerID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, messages)
}

// Send godoc
// POST /api/conversations/{peerId}/messages
// Body: { "content": "..." }
//
// Mesaj HTTP ile gönderilir, WebSocket ile değil — response'ta server'ın
// atadığı ID ve created_at döner. Push edilen kopya iki tarafın tüm
// bağlantılarına WS üzerinden gider.
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.Principal)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	peerID := r.PathValue("peerId")
	if peerID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "peerId is required")
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messageService.Send(r.Context(), user.ID, peerID, &req)
	if err != nil {
		if errors.Is(err, pkg.ErrRateLimited) {
			w.Header().Set("Retry-After", strconv.Itoa(h.limiter.CooldownSeconds(user.ID)))
		}
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// AgentInbox godoc
// GET /api/agent/conversations
// Agent'a atanmış kullanıcı başına bir satır: kullanıcı, son mesaj, unread count.
// Sadece agent rolü erişebilir (service 403 döner).
func (h *ConversationHandler) AgentInbox(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.Principal)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	items, err := h.messageService.AgentConversations(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, items)
}
