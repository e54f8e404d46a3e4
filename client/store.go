package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/ws"
)

// ConversationState, bir konuşmanın yüklenme durumu.
type ConversationState string

const (
	// StateUnloaded: History henüz çekilmedi — sadece unread sayacı işler.
	StateUnloaded ConversationState = "unloaded"
	// StateLoading: History fetch devam ediyor — canlı mesajlar buffer'lanır.
	StateLoading ConversationState = "loading"
	// StateReady: Mesaj listesi güncel — canlı mesajlar doğrudan merge edilir.
	StateReady ConversationState = "ready"
)

// conversation, tek bir peer ile olan konuşmanın client-side state'i.
type conversation struct {
	state    ConversationState
	messages []models.DirectMessage
	seen     map[string]bool // mesaj ID bazlı de-duplication
	// pending: loading sırasında gelen canlı mesajlar. Fetch bittiğinde
	// history'nin üzerine merge edilir — kayıp da çift de olmaz.
	pending []models.DirectMessage

	unread      int
	peerOnline  bool
	peerTyping  bool
	typingTimer *time.Timer
}

// ConversationStore, istemci tarafı konuşma state'inin tek sahibidir.
//
// Kaynaklar:
//   - HistoryAPI: focus edilen konuşmanın geçmişi (doğruluk kaynağı)
//   - Channel event'leri: canlı mesaj/presence/typing güncellemeleri
//
// İki kaynak arasındaki tutarlılık kuralları:
//   - Her mesaj ID ile de-dup edilir — kendi gönderdiğin mesajın WS kopyası
//     HTTP response ile çakışmaz
//   - Loading sırasında gelen canlı mesajlar buffer'lanır, fetch bitince
//     merge edilir
//   - Reconnect sonrası focus'taki konuşma yeniden fetch edilir —
//     kopukluk sırasında kaçan mesajlar böyle telafi edilir
type ConversationStore struct {
	selfID        string
	api           HistoryClient
	typingTimeout time.Duration

	mu            sync.Mutex
	conversations map[string]*conversation
	focused       string // "" = hiçbir konuşma focus'ta değil

	// inbox: agent istemcilerde atanmış kullanıcı başına özet satır.
	// Kullanıcı istemcilerde boş kalır.
	inbox map[string]*models.AgentConversationItem

	changeSubs *subscribers[string] // değişen konuşmanın peerID'si
}

// NewConversationStore, constructor.
// selfID: bu istemcinin principal ID'si — mesajın hangi konuşmaya ait
// olduğu PeerOf ile bundan türetilir.
func NewConversationStore(selfID string, api HistoryClient, typingTimeout time.Duration) *ConversationStore {
	return &ConversationStore{
		selfID:        selfID,
		api:           api,
		typingTimeout: typingTimeout,
		conversations: make(map[string]*conversation),
		inbox:         make(map[string]*models.AgentConversationItem),
		changeSubs:    newSubscribers[string](),
	}
}

// Bind, store'u bir Channel'ın event'lerine abone eder.
// Dönen fonksiyon tüm abonelikleri kaldırır.
func (s *ConversationStore) Bind(ch *Channel) func() {
	unsubs := []func(){
		ch.OnMessage(s.HandleMessage),
		ch.OnTyping(s.HandleTyping),
		ch.OnPresence(s.HandlePresence),
		ch.OnPresenceSnapshot(s.HandlePresenceSnapshot),
		ch.OnStatus(s.HandleStatus),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// OnChange, herhangi bir konuşma değiştiğinde çağrılacak callback kaydeder.
// Callback'e değişen konuşmanın peerID'si verilir — UI sadece o konuşmayı
// yeniden çizer.
func (s *ConversationStore) OnChange(fn func(peerID string)) func() {
	return s.changeSubs.add(fn)
}

// Focus, bir konuşmayı aktif hale getirir ve history'sini yükler.
//
// Sıralama garantisi:
//  1. State loading olur, o ana kadarki pending temizlenir
//  2. Fetch sırasında gelen canlı mesajlar pending'e buffer'lanır
//  3. Fetch bitince liste history'den yeniden kurulur + pending merge edilir
//  4. Unread sıfırlanır (server da fetch ile okundu işaretledi)
//
// Fetch başarısız olursa konuşma unloaded'a döner — bir sonraki Focus
// tekrar dener.
func (s *ConversationStore) Focus(ctx context.Context, peerID string) error {
	s.mu.Lock()
	s.focused = peerID
	s.beginLoadLocked(peerID)
	s.mu.Unlock()
	s.changeSubs.emit(peerID)

	return s.load(ctx, peerID)
}

// beginLoadLocked, konuşmayı loading'e alır ve pending buffer'ını sıfırlar.
// s.mu tutulurken çağrılmalıdır.
func (s *ConversationStore) beginLoadLocked(peerID string) {
	convo := s.ensureLocked(peerID)
	convo.state = StateLoading
	convo.pending = nil
}

// load, history'yi çekip konuşma listesini yeniden kurar ve pending'i
// merge eder.
//
// Unread sıfırlama ve inbox reset SADECE konuşma fetch bittiğinde hâlâ
// focus'taysa yapılır: fetch sürerken kullanıcı başka peer'a geçtiyse bu
// konuşmanın okunmamışları korunur.
func (s *ConversationStore) load(ctx context.Context, peerID string) error {
	history, err := s.api.History(ctx, peerID)

	s.mu.Lock()
	convo := s.ensureLocked(peerID)
	if err != nil {
		convo.state = StateUnloaded
		convo.pending = nil
		s.mu.Unlock()
		s.changeSubs.emit(peerID)
		return err
	}

	convo.messages = nil
	convo.seen = make(map[string]bool)
	for i := range history {
		insertOrdered(convo, history[i])
	}
	for i := range convo.pending {
		insertOrdered(convo, convo.pending[i])
	}
	convo.pending = nil
	convo.state = StateReady
	if s.focused == peerID {
		convo.unread = 0
		if item, ok := s.inbox[peerID]; ok {
			item.UnreadCount = 0
		}
	}
	s.mu.Unlock()

	s.changeSubs.emit(peerID)
	return nil
}

// Blur, aktif konuşmayı bırakır. Yeni mesajlar artık unread sayar.
func (s *ConversationStore) Blur() {
	s.mu.Lock()
	s.focused = ""
	s.mu.Unlock()
}

// Focused, aktif konuşmanın peerID'sini döner ("" = yok).
func (s *ConversationStore) Focused() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Messages, konuşmanın mesajlarının kopyasını eskiden yeniye döner.
func (s *ConversationStore) Messages(peerID string) []models.DirectMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo, ok := s.conversations[peerID]
	if !ok {
		return nil
	}
	out := make([]models.DirectMessage, len(convo.messages))
	copy(out, convo.messages)
	return out
}

// State, konuşmanın yüklenme durumunu döner.
func (s *ConversationStore) State(peerID string) ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if convo, ok := s.conversations[peerID]; ok {
		return convo.state
	}
	return StateUnloaded
}

// Unread, konuşmadaki okunmamış mesaj sayısını döner.
func (s *ConversationStore) Unread(peerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if convo, ok := s.conversations[peerID]; ok {
		return convo.unread
	}
	return 0
}

// PeerOnline, peer'ın son bilinen online durumunu döner.
func (s *ConversationStore) PeerOnline(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if convo, ok := s.conversations[peerID]; ok {
		return convo.peerOnline
	}
	return false
}

// PeerTyping, peer'ın şu an yazıp yazmadığını döner.
func (s *ConversationStore) PeerTyping(peerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if convo, ok := s.conversations[peerID]; ok {
		return convo.peerTyping
	}
	return false
}

// ─── Agent Inbox ───

// LoadInbox, agent inbox'ını server'dan çeker. Agent istemciler açılışta çağırır.
func (s *ConversationStore) LoadInbox(ctx context.Context) error {
	items, err := s.api.AgentInbox(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.inbox = make(map[string]*models.AgentConversationItem, len(items))
	for i := range items {
		item := items[i]
		s.inbox[item.User.ID] = &item
		// Server'ın unread sayısı doğruluk kaynağı — local sayacı hizala.
		s.ensureLocked(item.User.ID).unread = item.UnreadCount
	}
	s.mu.Unlock()

	s.changeSubs.emit("")
	return nil
}

// Inbox, inbox satırlarını son mesajı en yeni olan önce sıralı döner.
// Hiç mesajı olmayan atamalar listenin sonunda yer alır.
func (s *ConversationStore) Inbox() []models.AgentConversationItem {
	s.mu.Lock()
	items := make([]models.AgentConversationItem, 0, len(s.inbox))
	for _, item := range s.inbox {
		items = append(items, *item)
	}
	s.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].LastMessage, items[j].LastMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return b.Before(a)
	})
	return items
}

// ─── Channel Event Handler'ları ───

// HandleMessage, push edilen bir mesajı ilgili konuşmaya işler.
//
// Mesaj kendi gönderdiğimiz de olabilir (diğer tab'ın echo'su) — PeerOf
// konuşmayı iki durumda da doğru bulur. Unread sadece PEER'den gelen ve
// focus'ta OLMAYAN konuşmanın mesajları için artar.
func (s *ConversationStore) HandleMessage(msg models.DirectMessage) {
	// Server sadece kendi konuşmalarımızı push eder ama yine de doğrula.
	if msg.SenderID != s.selfID && msg.RecipientID != s.selfID {
		return
	}
	peerID := msg.PeerOf(s.selfID)

	s.mu.Lock()
	convo := s.ensureLocked(peerID)

	// Peer mesaj gönderdi — "yazıyor" göstergesi artık anlamsız.
	if msg.SenderID == peerID {
		s.clearTypingLocked(convo)
	}

	duplicate := false
	switch convo.state {
	case StateLoading:
		convo.pending = append(convo.pending, msg)
	case StateReady:
		duplicate = !insertOrdered(convo, msg)
	case StateUnloaded:
		// Liste tutulmuyor — mesaj bir sonraki Focus'ta history'den gelir.
	}

	fromPeer := msg.SenderID == peerID
	if fromPeer && s.focused != peerID && !duplicate {
		convo.unread++
	}

	// Inbox satırını canlı güncelle (agent istemciler).
	if item, ok := s.inbox[peerID]; ok && !duplicate {
		if item.LastMessage == nil || item.LastMessage.Before(&msg) {
			m := msg
			item.LastMessage = &m
		}
		if fromPeer && s.focused != peerID {
			item.UnreadCount++
		}
	}
	s.mu.Unlock()

	s.changeSubs.emit(peerID)
}

// HandleTyping, typing_update event'ini işler.
//
// isTyping=true tek başına kalıcı olmamalı: karşı tarafın false'u
// kaybolursa gösterge asılı kalır. Timeout ile otomatik söner — her yeni
// true timer'ı tazeler.
func (s *ConversationStore) HandleTyping(data ws.TypingUpdateData) {
	s.mu.Lock()
	convo := s.ensureLocked(data.UserID)

	if !data.IsTyping {
		s.clearTypingLocked(convo)
		s.mu.Unlock()
		s.changeSubs.emit(data.UserID)
		return
	}

	convo.peerTyping = true
	if convo.typingTimer != nil {
		convo.typingTimer.Stop()
	}
	userID := data.UserID
	convo.typingTimer = time.AfterFunc(s.typingTimeout, func() {
		s.mu.Lock()
		if c, ok := s.conversations[userID]; ok {
			c.peerTyping = false
			c.typingTimer = nil
		}
		s.mu.Unlock()
		s.changeSubs.emit(userID)
	})
	s.mu.Unlock()

	s.changeSubs.emit(data.UserID)
}

// HandlePresence, tek bir peer'ın online/offline geçişini işler.
func (s *ConversationStore) HandlePresence(data ws.PresenceData) {
	s.mu.Lock()
	s.ensureLocked(data.UserID).peerOnline = data.Online
	s.mu.Unlock()
	s.changeSubs.emit(data.UserID)
}

// HandlePresenceSnapshot, watch isteğine dönen toplu durumu işler.
func (s *ConversationStore) HandlePresenceSnapshot(data ws.PresenceSnapshotData) {
	s.mu.Lock()
	for _, entry := range data.Entries {
		s.ensureLocked(entry.UserID).peerOnline = entry.Online
	}
	s.mu.Unlock()
	s.changeSubs.emit("")
}

// HandleStatus, Channel durumu değiştiğinde çağrılır.
//
// Reconnect sonrası focus'taki konuşma yeniden fetch edilir — kopukluk
// sırasında kaçan mesajların tek telafi yolu budur. Diğer konuşmalar
// bir sonraki Focus'ta zaten tazelenir.
//
// Resync Focus'u ÇALMAZ: goroutine başlamadan önce focus'un hâlâ aynı
// peer'da olduğu doğrulanır, fetch sırasında değiştiyse load zaten
// unread'e dokunmaz. Gecikmiş bir resync kullanıcının o sırada baktığı
// konuşmayı değiştirmemeli.
func (s *ConversationStore) HandleStatus(status Status) {
	if status != StatusConnected {
		return
	}

	s.mu.Lock()
	focused := s.focused
	needsResync := false
	if focused != "" {
		if convo, ok := s.conversations[focused]; ok && convo.state == StateReady {
			needsResync = true
		}
	}
	s.mu.Unlock()

	if !needsResync {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		s.mu.Lock()
		if s.focused != focused {
			s.mu.Unlock()
			return
		}
		s.beginLoadLocked(focused)
		s.mu.Unlock()
		s.changeSubs.emit(focused)

		_ = s.load(ctx, focused)
	}()
}

// ─── Internal ───

// ensureLocked, peer için conversation kaydını bulur veya oluşturur.
// s.mu tutulurken çağrılmalıdır.
func (s *ConversationStore) ensureLocked(peerID string) *conversation {
	convo, ok := s.conversations[peerID]
	if !ok {
		convo = &conversation{
			state: StateUnloaded,
			seen:  make(map[string]bool),
		}
		s.conversations[peerID] = convo
	}
	return convo
}

// clearTypingLocked, typing göstergesini ve timer'ını temizler.
func (s *ConversationStore) clearTypingLocked(convo *conversation) {
	convo.peerTyping = false
	if convo.typingTimer != nil {
		convo.typingTimer.Stop()
		convo.typingTimer = nil
	}
}

// insertOrdered, mesajı ID de-dup'u ile sıralı konumuna ekler.
// Mesaj yeniyse true, daha önce görüldüyse false döner.
//
// Mesajlar neredeyse her zaman listenin sonuna eklenir (yeni mesaj) —
// sondan geriye tarama pratikte O(1).
func insertOrdered(convo *conversation, msg models.DirectMessage) bool {
	if convo.seen[msg.ID] {
		return false
	}
	convo.seen[msg.ID] = true

	i := len(convo.messages)
	for i > 0 && msg.Before(&convo.messages[i-1]) {
		i--
	}
	convo.messages = append(convo.messages, models.DirectMessage{})
	copy(convo.messages[i+1:], convo.messages[i:])
	convo.messages[i] = msg
	return true
}
