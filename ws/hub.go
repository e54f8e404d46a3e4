package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// EventPublisher, service katmanının WebSocket event'leri göndermek için
// kullandığı interface.
//
// Dependency Inversion: Service'ler Hub'ın concrete struct'ına değil,
// bu interface'e bağımlıdır. Böylece:
// 1. Service test edilirken mock EventPublisher kullanılabilir
// 2. Hub implementasyonu değişse bile service kodu etkilenmez
type EventPublisher interface {
	BroadcastToUser(userID string, event Event)
}

// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır (Observer pattern).
//
// Hub.Run() goroutine'i register/unregister channel'larından `select` ile okur:
// - register channel'dan yeni client gelirse → clients map'e ekle
// - unregister channel'dan client gelirse → map'ten çıkar
//
// Presence, Hub'ın kendisinde DEĞİL PresenceTracker'da tutulur — Hub sadece
// bağlantı geldi/gitti sinyallerini tracker'a iletir. Böylece grace-window
// zamanlaması ve watch-set bookkeeping'i tek bir sahibin mutex'i altında kalır.
type Hub struct {
	// clients: principalID → Client set (bir kullanıcının birden fazla tab'ı olabilir).
	// Go'da set yoktur — map[*Client]bool kullanılır, bool her zaman true'dur.
	clients map[string]map[*Client]bool

	// mu: clients map'ini koruyan read-write mutex.
	// Broadcast'ler okuma ağırlıklı — RLock ile paralel çalışır.
	mu sync.RWMutex

	// register/unregister: Client giriş/çıkış sinyalleri.
	register   chan *Client
	unregister chan *Client

	// seq: Her outbound event'e verilen artan sayaç.
	// atomic.Int64 — birden fazla goroutine güvenle artırabilir.
	seq atomic.Int64

	// presence: bağlantı sayısı bazlı online/offline registry'si.
	presence *PresenceTracker

	// onTyping: typing event'i geldiğinde çağrılan callback.
	// Eşleştirme (assignment) kontrolü service/repo katmanına ait —
	// Hub'ın oraya bağımlı olmaması için main'de wire edilir.
	onTyping func(fromID, toID string, isTyping bool)
}

// NewHub, yeni bir Hub ve ona bağlı PresenceTracker oluşturur.
// graceWindow: son bağlantı koptuktan sonra "offline" yayınının bekletildiği süre.
func NewHub(graceWindow time.Duration) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	h.presence = newPresenceTracker(h, graceWindow)
	return h
}

// Presence, Hub'ın presence tracker'ını döner.
func (h *Hub) Presence() *PresenceTracker {
	return h.presence
}

// OnTyping, typing relay callback'ini ayarlar. main.go wire-up'ında çağrılır.
func (h *Hub) OnTyping(fn func(fromID, toID string, isTyping bool)) {
	h.onTyping = fn
}

// Run, Hub'ın ana event loop'udur. main.go'da `go hub.Run()` ile başlatılır.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// addClient, yeni bir client'ı Hub'a ekler ve tracker'a bildirir.
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := len(h.clients[client.userID])
	h.mu.Unlock()

	// Tracker kendi mutex'ini kullanır — Hub lock'u dışında çağrılır
	// (lock ordering: hiçbir zaman iki lock birden tutulmaz).
	h.presence.connected(client.userID)

	// İlk event: ready. Kayıt tamamlandıktan sonra gönderilir — client
	// heartbeat periyodunu buradan öğrenir.
	h.sendToClient(client, Event{
		Op: OpReady,
		Data: ReadyData{
			PrincipalID:              client.userID,
			HeartbeatIntervalSeconds: int(heartbeatInterval.Seconds()),
		},
	})

	log.Printf("[ws] client connected: user=%s (total connections for user: %d)",
		client.userID, total)
}

// removeClient, bir client'ı Hub'dan çıkarır ve send channel'ını kapatır.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	removed := false
	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)
			removed = true

			if len(clients) == 0 {
				delete(h.clients, client.userID)
				log.Printf("[ws] user fully disconnected: %s", client.userID)
			} else {
				log.Printf("[ws] client disconnected: user=%s (remaining: %d)",
					client.userID, len(clients))
			}
		}
	}
	h.mu.Unlock()

	if removed {
		h.presence.dropClient(client)
		h.presence.disconnected(client.userID)
	}
}

// BroadcastToUser, belirli bir principal'ın TÜM bağlantılarına event gönderir.
// Mesaj fan-out'u bunu iki taraf için çağırır — gönderenin diğer tab'ları da alır.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal user event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.clients[userID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Buffer dolu — bu client yavaş, kapat
				go func(c *Client) { h.unregister <- c }(client)
			}
		}
	}
}

// sendToClient, tek bir bağlantıya event gönderir (presence snapshot/update için).
//
// RLock altında client'ın hâlâ kayıtlı olduğu doğrulanır — removeClient send
// channel'ını kapattıktan sonra yazmaya çalışmak panic olurdu.
func (h *Hub) sendToClient(client *Client, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal client event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		return
	}

	select {
	case client.send <- data:
	default:
		go func(c *Client) { h.unregister <- c }(client)
	}
}

// IsOnline, principal'ın en az bir açık bağlantısı olup olmadığını döner.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Shutdown, tüm client bağlantılarını kapatır (graceful shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	log.Println("[ws] hub shut down, all connections closed")
}
