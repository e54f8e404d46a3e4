package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	// Bu süre aşılırsa bağlantı kapatılır (ağ sorunu olabilir).
	writeWait = 10 * time.Second

	// pongWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// heartbeatInterval: Client'ların heartbeat gönderme periyodu.
	// Ready event'i ile client'a bildirilir.
	heartbeatInterval = 30 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum mesaj boyutu (byte).
	// WebSocket mesajları küçük olmalı — mesaj içeriği HTTP ile gönderilir.
	maxMessageSize = 4096

	// sendBufferSize: Her client'ın send channel'ının buffer boyutu.
	// Buffer doluysa (client yavaş) bağlantı kapatılır.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: Client'dan gelen event'leri okur → işler
// - WritePump: Hub'dan gelen event'leri client'a yazar
//
// gorilla/websocket aynı anda sadece bir okuma ve bir yazma destekler —
// iki ayrı goroutine sayesinde okuma ve yazma birbirini bloklamaz.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	// send, client'a gönderilecek mesajların buffer'landığı channel.
	// Hub `client.send <- data` yapar, WritePump okuyup WS'e yazar.
	send chan []byte
	mu   sync.Mutex // conn.WriteMessage çağrılarını korur
}

// ReadPump, WebSocket bağlantısından gelen event'leri okur ve işler.
//
// Bağlantı kapanana kadar döngüde kalır; kapandığında Hub'dan çıkış yapar.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	// SetReadDeadline: Bu süre içinde mesaj gelmezse Read hata verir.
	// Her heartbeat geldiğinde deadline yenilenir.
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[ws] invalid message from user %s: %v", c.userID, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'dan gelen event'leri türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		// Heartbeat geldi — deadline'ı yenile ve ack gönder.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpWatchPresence:
		c.handleWatchPresence(event)

	case OpTyping:
		c.handleTyping(event)

	default:
		log.Printf("[ws] unknown op from user %s: %s", c.userID, event.Op)
	}
}

// handleWatchPresence, watch_presence event'ini işler.
//
// Tracker'a abonelik eklenir; istenen peer'ların anlık durumunu Watch
// kendisi snapshot olarak SADECE bu bağlantıya gönderir — snapshot'ın
// önüne presence_update geçemez. Sonraki değişiklikler presence_update
// olarak push edilir.
func (c *Client) handleWatchPresence(event Event) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data WatchPresenceData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return
	}

	if len(data.PeerIDs) == 0 {
		return
	}

	c.hub.presence.Watch(c, data.PeerIDs)
}

// handleTyping, typing event'ini Hub'ın typing callback'ine iletir.
//
// event.Data tipi `any` (interface{}) — doğrudan cast edilemez.
// JSON'a çevirip tekrar parse etmek en güvenli yöntem.
//
// Callback pattern: eşleştirme kontrolü + relay sorumluluğu main.go'daki
// callback'e ait (Dependency Inversion). go func() ile çağrılır —
// ReadPump'ın bloklanmaması için.
func (c *Client) handleTyping(event Event) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var typing TypingSendData
	if err := json.Unmarshal(dataBytes, &typing); err != nil {
		return
	}

	if typing.PeerID == "" || typing.PeerID == c.userID {
		return
	}

	if c.hub.onTyping != nil {
		go c.hub.onTyping(c.userID, typing.PeerID, typing.IsTyping)
	}
}

// sendEvent, client'a tek bir event gönderir.
// Hub üzerinden gider — kayıttan düşmüş (send channel'ı kapanmış) bir
// client'a yazma denemesi orada elenir.
func (c *Client) sendEvent(event Event) {
	c.hub.sendToClient(c, event)
}

// WritePump, Hub'dan gelen mesajları WebSocket bağlantısına yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel kapatıldı — Hub client'ı çıkardı
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
// gorilla/websocket conn'a aynı anda birden fazla yazma YASAK.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
