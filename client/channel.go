package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/ws"
)

// errCredentialRefresh: handshake 401 verdi ve Refresh de başarısız oldu.
// Transport hatalarından farklı ele alınır — retry anlamsızdır, kullanıcı
// fiilen logout olmuştur.
var errCredentialRefresh = errors.New("credential refresh rejected")

// Status, Channel'ın bağlantı durumu.
type Status string

const (
	// StatusDisconnected: Connect henüz çağrılmadı.
	StatusDisconnected Status = "disconnected"
	// StatusConnected: WebSocket açık, ready alındı.
	StatusConnected Status = "connected"
	// StatusReconnecting: Bağlantı koptu, backoff ile tekrar deneniyor.
	StatusReconnecting Status = "reconnecting"
	// StatusDeactivated: Close çağrıldı — kalıcı kapanış, reconnect yok.
	StatusDeactivated Status = "deactivated"
)

// Reconnect backoff sabitleri
const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Channel, server'a tek bir WebSocket bağlantısını yönetir.
//
// Görevleri:
//   - Connect idempotent'tir: zaten bağlıysa veya bağlanıyorsa no-op
//   - Kopma sonrası exponential backoff ile otomatik reconnect;
//     handshake 401 verirse token Refresh edilir
//   - Ready'den öğrenilen periyotta heartbeat gönderir
//   - Watch set KÜMÜLATİF tutulur ve her reconnect'te yeniden gönderilir —
//     server bağlantı bazında unuttuğu için abonelik client'ta yaşar
//   - Gelen event'leri tip bazlı subscriber'lara dağıtır
//
// Mesaj GÖNDERMEZ — mesajlar HistoryAPI (HTTP) ile gider.
type Channel struct {
	wsURL string
	creds CredentialSource

	mu      sync.Mutex
	conn    *websocket.Conn
	status  Status
	watched map[string]bool // kümülatif watch set
	stop    chan struct{}   // Close kapatır — run loop'u sonlandırır

	statusSubs   *subscribers[Status]
	messageSubs  *subscribers[models.DirectMessage]
	presenceSubs *subscribers[ws.PresenceData]
	snapshotSubs *subscribers[ws.PresenceSnapshotData]
	typingSubs   *subscribers[ws.TypingUpdateData]
}

// NewChannel, constructor.
// wsURL örn: "ws://localhost:9090/ws".
func NewChannel(wsURL string, creds CredentialSource) *Channel {
	return &Channel{
		wsURL:        wsURL,
		creds:        creds,
		status:       StatusDisconnected,
		watched:      make(map[string]bool),
		statusSubs:   newSubscribers[Status](),
		messageSubs:  newSubscribers[models.DirectMessage](),
		presenceSubs: newSubscribers[ws.PresenceData](),
		snapshotSubs: newSubscribers[ws.PresenceSnapshotData](),
		typingSubs:   newSubscribers[ws.TypingUpdateData](),
	}
}

// inboundEvent, server'dan gelen event'in decode formatı.
// ws.Event'ten farkı: Data json.RawMessage — op'a göre tipli decode edilir.
type inboundEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  int64           `json:"seq"`
}

// Connect, bağlantı döngüsünü başlatır. İDEMPOTENT: zaten aktifse no-op.
//
// Bloklamaz — bağlantı arka planda kurulur ve kopuşlarda kendini onarır.
// Durum değişiklikleri OnStatus subscriber'larına bildirilir.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.status != StatusDisconnected && c.status != StatusDeactivated {
		c.mu.Unlock()
		return
	}
	c.status = StatusReconnecting
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	c.statusSubs.emit(StatusReconnecting)
	go c.run(stop)
}

// Close, bağlantıyı kalıcı olarak kapatır. Reconnect YAPILMAZ.
// Tekrar Connect çağrılabilir — yeni bir döngü başlatır.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.status == StatusDeactivated || c.status == StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.status = StatusDeactivated
	close(c.stop)
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.statusSubs.emit(StatusDeactivated)
}

// Status, anlık bağlantı durumunu döner.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ─── Subscription API ───
//
// Her On* metodu bir unsubscribe fonksiyonu döner.

// OnStatus, bağlantı durumu değişimlerine abone olur.
func (c *Channel) OnStatus(fn func(Status)) func() { return c.statusSubs.add(fn) }

// OnMessage, push edilen yeni mesajlara abone olur.
func (c *Channel) OnMessage(fn func(models.DirectMessage)) func() { return c.messageSubs.add(fn) }

// OnPresence, peer online/offline geçişlerine abone olur.
func (c *Channel) OnPresence(fn func(ws.PresenceData)) func() { return c.presenceSubs.add(fn) }

// OnPresenceSnapshot, watch isteğine dönen snapshot'lara abone olur.
func (c *Channel) OnPresenceSnapshot(fn func(ws.PresenceSnapshotData)) func() {
	return c.snapshotSubs.add(fn)
}

// OnTyping, karşı tarafın typing güncellemelerine abone olur.
func (c *Channel) OnTyping(fn func(ws.TypingUpdateData)) func() { return c.typingSubs.add(fn) }

// WatchPresence, peer'ları kümülatif watch set'ine ekler ve server'a bildirir.
// Bağlantı yoksa sadece set'e eklenir — reconnect'te topluca gönderilir.
func (c *Channel) WatchPresence(peerIDs []string) {
	c.mu.Lock()
	added := make([]string, 0, len(peerIDs))
	for _, id := range peerIDs {
		if id == "" {
			continue
		}
		c.watched[id] = true
		added = append(added, id)
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || len(added) == 0 {
		return
	}
	c.writeEvent(ws.Event{
		Op:   ws.OpWatchPresence,
		Data: ws.WatchPresenceData{PeerIDs: added},
	})
}

// SendTyping, typing sinyalini server'a iletir.
// TypingCoordinator'ın send callback'i olarak kullanılır.
func (c *Channel) SendTyping(peerID string, isTyping bool) {
	c.writeEvent(ws.Event{
		Op:   ws.OpTyping,
		Data: ws.TypingSendData{PeerID: peerID, IsTyping: isTyping},
	})
}

// run, bağlantı yaşam döngüsü: dial → read → kopunca backoff → tekrar dial.
// stop channel'ı kapanana kadar (Close) döner durur.
func (c *Channel) run(stop chan struct{}) {
	backoff := initialBackoff

	for {
		select {
		case <-stop:
			return
		default:
		}

		conn, err := c.dial()
		if err != nil {
			// Refresh reddedildiyse kimlik artık geçersiz — kanal kalıcı
			// olarak deactivate edilir. Yeniden girişten sonra Connect
			// tekrar çağrılabilir.
			if errors.Is(err, errCredentialRefresh) {
				c.mu.Lock()
				alreadyDown := c.status == StatusDeactivated
				if !alreadyDown {
					c.status = StatusDeactivated
				}
				c.mu.Unlock()
				log.Printf("[channel] %v — deactivating", err)
				if !alreadyDown {
					c.statusSubs.emit(StatusDeactivated)
				}
				return
			}

			log.Printf("[channel] dial failed: %v (retrying in %s)", err, backoff)
			select {
			case <-stop:
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		if c.status == StatusDeactivated {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		// Bağlantı kuruldu — readLoop ready gelene kadar event'leri işler.
		// Başarılı bir ready backoff'u sıfırlar.
		if c.readLoop(conn, stop) {
			backoff = initialBackoff
		}

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		deactivated := c.status == StatusDeactivated
		if !deactivated {
			c.status = StatusReconnecting
		}
		c.mu.Unlock()
		conn.Close()

		if deactivated {
			return
		}
		c.statusSubs.emit(StatusReconnecting)
	}
}

// dial, token alıp WebSocket handshake'i yapar.
// Handshake 401 dönerse token Refresh edilip BİR kez daha denenir.
// Refresh'in kendisi başarısız olursa errCredentialRefresh döner —
// run bunu görünce reconnect döngüsünü durdurup kanalı deactivate eder.
func (c *Channel) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.dialURL(token), nil)
	if err == nil {
		return conn, nil
	}

	if resp != nil && resp.StatusCode == 401 {
		token, refreshErr := c.creds.Refresh(ctx)
		if refreshErr != nil {
			return nil, fmt.Errorf("%w: %v", errCredentialRefresh, refreshErr)
		}
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, c.dialURL(token), nil)
		if err == nil {
			return conn, nil
		}
	}
	return nil, err
}

func (c *Channel) dialURL(token string) string {
	return c.wsURL + "?token=" + url.QueryEscape(token)
}

// readLoop, bağlantı kopana kadar gelen event'leri okuyup dağıtır.
// ready alındıysa true döner — caller backoff'u sıfırlar.
func (c *Channel) readLoop(conn *websocket.Conn, stop chan struct{}) bool {
	gotReady := false
	var stopHeartbeat chan struct{}
	defer func() {
		if stopHeartbeat != nil {
			close(stopHeartbeat)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return gotReady
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[channel] invalid event from server: %v", err)
			continue
		}

		switch event.Op {
		case ws.OpReady:
			var ready ws.ReadyData
			if err := json.Unmarshal(event.Data, &ready); err != nil {
				continue
			}
			gotReady = true

			c.mu.Lock()
			c.status = StatusConnected
			watched := make([]string, 0, len(c.watched))
			for id := range c.watched {
				watched = append(watched, id)
			}
			c.mu.Unlock()

			c.statusSubs.emit(StatusConnected)

			// Watch set'i yeniden gönder — server önceki bağlantının
			// aboneliklerini hatırlamaz.
			if len(watched) > 0 {
				c.writeEvent(ws.Event{
					Op:   ws.OpWatchPresence,
					Data: ws.WatchPresenceData{PeerIDs: watched},
				})
			}

			// Heartbeat döngüsü — periyodu server söyler.
			interval := time.Duration(ready.HeartbeatIntervalSeconds) * time.Second
			if interval <= 0 {
				interval = 30 * time.Second
			}
			stopHeartbeat = make(chan struct{})
			go c.heartbeatLoop(conn, interval, stopHeartbeat, stop)

		case ws.OpHeartbeatAck:
			// Sessizce yut — bağlantının canlı olduğunu ReadMessage zaten gösteriyor.

		case ws.OpMessageCreate:
			var msg models.DirectMessage
			if err := json.Unmarshal(event.Data, &msg); err != nil {
				continue
			}
			c.messageSubs.emit(msg)

		case ws.OpPresenceSnapshot:
			var snap ws.PresenceSnapshotData
			if err := json.Unmarshal(event.Data, &snap); err != nil {
				continue
			}
			c.snapshotSubs.emit(snap)

		case ws.OpPresence:
			var presence ws.PresenceData
			if err := json.Unmarshal(event.Data, &presence); err != nil {
				continue
			}
			c.presenceSubs.emit(presence)

		case ws.OpTypingUpdate:
			var typing ws.TypingUpdateData
			if err := json.Unmarshal(event.Data, &typing); err != nil {
				continue
			}
			c.typingSubs.emit(typing)

		default:
			// Bilinmeyen op — ileri sürüm server'la uyum için yoksay.
		}
	}
}

// heartbeatLoop, server'dan öğrenilen periyotta heartbeat gönderir.
func (c *Channel) heartbeatLoop(conn *websocket.Conn, interval time.Duration, stopHeartbeat, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()
			if current != conn {
				return
			}
			c.writeEvent(ws.Event{Op: ws.OpHeartbeat})
		case <-stopHeartbeat:
			return
		case <-stop:
			return
		}
	}
}

// writeEvent, event'i JSON'layıp aktif bağlantıya yazar.
// Bağlantı yoksa sessizce düşer — typing gibi sinyaller kayıpsız olmak
// zorunda değil, mesajlar zaten HTTP ile gidiyor.
func (c *Channel) writeEvent(event ws.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return
	}
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}
