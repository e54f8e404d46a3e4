package client

import (
	"sync"
	"time"
)

// TypingCoordinator, gönderen taraf typing sinyallerini debounce eder.
//
// Kural: bir yazma "burst"ü başına EN FAZLA BİR typing=true gönderilir.
// Her tuş vuruşunda event göndermek hem WS trafiğini şişirir hem karşı
// tarafta göstergeyi titretir.
//
// Akış:
//   - İlk InputActivity → send(peer, true), timeout timer'ı kurulur
//   - Aynı peer için sonraki aktiviteler → sadece timer yenilenir
//   - Timeout dolunca → send(peer, false), burst biter
//   - Peer değişirse → eski peer'a false flush edilir, yeni burst başlar
//   - Flush (mesaj gönderildiğinde çağrılır) → false hemen gönderilir
type TypingCoordinator struct {
	timeout time.Duration
	send    func(peerID string, isTyping bool)

	mu         sync.Mutex
	activePeer string // "" = aktif burst yok
	timer      *time.Timer
}

// NewTypingCoordinator, constructor.
// send, typing event'ini transport'a yazan fonksiyondur (Channel.SendTyping).
func NewTypingCoordinator(timeout time.Duration, send func(peerID string, isTyping bool)) *TypingCoordinator {
	return &TypingCoordinator{
		timeout: timeout,
		send:    send,
	}
}

// sendOp, lock dışında yapılacak bekleyen gönderim.
// send callback'leri mutex TUTULMADAN çağrılır — callback coordinator'a
// geri dönse bile deadlock olmaz, sıralama da deterministiktir.
type sendOp struct {
	peerID   string
	isTyping bool
}

// InputActivity, kullanıcı peer'a yazarken her input değişiminde çağrılır.
func (t *TypingCoordinator) InputActivity(peerID string) {
	if peerID == "" {
		return
	}

	t.mu.Lock()
	if t.activePeer == peerID {
		// Burst devam ediyor — sadece timer'ı yenile, event gönderme.
		t.timer.Reset(t.timeout)
		t.mu.Unlock()
		return
	}

	var sends []sendOp

	// Peer değişti — eski burst'ü kapat.
	if t.activePeer != "" {
		t.timer.Stop()
		sends = append(sends, sendOp{peerID: t.activePeer, isTyping: false})
	}

	t.activePeer = peerID
	t.timer = time.AfterFunc(t.timeout, func() { t.expire(peerID) })
	sends = append(sends, sendOp{peerID: peerID, isTyping: true})
	t.mu.Unlock()

	for _, op := range sends {
		t.send(op.peerID, op.isTyping)
	}
}

// Flush, aktif burst'ü hemen sonlandırır ve typing=false gönderir.
// Mesaj gönderildiğinde çağrılır — "yazıyor" göstergesinin mesajın
// yanında asılı kalmaması için.
func (t *TypingCoordinator) Flush() {
	t.mu.Lock()
	if t.activePeer == "" {
		t.mu.Unlock()
		return
	}
	peer := t.activePeer
	t.activePeer = ""
	t.timer.Stop()
	t.timer = nil
	t.mu.Unlock()

	t.send(peer, false)
}

// Close, aktif burst varsa kapatır. Flush ile aynı — okunabilirlik için ayrı isim.
func (t *TypingCoordinator) Close() {
	t.Flush()
}

// expire, timeout dolduğunda timer tarafından çağrılır.
//
// peerID kontrolü önemli: timer ateşlenirken burst çoktan Flush edilmiş
// veya başka peer'a geçilmiş olabilir — o durumda hiçbir şey yapılmaz.
func (t *TypingCoordinator) expire(peerID string) {
	t.mu.Lock()
	if t.activePeer != peerID {
		t.mu.Unlock()
		return
	}
	t.activePeer = ""
	t.timer = nil
	t.mu.Unlock()

	t.send(peerID, false)
}
