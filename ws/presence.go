package ws

import (
	"log"
	"sync"
	"time"
)

// PresenceTracker, hangi principal'ların bağlı olduğunu takip eden tek
// sahipli registry'dir.
//
// Tasarım:
// - principalID → açık bağlantı sayısı tutulur. Presence kalıcı DEĞİLDİR —
//   her zaman bu sayaçtan türetilir.
// - 0→1 geçişi izleyenlere "online" yayınlar.
// - 1→0 geçişi hemen yayın YAPMAZ: grace window süreli bir timer kurulur.
//   Süre dolduğunda sayaç hâlâ sıfırsa tek bir "offline" yayınlanır.
//   Window içinde reconnect olursa timer iptal edilir — izleyenler hiç
//   offline görmez (tab refresh flicker'ı önlenir).
// - Monotonluk: araya "offline" girmeden ikinci bir "online" yayınlanmaz.
//
// Watch set'leri bağlantı (Client) bazındadır ve additive'dir: aynı bağlantı
// superset ile tekrar watch isterse önceki abonelik bozulmaz. Ters index
// (peer → izleyen client'lar) yayın sırasında O(izleyen) erişim sağlar.
//
// Tüm mutation'lar VE yayınlar tek mutex altında — yayın sırası böylece
// state geçiş sırasıyla birebir aynı kalır. Lock dışında yayın yapılsaydı
// grace sonrası "offline" ile reconnect'in "online"ı yer değiştirebilirdi:
// izleyenler online bir kullanıcıyı offline görürdü. sendToClient yalnızca
// Hub'ın RLock'unu alır; lock sırası her yerde presence.mu → hub.mu
// yönündedir, tersi hiçbir yerde yok.
type PresenceTracker struct {
	hub   *Hub
	grace time.Duration

	mu       sync.Mutex
	counts   map[string]int              // principalID → açık bağlantı sayısı
	timers   map[string]*time.Timer      // principalID → bekleyen offline timer'ı
	watchers map[string]map[*Client]bool // peerID → izleyen client'lar
	watched  map[*Client]map[string]bool // client → izlediği peer set'i
}

// newPresenceTracker, Hub tarafından oluşturulur.
func newPresenceTracker(hub *Hub, grace time.Duration) *PresenceTracker {
	return &PresenceTracker{
		hub:      hub,
		grace:    grace,
		counts:   make(map[string]int),
		timers:   make(map[string]*time.Timer),
		watchers: make(map[string]map[*Client]bool),
		watched:  make(map[*Client]map[string]bool),
	}
}

// connected, bir principal'ın yeni bağlantısını kaydeder.
//
// Bekleyen offline timer'ı varsa iptal edilir — izleyenler kullanıcıyı hâlâ
// online bildiğinden hiçbir event yayınlanmaz. Timer yokken 0→1 geçişiyse
// "online" yayınlanır.
func (t *PresenceTracker) connected(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[userID]++

	if timer, ok := t.timers[userID]; ok {
		// Grace window içinde reconnect — flicker yok, event yok.
		timer.Stop()
		delete(t.timers, userID)
		log.Printf("[presence] user %s reconnected within grace window", userID)
		return
	}

	if t.counts[userID] == 1 {
		t.emitLocked(userID, true)
		log.Printf("[presence] user %s is now online", userID)
	}
}

// disconnected, bir principal'ın kapanan bağlantısını kaydeder.
// Son bağlantıysa grace window timer'ı kurulur — yayın timer'da yapılır.
func (t *PresenceTracker) disconnected(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counts[userID] == 0 {
		return
	}
	t.counts[userID]--
	if t.counts[userID] > 0 {
		return
	}
	delete(t.counts, userID)

	t.timers[userID] = time.AfterFunc(t.grace, func() {
		t.graceExpired(userID)
	})
}

// graceExpired, grace window dolduğunda çalışır.
//
// Timer map'te yoksa reconnect ile yarışılmış demektir (connected timer'ı
// sildi) — hiçbir şey yapılmaz. Aksi halde tam bir kez "offline" yayınlanır.
func (t *PresenceTracker) graceExpired(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.timers[userID]; !ok {
		return
	}
	delete(t.timers, userID)

	if t.counts[userID] > 0 {
		return
	}

	t.emitLocked(userID, false)
	log.Printf("[presence] user %s is now offline (grace window elapsed)", userID)
}

// Watch, bir bağlantının izlediği peer set'ine yeni ID'ler ekler ve istenen
// peer'ların anlık durumunu snapshot event'i olarak aynı bağlantıya gönderir.
//
// Snapshot mutex ALTINDA gönderilir: abonelik kurulduğu anla snapshot'ın
// gönderildiği an arasına presence_update giremez — izleyenin bir peer için
// gördüğü ilk event her zaman snapshot'tır.
//
// Additive: önceki abonelikler korunur. Client'ın kendi ID'si yoksayılır —
// presence peer'lar içindir.
func (t *PresenceTracker) Watch(c *Client, peerIDs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.watched[c]
	if !ok {
		set = make(map[string]bool)
		t.watched[c] = set
	}

	entries := make([]PresenceEntry, 0, len(peerIDs))
	for _, peerID := range peerIDs {
		if peerID == "" || peerID == c.userID {
			continue
		}

		set[peerID] = true
		if _, ok := t.watchers[peerID]; !ok {
			t.watchers[peerID] = make(map[*Client]bool)
		}
		t.watchers[peerID][c] = true

		entries = append(entries, PresenceEntry{
			UserID: peerID,
			Online: t.onlineLocked(peerID),
		})
	}

	t.hub.sendToClient(c, Event{
		Op:   OpPresenceSnapshot,
		Data: PresenceSnapshotData{Entries: entries},
	})
}

// dropClient, kapanan bir bağlantının tüm watch kayıtlarını temizler.
func (t *PresenceTracker) dropClient(c *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for peerID := range t.watched[c] {
		if set, ok := t.watchers[peerID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(t.watchers, peerID)
			}
		}
	}
	delete(t.watched, c)
}

// onlineLocked, peer'ın izleyenler açısından online sayılıp sayılmadığını döner.
// Bekleyen grace timer'ı olan kullanıcı hâlâ "online"dır — offline henüz
// yayınlanmadı, snapshot da aynı resmi göstermeli.
func (t *PresenceTracker) onlineLocked(userID string) bool {
	if t.counts[userID] > 0 {
		return true
	}
	_, pending := t.timers[userID]
	return pending
}

// emitLocked, izleyen client'lara presence_update event'i gönderir.
// t.mu tutulurken çağrılmalıdır.
func (t *PresenceTracker) emitLocked(userID string, online bool) {
	for c := range t.watchers[userID] {
		t.hub.sendToClient(c, Event{
			Op: OpPresence,
			Data: PresenceData{
				UserID: userID,
				Online: online,
			},
		})
	}
}
