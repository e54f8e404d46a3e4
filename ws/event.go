// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: Tüm bağlantıları yöneten merkezi yapı (Observer pattern)
// - PresenceTracker: Bağlantı sayısından türetilen online/offline registry'si
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Client-server arası iletilen mesaj formatı
//
// Event akışı (mesaj örneği):
// 1. Kullanıcı mesaj gönderir → HTTP POST → Service → DB kayıt
// 2. Service, Hub'ın BroadcastToUser metodunu iki taraf için çağırır
// 3. Hub, event'i ilgili principal'ların TÜM bağlantılarına iletir
//    (gönderenin diğer tab'ları dahil — client id ile de-duplicate eder)
// 4. Her client'ın WritePump'ı event'i WebSocket'e yazar
package ws

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü — "message_create", "heartbeat" vb.
// Data: Event'e özgü payload — mesaj objesi, presence bilgisi vb.
// Seq (sequence number): Her outbound event'e verilen artan sayı.
//   Client eksik event tespit etmek için seq'i takip edebilir.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat     = "heartbeat"      // Client periyodik gönderir — "hâlâ bağlıyım" sinyali
	OpWatchPresence = "watch_presence" // Peer set'i için presence aboneliği (additive)
	OpTyping        = "typing"         // Kullanıcı yazıyor / yazmayı bıraktı
)

// Server → Client operasyonları
const (
	OpReady            = "ready"             // Bağlantı kurulduğunda ilk gönderilen
	OpHeartbeatAck     = "heartbeat_ack"     // Heartbeat'e yanıt — "seni duydum"
	OpMessageCreate    = "message_create"    // Yeni mesaj oluşturuldu
	OpPresenceSnapshot = "presence_snapshot" // Watch isteğine yanıt — izlenen peer'ların anlık durumu
	OpPresence         = "presence_update"   // Tek bir peer'ın online/offline geçişi
	OpTypingUpdate     = "typing_update"     // Karşı taraf yazıyor / bıraktı
)

// ReadyData, bağlantı kurulduğunda client'a gönderilen ilk event'in payload'ı.
// Client heartbeat periyodunu buradan öğrenir — server ile sabit paylaşmak yerine.
type ReadyData struct {
	PrincipalID              string `json:"principal_id"`
	HeartbeatIntervalSeconds int    `json:"heartbeat_interval_seconds"`
}

// TypingSendData, typing event'inin Client → Server payload'ı.
// IsTyping=false, yazmanın bırakıldığını bildirir (debounce flush).
type TypingSendData struct {
	PeerID   string `json:"peer_id"`
	IsTyping bool   `json:"is_typing"`
}

// TypingUpdateData, typing_update event'inin Server → Client payload'ı.
// Sadece ilgili peer'ın bağlantılarına gönderilir, asla kalıcı değildir.
type TypingUpdateData struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// WatchPresenceData, watch_presence event'inin Client → Server payload'ı.
//
// Watch set'leri bağlantı bazında ADDITIVE'dir: superset ile tekrar gönderim
// önceki aboneliği bozmaz. Kendi ID'sini izlemek yoksayılır — presence
// peer'lar içindir.
type WatchPresenceData struct {
	PeerIDs []string `json:"peer_ids"`
}

// PresenceEntry, tek bir peer'ın anlık online durumu.
type PresenceEntry struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// PresenceSnapshotData, presence_snapshot event'inin payload'ı.
// Watch isteğindeki her peer için registry'nin o anki durumunu içerir.
type PresenceSnapshotData struct {
	Entries []PresenceEntry `json:"entries"`
}

// PresenceData, bir peer'ın online durumu değiştiğinde gönderilen payload.
type PresenceData struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}
