package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient, Hub'a kayıtlı sahte bir bağlantı oluşturur.
// Gerçek WebSocket yok — send channel'ından event'ler okunarak doğrulanır.
func newTestClient(h *Hub, userID string) *Client {
	c := &Client{
		hub:    h,
		userID: userID,
		send:   make(chan []byte, 64),
	}
	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*Client]bool)
	}
	h.clients[userID][c] = true
	h.mu.Unlock()
	return c
}

// recvEvent, client'ın send channel'ından bir event okur.
func recvEvent(t *testing.T, c *Client, timeout time.Duration) Event {
	t.Helper()
	select {
	case raw := <-c.send:
		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	case <-time.After(timeout):
		t.Fatal("expected an event but none arrived")
		return Event{}
	}
}

// requireNoEvent, verilen süre boyunca hiçbir event gelmediğini doğrular.
func requireNoEvent(t *testing.T, c *Client, wait time.Duration) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("expected no event, got: %s", raw)
	case <-time.After(wait):
	}
}

func presencePayload(t *testing.T, event Event) PresenceData {
	t.Helper()
	raw, err := json.Marshal(event.Data)
	require.NoError(t, err)
	var data PresenceData
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}

func snapshotPayload(t *testing.T, event Event) []PresenceEntry {
	t.Helper()
	raw, err := json.Marshal(event.Data)
	require.NoError(t, err)
	var data PresenceSnapshotData
	require.NoError(t, json.Unmarshal(raw, &data))
	return data.Entries
}

// watchSnapshot, Watch çağırır ve bağlantıya gönderilen snapshot'ı okur.
func watchSnapshot(t *testing.T, h *Hub, c *Client, peerIDs []string) []PresenceEntry {
	t.Helper()
	h.presence.Watch(c, peerIDs)
	event := recvEvent(t, c, time.Second)
	require.Equal(t, OpPresenceSnapshot, event.Op)
	return snapshotPayload(t, event)
}

func TestWatchSnapshotReflectsCurrentState(t *testing.T) {
	h := NewHub(time.Second)
	watcher := newTestClient(h, "agent-1")

	h.presence.connected("user-1")

	entries := watchSnapshot(t, h, watcher, []string{"user-1", "user-2"})
	require.Len(t, entries, 2)

	byID := map[string]bool{}
	for _, e := range entries {
		byID[e.UserID] = e.Online
	}
	assert.True(t, byID["user-1"])
	assert.False(t, byID["user-2"])
}

func TestWatchIgnoresSelfAndEmptyIDs(t *testing.T) {
	h := NewHub(time.Second)
	watcher := newTestClient(h, "agent-1")

	entries := watchSnapshot(t, h, watcher, []string{"agent-1", "", "user-1"})
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1", entries[0].UserID)
}

func TestOnlineEmittedOnlyOnFirstConnection(t *testing.T) {
	h := NewHub(time.Second)
	watcher := newTestClient(h, "agent-1")
	watchSnapshot(t, h, watcher, []string{"user-1"})

	// 0→1: online yayınlanır
	h.presence.connected("user-1")
	event := recvEvent(t, watcher, time.Second)
	assert.Equal(t, OpPresence, event.Op)
	data := presencePayload(t, event)
	assert.Equal(t, "user-1", data.UserID)
	assert.True(t, data.Online)

	// 1→2: ikinci tab — event yok
	h.presence.connected("user-1")
	requireNoEvent(t, watcher, 50*time.Millisecond)
}

func TestReconnectWithinGraceSuppressesOffline(t *testing.T) {
	h := NewHub(60 * time.Millisecond)
	watcher := newTestClient(h, "agent-1")

	h.presence.connected("user-1")
	watchSnapshot(t, h, watcher, []string{"user-1"})

	// Tab refresh senaryosu: kopma + hızlı reconnect
	h.presence.disconnected("user-1")
	time.Sleep(20 * time.Millisecond)
	h.presence.connected("user-1")

	// Grace window'un fazlasıyla ötesine kadar bekle — offline da online da gelmemeli
	requireNoEvent(t, watcher, 150*time.Millisecond)
}

func TestOfflineEmittedOnceAfterGrace(t *testing.T) {
	h := NewHub(40 * time.Millisecond)
	watcher := newTestClient(h, "agent-1")

	h.presence.connected("user-1")
	watchSnapshot(t, h, watcher, []string{"user-1"})

	h.presence.disconnected("user-1")

	event := recvEvent(t, watcher, time.Second)
	assert.Equal(t, OpPresence, event.Op)
	data := presencePayload(t, event)
	assert.Equal(t, "user-1", data.UserID)
	assert.False(t, data.Online)

	// Tam bir kez — ikinci bir offline gelmez
	requireNoEvent(t, watcher, 100*time.Millisecond)
}

func TestSnapshotShowsOnlineDuringGraceWindow(t *testing.T) {
	h := NewHub(200 * time.Millisecond)
	watcher := newTestClient(h, "agent-1")

	h.presence.connected("user-1")
	h.presence.disconnected("user-1")

	// Grace dolmadı — izleyenler açısından kullanıcı hâlâ online
	entries := watchSnapshot(t, h, watcher, []string{"user-1"})
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Online)
}

func TestWatchIsAdditive(t *testing.T) {
	h := NewHub(time.Second)
	watcher := newTestClient(h, "agent-1")

	watchSnapshot(t, h, watcher, []string{"user-1"})
	watchSnapshot(t, h, watcher, []string{"user-2"})

	// İkinci watch ilkini bozmadı — user-1 hâlâ izleniyor
	h.presence.connected("user-1")
	event := recvEvent(t, watcher, time.Second)
	data := presencePayload(t, event)
	assert.Equal(t, "user-1", data.UserID)
	assert.True(t, data.Online)
}

func TestDropClientStopsDelivery(t *testing.T) {
	h := NewHub(time.Second)
	watcher := newTestClient(h, "agent-1")
	watchSnapshot(t, h, watcher, []string{"user-1"})

	h.presence.dropClient(watcher)

	h.presence.connected("user-1")
	requireNoEvent(t, watcher, 50*time.Millisecond)
}

func TestMultipleWatchersEachReceiveUpdate(t *testing.T) {
	h := NewHub(time.Second)
	w1 := newTestClient(h, "agent-1")
	w2 := newTestClient(h, "agent-2")
	watchSnapshot(t, h, w1, []string{"user-1"})
	watchSnapshot(t, h, w2, []string{"user-1"})

	h.presence.connected("user-1")

	for _, w := range []*Client{w1, w2} {
		event := recvEvent(t, w, time.Second)
		data := presencePayload(t, event)
		assert.Equal(t, "user-1", data.UserID)
		assert.True(t, data.Online)
	}
}

func TestFirstEventForWatchedPeerIsSnapshot(t *testing.T) {
	// Watch ile eşzamanlı bir online geçişi snapshot'ın önüne geçememeli:
	// izleyenin bir peer için gördüğü İLK event her zaman snapshot'tır.
	h := NewHub(time.Second)
	watcher := newTestClient(h, "agent-1")

	done := make(chan struct{})
	go func() {
		h.presence.connected("user-1")
		close(done)
	}()
	h.presence.Watch(watcher, []string{"user-1"})
	<-done

	first := recvEvent(t, watcher, time.Second)
	require.Equal(t, OpPresenceSnapshot, first.Op)

	entries := snapshotPayload(t, first)
	require.Len(t, entries, 1)
	if !entries[0].Online {
		// Watch geçişten önce koştu — online update snapshot'tan SONRA gelir
		event := recvEvent(t, watcher, time.Second)
		assert.Equal(t, OpPresence, event.Op)
		assert.True(t, presencePayload(t, event).Online)
	}
}

func TestRapidReconnectKeepsEventOrderMonotonic(t *testing.T) {
	// Grace timer'ın offline'ı ile reconnect'in online'ı yarışsa bile izleyen
	// asla "online, offline" sırasını ters görmemeli: event'ler strict
	// alternating olmalı ve son event online olmalı.
	h := NewHub(time.Millisecond)
	watcher := newTestClient(h, "agent-1")
	watchSnapshot(t, h, watcher, []string{"user-1"})

	// 25 tur × 2 event, send buffer'ına (64) sığar — event kaybı sırayı bozamaz
	for i := 0; i < 25; i++ {
		h.presence.connected("user-1")
		h.presence.disconnected("user-1")
		time.Sleep(3 * time.Millisecond)
	}
	h.presence.connected("user-1")

	var seen []bool
	deadline := time.After(500 * time.Millisecond)
drain:
	for {
		select {
		case raw := <-watcher.send:
			var event Event
			require.NoError(t, json.Unmarshal(raw, &event))
			require.Equal(t, OpPresence, event.Op)
			seen = append(seen, presencePayload(t, event).Online)
		case <-deadline:
			break drain
		}
	}

	require.NotEmpty(t, seen)
	assert.True(t, seen[0], "first transition must be online")
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i-1], seen[i], "presence events must alternate (index %d)", i)
	}
	assert.True(t, seen[len(seen)-1], "user ended connected, last event must be online")
}
