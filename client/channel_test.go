package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/ws"
)

// wsTestServer, Channel testleri için minimal WebSocket server'ı.
//
// Token'ı query parameter'dan kontrol eder, geçerliyse upgrade edip ready
// gönderir ve client'tan gelen event'leri received channel'ına akıtır.
type wsTestServer struct {
	srv        *httptest.Server
	validToken string

	mu    sync.Mutex
	conns []*websocket.Conn
	dials int

	received chan inboundEvent
}

func newWSTestServer(t *testing.T, validToken string) *wsTestServer {
	t.Helper()
	s := &wsTestServer{
		validToken: validToken,
		received:   make(chan inboundEvent, 64),
	}

	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.dials++
		s.mu.Unlock()

		if r.URL.Query().Get("token") != s.validToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		ready, _ := json.Marshal(ws.Event{
			Op: ws.OpReady,
			Data: ws.ReadyData{
				PrincipalID:              "user-1",
				HeartbeatIntervalSeconds: 30,
			},
		})
		if err := conn.WriteMessage(websocket.TextMessage, ready); err != nil {
			return
		}

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event inboundEvent
			if json.Unmarshal(raw, &event) == nil {
				s.received <- event
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsTestServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// dropLastConn, son bağlantıyı server tarafından kapatır — kopma simülasyonu.
func (s *wsTestServer) dropLastConn(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	s.conns[len(s.conns)-1].Close()
}

// waitOp, client'tan verilen op'ta bir event gelene kadar bekler.
func (s *wsTestServer) waitOp(t *testing.T, op string) inboundEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-s.received:
			if event.Op == op {
				return event
			}
		case <-deadline:
			t.Fatalf("event %q never received from client", op)
			return inboundEvent{}
		}
	}
}

// watchStatuses, Connect'ten ÖNCE abone olunacak status channel'ı kurar.
func watchStatuses(ch *Channel) <-chan Status {
	statuses := make(chan Status, 16)
	ch.OnStatus(func(s Status) { statuses <- s })
	return statuses
}

func waitStatus(t *testing.T, statuses <-chan Status, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("status %q never reached", want)
		}
	}
}

// revokedCredential, Refresh'i her zaman reddeden credential — logout senaryosu.
type revokedCredential struct{}

func (revokedCredential) Token(_ context.Context) (string, error) { return "stale-token", nil }
func (revokedCredential) Refresh(_ context.Context) (string, error) {
	return "", errors.New("refresh token revoked")
}

func TestConnectReachesConnected(t *testing.T) {
	srv := newWSTestServer(t, "token-1")
	ch := NewChannel(srv.wsURL(), StaticCredential("token-1"))
	statuses := watchStatuses(ch)
	defer ch.Close()

	ch.Connect()
	waitStatus(t, statuses, StatusConnected)
	assert.Equal(t, StatusConnected, ch.Status())
}

func TestConnectIsIdempotent(t *testing.T) {
	srv := newWSTestServer(t, "token-1")
	ch := NewChannel(srv.wsURL(), StaticCredential("token-1"))
	statuses := watchStatuses(ch)
	defer ch.Close()

	ch.Connect()
	waitStatus(t, statuses, StatusConnected)

	// İkinci Connect no-op — yeni bağlantı açılmaz, durum bozulmaz
	ch.Connect()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, srv.dialCount())
	assert.Equal(t, StatusConnected, ch.Status())
}

func TestWatchSetReplayedAfterReconnect(t *testing.T) {
	srv := newWSTestServer(t, "token-1")
	ch := NewChannel(srv.wsURL(), StaticCredential("token-1"))
	statuses := watchStatuses(ch)
	defer ch.Close()

	ch.Connect()
	waitStatus(t, statuses, StatusConnected)

	ch.WatchPresence([]string{"agent-1"})
	first := srv.waitOp(t, ws.OpWatchPresence)
	var data ws.WatchPresenceData
	require.NoError(t, json.Unmarshal(first.Data, &data))
	assert.Equal(t, []string{"agent-1"}, data.PeerIDs)

	// Server bağlantıyı koparır — client reconnect eder ve watch set'ini
	// KENDİLİĞİNDEN yeniden gönderir (server bağlantı bazında unutur)
	srv.dropLastConn(t)
	waitStatus(t, statuses, StatusReconnecting)
	waitStatus(t, statuses, StatusConnected)

	replay := srv.waitOp(t, ws.OpWatchPresence)
	require.NoError(t, json.Unmarshal(replay.Data, &data))
	assert.Contains(t, data.PeerIDs, "agent-1")
	assert.GreaterOrEqual(t, srv.dialCount(), 2)
}

func TestHandshake401RefreshesAndRedials(t *testing.T) {
	srv := newWSTestServer(t, "fresh-token")
	creds := &refreshableCredential{current: "stale-token", next: "fresh-token"}
	ch := NewChannel(srv.wsURL(), creds)
	statuses := watchStatuses(ch)
	defer ch.Close()

	ch.Connect()
	waitStatus(t, statuses, StatusConnected)

	assert.Equal(t, 1, creds.refreshn)
	assert.Equal(t, 2, srv.dialCount())
}

func TestRefreshFailureDeactivatesChannel(t *testing.T) {
	srv := newWSTestServer(t, "fresh-token")
	ch := NewChannel(srv.wsURL(), revokedCredential{})
	statuses := watchStatuses(ch)

	ch.Connect()

	// Handshake 401 + Refresh hatası = logout: backoff'la sonsuza kadar
	// denemek yerine kanal kalıcı olarak kapanır
	waitStatus(t, statuses, StatusDeactivated)
	assert.Equal(t, StatusDeactivated, ch.Status())

	dials := srv.dialCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, dials, srv.dialCount(), "deactivated channel must not redial")
}

func TestCloseStopsReconnecting(t *testing.T) {
	srv := newWSTestServer(t, "token-1")
	ch := NewChannel(srv.wsURL(), StaticCredential("token-1"))
	statuses := watchStatuses(ch)

	ch.Connect()
	waitStatus(t, statuses, StatusConnected)

	ch.Close()
	waitStatus(t, statuses, StatusDeactivated)

	dials := srv.dialCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, dials, srv.dialCount(), "closed channel must not redial")
	assert.Equal(t, StatusDeactivated, ch.Status())
}
