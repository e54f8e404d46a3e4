package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// typingRecorder, coordinator'ın gönderdiği sinyalleri sırayla kaydeder.
type typingRecorder struct {
	mu    sync.Mutex
	sends []sendOp
}

func (r *typingRecorder) record(peerID string, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, sendOp{peerID: peerID, isTyping: isTyping})
}

func (r *typingRecorder) all() []sendOp {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sendOp, len(r.sends))
	copy(out, r.sends)
	return out
}

func (r *typingRecorder) waitFor(t *testing.T, n int) []sendOp {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sends := r.all(); len(sends) >= n {
			return sends
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected at least %d typing sends, got %d", n, len(r.all()))
	return nil
}

func TestTypingSingleTruePerBurst(t *testing.T) {
	rec := &typingRecorder{}
	tc := NewTypingCoordinator(50*time.Millisecond, rec.record)

	// Hızlı ardışık tuş vuruşları — tek bir true gitmeli
	tc.InputActivity("agent-1")
	tc.InputActivity("agent-1")
	tc.InputActivity("agent-1")

	sends := rec.all()
	require.Len(t, sends, 1)
	assert.Equal(t, sendOp{peerID: "agent-1", isTyping: true}, sends[0])

	// Timeout dolunca false gelir
	sends = rec.waitFor(t, 2)
	assert.Equal(t, sendOp{peerID: "agent-1", isTyping: false}, sends[1])
}

func TestTypingActivityExtendsBurst(t *testing.T) {
	rec := &typingRecorder{}
	tc := NewTypingCoordinator(60*time.Millisecond, rec.record)

	tc.InputActivity("agent-1")
	// Timeout'un yarısında tekrar aktivite — burst uzar, false henüz gitmez
	time.Sleep(30 * time.Millisecond)
	tc.InputActivity("agent-1")
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, rec.all(), 1)

	// Artık aktivite yok — false gelir
	sends := rec.waitFor(t, 2)
	assert.Equal(t, sendOp{peerID: "agent-1", isTyping: false}, sends[1])
}

func TestTypingFlushEndsBurstImmediately(t *testing.T) {
	rec := &typingRecorder{}
	tc := NewTypingCoordinator(time.Minute, rec.record)

	tc.InputActivity("agent-1")
	tc.Flush()

	sends := rec.all()
	require.Len(t, sends, 2)
	assert.Equal(t, sendOp{peerID: "agent-1", isTyping: true}, sends[0])
	assert.Equal(t, sendOp{peerID: "agent-1", isTyping: false}, sends[1])

	// Flush sonrası timer ateşlense bile ek event gelmez
	tc.Flush()
	assert.Len(t, rec.all(), 2)
}

func TestTypingSwitchTargetFlushesOldPeer(t *testing.T) {
	rec := &typingRecorder{}
	tc := NewTypingCoordinator(time.Minute, rec.record)

	tc.InputActivity("user-1")
	tc.InputActivity("user-2")

	sends := rec.all()
	require.Len(t, sends, 3)
	assert.Equal(t, sendOp{peerID: "user-1", isTyping: true}, sends[0])
	assert.Equal(t, sendOp{peerID: "user-1", isTyping: false}, sends[1])
	assert.Equal(t, sendOp{peerID: "user-2", isTyping: true}, sends[2])
}

func TestTypingNewBurstAfterTimeout(t *testing.T) {
	rec := &typingRecorder{}
	tc := NewTypingCoordinator(30*time.Millisecond, rec.record)

	tc.InputActivity("agent-1")
	rec.waitFor(t, 2) // true + timeout false

	// Yeni burst — tekrar true gönderilir
	tc.InputActivity("agent-1")
	sends := rec.waitFor(t, 3)
	assert.Equal(t, sendOp{peerID: "agent-1", isTyping: true}, sends[2])
}

func TestTypingIgnoresEmptyPeer(t *testing.T) {
	rec := &typingRecorder{}
	tc := NewTypingCoordinator(time.Minute, rec.record)

	tc.InputActivity("")
	assert.Empty(t, rec.all())
}
