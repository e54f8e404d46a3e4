package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeforeOrdersByCreatedAtThenID(t *testing.T) {
	base := time.Now().UTC()

	earlier := &DirectMessage{ID: "z", CreatedAt: base}
	later := &DirectMessage{ID: "a", CreatedAt: base.Add(time.Second)}
	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))

	// Aynı an — ID tie-break
	a := &DirectMessage{ID: "aaa", CreatedAt: base}
	b := &DirectMessage{ID: "bbb", CreatedAt: base}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
}

func TestPeerOf(t *testing.T) {
	msg := &DirectMessage{SenderID: "user-1", RecipientID: "agent-1"}
	assert.Equal(t, "agent-1", msg.PeerOf("user-1"))
	assert.Equal(t, "user-1", msg.PeerOf("agent-1"))
}

func TestCreateMessageRequestValidate(t *testing.T) {
	req := &CreateMessageRequest{Content: "  merhaba  "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "merhaba", req.Content) // trim edilir

	empty := &CreateMessageRequest{Content: "   "}
	assert.Error(t, empty.Validate())

	tooLong := &CreateMessageRequest{Content: strings.Repeat("a", 2001)}
	assert.Error(t, tooLong.Validate())

	// 2000 karakter sınırın içinde
	atLimit := &CreateMessageRequest{Content: strings.Repeat("ğ", 2000)}
	assert.NoError(t, atLimit.Validate())
}
