package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinLimit(t *testing.T) {
	rl := NewMessageRateLimiter(3, time.Minute, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("user-1"), "message %d should be allowed", i+1)
	}
}

func TestRejectsBeyondLimitAndStartsCooldown(t *testing.T) {
	rl := NewMessageRateLimiter(2, time.Minute, time.Minute)
	defer rl.Close()

	assert.True(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-1"))
	assert.False(t, rl.Allow("user-1"))

	// Cooldown'dayken her deneme reddedilir
	assert.False(t, rl.Allow("user-1"))
	assert.Greater(t, rl.CooldownSeconds("user-1"), 0)
}

func TestUsersAreIndependent(t *testing.T) {
	rl := NewMessageRateLimiter(1, time.Minute, time.Minute)
	defer rl.Close()

	assert.True(t, rl.Allow("user-1"))
	assert.False(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-2"))
}

func TestWindowResets(t *testing.T) {
	rl := NewMessageRateLimiter(2, 30*time.Millisecond, time.Minute)
	defer rl.Close()

	assert.True(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-1"))

	// Limit aşılmadan pencere dolarsa sayaç sıfırlanır
	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("user-1"))
}

func TestCooldownExpires(t *testing.T) {
	rl := NewMessageRateLimiter(1, time.Minute, 30*time.Millisecond)
	defer rl.Close()

	assert.True(t, rl.Allow("user-1"))
	assert.False(t, rl.Allow("user-1"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("user-1"))
	assert.Zero(t, rl.CooldownSeconds("user-1"))
}

func TestCooldownSecondsForUnknownUser(t *testing.T) {
	rl := NewMessageRateLimiter(1, time.Minute, time.Minute)
	defer rl.Close()

	assert.Zero(t, rl.CooldownSeconds("nobody"))
}
