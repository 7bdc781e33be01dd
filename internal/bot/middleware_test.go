package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"duel-game-bot/internal/config"
)

func TestAccessGate_PrivateAccessEarnedInGroups(t *testing.T) {
	cfg := &config.Config{
		Whitelist: config.WhitelistConfig{Chats: []int64{-100}},
	}
	gate := newAccessGate(cfg)

	assert.False(t, gate.privateAllowed(111))

	// First contact in an allowed group opens private chat.
	gate.grantPrivate(111)
	assert.True(t, gate.privateAllowed(111))
	assert.False(t, gate.privateAllowed(222))
}

func TestConfig_ChatWhitelist(t *testing.T) {
	open := &config.Config{}
	assert.True(t, open.IsChatAllowed(-123), "empty whitelist allows every chat")

	cfg := &config.Config{
		Whitelist: config.WhitelistConfig{Chats: []int64{-100, -200}},
	}
	assert.True(t, cfg.IsChatAllowed(-100))
	assert.False(t, cfg.IsChatAllowed(-300))
}

func TestConfig_AdminCheck(t *testing.T) {
	cfg := &config.Config{
		Bot: config.BotConfig{Admins: []int64{111}},
	}
	assert.True(t, cfg.IsAdmin(111))
	assert.False(t, cfg.IsAdmin(222))

	none := &config.Config{}
	assert.False(t, none.IsAdmin(111), "no admins configured means no admin access")
}
