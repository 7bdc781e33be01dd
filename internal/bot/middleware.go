package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-game-bot/internal/config"
)

// accessGate decides which chats and senders reach the handlers. Group
// access comes from the configured whitelist; private-chat access is
// earned by first using the bot inside an allowed group. An empty
// whitelist leaves the bot open everywhere.
type accessGate struct {
	cfg *config.Config

	mu      sync.RWMutex
	private map[int64]struct{}
}

func newAccessGate(cfg *config.Config) *accessGate {
	return &accessGate{cfg: cfg, private: make(map[int64]struct{})}
}

func (g *accessGate) grantPrivate(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.private[userID] = struct{}{}
}

func (g *accessGate) privateAllowed(userID int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.private[userID]
	return ok
}

// middleware filters updates through the gate. Rejected updates are
// dropped silently; a whitelist bot must not reveal itself to chats it
// does not serve.
func (g *accessGate) middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat, sender := c.Chat(), c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(g.cfg.Whitelist.Chats) == 0 || g.privateAllowed(sender.ID) {
					return next(c)
				}
				log.Debug().Int64("user_id", sender.ID).
					Msg("Dropping private message from unknown user")
				return nil
			}

			if !g.cfg.IsChatAllowed(chat.ID) {
				log.Debug().Int64("chat_id", chat.ID).
					Msg("Dropping message from unlisted chat")
				return nil
			}

			// Seen in an allowed group; private chat is open from now on.
			g.grantPrivate(sender.ID)
			return next(c)
		}
	}
}

// adminOnly rejects admin commands from anyone not in the admin list.
func adminOnly(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			if !cfg.IsAdmin(sender.ID) {
				log.Warn().Int64("user_id", sender.ID).Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ 权限不足：需要管理员权限")
			}
			return next(c)
		}
	}
}

// logUpdates traces every update that passed the gate.
func logUpdates() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			evt := log.Debug().Str("text", c.Text())
			if sender := c.Sender(); sender != nil {
				evt = evt.Int64("user_id", sender.ID).Str("username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				evt = evt.Int64("chat_id", chat.ID).Str("chat_type", string(chat.Type))
			}
			evt.Msg("Update received")
			return next(c)
		}
	}
}

// recoverPanics keeps a panicking handler from taking down the poller.
func recoverPanics() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Handler panicked")
					_ = c.Reply("❌ 发生内部错误，请稍后重试")
				}
			}()
			return next(c)
		}
	}
}
