// Package bot provides the Telegram bot initialization and handler
// registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-game-bot/internal/config"
	"duel-game-bot/internal/handler"
	"duel-game-bot/internal/ledger"
	"duel-game-bot/internal/match"
	"duel-game-bot/internal/repository"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
	duelHandler    *handler.DuelHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	Accounts    *repository.AccountRepository
	Txs         *repository.TransactionRepository
	Ledger      ledger.Ledger
	Engine      *match.Engine
	Negotiation *match.Negotiation
	Broker      *match.Broker
	Rematch     *match.Rematch
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.accountHandler = handler.NewAccountHandler(deps.Accounts, deps.Txs, deps.Ledger)
	b.adminHandler = handler.NewAdminHandler(deps.Accounts, deps.Ledger)
	b.duelHandler = handler.NewDuelHandler(
		deps.Config, deps.Accounts, deps.Engine, deps.Negotiation, deps.Broker, deps.Rematch,
	)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(recoverPanics())
	b.bot.Use(newAccessGate(b.cfg).middleware())
	b.bot.Use(logUpdates())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(adminOnly(b.cfg))
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)

	// Duel commands
	b.bot.Handle("/darts", b.duelHandler.HandleDarts)
	b.bot.Handle("/football", b.duelHandler.HandleFootball)
	b.bot.Handle("/coin", b.duelHandler.HandleCoin)

	// All duel buttons route through one callback handler
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to the duel handler.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, "duel_") {
		return b.duelHandler.HandleDuelCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unrecognized callback")
	return nil
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
