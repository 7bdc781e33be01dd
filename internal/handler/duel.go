// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-game-bot/internal/config"
	"duel-game-bot/internal/match"
	"duel-game-bot/internal/repository"
)

// DuelHandler handles duel commands, the setup dialog, challenges and
// round play. Every callback carries the prompt message id as its anchor,
// so duplicate or delayed button presses are rejected by the engine
// instead of double-applying.
type DuelHandler struct {
	cfg         *config.Config
	accounts    *repository.AccountRepository
	engine      *match.Engine
	negotiation *match.Negotiation
	broker      *match.Broker
	rematch     *match.Rematch
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(
	cfg *config.Config,
	accounts *repository.AccountRepository,
	engine *match.Engine,
	negotiation *match.Negotiation,
	broker *match.Broker,
	rematch *match.Rematch,
) *DuelHandler {
	return &DuelHandler{
		cfg:         cfg,
		accounts:    accounts,
		engine:      engine,
		negotiation: negotiation,
		broker:      broker,
		rematch:     rematch,
	}
}

// HandleDarts handles the /darts command.
func (h *DuelHandler) HandleDarts(c tele.Context) error { return h.handleGameCommand(c, "darts") }

// HandleFootball handles the /football command.
func (h *DuelHandler) HandleFootball(c tele.Context) error {
	return h.handleGameCommand(c, "football")
}

// HandleCoin handles the /coin command.
func (h *DuelHandler) HandleCoin(c tele.Context) error { return h.handleGameCommand(c, "coin") }

// handleGameCommand starts the setup dialog for a game. Used as a reply
// to another player's message it challenges that player; otherwise the
// match is against the house.
func (h *DuelHandler) handleGameCommand(c tele.Context, gameCmd string) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply(fmt.Sprintf("❌ 用法: /%s <金额>\n例如: /%s 1.50", gameCmd, gameCmd))
	}
	wager, err := parseWager(args[0])
	if err != nil || wager <= 0 {
		return c.Reply("❌ 请输入有效的赌注金额")
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}
	if _, _, err := h.accounts.GetOrCreate(ctx, sender.ID, username); err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	// A reply challenges the replied-to player; otherwise play the house.
	opponent := match.House
	if reply := c.Message().ReplyTo; reply != nil && reply.Sender != nil && !reply.Sender.IsBot {
		opponent = reply.Sender.ID
		opponentName := reply.Sender.Username
		if opponentName == "" {
			opponentName = reply.Sender.FirstName
		}
		if _, _, err := h.accounts.GetOrCreate(ctx, opponent, opponentName); err != nil {
			return c.Reply("❌ 对方账户创建失败")
		}
	}

	initiator := match.ParticipantKey{ChatID: chat.ID, UserID: sender.ID}
	setup, err := h.negotiation.Begin(ctx, initiator, opponent, gameCmd, wager)
	if err != nil {
		return c.Reply(friendlyError(err))
	}

	text, markup := h.renderSetup(setup)
	msg, err := c.Bot().Send(chat, text, markup)
	if err != nil {
		return err
	}
	return h.negotiation.SetAnchor(initiator, match.Anchor(msg.ID))
}

// renderSetup builds the dialog text and keyboard for the current step.
func (h *DuelHandler) renderSetup(setup match.Setup) (string, *tele.ReplyMarkup) {
	markup := &tele.ReplyMarkup{}
	variant, _ := h.engine.Games().Get(setup.Game)

	header := fmt.Sprintf("%s %s 对决设置\n💰 赌注: %s", gameEmoji(setup.Game), variant.Name(), formatAmount(setup.Wager))

	switch setup.Step {
	case match.StepMode:
		var row []tele.Btn
		for _, mode := range variant.Modes() {
			row = append(row, markup.Data(modeLabel(mode), "duel_mode", mode))
		}
		markup.Inline(markup.Row(row...))
		return header + "\n\n请选择玩法:", markup

	case match.StepTarget:
		var row []tele.Btn
		for _, target := range h.cfg.Games.WinTargets {
			row = append(row, markup.Data(fmt.Sprintf("先胜 %d 局", target), "duel_target", strconv.Itoa(target)))
		}
		markup.Inline(markup.Row(row...))
		return header + fmt.Sprintf("\n🎮 玩法: %s\n\n请选择目标局数:", modeLabel(setup.Mode)), markup

	default:
		markup.Inline(markup.Row(
			markup.Data("✅ 确认", "duel_confirm"),
			markup.Data("❌ 取消", "duel_cancel"),
		))
		return header + fmt.Sprintf("\n🎮 玩法: %s\n🏁 先胜 %d 局\n\n确认开始？", modeLabel(setup.Mode), setup.WinTarget), markup
	}
}

// HandleDuelCallback routes all duel button callbacks.
func (h *DuelHandler) HandleDuelCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || callback.Message == nil || sender == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	action, arg, _ := strings.Cut(data, "|")

	actor := match.ParticipantKey{ChatID: callback.Message.Chat.ID, UserID: sender.ID}
	anchor := match.Anchor(callback.Message.ID)

	switch action {
	case "duel_mode":
		return h.onSetupStep(c, actor, anchor, func() (match.Setup, error) {
			return h.negotiation.SelectMode(actor, anchor, arg)
		})
	case "duel_target":
		target, err := strconv.Atoi(arg)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
		}
		return h.onSetupStep(c, actor, anchor, func() (match.Setup, error) {
			return h.negotiation.SelectTarget(actor, anchor, target)
		})
	case "duel_confirm":
		return h.onConfirm(c, actor, anchor)
	case "duel_cancel":
		return h.onCancel(c, actor, anchor)
	case "duel_accept", "duel_decline":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
		}
		if action == "duel_accept" {
			return h.onAccept(c, id)
		}
		return h.onDecline(c, id)
	case "duel_throw":
		round, err := strconv.Atoi(arg)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
		}
		return h.onThrow(c, actor, anchor, round)
	case "duel_again":
		return h.onRematch(c, actor, false)
	case "duel_double":
		return h.onRematch(c, actor, true)
	}
	return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
}

// onSetupStep applies one dialog selection and advances the prompt.
func (h *DuelHandler) onSetupStep(c tele.Context, actor match.ParticipantKey, anchor match.Anchor, step func() (match.Setup, error)) error {
	setup, err := step()
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}

	text, markup := h.renderSetup(setup)
	if err := c.Edit(text, markup); err != nil {
		return err
	}
	// The edited message keeps its id; re-anchor it for the next step.
	if err := h.negotiation.SetAnchor(actor, anchor); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{})
}

// onConfirm finalizes the dialog and starts the match or sends the
// challenge, depending on the chosen opponent.
func (h *DuelHandler) onConfirm(c tele.Context, actor match.ParticipantKey, anchor match.Anchor) error {
	ctx := context.Background()

	setup, err := h.negotiation.Confirm(actor, anchor)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}

	if setup.Opponent == match.House {
		s, err := h.engine.BeginBotMatch(ctx, actor.ChatID, actor.UserID, setup.MatchParams())
		if err != nil {
			c.Edit(friendlyError(err))
			return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
		}
		c.Edit(fmt.Sprintf("%s 对决开始！💰 赌注 %s", gameEmoji(setup.Game), formatAmount(setup.Wager)))
		if err := h.sendRoundPrompt(c, s); err != nil {
			return err
		}
		return c.Respond(&tele.CallbackResponse{Text: "⚔️ 对决开始！"})
	}

	ch, err := h.broker.Propose(ctx, actor.ChatID, actor.UserID, setup.Opponent, setup.MatchParams())
	if err != nil {
		c.Edit(friendlyError(err))
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("✅ 接受", "duel_accept", strconv.FormatInt(ch.ID, 10)),
		markup.Data("❌ 拒绝", "duel_decline", strconv.FormatInt(ch.ID, 10)),
	))

	ctxNames := context.Background()
	text := fmt.Sprintf("⚔️ %s 向 %s 发起%s对决！\n\n💰 赌注: %s\n🎮 玩法: %s，先胜 %d 局\n⏰ %s 内响应",
		h.mention(ctxNames, ch.Initiator),
		h.mention(ctxNames, ch.Opponent),
		gameEmoji(ch.Params.Game),
		formatAmount(ch.Params.Wager),
		modeLabel(ch.Params.Mode),
		ch.Params.WinTarget,
		h.cfg.Games.ChallengeTTL,
	)
	if err := c.Edit(text, markup); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "⚔️ 挑战已发出"})
}

// onCancel abandons the dialog.
func (h *DuelHandler) onCancel(c tele.Context, actor match.ParticipantKey, anchor match.Anchor) error {
	if err := h.negotiation.Cancel(actor, anchor); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}
	c.Edit("❌ 对决设置已取消")
	return c.Respond(&tele.CallbackResponse{Text: "已取消"})
}

// onAccept accepts a pending challenge and starts the match.
func (h *DuelHandler) onAccept(c tele.Context, challengeID int64) error {
	ctx := context.Background()
	sender := c.Sender()

	s, err := h.broker.Accept(ctx, challengeID, sender.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}
	if s == nil {
		// Not the challenged player; the challenge stays pending.
		return c.Respond(&tele.CallbackResponse{Text: "❌ 这不是你的挑战", ShowAlert: true})
	}

	c.Edit(fmt.Sprintf("⚔️ 挑战已接受！💰 赌注 %s", formatAmount(s.Params.Wager)))
	if err := h.sendRoundPrompt(c, s); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "⚔️ 对决开始！"})
}

// onDecline withdraws a pending challenge.
func (h *DuelHandler) onDecline(c tele.Context, challengeID int64) error {
	sender := c.Sender()

	ch, found := h.broker.Get(challengeID)
	removed, err := h.broker.Decline(challengeID, sender.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}
	if !removed {
		return c.Respond(&tele.CallbackResponse{Text: "❌ 这不是你的挑战", ShowAlert: true})
	}

	ctx := context.Background()
	if found {
		c.Edit(fmt.Sprintf("❌ %s 的对决挑战已被拒绝", h.mention(ctx, ch.Initiator)))
	} else {
		c.Edit("❌ 对决挑战已被拒绝")
	}
	return c.Respond(&tele.CallbackResponse{Text: "已拒绝对决"})
}

// mention renders a player as an @-mention, falling back to the stored
// username and then to the raw id.
func (h *DuelHandler) mention(ctx context.Context, userID int64) string {
	if userID == match.House {
		return "🤖 庄家"
	}
	account, err := h.accounts.GetByID(ctx, userID)
	if err != nil || account.Username == "" {
		log.Debug().Err(err).Int64("user_id", userID).Msg("No username for mention")
		return fmt.Sprintf("玩家 %d", userID)
	}
	return "@" + account.Username
}
