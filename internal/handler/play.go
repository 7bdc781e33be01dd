package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-game-bot/internal/game"
	"duel-game-bot/internal/match"
)

// sendRoundPrompt posts the turn prompt for the session's current state
// and anchors it, making it the only message whose button the engine will
// accept.
func (h *DuelHandler) sendRoundPrompt(c tele.Context, s *match.Session) error {
	ctx := context.Background()
	emoji := gameEmoji(s.Params.Game)

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data(emoji+" 掷出", "duel_throw", strconv.Itoa(s.Round)),
	))

	text := fmt.Sprintf("%s 第 %d 回合 | 比分 %d:%d\n轮到 %s",
		emoji, s.Round, s.Scores[0], s.Scores[1], h.mention(ctx, s.PlayerID(s.Turn)))

	msg, err := c.Bot().Send(c.Chat(), text, markup)
	if err != nil {
		return err
	}
	return h.engine.SetAnchor(s.Key, match.Anchor(msg.ID))
}

// onThrow processes one turn button press and renders everything that
// follows from it: the outcome, any house throws, the round verdict and,
// when the round decided the match, the settlement.
func (h *DuelHandler) onThrow(c tele.Context, actor match.ParticipantKey, anchor match.Anchor, round int) error {
	ctx := context.Background()

	res, err := h.engine.SubmitTurn(ctx, actor, anchor, round)
	if res == nil {
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
		}
		return c.Respond(&tele.CallbackResponse{Text: "❌ 无效操作"})
	}
	if err != nil {
		// Settlement credit failure; the match result itself stands.
		log.Error().Err(err).Msg("Turn completed with settlement error")
	}

	gameCmd := ""
	if s, ok := h.engine.Registry().Lookup(actor); ok {
		gameCmd = s.Params.Game
	} else if res.Round != nil && res.Round.Match != nil {
		gameCmd = res.Round.Match.Params.Game
	}
	emoji := gameEmoji(gameCmd)

	c.Edit(fmt.Sprintf("%s %s 掷出 %s",
		emoji, h.mention(ctx, actor.UserID), outcomeLabel(gameCmd, res.Outcome)))
	c.Respond(&tele.CallbackResponse{Text: emoji})

	delay := h.cfg.Games.TurnDelay

	if len(res.HouseOutcomes) > 0 {
		time.Sleep(delay)
		labels := make([]string, len(res.HouseOutcomes))
		for i, v := range res.HouseOutcomes {
			labels[i] = outcomeLabel(gameCmd, v)
		}
		if _, err := c.Bot().Send(c.Chat(), fmt.Sprintf("%s 🤖 庄家掷出 %s", emoji, strings.Join(labels, ", "))); err != nil {
			return err
		}
	}

	if res.Round == nil {
		// Same round continues: either the same player throws again or
		// the turn passed to the other human.
		s, ok := h.engine.Registry().Lookup(actor)
		if !ok {
			return nil
		}
		return h.sendRoundPrompt(c, s)
	}

	time.Sleep(delay)
	return h.renderRound(c, actor, res.Round)
}

// renderRound posts the round verdict and either the next-round prompt or
// the settlement.
func (h *DuelHandler) renderRound(c tele.Context, actor match.ParticipantKey, round *match.RoundResult) error {
	if round.Degraded {
		if _, err := c.Bot().Send(c.Chat(), "⚠️ 本回合无效，重新开始"); err != nil {
			return err
		}
		s, ok := h.engine.Registry().Lookup(actor)
		if !ok {
			return nil
		}
		return h.sendRoundPrompt(c, s)
	}

	var verdictLine string
	switch round.Verdict {
	case game.RoundDraw:
		verdictLine = "😐 平局，本回合重赛"
	case game.RoundWinnerA:
		verdictLine = "🎉 先手得分！"
	default:
		verdictLine = "🎉 后手得分！"
	}

	text := fmt.Sprintf("📣 第 %d 回合结果\n%s\n📊 比分 %d:%d",
		round.Number, verdictLine, round.Scores[0], round.Scores[1])
	if _, err := c.Bot().Send(c.Chat(), text); err != nil {
		return err
	}

	if round.Match == nil {
		s, ok := h.engine.Registry().Lookup(actor)
		if !ok {
			return nil
		}
		return h.sendRoundPrompt(c, s)
	}
	return h.renderSettlement(c, round.Match)
}

// renderSettlement posts the final result with the rematch keyboard.
func (h *DuelHandler) renderSettlement(c tele.Context, result *match.MatchResult) error {
	ctx := context.Background()

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("🔁 再来一局", "duel_again"),
		markup.Data("💰 双倍或全无", "duel_double"),
	))

	var text string
	if result.WinnerID == match.House {
		text = fmt.Sprintf("🏆 🤖 庄家获胜！比分 %d:%d\n😢 输掉 %s",
			result.Scores[0], result.Scores[1], formatAmount(result.Params.Wager))
	} else {
		text = fmt.Sprintf("🏆 %s 获胜！比分 %d:%d\n💰 赢得 %s（含本金共 %s）",
			h.mention(ctx, result.WinnerID),
			result.Scores[0], result.Scores[1],
			formatAmount(result.Payout), formatAmount(result.Credited))
		if account, err := h.accounts.GetByID(ctx, result.WinnerID); err == nil {
			text += fmt.Sprintf("\n💳 余额: %s", formatAmount(account.Balance))
		}
	}

	_, err := c.Bot().Send(c.Chat(), text, markup)
	return err
}

// onRematch restarts the caller's previous match, optionally doubled.
func (h *DuelHandler) onRematch(c tele.Context, actor match.ParticipantKey, double bool) error {
	ctx := context.Background()

	var (
		out *match.RematchOutcome
		err error
	)
	if double {
		out, err = h.rematch.DoubleOrNothing(ctx, actor)
	} else {
		out, err = h.rematch.PlayAgain(ctx, actor)
	}
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: friendlyError(err), ShowAlert: true})
	}

	if out.Session != nil {
		if _, err := c.Bot().Send(c.Chat(), fmt.Sprintf("%s 新对决开始！💰 赌注 %s",
			gameEmoji(out.Params.Game), formatAmount(out.Params.Wager))); err != nil {
			return err
		}
		if err := h.sendRoundPrompt(c, out.Session); err != nil {
			return err
		}
		return c.Respond(&tele.CallbackResponse{Text: "⚔️ 对决开始！"})
	}

	ch := out.Challenge
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("✅ 接受", "duel_accept", strconv.FormatInt(ch.ID, 10)),
		markup.Data("❌ 拒绝", "duel_decline", strconv.FormatInt(ch.ID, 10)),
	))
	text := fmt.Sprintf("⚔️ %s 向 %s 发起%s重赛！\n\n💰 赌注: %s\n🎮 玩法: %s，先胜 %d 局",
		h.mention(ctx, ch.Initiator),
		h.mention(ctx, ch.Opponent),
		gameEmoji(ch.Params.Game),
		formatAmount(ch.Params.Wager),
		modeLabel(ch.Params.Mode),
		ch.Params.WinTarget,
	)
	if _, err := c.Bot().Send(c.Chat(), text, markup); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "⚔️ 挑战已发出"})
}
