package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"duel-game-bot/internal/game/coin"
	"duel-game-bot/internal/match"
)

// parseWager converts a user-entered amount like "100" or "1.50" into
// minor currency units. Parsing is integer-only to keep money exact.
func parseWager(s string) (int64, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount: %s", s)
	}
	cents := int64(0)
	if hasFrac {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, fmt.Errorf("invalid amount: %s", s)
		}
	}
	return units*100 + cents, nil
}

// formatAmount renders minor units as a decimal amount.
func formatAmount(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// gameEmoji returns the chat emoji for a game command.
func gameEmoji(game string) string {
	switch game {
	case "darts":
		return "🎯"
	case "football":
		return "⚽"
	case "coin":
		return "🪙"
	default:
		return "🎲"
	}
}

// outcomeLabel renders one outcome value for display.
func outcomeLabel(game string, v int) string {
	if game == "coin" {
		if v == coin.Heads {
			return "正面"
		}
		return "反面"
	}
	return strconv.Itoa(v)
}

// modeLabel renders a scoring mode for display.
func modeLabel(mode string) string {
	switch mode {
	case "normal":
		return "普通"
	case "double":
		return "双掷"
	case "crazy":
		return "疯狂"
	default:
		return mode
	}
}

// friendlyError maps engine rejections to user-facing replies.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, match.ErrInvalidWager):
		return "❌ 无效的赌注金额"
	case errors.Is(err, match.ErrInsufficientBalance):
		return "❌ 余额不足"
	case errors.Is(err, match.ErrAlreadyInSession):
		return "❌ 你已经在一场对决中"
	case errors.Is(err, match.ErrNotYourSetup):
		return "❌ 这不是你的设置"
	case errors.Is(err, match.ErrStaleAnchor):
		return "❌ 该操作已过期"
	case errors.Is(err, match.ErrNotYourTurn):
		return "❌ 还没轮到你"
	case errors.Is(err, match.ErrWrongRound):
		return "❌ 该回合已结束"
	case errors.Is(err, match.ErrMatchAlreadyOver):
		return "❌ 对决已结束"
	case errors.Is(err, match.ErrNoActiveSession):
		return "❌ 你没有进行中的对决"
	case errors.Is(err, match.ErrChallengeNotFound):
		return "❌ 挑战已过期或不存在"
	case errors.Is(err, match.ErrSelfChallenge):
		return "❌ 不能挑战自己"
	case errors.Is(err, match.ErrOpponentBusy):
		return "❌ 对方正在对决中"
	case errors.Is(err, match.ErrEitherBusy):
		return "❌ 有一方正在对决中"
	case errors.Is(err, match.ErrOpponentUnderfunded):
		return "❌ 对方余额不足"
	case errors.Is(err, match.ErrNoPriorSession):
		return "❌ 没有可重开的对决"
	case errors.Is(err, match.ErrUnknownGame):
		return "❌ 未知的游戏"
	case errors.Is(err, match.ErrInvalidWinTarget):
		return "❌ 无效的目标分数"
	case errors.Is(err, match.ErrSetupIncomplete):
		return "❌ 请先完成设置"
	default:
		return "❌ 操作失败，请稍后重试"
	}
}
