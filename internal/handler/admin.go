package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"duel-game-bot/internal/ledger"
	"duel-game-bot/internal/model"
	"duel-game-bot/internal/repository"
)

// AdminHandler handles admin balance adjustments. The admin middleware
// gates access before these run.
type AdminHandler struct {
	accounts *repository.AccountRepository
	ledger   ledger.Ledger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *repository.AccountRepository, led ledger.Ledger) *AdminHandler {
	return &AdminHandler{accounts: accounts, ledger: led}
}

// HandleAdminAdd handles /admin_add <@user|id> <amount>.
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	return h.adjust(c, 1)
}

// HandleAdminSub handles /admin_sub <@user|id> <amount>.
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	return h.adjust(c, -1)
}

func (h *AdminHandler) adjust(c tele.Context, sign int64) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ 用法: 命令 <@用户|ID> <金额>")
	}

	target, err := h.resolveTarget(ctx, args[0])
	if err != nil {
		return c.Reply("❌ 目标用户不存在")
	}

	amount, err := parseWager(args[1])
	if err != nil || amount <= 0 {
		return c.Reply("❌ 请输入有效的金额")
	}

	desc := fmt.Sprintf("admin adjustment by %d", sender.ID)
	balance, err := h.ledger.Adjust(ctx, target, sign*amount, model.TxTypeAdmin, desc)
	if err != nil {
		log.Error().Err(err).Int64("admin", sender.ID).Int64("target", target).Msg("Admin adjustment failed")
		return c.Reply("❌ 调整失败")
	}

	return c.Reply(fmt.Sprintf("✅ 已调整 %s，当前余额: %s", formatAmount(sign*amount), formatAmount(balance)))
}

// resolveTarget accepts either "@username" or a raw Telegram id.
func (h *AdminHandler) resolveTarget(ctx context.Context, arg string) (int64, error) {
	if len(arg) > 1 && arg[0] == '@' {
		account, err := h.accounts.GetByUsername(ctx, arg[1:])
		if err != nil {
			return 0, err
		}
		return account.TelegramID, nil
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, err
	}
	if _, err := h.accounts.GetByID(ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}
