package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"duel-game-bot/internal/ledger"
	"duel-game-bot/internal/model"
	"duel-game-bot/internal/repository"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accounts *repository.AccountRepository
	txs      *repository.TransactionRepository
	ledger   ledger.Ledger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	accounts *repository.AccountRepository,
	txs *repository.TransactionRepository,
	led ledger.Ledger,
) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		txs:      txs,
		ledger:   led,
	}
}

// HandleStart handles the /start command. Creates an account with the
// configured starting balance if the user doesn't have one.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}

	account, created, err := h.accounts.GetOrCreate(ctx, sender.ID, username)
	if err != nil {
		return c.Reply("❌ 创建账户失败，请稍后重试")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 欢迎 @%s！\n\n"+
				"您的账户已创建，初始余额: %s\n\n"+
				"可用命令:\n"+
				"/balance - 查看余额\n"+
				"/history - 最近流水\n"+
				"/darts <金额> - 飞镖对决\n"+
				"/football <金额> - 足球对决\n"+
				"/coin <金额> - 抛硬币对决\n\n"+
				"回复他人消息再发命令即可向对方发起挑战",
			username, formatAmount(account.Balance),
		))
	}

	return c.Reply(fmt.Sprintf(
		"👋 欢迎回来 @%s！\n\n当前余额: %s",
		username, formatAmount(account.Balance),
	))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}
	if _, _, err := h.accounts.GetOrCreate(ctx, sender.ID, username); err != nil {
		return c.Reply("❌ 操作失败，请稍后重试")
	}

	balance, err := h.ledger.Balance(ctx, sender.ID)
	if err != nil {
		return c.Reply("❌ 获取余额失败")
	}

	return c.Reply(fmt.Sprintf("💰 @%s 当前余额: %s", username, formatAmount(balance)))
}

// HandleHistory handles the /history command, listing recent ledger
// entries for the caller.
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	entries, err := h.txs.GetByUserID(ctx, sender.ID, 10)
	if err != nil {
		return c.Reply("❌ 获取流水失败")
	}
	if len(entries) == 0 {
		return c.Reply("📒 暂无流水记录")
	}

	text := "📒 最近流水:\n"
	for _, tx := range entries {
		line := fmt.Sprintf("\n%s %s", txTypeLabel(tx.Type), formatAmount(tx.Amount))
		if tx.Description != nil && *tx.Description != "" {
			line += " · " + *tx.Description
		}
		text += line
	}
	return c.Reply(text)
}

// txTypeLabel renders a transaction type for display.
func txTypeLabel(txType string) string {
	switch txType {
	case model.TxTypeInitial:
		return "🎁"
	case model.TxTypeEscrow:
		return "⚔️"
	case model.TxTypePayout:
		return "🏆"
	case model.TxTypeRefund:
		return "↩️"
	case model.TxTypeAdmin:
		return "🛠"
	default:
		return "•"
	}
}
