package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/reputation"
	"github.com/sujalbistaa/confide/internal/sanitize"
	"github.com/sujalbistaa/confide/internal/store"
	"github.com/sujalbistaa/confide/internal/telegram"
)

const (
	confessionMinLen = 5
	confessionMaxLen = 1000

	confessionPrompt = "✍️ *Send Your Confession*\n\nType your confession below (max 1000 characters):\n\nYou can add hashtags like #love #study #funny"
)

// promptConfession runs the cooldown check and, if it passes, arms the
// awaiting_confession state so the next message is treated as the text.
func (b *Bot) promptConfession(ctx context.Context, chatID int64, user *models.User) error {
	last, ok, err := b.store.LastAction(ctx, user.TelegramID, actionConfession)
	if err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("cooldown check: %w", err)
	}
	if ok {
		if remaining := b.cfg.ConfessionCooldown - b.now().Sub(last); remaining > 0 {
			b.reply(ctx, chatID, fmt.Sprintf("⏳ Please wait %d seconds before submitting another confession.",
				int(remaining.Seconds())+1))
			return fmt.Errorf("user %d on cooldown: %w", user.TelegramID, ErrRateLimited)
		}
	}

	if err := b.store.SetState(ctx, &models.ConversationState{
		UserID: user.TelegramID,
		State:  models.StateAwaitingConfession,
		ChatID: chatID,
	}); err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("set state: %w", err)
	}

	b.reply(ctx, chatID, confessionPrompt)
	return nil
}

// submitConfession runs the submission step: validate, sanitize, number,
// persist pending, record the cooldown and fan out to the admins. The
// sequence number is obtained before the confession write, so a crash in
// between burns a number rather than reusing one.
func (b *Bot) submitConfession(ctx context.Context, chatID int64, user *models.User, text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < confessionMinLen {
		b.reply(ctx, chatID, "❌ Confession too short. Minimum 5 characters.")
		return fmt.Errorf("confession too short: %w", ErrValidation)
	}
	if utf8.RuneCountInString(text) > confessionMaxLen {
		b.reply(ctx, chatID, "❌ Confession too long. Maximum 1000 characters.")
		return fmt.Errorf("confession too long: %w", ErrValidation)
	}

	now := b.now().UTC()
	clean := sanitize.Clean(text)

	number, err := b.store.NextCounter(ctx, counterConfessions)
	if err != nil {
		b.reply(ctx, chatID, "❌ Error submitting confession. Please try again.")
		return fmt.Errorf("confession number: %w", err)
	}

	conf := &models.Confession{
		ID:        fmt.Sprintf("confess_%d_%d", user.TelegramID, now.UnixMilli()),
		UserID:    user.TelegramID,
		Text:      clean,
		Number:    number,
		Status:    models.StatusPending,
		Hashtags:  sanitize.Hashtags(clean),
		CreatedAt: now,
	}
	if err := b.store.CreateConfession(ctx, conf); err != nil {
		b.reply(ctx, chatID, "❌ Error submitting confession. Please try again.")
		return fmt.Errorf("create confession: %w", err)
	}

	if err := b.store.IncrementConfessionCount(ctx, user.TelegramID); err != nil {
		b.log.Error("increment confession count failed", "user", user.TelegramID, "error", err)
	}
	if err := b.store.SetCooldown(ctx, user.TelegramID, actionConfession, now); err != nil {
		b.log.Error("set cooldown failed", "user", user.TelegramID, "error", err)
	}

	b.notifyAdmins(ctx, conf)

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "📝 Send Another", CallbackData: "send_confession"},
			{Text: "📢 Promote Bot", CallbackData: "promote_bot"},
		},
		{
			{Text: "🔙 Back to Menu", CallbackData: "back_to_menu"},
		},
	}}
	b.replyWith(ctx, chatID,
		"✅ *Confession Submitted!*\n\nYour confession is under review. You'll be notified when approved.",
		markup)

	b.log.Info("confession submitted", "confession", conf.ID, "number", number)
	return nil
}

// notifyAdmins fans the moderation request out to every configured admin with
// inline accept/reject controls. Per-admin failures are logged and skipped.
func (b *Bot) notifyAdmins(ctx context.Context, conf *models.Confession) {
	if len(b.cfg.AdminIDs) == 0 {
		b.log.Warn("no admin ids configured, confession stays pending", "confession", conf.ID)
		return
	}

	text := fmt.Sprintf("🤫 *New Confession #%d*\n\n%s\n\n*Actions:*", conf.Number, truncate(conf.Text, 200))
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "✅ Approve", CallbackData: "approve_" + conf.ID},
			{Text: "❌ Reject", CallbackData: "reject_" + conf.ID},
		},
	}}

	for _, adminID := range b.cfg.AdminIDs {
		opts := &telegram.SendOptions{ParseMode: "Markdown", ReplyMarkup: markup}
		if _, err := b.sender.SendMessage(ctx, adminID, text, opts); err != nil {
			b.log.Error("admin notify failed", "admin", adminID, "confession", conf.ID, "error", err)
		}
	}
}

// approveConfession handles the approve_<id> callback: terminal status
// transition, author reputation credit, channel publication and author
// notification.
func (b *Bot) approveConfession(ctx context.Context, chatID, userID int64, confessionID string, cb *telegram.CallbackQuery) error {
	if !b.isAdmin(userID) {
		b.answerCallback(ctx, cb.ID, "❌ Access denied")
		return fmt.Errorf("approve by non-admin %d: %w", userID, ErrPermission)
	}

	conf, err := b.store.GetConfession(ctx, confessionID)
	if err != nil {
		b.answerCallback(ctx, cb.ID, "❌ Confession not found")
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("confession %s: %w", confessionID, ErrNotFound)
		}
		return fmt.Errorf("get confession: %w", err)
	}

	if err := b.store.MarkApproved(ctx, confessionID, b.now().UTC()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Replayed approval of an already decided confession; refuse
			// rather than double-publish.
			b.answerCallback(ctx, cb.ID, "⚠️ Already decided")
			return nil
		}
		b.answerCallback(ctx, cb.ID, "❌ Error approving confession")
		return fmt.Errorf("mark approved: %w", err)
	}

	if err := b.store.AddReputation(ctx, conf.UserID, reputation.ApprovalAward); err != nil {
		b.log.Error("reputation credit failed", "user", conf.UserID, "error", err)
	}

	if err := b.publish(ctx, conf); err != nil {
		b.answerCallback(ctx, cb.ID, "❌ Error approving confession")
		return err
	}

	b.notifier.Notify(ctx, conf.UserID,
		fmt.Sprintf("✅ Your confession #%d has been approved and posted!", conf.Number), "")

	b.answerCallback(ctx, cb.ID, "✅ Confession approved!")

	// Remove the moderation buttons; a failure here is cosmetic.
	if err := b.sender.EditMessageReplyMarkup(ctx, chatID, cb.Message.MessageID,
		&telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{}}); err != nil {
		b.log.Warn("clear moderation buttons failed", "error", err)
	}

	b.log.Info("confession approved", "confession", confessionID, "admin", userID)
	return nil
}

// publish posts the approved confession to the channel and creates its empty
// comment thread, recording the channel message id. Approve implies publish;
// exactly-once publication is not guaranteed across a crash between the
// status write and this call.
func (b *Bot) publish(ctx context.Context, conf *models.Confession) error {
	text := fmt.Sprintf("#%d\n\n%s\n\n💬 Comment on this confession:", conf.Number, conf.Text)
	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{
				Text: "👁️‍🗨️ View/Add Comments",
				URL:  fmt.Sprintf("https://t.me/%s?start=comment_%s", b.cfg.BotUsername, conf.ID),
			},
		},
	}}

	sent, err := b.sender.SendChannelMessage(ctx, b.cfg.ChannelID, text,
		&telegram.SendOptions{ParseMode: "Markdown", ReplyMarkup: markup})
	if err != nil {
		return fmt.Errorf("channel post: %w", err)
	}

	if err := b.store.CreateThread(ctx, &models.CommentThread{
		ConfessionID:     conf.ID,
		Number:           conf.Number,
		Text:             conf.Text,
		ChannelMessageID: sent.MessageID,
		CreatedAt:        b.now().UTC(),
	}); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	b.log.Info("confession published", "confession", conf.ID, "number", conf.Number, "channelMessage", sent.MessageID)
	return nil
}

// beginRejection arms the two-step rejection: the admin's next message is
// the rejection reason.
func (b *Bot) beginRejection(ctx context.Context, chatID, userID int64, confessionID string, cb *telegram.CallbackQuery) error {
	if !b.isAdmin(userID) {
		b.answerCallback(ctx, cb.ID, "❌ Access denied")
		return fmt.Errorf("reject by non-admin %d: %w", userID, ErrPermission)
	}

	if err := b.store.SetState(ctx, &models.ConversationState{
		UserID:       userID,
		State:        models.StateAwaitingRejectionReason,
		ConfessionID: confessionID,
		ChatID:       chatID,
	}); err != nil {
		b.answerCallback(ctx, cb.ID, "❌ Error processing request")
		return fmt.Errorf("set rejection state: %w", err)
	}

	b.reply(ctx, chatID, "❌ *Rejecting Confession*\n\nPlease provide rejection reason:")
	b.answerCallback(ctx, cb.ID, "Please provide rejection reason")
	return nil
}

// finishRejection stores the typed reason, marks the confession rejected and
// notifies the author. Admin privilege was re-checked by the caller.
func (b *Bot) finishRejection(ctx context.Context, chatID, adminID int64, confessionID, reason string) error {
	conf, err := b.store.GetConfession(ctx, confessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.log.Warn("rejection target vanished", "confession", confessionID)
			return nil
		}
		return fmt.Errorf("get confession: %w", err)
	}

	if err := b.store.MarkRejected(ctx, confessionID, reason, b.now().UTC()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			b.reply(ctx, chatID, "⚠️ This confession was already decided.")
			return nil
		}
		b.reply(ctx, chatID, "❌ Error rejecting confession.")
		return fmt.Errorf("mark rejected: %w", err)
	}

	b.notifier.Notify(ctx, conf.UserID,
		fmt.Sprintf("❌ Your confession #%d was rejected. Reason: %s", conf.Number, reason), "")

	b.reply(ctx, chatID, "✅ Confession rejected.")
	b.log.Info("confession rejected", "confession", confessionID, "admin", adminID)
	return nil
}
