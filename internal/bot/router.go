package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/store"
	"github.com/sujalbistaa/confide/internal/telegram"
)

// HandleUpdate routes one inbound update. Every failure is converted to a
// user-facing message before it returns; the returned error exists for the
// webhook handler's logs only.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	switch {
	case update.Message != nil:
		return b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	default:
		return nil
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := msg.Text

	user, err := b.store.GetOrCreateUser(ctx, userID, msg.From.FirstName, msg.From.LastName)
	if err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.IsActive {
		b.reply(ctx, chatID, "❌ Your account has been blocked by admin.")
		return nil
	}

	// A pending conversation state consumes the message before any command
	// or menu dispatch.
	state, err := b.store.GetState(ctx, userID)
	if err == nil {
		return b.consumeState(ctx, chatID, user, state, text)
	}
	if !errors.Is(err, store.ErrNotFound) {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("load state for %d: %w", userID, err)
	}

	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, chatID, user, text)
	}
	return b.handleMenuButton(ctx, chatID, user, text)
}

// consumeState runs the handler the pending state designates. Except for the
// username retry loop, the state is cleared no matter how the handler fares:
// a state asks exactly once.
func (b *Bot) consumeState(ctx context.Context, chatID int64, user *models.User, state *models.ConversationState, text string) error {
	switch state.State {
	case models.StateAwaitingUsername:
		// Sole retry loop: invalid input keeps the state so the user can
		// try another name.
		return b.finishUsername(ctx, chatID, user, text)

	case models.StateAwaitingConfession:
		defer b.clearState(ctx, user.TelegramID)
		return b.submitConfession(ctx, chatID, user, text)

	case models.StateAwaitingComment:
		defer b.clearState(ctx, user.TelegramID)
		return b.addComment(ctx, chatID, user, state.ConfessionID, text)

	case models.StateAwaitingRejectionReason:
		defer b.clearState(ctx, user.TelegramID)
		if !b.isAdmin(user.TelegramID) {
			// Defense in depth: a replayed state from a non-admin is
			// consumed silently.
			b.log.Warn("rejection reason from non-admin", "user", user.TelegramID)
			return nil
		}
		return b.finishRejection(ctx, chatID, user.TelegramID, state.ConfessionID, text)

	default:
		b.clearState(ctx, user.TelegramID)
		b.log.Warn("unknown conversation state", "user", user.TelegramID, "state", state.State)
		return nil
	}
}

func (b *Bot) clearState(ctx context.Context, userID int64) {
	if err := b.store.ClearState(ctx, userID); err != nil {
		b.log.Error("clear state failed", "user", userID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, user *models.User, text string) error {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/start":
		payload := ""
		if len(fields) > 1 {
			payload = fields[1]
		}
		return b.handleStart(ctx, chatID, user, payload)
	case "/admin":
		return b.showAdminPanel(ctx, chatID, user.TelegramID)
	default:
		return b.showMainMenu(ctx, chatID, user.TelegramID)
	}
}

func (b *Bot) handleMenuButton(ctx context.Context, chatID int64, user *models.User, text string) error {
	switch text {
	case "📝 Send Confession":
		return b.promptConfession(ctx, chatID, user)
	case "👤 My Profile":
		return b.showProfile(ctx, chatID, user)
	case "📢 Promote Bot":
		return b.showPromotion(ctx, chatID)
	default:
		return b.showMainMenu(ctx, chatID, user.TelegramID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID
	data := cb.Data

	user, err := b.store.GetOrCreateUser(ctx, userID, cb.From.FirstName, cb.From.LastName)
	if err != nil {
		b.answerCallback(ctx, cb.ID, "❌ Error processing request")
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.IsActive {
		b.answerCallback(ctx, cb.ID, "❌ Your account has been blocked by admin.")
		return nil
	}

	switch {
	case strings.HasPrefix(data, "approve_"):
		return b.approveConfession(ctx, chatID, userID, strings.TrimPrefix(data, "approve_"), cb)

	case strings.HasPrefix(data, "reject_"):
		return b.beginRejection(ctx, chatID, userID, strings.TrimPrefix(data, "reject_"), cb)

	case strings.HasPrefix(data, "add_comment_"):
		err := b.promptComment(ctx, chatID, userID, strings.TrimPrefix(data, "add_comment_"))
		b.answerCallback(ctx, cb.ID, "")
		return err

	case strings.HasPrefix(data, "comments_page_"):
		confessionID, page, ok := parseCommentsPage(data)
		b.answerCallback(ctx, cb.ID, "")
		if !ok {
			b.log.Warn("malformed comments_page token", "data", data)
			return nil
		}
		return b.showComments(ctx, chatID, userID, confessionID, page)

	case data == "current_page":
		b.answerCallback(ctx, cb.ID, "")
		return nil

	case data == "send_confession":
		err := b.promptConfession(ctx, chatID, user)
		b.answerCallback(ctx, cb.ID, "")
		return err

	case data == "back_to_menu":
		b.answerCallback(ctx, cb.ID, "")
		return b.showMainMenu(ctx, chatID, userID)

	case data == "promote_bot":
		b.answerCallback(ctx, cb.ID, "")
		return b.showPromotion(ctx, chatID)

	default:
		b.answerCallback(ctx, cb.ID, "")
		return nil
	}
}

// parseCommentsPage splits a comments_page_<id>_<page> token. Confession ids
// contain underscores themselves, so the page number is taken from the last
// separator.
func parseCommentsPage(data string) (string, int, bool) {
	rest := strings.TrimPrefix(data, "comments_page_")
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return "", 0, false
	}
	page, err := strconv.Atoi(rest[i+1:])
	if err != nil || page < 1 {
		return "", 0, false
	}
	return rest[:i], page, true
}
