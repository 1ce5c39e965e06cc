package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/store"
	"github.com/sujalbistaa/confide/internal/telegram"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const deepLinkCommentPrefix = "comment_"

func (b *Bot) handleStart(ctx context.Context, chatID int64, user *models.User, payload string) error {
	// Deep link from a channel post: jump straight to the comment view.
	if strings.HasPrefix(payload, deepLinkCommentPrefix) {
		confessionID := strings.TrimPrefix(payload, deepLinkCommentPrefix)
		return b.showCommentEntry(ctx, chatID, user.TelegramID, confessionID)
	}

	// First contact: a display name must be chosen before anything else.
	if user.Username == "" || user.Username == "Anonymous" {
		b.reply(ctx, chatID,
			"🤫 *Welcome to Confide!*\n\n"+
				"First, please set your display name:\n\n"+
				"Enter your desired name (3-20 characters, letters/numbers/underscores only):")
		return b.store.SetState(ctx, &models.ConversationState{
			UserID: user.TelegramID,
			State:  models.StateAwaitingUsername,
			ChatID: chatID,
		})
	}

	b.reply(ctx, chatID,
		fmt.Sprintf("🤫 *Welcome back, %s!*\n\n"+
			"Send me your confession and it will be submitted anonymously for admin approval.\n\n"+
			"Your identity will never be revealed!", user.Username))
	return b.showMainMenu(ctx, chatID, user.TelegramID)
}

// finishUsername validates the chosen display name. On failure the
// awaiting_username state stays in place so the next message retries.
func (b *Bot) finishUsername(ctx context.Context, chatID int64, user *models.User, name string) error {
	if len([]rune(name)) < 3 || len([]rune(name)) > 20 || !usernamePattern.MatchString(name) {
		b.reply(ctx, chatID, "❌ Invalid username. Use 3-20 characters (letters, numbers, underscores only).")
		return fmt.Errorf("username %q: %w", name, ErrValidation)
	}

	// "anonymous" is the shared default and exempt from uniqueness.
	if !strings.EqualFold(name, "anonymous") {
		existing, err := b.store.FindUserByName(ctx, name)
		switch {
		case err == nil && existing.TelegramID != user.TelegramID:
			b.reply(ctx, chatID, "❌ Username already taken. Choose another one.")
			return fmt.Errorf("username %q taken: %w", name, ErrValidation)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
			return fmt.Errorf("username lookup: %w", err)
		}
	}

	if err := b.store.SetUsername(ctx, user.TelegramID, name); err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("set username: %w", err)
	}
	b.clearState(ctx, user.TelegramID)

	b.reply(ctx, chatID, fmt.Sprintf("✅ Display name updated to %s!", name))
	return b.showMainMenu(ctx, chatID, user.TelegramID)
}

// showCommentEntry renders the deep-link landing view: the confession
// preview, a few recent comments and the comment-entry keyboard.
func (b *Bot) showCommentEntry(ctx context.Context, chatID, userID int64, confessionID string) error {
	conf, err := b.store.GetConfession(ctx, confessionID)
	if err != nil {
		b.reply(ctx, chatID, "❌ Confession not found or may have been deleted.")
		if mErr := b.showMainMenu(ctx, chatID, userID); mErr != nil {
			return mErr
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("confession %s: %w", confessionID, ErrNotFound)
		}
		return fmt.Errorf("get confession: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💬 *Comments for Confession #%d*\n\n", conf.Number)
	fmt.Fprintf(&sb, "*Confession:*\n%s\n\n", truncate(conf.Text, 200))

	comments, err := b.store.ListComments(ctx, confessionID, 0, 3)
	if err != nil {
		b.log.Error("list comments failed", "confession", confessionID, "error", err)
	}
	if len(comments) == 0 {
		sb.WriteString("No comments yet. Be the first to comment!\n\n")
	} else {
		thread, err := b.store.GetThread(ctx, confessionID)
		total := len(comments)
		if err == nil {
			total = thread.TotalComments
		}
		fmt.Fprintf(&sb, "*Recent Comments (%d total):*\n\n", total)
		for i, c := range comments {
			name := c.UserName
			if author, err := b.store.GetUser(ctx, c.UserID); err == nil {
				name = author.Username
			}
			fmt.Fprintf(&sb, "%d. %s\n   - %s\n\n", i+1, c.Text, name)
		}
	}

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "📝 Add Comment", CallbackData: "add_comment_" + confessionID},
			{Text: "👁️ View All Comments", CallbackData: "comments_page_" + confessionID + "_1"},
		},
		{
			{Text: "📝 Send Your Confession", CallbackData: "send_confession"},
			{Text: "🔙 Main Menu", CallbackData: "back_to_menu"},
		},
	}}
	b.replyWith(ctx, chatID, sb.String(), markup)
	return nil
}
