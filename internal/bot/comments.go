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
	commentMinLen   = 3
	commentsPerPage = 5
)

// promptComment arms the awaiting_comment state for a confession.
func (b *Bot) promptComment(ctx context.Context, chatID, userID int64, confessionID string) error {
	if err := b.store.SetState(ctx, &models.ConversationState{
		UserID:       userID,
		State:        models.StateAwaitingComment,
		ConfessionID: confessionID,
		ChatID:       chatID,
	}); err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("set comment state: %w", err)
	}
	b.reply(ctx, chatID, "📝 *Add Comment*\n\nType your comment for this confession:")
	return nil
}

// addComment appends a comment to a thread, credits the commenter and
// notifies the confession author if they opted in and are someone else.
func (b *Bot) addComment(ctx context.Context, chatID int64, user *models.User, confessionID, text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < commentMinLen {
		b.reply(ctx, chatID, "❌ Comment too short. Minimum 3 characters.")
		return fmt.Errorf("comment too short: %w", ErrValidation)
	}

	if _, err := b.store.GetThread(ctx, confessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.reply(ctx, chatID, "❌ Confession not found.")
			return fmt.Errorf("thread %s: %w", confessionID, ErrNotFound)
		}
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("get thread: %w", err)
	}

	now := b.now()
	clean := sanitize.Clean(text)
	comment := &models.Comment{
		ID:        fmt.Sprintf("comment_%d_%d", now.UnixMilli(), user.TelegramID),
		ThreadID:  confessionID,
		UserID:    user.TelegramID,
		Text:      clean,
		UserName:  user.Username,
		Timestamp: now.Format("1/2/2006, 3:04:05 PM"),
		CreatedAt: now.UTC(),
	}
	if err := b.store.AppendComment(ctx, comment); err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("append comment: %w", err)
	}

	if err := b.store.AddReputation(ctx, user.TelegramID, reputation.CommentAward); err != nil {
		b.log.Error("reputation credit failed", "user", user.TelegramID, "error", err)
	}

	b.reply(ctx, chatID, "✅ Comment added successfully!")

	// Notify the author unless they wrote the comment themselves.
	if conf, err := b.store.GetConfession(ctx, confessionID); err == nil && conf.UserID != user.TelegramID {
		b.notifier.Notify(ctx, conf.UserID,
			fmt.Sprintf("💬 *New Comment on Your Confession*\n\nConfession #%d has a new comment!\n\n%q",
				conf.Number, truncate(clean, 50)),
			CategoryNewComment)
	}

	return b.showComments(ctx, chatID, user.TelegramID, confessionID, 1)
}

// showComments renders one page of a confession's comment thread. Entries are
// enriched at read time: the commenter's current display name and current
// level, not the snapshots taken at post time.
func (b *Bot) showComments(ctx context.Context, chatID, userID int64, confessionID string, page int) error {
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
	thread, err := b.store.GetThread(ctx, confessionID)
	if err != nil {
		b.reply(ctx, chatID, "❌ Confession not found or may have been deleted.")
		if mErr := b.showMainMenu(ctx, chatID, userID); mErr != nil {
			return mErr
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("thread %s: %w", confessionID, ErrNotFound)
		}
		return fmt.Errorf("get thread: %w", err)
	}

	if page < 1 {
		page = 1
	}
	total := thread.TotalComments
	totalPages := (total + commentsPerPage - 1) / commentsPerPage
	start := (page - 1) * commentsPerPage

	// Out-of-range pages yield an empty slice, not an error.
	comments, err := b.store.ListComments(ctx, confessionID, start, commentsPerPage)
	if err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("list comments: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💬 *Comments for Confession #%d*\n\n", conf.Number)
	fmt.Fprintf(&sb, "*Confession Preview:*\n%s\n\n", truncate(conf.Text, 150))

	if len(comments) == 0 {
		sb.WriteString("No comments yet. Be the first to comment!\n\n")
	} else {
		fmt.Fprintf(&sb, "*Comments (%d-%d of %d):*\n\n", start+1, start+len(comments), total)
		for i, c := range comments {
			name := c.UserName
			if commenter, err := b.store.GetUser(ctx, c.UserID); err == nil {
				name = commenter.Username
			}
			count, err := b.store.CountUserComments(ctx, c.UserID)
			if err != nil {
				b.log.Error("comment count failed", "user", c.UserID, "error", err)
			}
			level := reputation.ForComments(count)
			fmt.Fprintf(&sb, "%d. %s\n   - %s %s\n   📅 %s\n\n", start+i+1, c.Text, level.Symbol, name, c.Timestamp)
		}
	}

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "📝 Add Comment", CallbackData: "add_comment_" + confessionID}},
	}}
	if totalPages > 1 {
		var row []telegram.InlineKeyboardButton
		if page > 1 {
			row = append(row, telegram.InlineKeyboardButton{
				Text:         "⬅️ Previous",
				CallbackData: fmt.Sprintf("comments_page_%s_%d", confessionID, page-1),
			})
		}
		row = append(row, telegram.InlineKeyboardButton{
			Text:         fmt.Sprintf("%d/%d", page, totalPages),
			CallbackData: "current_page",
		})
		if page < totalPages {
			row = append(row, telegram.InlineKeyboardButton{
				Text:         "Next ➡️",
				CallbackData: fmt.Sprintf("comments_page_%s_%d", confessionID, page+1),
			})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, row)
	}
	markup.InlineKeyboard = append(markup.InlineKeyboard, []telegram.InlineKeyboardButton{
		{Text: "📝 Send Confession", CallbackData: "send_confession"},
		{Text: "🔙 Main Menu", CallbackData: "back_to_menu"},
	})

	b.replyWith(ctx, chatID, sb.String(), markup)
	return nil
}
