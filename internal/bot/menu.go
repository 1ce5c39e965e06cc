package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/reputation"
	"github.com/sujalbistaa/confide/internal/telegram"
)

func mainMenuKeyboard() *telegram.ReplyKeyboardMarkup {
	rows := [][]string{
		{"📝 Send Confession", "👤 My Profile"},
		{"🔥 Trending", "📢 Promote Bot"},
		{"🏷️ Hashtags", "🏆 Best Commenters"},
		{"⚙️ Settings", "ℹ️ About Us"},
		{"🔍 Browse Users", "📌 Rules"},
	}
	kb := &telegram.ReplyKeyboardMarkup{ResizeKeyboard: true}
	for _, row := range rows {
		var buttons []telegram.KeyboardButton
		for _, text := range row {
			buttons = append(buttons, telegram.KeyboardButton{Text: text})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}

// showMainMenu sends the menu keyboard with the user's stats header. The
// level is recomputed from the live comment count every time.
func (b *Bot) showMainMenu(ctx context.Context, chatID, userID int64) error {
	user, err := b.store.GetOrCreateUser(ctx, userID, "", "")
	if err != nil {
		b.reply(ctx, chatID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("load user for menu: %w", err)
	}

	commentCount, err := b.store.CountUserComments(ctx, userID)
	if err != nil {
		b.log.Error("comment count failed", "user", userID, "error", err)
	}
	level := reputation.ForComments(commentCount)

	text := fmt.Sprintf("🤫 *Confide*\n\n"+
		"👤 Profile: %s\n"+
		"⭐ Reputation: %d\n"+
		"🔥 Streak: %d days\n"+
		"🏆 Level: %s (%d comments)\n\n"+
		"Choose an option below:",
		user.Username, user.Reputation, user.DailyStreak, level, commentCount)

	b.replyWith(ctx, chatID, text, mainMenuKeyboard())
	return nil
}

func (b *Bot) showProfile(ctx context.Context, chatID int64, user *models.User) error {
	commentCount, err := b.store.CountUserComments(ctx, user.TelegramID)
	if err != nil {
		b.log.Error("comment count failed", "user", user.TelegramID, "error", err)
	}
	level := reputation.ForComments(commentCount)

	var sb strings.Builder
	sb.WriteString("👤 *My Profile*\n\n")
	fmt.Fprintf(&sb, "*Display Name:* %s\n", user.Username)
	fmt.Fprintf(&sb, "*Level:* %s (%d comments)\n", level, commentCount)
	fmt.Fprintf(&sb, "*Reputation:* %d⭐\n", user.Reputation)
	fmt.Fprintf(&sb, "*Followers:* %d\n", user.Followers)
	fmt.Fprintf(&sb, "*Following:* %d\n", user.Following)
	fmt.Fprintf(&sb, "*Confessions:* %d\n", user.TotalConfessions)
	fmt.Fprintf(&sb, "*Member Since:* %s", user.JoinedAt.Format("1/2/2006"))

	b.reply(ctx, chatID, sb.String())
	return nil
}

func (b *Bot) showPromotion(ctx context.Context, chatID int64) error {
	botLink := "https://t.me/" + b.cfg.BotUsername
	channelLink := "https://t.me/" + strings.TrimPrefix(b.cfg.ChannelID, "@")

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{
			Text: "📤 Share Bot",
			URL:  fmt.Sprintf("https://t.me/share/url?url=%s&text=Check%%20out%%20this%%20anonymous%%20confession%%20bot!", botLink),
		}},
		{{
			Text: "📢 Join Channel",
			URL:  channelLink,
		}},
	}}
	b.replyWith(ctx, chatID,
		fmt.Sprintf("📢 *Help Us Grow!*\n\nShare our bot with friends:\n%s\n\nJoin our channel for confessions:", botLink),
		markup)
	return nil
}

func (b *Bot) showAdminPanel(ctx context.Context, chatID, userID int64) error {
	if !b.isAdmin(userID) {
		b.reply(ctx, chatID, "❌ Access denied. Admin only command.")
		return fmt.Errorf("admin panel by %d: %w", userID, ErrPermission)
	}

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{
			{Text: "👥 Manage Users", CallbackData: "manage_users"},
			{Text: "📝 Review Confessions", CallbackData: "review_confessions"},
		},
		{
			{Text: "📊 Statistics", CallbackData: "bot_stats"},
		},
	}}
	b.replyWith(ctx, chatID, "🔐 *Admin Panel*\n\nUse the buttons below to manage the bot:", markup)
	return nil
}
