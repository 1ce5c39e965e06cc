// Package bot implements the conversational workflow: the per-user state
// machine, the confession moderation pipeline, comment threads and the
// notification dispatcher.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sujalbistaa/confide/internal/config"
	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/telegram"
)

// Workflow failure classes. Handlers report these to the user inline and
// return them wrapped so the router can log them at the right level; they
// never escape the webhook handler.
var (
	ErrValidation  = errors.New("validation failed")
	ErrPermission  = errors.New("permission denied")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
)

// Sender is the chat transport surface the bot consumes.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) (*telegram.Message, error)
	SendChannelMessage(ctx context.Context, channel, text string, opts *telegram.SendOptions) (*telegram.Message, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *telegram.InlineKeyboardMarkup) error
}

// Store is the persistence surface the bot consumes.
type Store interface {
	GetOrCreateUser(ctx context.Context, id int64, firstName, lastName string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetUsername(ctx context.Context, id int64, name string) error
	FindUserByName(ctx context.Context, name string) (*models.User, error)
	AddReputation(ctx context.Context, id int64, points int) error
	IncrementConfessionCount(ctx context.Context, id int64) error
	CountUserComments(ctx context.Context, id int64) (int, error)

	CreateConfession(ctx context.Context, c *models.Confession) error
	GetConfession(ctx context.Context, id string) (*models.Confession, error)
	MarkApproved(ctx context.Context, id string, at time.Time) error
	MarkRejected(ctx context.Context, id, reason string, at time.Time) error

	CreateThread(ctx context.Context, t *models.CommentThread) error
	GetThread(ctx context.Context, confessionID string) (*models.CommentThread, error)
	AppendComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, threadID string, offset, limit int) ([]models.Comment, error)

	GetState(ctx context.Context, userID int64) (*models.ConversationState, error)
	SetState(ctx context.Context, st *models.ConversationState) error
	ClearState(ctx context.Context, userID int64) error

	LastAction(ctx context.Context, userID int64, action string) (time.Time, bool, error)
	SetCooldown(ctx context.Context, userID int64, action string, at time.Time) error

	NextCounter(ctx context.Context, name string) (int64, error)
}

// Action kinds tracked by the cooldown store.
const actionConfession = "confession"

// counterConfessions names the sequence that numbers published confessions.
const counterConfessions = "confessionNumber"

// Bot wires the workflow together. One instance serves all users.
type Bot struct {
	cfg      *config.Config
	store    Store
	sender   Sender
	notifier *Notifier
	log      *slog.Logger

	now func() time.Time
}

// New constructs the bot. The configuration is resolved once by the caller
// and treated as immutable here.
func New(cfg *config.Config, st Store, sender Sender, log *slog.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		store:    st,
		sender:   sender,
		notifier: &Notifier{store: st, sender: sender, log: log},
		log:      log,
		now:      time.Now,
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.IsAdmin(userID)
}

// reply sends a plain Markdown message to a chat, logging delivery failures.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.replyWith(ctx, chatID, text, nil)
}

func (b *Bot) replyWith(ctx context.Context, chatID int64, text string, markup any) {
	opts := &telegram.SendOptions{ParseMode: "Markdown", ReplyMarkup: markup}
	if _, err := b.sender.SendMessage(ctx, chatID, text, opts); err != nil {
		b.log.Error("send message failed", "chat", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(ctx context.Context, callbackID, text string) {
	if err := b.sender.AnswerCallback(ctx, callbackID, text); err != nil {
		b.log.Error("answer callback failed", "error", err)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
