package bot

import (
	"context"
	"log/slog"

	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/telegram"
)

// Category names a per-user notification toggle. The empty category is
// always delivered (used for lifecycle notices such as approval/rejection).
type Category string

const (
	CategoryNewFollower   Category = "newFollower"
	CategoryNewComment    Category = "newComment"
	CategoryNewConfession Category = "newConfession"
	CategoryDirectMessage Category = "directMessage"
)

// Notifier delivers event messages to users, respecting their per-category
// opt-outs. Delivery is always best-effort: failures are logged and never
// propagate to the operation that triggered them.
type Notifier struct {
	store  Store
	sender Sender
	log    *slog.Logger
}

// Notify sends a Markdown message to the user if the category toggle allows
// it. Unset toggles default to enabled.
func (n *Notifier) Notify(ctx context.Context, userID int64, text string, category Category) {
	user, err := n.store.GetUser(ctx, userID)
	if err != nil {
		n.log.Error("notification lookup failed", "user", userID, "error", err)
		return
	}

	if !enabled(user, category) {
		return
	}

	opts := &telegram.SendOptions{ParseMode: "Markdown"}
	if _, err := n.sender.SendMessage(ctx, userID, text, opts); err != nil {
		// The user may have blocked the bot; that is their prerogative.
		n.log.Error("notification delivery failed", "user", userID, "category", category, "error", err)
	}
}

func enabled(user *models.User, category Category) bool {
	switch category {
	case CategoryNewFollower:
		return user.NotifyNewFollower
	case CategoryNewComment:
		return user.NotifyNewComment
	case CategoryNewConfession:
		return user.NotifyNewConfession
	case CategoryDirectMessage:
		return user.NotifyDirectMessage
	default:
		return true
	}
}
