package models

import (
	"time"
)

// Confession lifecycle statuses. A confession transitions from pending to
// exactly one terminal status.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Conversation state tags. A user has at most one active state; it determines
// what the next free-text message means.
const (
	StateAwaitingUsername        = "awaiting_username"
	StateAwaitingConfession      = "awaiting_confession"
	StateAwaitingComment         = "awaiting_comment"
	StateAwaitingRejectionReason = "awaiting_rejection_reason"
)

// User represents a bot user, keyed by their Telegram id. Created on first
// interaction, never deleted.
type User struct {
	TelegramID       int64     `gorm:"primarykey" json:"telegramId"`
	Username         string    `gorm:"not null;default:Anonymous" json:"username"`
	FirstName        string    `json:"firstName,omitempty"`
	LastName         string    `json:"lastName,omitempty"`
	JoinedAt         time.Time `json:"joinedAt"`
	Reputation       int       `gorm:"not null;default:0" json:"reputation"`
	DailyStreak      int       `gorm:"not null;default:0" json:"dailyStreak"`
	TotalConfessions int       `gorm:"not null;default:0" json:"totalConfessions"`
	Followers        int       `gorm:"not null;default:0" json:"followers"`
	Following        int       `gorm:"not null;default:0" json:"following"`
	Bio              string    `json:"bio,omitempty"`
	IsActive         bool      `gorm:"not null;default:true" json:"isActive"`

	// Per-category notification toggles, all opt-out.
	NotifyNewFollower   bool `gorm:"not null;default:true" json:"notifyNewFollower"`
	NotifyNewComment    bool `gorm:"not null;default:true" json:"notifyNewComment"`
	NotifyNewConfession bool `gorm:"not null;default:true" json:"notifyNewConfession"`
	NotifyDirectMessage bool `gorm:"not null;default:true" json:"notifyDirectMessage"`

	// Comment visibility settings (display-only for now).
	AllowComments   string `gorm:"not null;default:everyone" json:"allowComments"`
	AllowAnonymous  bool   `gorm:"not null;default:true" json:"allowAnonymous"`
	RequireApproval bool   `gorm:"not null;default:false" json:"requireApproval"`
}

// Confession is a single submitted confession. Text is sanitized before it is
// stored and immutable afterwards; Status changes at most once.
type Confession struct {
	ID              string     `gorm:"primarykey" json:"id"`
	UserID          int64      `gorm:"not null;index" json:"userId"`
	Text            string     `gorm:"not null" json:"text"`
	Number          int64      `gorm:"not null;uniqueIndex" json:"confessionNumber"`
	Status          string     `gorm:"not null;default:pending;index" json:"status"`
	Hashtags        []string   `gorm:"serializer:json" json:"hashtags"`
	TotalComments   int        `gorm:"not null;default:0" json:"totalComments"`
	Likes           int        `gorm:"not null;default:0" json:"likes"`
	CreatedAt       time.Time  `json:"createdAt"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// CommentThread exists for approved confessions only. It caches the confession
// number and text so the comment view does not need a second lookup, and
// remembers which channel message it belongs to.
type CommentThread struct {
	ConfessionID     string    `gorm:"primarykey" json:"confessionId"`
	Number           int64     `gorm:"not null" json:"confessionNumber"`
	Text             string    `gorm:"not null" json:"confessionText"`
	ChannelMessageID int64     `gorm:"not null;default:0" json:"channelMessageId"`
	TotalComments    int       `gorm:"not null;default:0" json:"totalComments"`
	CreatedAt        time.Time `json:"createdAt"`
	Comments         []Comment `gorm:"foreignKey:ThreadID" json:"-"`
}

// Comment is one entry of a thread, append-only, insertion order = display
// order. UserName is a snapshot at post time; the display name shown in the
// comment view is re-resolved at read time.
type Comment struct {
	ID        string    `gorm:"primarykey" json:"id"`
	ThreadID  string    `gorm:"not null;index" json:"threadId"`
	UserID    int64     `gorm:"not null;index" json:"userId"`
	Text      string    `gorm:"not null" json:"text"`
	UserName  string    `gorm:"not null" json:"userName"`
	Timestamp string    `gorm:"not null" json:"timestamp"` // human-readable snapshot
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationState is the per-user single-shot state record.
type ConversationState struct {
	UserID       int64     `gorm:"primarykey" json:"userId"`
	State        string    `gorm:"not null" json:"state"`
	ConfessionID string    `json:"confessionId,omitempty"`
	ChatID       int64     `json:"chatId,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Cooldown records the last time a user performed an action of a given kind.
type Cooldown struct {
	UserID     int64     `gorm:"primarykey" json:"userId"`
	Action     string    `gorm:"primarykey" json:"action"`
	LastAction time.Time `gorm:"not null" json:"lastAction"`
}

// Counter is a named monotonically increasing integer. Incremented only
// inside a store transaction so concurrent callers never share a value.
type Counter struct {
	Name  string `gorm:"primarykey" json:"name"`
	Value int64  `gorm:"not null" json:"value"`
}
