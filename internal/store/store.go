// Package store persists users, confessions, comment threads, conversation
// states, cooldowns and counters behind one GORM-backed type.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/sujalbistaa/confide/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store wraps the database connection. All methods are safe for concurrent
// use; the only operation that needs more than document-level atomicity is
// NextCounter.
type Store struct {
	db *gorm.DB

	// Serializes counter increments in-process. The expression-based UPDATE
	// inside the transaction protects against concurrent processes; the lock
	// protects against first-use creation races.
	counterMu sync.Mutex
}

// New returns a Store over an initialized database connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for every model the store owns.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Confession{},
		&models.CommentThread{},
		&models.Comment{},
		&models.ConversationState{},
		&models.Cooldown{},
		&models.Counter{},
	)
}

// --- Users ---

// GetOrCreateUser loads a user, creating the default record on first contact.
func (s *Store) GetOrCreateUser(ctx context.Context, id int64, firstName, lastName string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "telegram_id = ?", id).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user = models.User{
		TelegramID:          id,
		Username:            "Anonymous",
		FirstName:           firstName,
		LastName:            lastName,
		JoinedAt:            time.Now().UTC(),
		IsActive:            true,
		NotifyNewFollower:   true,
		NotifyNewComment:    true,
		NotifyNewConfession: true,
		NotifyDirectMessage: true,
		AllowComments:       "everyone",
		AllowAnonymous:      true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// GetUser loads a user by Telegram id.
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "telegram_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// SetUsername updates a user's display name.
func (s *Store) SetUsername(ctx context.Context, id int64, name string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("telegram_id = ?", id).Update("username", name)
	if res.Error != nil {
		return fmt.Errorf("set username: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUserByName looks up a user by display name, case-insensitively. Used
// only for the uniqueness check when a name is chosen.
func (s *Store) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", name).Limit(1).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by name: %w", err)
	}
	return &user, nil
}

// AddReputation credits reputation points to a user.
func (s *Store) AddReputation(ctx context.Context, id int64, points int) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("telegram_id = ?", id).
		UpdateColumn("reputation", gorm.Expr("reputation + ?", points)).Error
	if err != nil {
		return fmt.Errorf("add reputation: %w", err)
	}
	return nil
}

// IncrementConfessionCount bumps a user's lifetime confession count.
func (s *Store) IncrementConfessionCount(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("telegram_id = ?", id).
		UpdateColumn("total_confessions", gorm.Expr("total_confessions + 1")).Error
	if err != nil {
		return fmt.Errorf("increment confession count: %w", err)
	}
	return nil
}

// CountUserComments returns a user's lifetime comment count. Computed live so
// displayed levels track the current count, not a snapshot.
func (s *Store) CountUserComments(ctx context.Context, id int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("user_id = ?", id).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return int(count), nil
}

// --- Confessions ---

// CreateConfession persists a new pending confession.
func (s *Store) CreateConfession(ctx context.Context, c *models.Confession) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create confession: %w", err)
	}
	return nil
}

// GetConfession loads a confession by id.
func (s *Store) GetConfession(ctx context.Context, id string) (*models.Confession, error) {
	var c models.Confession
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get confession: %w", err)
	}
	return &c, nil
}

// MarkApproved transitions a pending confession to approved. Returns
// ErrConflict if the confession was already decided, so a replayed approval
// cannot double-publish.
func (s *Store) MarkApproved(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Confession{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{"status": models.StatusApproved, "approved_at": at})
	return s.decideResult(ctx, id, res)
}

// MarkRejected transitions a pending confession to rejected with a reason.
func (s *Store) MarkRejected(ctx context.Context, id, reason string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Confession{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{"status": models.StatusRejected, "rejected_at": at, "rejection_reason": reason})
	return s.decideResult(ctx, id, res)
}

func (s *Store) decideResult(ctx context.Context, id string, res *gorm.DB) error {
	if res.Error != nil {
		return fmt.Errorf("update confession status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetConfession(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// --- Comment threads ---

// CreateThread creates the (empty) comment thread for a published confession.
func (s *Store) CreateThread(ctx context.Context, t *models.CommentThread) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

// GetThread loads the comment thread for a confession.
func (s *Store) GetThread(ctx context.Context, confessionID string) (*models.CommentThread, error) {
	var t models.CommentThread
	if err := s.db.WithContext(ctx).First(&t, "confession_id = ?", confessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}

// AppendComment inserts a comment and bumps the thread's and the confession's
// cached totals in one transaction.
func (s *Store) AppendComment(ctx context.Context, c *models.Comment) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CommentThread{}).Where("confession_id = ?", c.ThreadID).
			UpdateColumn("total_comments", gorm.Expr("total_comments + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.Confession{}).Where("id = ?", c.ThreadID).
			UpdateColumn("total_comments", gorm.Expr("total_comments + 1")).Error
	})
	if err != nil {
		return fmt.Errorf("append comment: %w", err)
	}
	return nil
}

// ListComments returns a slice of a thread's comments in insertion order.
func (s *Store) ListComments(ctx context.Context, threadID string, offset, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Where("thread_id = ?", threadID).
		Order("created_at, id").Offset(offset).Limit(limit).Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// --- Conversation states ---

// GetState loads a user's pending conversation state, if any.
func (s *Store) GetState(ctx context.Context, userID int64) (*models.ConversationState, error) {
	var st models.ConversationState
	if err := s.db.WithContext(ctx).First(&st, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &st, nil
}

// SetState records a user's conversation state, replacing any previous one.
// Last write wins.
func (s *Store) SetState(ctx context.Context, st *models.ConversationState) error {
	st.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(st).Error; err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// ClearState removes a user's conversation state. Clearing an absent state is
// not an error.
func (s *Store) ClearState(ctx context.Context, userID int64) error {
	if err := s.db.WithContext(ctx).Delete(&models.ConversationState{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

// --- Cooldowns ---

// LastAction returns when the user last performed the given action kind.
func (s *Store) LastAction(ctx context.Context, userID int64, action string) (time.Time, bool, error) {
	var cd models.Cooldown
	err := s.db.WithContext(ctx).First(&cd, "user_id = ? AND action = ?", userID, action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("get cooldown: %w", err)
	}
	return cd.LastAction, true, nil
}

// SetCooldown records that the user performed the action at the given time.
func (s *Store) SetCooldown(ctx context.Context, userID int64, action string, at time.Time) error {
	cd := models.Cooldown{UserID: userID, Action: action, LastAction: at}
	if err := s.db.WithContext(ctx).Save(&cd).Error; err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// --- Counters ---

// NextCounter increments the named counter and returns the new value, seeding
// at 1 on first use. Values are unique and consecutive across concurrent
// callers: the increment is an expression-based UPDATE inside a transaction,
// and in-process callers are additionally serialized for first-use creation.
func (s *Store) NextCounter(ctx context.Context, name string) (int64, error) {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()

	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Counter{}).Where("name = ?", name).
			UpdateColumn("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.Counter{Name: name, Value: 1}).Error; err != nil {
				return err
			}
			value = 1
			return nil
		}
		var c models.Counter
		if err := tx.First(&c, "name = ?", name).Error; err != nil {
			return err
		}
		value = c.Value
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("next counter: %w", err)
	}
	return value, nil
}
