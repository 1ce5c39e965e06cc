package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sujalbistaa/confide/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s := New(db)
	require.NoError(t, s.Migrate())
	return s
}

func TestNextCounterSeedsAtOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.NextCounter(ctx, "confessionNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.NextCounter(ctx, "confessionNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// Independent names do not share values.
	v, err = s.NextCounter(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestNextCounterConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 50
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.NextCounter(ctx, "confessionNumber")
			assert.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	var got []int64
	for v := range results {
		got = append(got, v)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, int64(i+1), v, "values must be consecutive with no gaps or duplicates")
	}
}

func TestGetOrCreateUserDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.GetOrCreateUser(ctx, 42, "Ada", "Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", user.Username)
	assert.True(t, user.IsActive)
	assert.True(t, user.NotifyNewComment)
	assert.Equal(t, "everyone", user.AllowComments)
	assert.Zero(t, user.Reputation)

	// Second call returns the stored record, not a new one.
	require.NoError(t, s.SetUsername(ctx, 42, "ada_l"))
	again, err := s.GetOrCreateUser(ctx, 42, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ada_l", again.Username)
}

func TestFindUserByNameCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, 1, "", "")
	require.NoError(t, err)
	require.NoError(t, s.SetUsername(ctx, 1, "NightOwl"))

	found, err := s.FindUserByName(ctx, "nightowl")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.TelegramID)

	_, err = s.FindUserByName(ctx, "someoneelse")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfessionDecisionIsTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conf := &models.Confession{
		ID:        "confess_1_100",
		UserID:    1,
		Text:      "something happened",
		Number:    1,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateConfession(ctx, conf))

	require.NoError(t, s.MarkApproved(ctx, conf.ID, time.Now().UTC()))

	got, err := s.GetConfession(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.NotNil(t, got.ApprovedAt)

	// A second decision of either kind is refused.
	assert.ErrorIs(t, s.MarkApproved(ctx, conf.ID, time.Now().UTC()), ErrConflict)
	assert.ErrorIs(t, s.MarkRejected(ctx, conf.ID, "late", time.Now().UTC()), ErrConflict)

	assert.ErrorIs(t, s.MarkApproved(ctx, "missing", time.Now().UTC()), ErrNotFound)
}

func TestAppendCommentUpdatesTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conf := &models.Confession{ID: "confess_1_100", UserID: 1, Text: "t", Number: 1, Status: models.StatusApproved}
	require.NoError(t, s.CreateConfession(ctx, conf))
	require.NoError(t, s.CreateThread(ctx, &models.CommentThread{
		ConfessionID: conf.ID, Number: 1, Text: conf.Text,
	}))

	for i := 0; i < 3; i++ {
		c := &models.Comment{
			ID:        fmt.Sprintf("comment_%d_9", i),
			ThreadID:  conf.ID,
			UserID:    9,
			Text:      fmt.Sprintf("comment %d", i),
			UserName:  "someone",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, s.AppendComment(ctx, c))
	}

	thread, err := s.GetThread(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, thread.TotalComments)

	got, err := s.GetConfession(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalComments)

	count, err := s.CountUserComments(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestListCommentsOrderAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateThread(ctx, &models.CommentThread{ConfessionID: "c1", Number: 1, Text: "t"}))
	base := time.Now().UTC()
	for i := 0; i < 7; i++ {
		require.NoError(t, s.AppendComment(ctx, &models.Comment{
			ID:        fmt.Sprintf("comment_%d", i),
			ThreadID:  "c1",
			UserID:    1,
			Text:      fmt.Sprintf("c%d", i),
			UserName:  "u",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, err := s.ListComments(ctx, "c1", 0, 5)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "c0", page[0].Text)
	assert.Equal(t, "c4", page[4].Text)

	page, err = s.ListComments(ctx, "c1", 5, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c5", page[0].Text)

	page, err = s.ListComments(ctx, "c1", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestConversationStateLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetState(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetState(ctx, &models.ConversationState{
		UserID: 7, State: models.StateAwaitingComment, ConfessionID: "c1",
	}))

	st, err := s.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingComment, st.State)
	assert.Equal(t, "c1", st.ConfessionID)

	// A later write replaces the state wholesale.
	require.NoError(t, s.SetState(ctx, &models.ConversationState{
		UserID: 7, State: models.StateAwaitingConfession,
	}))
	st, err = s.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingConfession, st.State)

	require.NoError(t, s.ClearState(ctx, 7))
	_, err = s.GetState(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	// Idempotent clear.
	require.NoError(t, s.ClearState(ctx, 7))
}

func TestCooldowns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LastAction(ctx, 3, "confession")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.SetCooldown(ctx, 3, "confession", at))

	got, ok, err := s.LastAction(ctx, 3, "confession")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, at, got, time.Second)

	// Other action kinds are independent.
	_, ok, err = s.LastAction(ctx, 3, "comment")
	require.NoError(t, err)
	assert.False(t, ok)
}
