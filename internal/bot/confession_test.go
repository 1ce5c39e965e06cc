package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujalbistaa/confide/internal/models"
	"github.com/sujalbistaa/confide/internal/store"
)

// startSubmission walks a user through the send-confession button so the
// awaiting_confession state is armed.
func startSubmission(t *testing.T, env *testEnv, userID int64) {
	t.Helper()
	require.NoError(t, env.bot.HandleUpdate(context.Background(), callbackUpdate(userID, userID, "send_confession")))
	st, err := env.store.GetState(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, models.StateAwaitingConfession, st.State)
}

func pendingConfession(t *testing.T, env *testEnv, userID int64) *models.Confession {
	t.Helper()
	ctx := context.Background()
	startSubmission(t, env, userID)
	require.NoError(t, env.bot.HandleUpdate(ctx, textUpdate(userID, userID, "I never returned the library book")))

	user, err := env.store.GetUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, user.TotalConfessions)

	var confs []models.Confession
	require.NoError(t, env.db.Where("user_id = ?", userID).Find(&confs).Error)
	require.Len(t, confs, 1)
	return &confs[0]
}

func TestSubmitLengthBounds(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		text   string
		wantOK bool
	}{
		{"four chars fails", 101, "abcd", false},
		{"five chars succeeds", 102, "abcde", true},
		{"thousand chars succeeds", 103, strings.Repeat("a", 1000), true},
		{"over thousand fails", 104, strings.Repeat("a", 1001), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.seedNamedUser(t, tt.userID, strings.ToLower(tt.name[:4])+"_user")
			startSubmission(t, env, tt.userID)

			err := env.bot.HandleUpdate(ctx, textUpdate(tt.userID, tt.userID, tt.text))
			if tt.wantOK {
				require.NoError(t, err)
				msg, _ := env.sender.lastMessageTo(tt.userID)
				assert.Contains(t, msg.Text, "Confession Submitted")
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}

			// State is consumed either way: the submission step asks once.
			_, err = env.store.GetState(ctx, tt.userID)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestSubmitAssignsSequentialNumbersAndNotifiesAdmins(t *testing.T) {
	env := newTestEnv(t, 900, 901)
	env.seedNamedUser(t, 101, "writer_one")
	env.seedNamedUser(t, 102, "writer_two")

	first := pendingConfession(t, env, 101)
	env.advance(time.Second)
	second := pendingConfession(t, env, 102)

	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, int64(2), second.Number)
	assert.Equal(t, models.StatusPending, first.Status)

	// Both admins got a moderation request per confession, with the
	// approve/reject controls attached.
	for _, adminID := range []int64{900, 901} {
		msgs := env.sender.messagesTo(adminID)
		require.Len(t, msgs, 2, "admin %d", adminID)
		assert.Contains(t, msgs[0].Text, "New Confession #1")
		require.NotNil(t, msgs[0].Opts)
		require.NotNil(t, msgs[0].Opts.ReplyMarkup)
	}
}

func TestSubmitSanitizesAndExtractsHashtags(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "tagged_user")
	startSubmission(t, env, 101)

	require.NoError(t, env.bot.HandleUpdate(ctx, textUpdate(101, 101,
		`I failed <script>alert(1)</script>my exam #study and again #study #fail`)))

	var conf models.Confession
	require.NoError(t, env.db.Where("user_id = ?", 101).First(&conf).Error)
	assert.NotContains(t, conf.Text, "script")
	assert.NotContains(t, conf.Text, "alert")
	assert.Equal(t, []string{"#study", "#study", "#fail"}, conf.Hashtags)
}

func TestSubmissionCooldown(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "hasty_user")

	pendingConfession(t, env, 101)

	// Second attempt inside the window is refused with a wait message and
	// no new state.
	err := env.bot.HandleUpdate(ctx, callbackUpdate(101, 101, "send_confession"))
	assert.ErrorIs(t, err, ErrRateLimited)
	msg, _ := env.sender.lastMessageTo(101)
	assert.Contains(t, msg.Text, "Please wait")
	_, err = env.store.GetState(ctx, 101)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Past the window the attempt goes through.
	env.advance(60*time.Second + time.Millisecond)
	require.NoError(t, env.bot.HandleUpdate(ctx, callbackUpdate(101, 101, "send_confession")))
	st, err := env.store.GetState(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingConfession, st.State)
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "approved_author")
	conf := pendingConfession(t, env, 101)

	require.NoError(t, env.bot.HandleUpdate(ctx, callbackUpdate(900, 900, "approve_"+conf.ID)))

	got, err := env.store.GetConfession(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedAt)

	// Author got exactly +10.
	author, err := env.store.GetUser(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 10, author.Reputation)

	// Channel post with the number, the text and the deep link.
	require.Len(t, env.sender.channel, 1)
	post := env.sender.channel[0]
	assert.Equal(t, "@confessions", post.Channel)
	assert.Contains(t, post.Text, "#1")
	assert.Contains(t, post.Text, "library book")

	// Empty comment thread exists, remembering the channel message.
	thread, err := env.store.GetThread(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, thread.TotalComments)
	assert.NotZero(t, thread.ChannelMessageID)

	// Author was told.
	msg, _ := env.sender.lastMessageTo(101)
	assert.Contains(t, msg.Text, "approved and posted")
}

func TestApproveByNonAdmin(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "author_x")
	env.seedNamedUser(t, 200, "impostor")
	conf := pendingConfession(t, env, 101)

	err := env.bot.HandleUpdate(ctx, callbackUpdate(200, 200, "approve_"+conf.ID))
	assert.ErrorIs(t, err, ErrPermission)

	got, err := env.store.GetConfession(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, env.sender.channel)
}

func TestApproveReplayedDoesNotDoublePublish(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "author_y")
	conf := pendingConfession(t, env, 101)

	require.NoError(t, env.bot.HandleUpdate(ctx, callbackUpdate(900, 900, "approve_"+conf.ID)))
	require.NoError(t, env.bot.HandleUpdate(ctx, callbackUpdate(900, 900, "approve_"+conf.ID)))

	assert.Len(t, env.sender.channel, 1, "replayed approval must not post again")

	author, err := env.store.GetUser(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 10, author.Reputation, "replayed approval must not double-credit")
}

func TestApproveUnknownConfession(t *testing.T) {
	env := newTestEnv(t, 900)
	env.seedNamedUser(t, 900, "the_admin")

	err := env.bot.HandleUpdate(context.Background(), callbackUpdate(900, 900, "approve_missing"))
	assert.ErrorIs(t, err, ErrNotFound)
	require.NotEmpty(t, env.sender.callbacks)
	assert.Contains(t, env.sender.callbacks[len(env.sender.callbacks)-1].Text, "not found")
}

func TestRejectTwoStep(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "rejected_author")
	conf := pendingConfession(t, env, 101)

	// Step one: the reject button arms the reason state.
	require.NoError(t, env.bot.HandleUpdate(ctx, callbackUpdate(900, 900, "reject_"+conf.ID)))
	st, err := env.store.GetState(ctx, 900)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingRejectionReason, st.State)
	assert.Equal(t, conf.ID, st.ConfessionID)

	// Step two: the next message is the reason.
	require.NoError(t, env.bot.HandleUpdate(ctx, textUpdate(900, 900, "spam")))

	got, err := env.store.GetConfession(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "spam", got.RejectionReason)

	// Author notification carries the reason.
	msg, ok := env.sender.lastMessageTo(101)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "rejected")
	assert.Contains(t, msg.Text, "spam")

	// State consumed.
	_, err = env.store.GetState(ctx, 900)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRejectButtonByNonAdmin(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "author_z")
	env.seedNamedUser(t, 200, "impostor2")
	conf := pendingConfession(t, env, 101)

	err := env.bot.HandleUpdate(ctx, callbackUpdate(200, 200, "reject_"+conf.ID))
	assert.ErrorIs(t, err, ErrPermission)
	_, err = env.store.GetState(ctx, 200)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRejectionReasonFromNonAdminIsConsumedSilently(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "author_w")
	env.seedNamedUser(t, 200, "sneaky")
	conf := pendingConfession(t, env, 101)

	// A replayed state for a non-admin (ids would have to be guessed).
	require.NoError(t, env.store.SetState(ctx, &models.ConversationState{
		UserID: 200, State: models.StateAwaitingRejectionReason, ConfessionID: conf.ID,
	}))

	require.NoError(t, env.bot.HandleUpdate(ctx, textUpdate(200, 200, "muahaha")))

	got, err := env.store.GetConfession(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status, "non-admin cannot reject")
	_, err = env.store.GetState(ctx, 200)
	assert.ErrorIs(t, err, store.ErrNotFound, "state is still consumed")
}

func TestPendingStateConsumesCommands(t *testing.T) {
	env := newTestEnv(t, 900)
	ctx := context.Background()
	env.seedNamedUser(t, 101, "comeback_kid")
	startSubmission(t, env, 101)

	// The state machine consumes the very next text message, commands
	// included: "/start" becomes the confession text here.
	require.NoError(t, env.bot.HandleUpdate(ctx, textUpdate(101, 101, "/start")))

	var conf models.Confession
	require.NoError(t, env.db.Where("user_id = ?", 101).First(&conf).Error)
	assert.Equal(t, "/start", conf.Text)

	_, err := env.store.GetState(ctx, 101)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
