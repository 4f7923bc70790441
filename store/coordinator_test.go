package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/perchsocial/perch/models"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *Memory) {
	t.Helper()
	m := NewMemory()
	return NewCoordinator(m, zap.NewNop().Sugar()), m
}

func seedUser(t *testing.T, m *Memory, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:         primitive.NewObjectID(),
		ProviderID: "provider-" + username,
		Email:      username + "@example.com",
		Username:   username,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, m.InsertUser(context.Background(), u))
	return u
}

func seedPost(t *testing.T, m *Memory, author *models.User, content string) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:        primitive.NewObjectID(),
		UserID:    author.ID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	require.NoError(t, m.InsertPost(context.Background(), p))
	return p
}

func TestCreateCommentWritesAllThreeDocuments(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	commenter := seedUser(t, m, "commenter")
	post := seedPost(t, m, author, "hello")

	comment, err := coord.CreateComment(ctx, commenter.ID, post.ID, "nice post")
	require.NoError(t, err)
	require.Equal(t, post.ID, comment.PostID)
	require.Equal(t, commenter.ID, comment.UserID)

	got, err := m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Comments, comment.ID)

	notifications, err := m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationComment, notifications[0].Type)
	assert.Equal(t, comment.ID, notifications[0].CommentID)
	assert.Equal(t, commenter.ID, notifications[0].FromUserID)
}

func TestCreateCommentOnOwnPostSkipsNotification(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	post := seedPost(t, m, author, "hello")

	_, err := coord.CreateComment(ctx, author.ID, post.ID, "replying to myself")
	require.NoError(t, err)

	notifications, err := m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestCreateCommentRejectsBlankContent(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	post := seedPost(t, m, author, "hello")

	_, err := coord.CreateComment(ctx, author.ID, post.ID, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	got, err := m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Comments)
}

func TestCreateCommentRollsBackWhenAnyStepFails(t *testing.T) {
	boom := errors.New("boom")
	for _, failOp := range []string{"InsertComment", "PushPostComment", "InsertNotification"} {
		t.Run(failOp, func(t *testing.T) {
			coord, m := newTestCoordinator(t)
			ctx := context.Background()

			author := seedUser(t, m, "author")
			commenter := seedUser(t, m, "commenter")
			post := seedPost(t, m, author, "hello")

			beforeUsers, beforePosts, beforeComments, beforeNotifications := m.Dump(ctx)

			m.Fail = func(op string) error {
				if op == failOp {
					return boom
				}
				return nil
			}
			_, err := coord.CreateComment(ctx, commenter.ID, post.ID, "nice post")
			require.ErrorIs(t, err, ErrStoreFailure)
			m.Fail = nil

			afterUsers, afterPosts, afterComments, afterNotifications := m.Dump(ctx)
			assert.Equal(t, beforeUsers, afterUsers)
			assert.Equal(t, beforePosts, afterPosts)
			assert.Equal(t, beforeComments, afterComments)
			assert.Equal(t, beforeNotifications, afterNotifications)
		})
	}
}

func TestDeleteCommentCascadesAtomically(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	commenter := seedUser(t, m, "commenter")
	post := seedPost(t, m, author, "hello")

	comment, err := coord.CreateComment(ctx, commenter.ID, post.ID, "nice post")
	require.NoError(t, err)

	require.NoError(t, coord.DeleteComment(ctx, commenter.ID, comment.ID))

	_, err = m.CommentByID(ctx, comment.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Comments, comment.ID)

	notifications, err := m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestDeleteCommentRollsBackWhenAnyStepFails(t *testing.T) {
	boom := errors.New("boom")
	for _, failOp := range []string{"PullPostComment", "DeleteComment", "DeleteNotificationsByComment"} {
		t.Run(failOp, func(t *testing.T) {
			coord, m := newTestCoordinator(t)
			ctx := context.Background()

			author := seedUser(t, m, "author")
			commenter := seedUser(t, m, "commenter")
			post := seedPost(t, m, author, "hello")
			comment, err := coord.CreateComment(ctx, commenter.ID, post.ID, "nice post")
			require.NoError(t, err)

			beforeUsers, beforePosts, beforeComments, beforeNotifications := m.Dump(ctx)

			m.Fail = func(op string) error {
				if op == failOp {
					return boom
				}
				return nil
			}
			err = coord.DeleteComment(ctx, commenter.ID, comment.ID)
			require.ErrorIs(t, err, ErrStoreFailure)
			m.Fail = nil

			afterUsers, afterPosts, afterComments, afterNotifications := m.Dump(ctx)
			assert.Equal(t, beforeUsers, afterUsers)
			assert.Equal(t, beforePosts, afterPosts)
			assert.Equal(t, beforeComments, afterComments)
			assert.Equal(t, beforeNotifications, afterNotifications)

			got, err := m.PostByID(ctx, post.ID)
			require.NoError(t, err)
			assert.Contains(t, got.Comments, comment.ID)
		})
	}
}

func TestDeleteCommentOnlyByAuthor(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	commenter := seedUser(t, m, "commenter")
	intruder := seedUser(t, m, "intruder")
	post := seedPost(t, m, author, "hello")
	comment, err := coord.CreateComment(ctx, commenter.ID, post.ID, "nice post")
	require.NoError(t, err)

	beforeUsers, beforePosts, beforeComments, beforeNotifications := m.Dump(ctx)

	err = coord.DeleteComment(ctx, intruder.ID, comment.ID)
	require.ErrorIs(t, err, ErrForbidden)

	afterUsers, afterPosts, afterComments, afterNotifications := m.Dump(ctx)
	assert.Equal(t, beforeUsers, afterUsers)
	assert.Equal(t, beforePosts, afterPosts)
	assert.Equal(t, beforeComments, afterComments)
	assert.Equal(t, beforeNotifications, afterNotifications)
}

func TestLikePostToggles(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	fan := seedUser(t, m, "fan")
	post := seedPost(t, m, author, "hello")

	liked, err := coord.LikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	got, err := m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{fan.ID}, got.Likes)

	notifications, err := m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationLike, notifications[0].Type)

	liked, err = coord.LikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err = m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	// Unliking must not raise a second notification.
	notifications, err = m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestLikeOwnPostSkipsNotification(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	post := seedPost(t, m, author, "hello")

	liked, err := coord.LikePost(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	notifications, err := m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestLikePostSurvivesNotificationFailure(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	fan := seedUser(t, m, "fan")
	post := seedPost(t, m, author, "hello")

	m.Fail = func(op string) error {
		if op == "InsertNotification" {
			return errors.New("boom")
		}
		return nil
	}
	liked, err := coord.LikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	m.Fail = nil

	got, err := m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Likes, fan.ID)
}

func TestDeletePostCascades(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	fan := seedUser(t, m, "fan")
	post := seedPost(t, m, author, "hello")
	other := seedPost(t, m, author, "unrelated")

	comment, err := coord.CreateComment(ctx, fan.ID, post.ID, "nice post")
	require.NoError(t, err)
	_, err = coord.LikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	keep, err := coord.CreateComment(ctx, fan.ID, other.ID, "keep me")
	require.NoError(t, err)

	require.NoError(t, coord.DeletePost(ctx, author.ID, post.ID))

	_, err = m.PostByID(ctx, post.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.CommentByID(ctx, comment.ID)
	require.ErrorIs(t, err, ErrNotFound)

	notifications, err := m.NotificationsFor(ctx, author.ID)
	require.NoError(t, err)
	for _, n := range notifications {
		assert.NotEqual(t, post.ID, n.PostID)
	}

	// The unrelated post and its comment survive untouched.
	_, err = m.PostByID(ctx, other.ID)
	require.NoError(t, err)
	_, err = m.CommentByID(ctx, keep.ID)
	require.NoError(t, err)
}

func TestDeletePostRollsBackWhenAnyStepFails(t *testing.T) {
	boom := errors.New("boom")
	for _, failOp := range []string{"DeleteCommentsByPost", "DeleteNotificationsByPost", "DeletePost"} {
		t.Run(failOp, func(t *testing.T) {
			coord, m := newTestCoordinator(t)
			ctx := context.Background()

			author := seedUser(t, m, "author")
			fan := seedUser(t, m, "fan")
			post := seedPost(t, m, author, "hello")
			_, err := coord.CreateComment(ctx, fan.ID, post.ID, "nice post")
			require.NoError(t, err)

			beforeUsers, beforePosts, beforeComments, beforeNotifications := m.Dump(ctx)

			m.Fail = func(op string) error {
				if op == failOp {
					return boom
				}
				return nil
			}
			err = coord.DeletePost(ctx, author.ID, post.ID)
			require.ErrorIs(t, err, ErrStoreFailure)
			m.Fail = nil

			afterUsers, afterPosts, afterComments, afterNotifications := m.Dump(ctx)
			assert.Equal(t, beforeUsers, afterUsers)
			assert.Equal(t, beforePosts, afterPosts)
			assert.Equal(t, beforeComments, afterComments)
			assert.Equal(t, beforeNotifications, afterNotifications)
		})
	}
}

func TestDeletePostOnlyByOwner(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	intruder := seedUser(t, m, "intruder")
	post := seedPost(t, m, author, "hello")

	err := coord.DeletePost(ctx, intruder.ID, post.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = m.PostByID(ctx, post.ID)
	require.NoError(t, err)
}

func TestFollowUserTogglesBothEdges(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	alice := seedUser(t, m, "alice")
	bob := seedUser(t, m, "bob")

	following, err := coord.FollowUser(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	gotAlice, err := m.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	gotBob, err := m.UserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{bob.ID}, gotAlice.Following)
	assert.Equal(t, []primitive.ObjectID{alice.ID}, gotBob.Followers)

	notifications, err := m.NotificationsFor(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationFollow, notifications[0].Type)

	following, err = coord.FollowUser(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	gotAlice, err = m.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	gotBob, err = m.UserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, gotAlice.Following)
	assert.Empty(t, gotBob.Followers)

	// Unfollow emits no second notification.
	notifications, err = m.NotificationsFor(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestFollowUserRejectsSelf(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	alice := seedUser(t, m, "alice")
	_, err := coord.FollowUser(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestFollowUserRollsBackWhenSecondEdgeFails(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	alice := seedUser(t, m, "alice")
	bob := seedUser(t, m, "bob")

	m.Fail = func(op string) error {
		if op == "AddFollower" {
			return errors.New("boom")
		}
		return nil
	}
	_, err := coord.FollowUser(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, ErrStoreFailure)
	m.Fail = nil

	gotAlice, err := m.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	gotBob, err := m.UserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, gotAlice.Following)
	assert.Empty(t, gotBob.Followers)
}

func TestConcurrentCommentsAllLand(t *testing.T) {
	coord, m := newTestCoordinator(t)
	ctx := context.Background()

	author := seedUser(t, m, "author")
	post := seedPost(t, m, author, "hello")

	const writers = 8
	users := make([]*models.User, writers)
	for i := range users {
		users[i] = seedUser(t, m, "user"+primitive.NewObjectID().Hex())
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coord.CreateComment(ctx, users[i].ID, post.ID, "comment")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := m.PostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comments, writers)

	comments, err := m.CommentsByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, writers)
}
