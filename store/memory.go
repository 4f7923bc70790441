package store

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/models"
)

// Memory is an in-process Store used by tests and local development. A single
// mutex serializes all operations, so array appends have the same
// lost-update-free behaviour as Mongo's $push. InTransaction snapshots the
// whole state and restores it when the callback fails, which gives tests real
// rollback semantics to assert against.
type Memory struct {
	// Fail, when set, is consulted before every operation with the operation
	// name ("InsertComment", "PushPostComment", ...). Returning a non-nil
	// error makes that operation fail; tests use it to trip transactions at
	// chosen steps.
	Fail func(op string) error

	users         map[primitive.ObjectID]models.User
	posts         map[primitive.ObjectID]models.Post
	comments      map[primitive.ObjectID]models.Comment
	notifications map[primitive.ObjectID]models.Notification

	locker txLocker
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         map[primitive.ObjectID]models.User{},
		posts:         map[primitive.ObjectID]models.Post{},
		comments:      map[primitive.ObjectID]models.Comment{},
		notifications: map[primitive.ObjectID]models.Notification{},
	}
}

func (m *Memory) fail(op string) error {
	if m.Fail != nil {
		return m.Fail(op)
	}
	return nil
}

// Users

func (m *Memory) InsertUser(ctx context.Context, u *models.User) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("InsertUser"); err != nil {
		return Failure("insert user", err)
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = cloneUser(*u)
	return nil
}

func (m *Memory) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("UserByID"); err != nil {
		return nil, Failure("load user", err)
	}
	u, ok := m.users[id]
	if !ok {
		return nil, NotFound("user not found")
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *Memory) UserByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	for _, u := range m.users {
		if u.ProviderID == providerID {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, NotFound("user not found")
}

func (m *Memory) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	for _, u := range m.users {
		if u.Username == username {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, NotFound("user not found")
}

func (m *Memory) UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (m *Memory) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	u, ok := m.users[id]
	if !ok {
		return NotFound("user not found")
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Location != nil {
		u.Location = *upd.Location
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = *upd.ProfilePicture
	}
	if upd.BannerImage != nil {
		u.BannerImage = *upd.BannerImage
	}
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *Memory) AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) error {
	return m.mutateUser(ctx, "AddFollower", userID, func(u *models.User) {
		u.Followers = addToSet(u.Followers, followerID)
	})
}

func (m *Memory) RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) error {
	return m.mutateUser(ctx, "RemoveFollower", userID, func(u *models.User) {
		u.Followers = removeID(u.Followers, followerID)
	})
}

func (m *Memory) AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error {
	return m.mutateUser(ctx, "AddFollowing", userID, func(u *models.User) {
		u.Following = addToSet(u.Following, targetID)
	})
}

func (m *Memory) RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error {
	return m.mutateUser(ctx, "RemoveFollowing", userID, func(u *models.User) {
		u.Following = removeID(u.Following, targetID)
	})
}

func (m *Memory) mutateUser(ctx context.Context, op string, id primitive.ObjectID, mut func(*models.User)) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail(op); err != nil {
		return Failure(op, err)
	}
	u, ok := m.users[id]
	if !ok {
		return NotFound("user not found")
	}
	mut(&u)
	m.users[id] = u
	return nil
}

// Posts

func (m *Memory) InsertPost(ctx context.Context, p *models.Post) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("InsertPost"); err != nil {
		return Failure("insert post", err)
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.posts[p.ID] = clonePost(*p)
	return nil
}

func (m *Memory) PostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("PostByID"); err != nil {
		return nil, Failure("load post", err)
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, NotFound("post not found")
	}
	p = clonePost(p)
	return &p, nil
}

func (m *Memory) ListPosts(ctx context.Context) ([]models.Post, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	var out []models.Post
	for _, p := range m.posts {
		out = append(out, clonePost(p))
	}
	sortPostsNewestFirst(out)
	return out, nil
}

func (m *Memory) PostsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	var out []models.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			out = append(out, clonePost(p))
		}
	}
	sortPostsNewestFirst(out)
	return out, nil
}

func (m *Memory) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("DeletePost"); err != nil {
		return Failure("delete post", err)
	}
	if _, ok := m.posts[id]; !ok {
		return NotFound("post not found")
	}
	delete(m.posts, id)
	return nil
}

func (m *Memory) PushPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return m.mutatePost(ctx, "PushPostComment", postID, func(p *models.Post) {
		p.Comments = append(p.Comments, commentID)
	})
}

func (m *Memory) PullPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return m.mutatePost(ctx, "PullPostComment", postID, func(p *models.Post) {
		p.Comments = removeID(p.Comments, commentID)
	})
}

func (m *Memory) AddPostLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return m.mutatePost(ctx, "AddPostLike", postID, func(p *models.Post) {
		p.Likes = addToSet(p.Likes, userID)
	})
}

func (m *Memory) RemovePostLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return m.mutatePost(ctx, "RemovePostLike", postID, func(p *models.Post) {
		p.Likes = removeID(p.Likes, userID)
	})
}

func (m *Memory) mutatePost(ctx context.Context, op string, id primitive.ObjectID, mut func(*models.Post)) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail(op); err != nil {
		return Failure(op, err)
	}
	p, ok := m.posts[id]
	if !ok {
		return NotFound("post not found")
	}
	mut(&p)
	p.UpdatedAt = time.Now()
	m.posts[id] = p
	return nil
}

// Comments

func (m *Memory) InsertComment(ctx context.Context, c *models.Comment) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("InsertComment"); err != nil {
		return Failure("insert comment", err)
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.comments[c.ID] = *c
	return nil
}

func (m *Memory) CommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("CommentByID"); err != nil {
		return nil, Failure("load comment", err)
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, NotFound("comment not found")
	}
	return &c, nil
}

func (m *Memory) CommentsByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	return m.CommentsByPosts(ctx, []primitive.ObjectID{postID})
}

func (m *Memory) CommentsByPosts(ctx context.Context, postIDs []primitive.ObjectID) ([]models.Comment, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	want := map[primitive.ObjectID]bool{}
	for _, id := range postIDs {
		want[id] = true
	}
	var out []models.Comment
	for _, c := range m.comments {
		if want[c.PostID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("DeleteComment"); err != nil {
		return Failure("delete comment", err)
	}
	if _, ok := m.comments[id]; !ok {
		return NotFound("comment not found")
	}
	delete(m.comments, id)
	return nil
}

func (m *Memory) DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("DeleteCommentsByPost"); err != nil {
		return Failure("delete post comments", err)
	}
	for id, c := range m.comments {
		if c.PostID == postID {
			delete(m.comments, id)
		}
	}
	return nil
}

// Notifications

func (m *Memory) InsertNotification(ctx context.Context, n *models.Notification) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("InsertNotification"); err != nil {
		return Failure("insert notification", err)
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	m.notifications[n.ID] = *n
	return nil
}

func (m *Memory) NotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, NotFound("notification not found")
	}
	return &n, nil
}

func (m *Memory) NotificationsFor(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.ToUserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if _, ok := m.notifications[id]; !ok {
		return NotFound("notification not found")
	}
	delete(m.notifications, id)
	return nil
}

func (m *Memory) DeleteNotificationsByComment(ctx context.Context, commentID primitive.ObjectID) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("DeleteNotificationsByComment"); err != nil {
		return Failure("delete comment notifications", err)
	}
	for id, n := range m.notifications {
		if n.CommentID == commentID {
			delete(m.notifications, id)
		}
	}
	return nil
}

func (m *Memory) DeleteNotificationsByPost(ctx context.Context, postID primitive.ObjectID) error {
	unlock := m.locker.lock(ctx)
	defer unlock()
	if err := m.fail("DeleteNotificationsByPost"); err != nil {
		return Failure("delete post notifications", err)
	}
	for id, n := range m.notifications {
		if n.PostID == postID {
			delete(m.notifications, id)
		}
	}
	return nil
}

// InTransaction holds the store lock for the whole scope, snapshots state,
// runs fn, and restores the snapshot on any error. Ops invoked from fn reuse
// the held lock through the context marker instead of re-acquiring it.
func (m *Memory) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	unlock := m.locker.lock(ctx)
	defer unlock()

	snap := m.snapshot()
	if err := fn(m.locker.mark(ctx)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	users         map[primitive.ObjectID]models.User
	posts         map[primitive.ObjectID]models.Post
	comments      map[primitive.ObjectID]models.Comment
	notifications map[primitive.ObjectID]models.Notification
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		users:         make(map[primitive.ObjectID]models.User, len(m.users)),
		posts:         make(map[primitive.ObjectID]models.Post, len(m.posts)),
		comments:      make(map[primitive.ObjectID]models.Comment, len(m.comments)),
		notifications: make(map[primitive.ObjectID]models.Notification, len(m.notifications)),
	}
	for id, u := range m.users {
		s.users[id] = cloneUser(u)
	}
	for id, p := range m.posts {
		s.posts[id] = clonePost(p)
	}
	for id, c := range m.comments {
		s.comments[id] = c
	}
	for id, n := range m.notifications {
		s.notifications[id] = n
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.users = s.users
	m.posts = s.posts
	m.comments = s.comments
	m.notifications = s.notifications
}

// Snapshot helpers for tests: Dump copies the full state so callers can
// compare before/after images byte for byte.
func (m *Memory) Dump(ctx context.Context) ([]models.User, []models.Post, []models.Comment, []models.Notification) {
	unlock := m.locker.lock(ctx)
	defer unlock()
	s := m.snapshot()
	var users []models.User
	for _, u := range s.users {
		users = append(users, u)
	}
	var posts []models.Post
	for _, p := range s.posts {
		posts = append(posts, p)
	}
	var comments []models.Comment
	for _, c := range s.comments {
		comments = append(comments, c)
	}
	var notifications []models.Notification
	for _, n := range s.notifications {
		notifications = append(notifications, n)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID.Hex() < posts[j].ID.Hex() })
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID.Hex() < comments[j].ID.Hex() })
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID.Hex() < notifications[j].ID.Hex() })
	return users, posts, comments, notifications
}

func cloneUser(u models.User) models.User {
	u.Followers = append([]primitive.ObjectID(nil), u.Followers...)
	u.Following = append([]primitive.ObjectID(nil), u.Following...)
	return u
}

func clonePost(p models.Post) models.Post {
	p.Attachments = append([]models.Attachment(nil), p.Attachments...)
	p.Likes = append([]primitive.ObjectID(nil), p.Likes...)
	p.Comments = append([]primitive.ObjectID(nil), p.Comments...)
	return p
}

func addToSet(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func sortPostsNewestFirst(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
}
