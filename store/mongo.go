package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/perchsocial/perch/models"
)

const (
	collUsers         = "users"
	collPosts         = "posts"
	collComments      = "comments"
	collNotifications = "notifications"

	// Transaction scopes must not outlive this; a timeout aborts the scope
	// and surfaces as ErrStoreFailure.
	txTimeout = 10 * time.Second
)

// Mongo implements Store on a MongoDB database. It is constructed once at
// startup with the client owned by main; there is no package-level handle.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo wraps an already-connected client/database pair.
func NewMongo(client *mongo.Client, db *mongo.Database) *Mongo {
	return &Mongo{client: client, db: db}
}

// EnsureIndexes creates the unique and query indexes the app relies on.
// Callable at every boot; index builds are idempotent.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	users := m.db.Collection(collUsers)
	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return Failure("create user indexes", err)
	}
	_, err = m.db.Collection(collComments).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return Failure("create comment indexes", err)
	}
	_, err = m.db.Collection(collNotifications).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "to_user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return Failure("create notification indexes", err)
	}
	return nil
}

// Users

func (m *Mongo) InsertUser(ctx context.Context, u *models.User) error {
	if _, err := m.db.Collection(collUsers).InsertOne(ctx, u); err != nil {
		return Failure("insert user", err)
	}
	return nil
}

func (m *Mongo) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := m.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFound("user not found")
		}
		return nil, Failure("load user", err)
	}
	return &u, nil
}

func (m *Mongo) UserByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	var u models.User
	err := m.db.Collection(collUsers).FindOne(ctx, bson.M{"provider_id": providerID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFound("user not found")
		}
		return nil, Failure("load user", err)
	}
	return &u, nil
}

func (m *Mongo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := m.db.Collection(collUsers).FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFound("user not found")
		}
		return nil, Failure("load user", err)
	}
	return &u, nil
}

func (m *Mongo) UsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := m.db.Collection(collUsers).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, Failure("load users", err)
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, Failure("decode users", err)
	}
	return users, nil
}

func (m *Mongo) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if upd.FirstName != nil {
		set["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["last_name"] = *upd.LastName
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.ProfilePicture != nil {
		set["profile_picture"] = *upd.ProfilePicture
	}
	if upd.BannerImage != nil {
		set["banner_image"] = *upd.BannerImage
	}
	res, err := m.db.Collection(collUsers).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return Failure("update profile", err)
	}
	if res.MatchedCount == 0 {
		return NotFound("user not found")
	}
	return nil
}

func (m *Mongo) AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) error {
	return m.updateUserSet(ctx, userID, bson.M{"$addToSet": bson.M{"followers": followerID}}, "add follower")
}

func (m *Mongo) RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) error {
	return m.updateUserSet(ctx, userID, bson.M{"$pull": bson.M{"followers": followerID}}, "remove follower")
}

func (m *Mongo) AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error {
	return m.updateUserSet(ctx, userID, bson.M{"$addToSet": bson.M{"following": targetID}}, "add following")
}

func (m *Mongo) RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) error {
	return m.updateUserSet(ctx, userID, bson.M{"$pull": bson.M{"following": targetID}}, "remove following")
}

func (m *Mongo) updateUserSet(ctx context.Context, id primitive.ObjectID, update bson.M, op string) error {
	res, err := m.db.Collection(collUsers).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return Failure(op, err)
	}
	if res.MatchedCount == 0 {
		return NotFound("user not found")
	}
	return nil
}

// Posts

func (m *Mongo) InsertPost(ctx context.Context, p *models.Post) error {
	if _, err := m.db.Collection(collPosts).InsertOne(ctx, p); err != nil {
		return Failure("insert post", err)
	}
	return nil
}

func (m *Mongo) PostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	err := m.db.Collection(collPosts).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFound("post not found")
		}
		return nil, Failure("load post", err)
	}
	return &p, nil
}

func (m *Mongo) ListPosts(ctx context.Context) ([]models.Post, error) {
	return m.findPosts(ctx, bson.M{})
}

func (m *Mongo) PostsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	return m.findPosts(ctx, bson.M{"user_id": userID})
}

func (m *Mongo) findPosts(ctx context.Context, filter bson.M) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.db.Collection(collPosts).Find(ctx, filter, opts)
	if err != nil {
		return nil, Failure("list posts", err)
	}
	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, Failure("decode posts", err)
	}
	return posts, nil
}

func (m *Mongo) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.db.Collection(collPosts).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return Failure("delete post", err)
	}
	if res.DeletedCount == 0 {
		return NotFound("post not found")
	}
	return nil
}

// PushPostComment appends atomically; concurrent appends to the same post
// never lose updates because $push is a single-document atomic operation.
func (m *Mongo) PushPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return m.updatePostArray(ctx, postID, bson.M{"$push": bson.M{"comments": commentID}}, "append post comment")
}

func (m *Mongo) PullPostComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return m.updatePostArray(ctx, postID, bson.M{"$pull": bson.M{"comments": commentID}}, "remove post comment")
}

func (m *Mongo) AddPostLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return m.updatePostArray(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}}, "add like")
}

func (m *Mongo) RemovePostLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return m.updatePostArray(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}}, "remove like")
}

func (m *Mongo) updatePostArray(ctx context.Context, id primitive.ObjectID, update bson.M, op string) error {
	res, err := m.db.Collection(collPosts).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return Failure(op, err)
	}
	if res.MatchedCount == 0 {
		return NotFound("post not found")
	}
	return nil
}

// Comments

func (m *Mongo) InsertComment(ctx context.Context, c *models.Comment) error {
	if _, err := m.db.Collection(collComments).InsertOne(ctx, c); err != nil {
		return Failure("insert comment", err)
	}
	return nil
}

func (m *Mongo) CommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	err := m.db.Collection(collComments).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFound("comment not found")
		}
		return nil, Failure("load comment", err)
	}
	return &c, nil
}

func (m *Mongo) CommentsByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	return m.findComments(ctx, bson.M{"post_id": postID})
}

func (m *Mongo) CommentsByPosts(ctx context.Context, postIDs []primitive.ObjectID) ([]models.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	return m.findComments(ctx, bson.M{"post_id": bson.M{"$in": postIDs}})
}

func (m *Mongo) findComments(ctx context.Context, filter bson.M) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.db.Collection(collComments).Find(ctx, filter, opts)
	if err != nil {
		return nil, Failure("list comments", err)
	}
	var comments []models.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, Failure("decode comments", err)
	}
	return comments, nil
}

func (m *Mongo) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.db.Collection(collComments).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return Failure("delete comment", err)
	}
	if res.DeletedCount == 0 {
		return NotFound("comment not found")
	}
	return nil
}

func (m *Mongo) DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) error {
	if _, err := m.db.Collection(collComments).DeleteMany(ctx, bson.M{"post_id": postID}); err != nil {
		return Failure("delete post comments", err)
	}
	return nil
}

// Notifications

func (m *Mongo) InsertNotification(ctx context.Context, n *models.Notification) error {
	if _, err := m.db.Collection(collNotifications).InsertOne(ctx, n); err != nil {
		return Failure("insert notification", err)
	}
	return nil
}

func (m *Mongo) NotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	err := m.db.Collection(collNotifications).FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NotFound("notification not found")
		}
		return nil, Failure("load notification", err)
	}
	return &n, nil
}

func (m *Mongo) NotificationsFor(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.db.Collection(collNotifications).Find(ctx, bson.M{"to_user_id": userID}, opts)
	if err != nil {
		return nil, Failure("list notifications", err)
	}
	var items []models.Notification
	if err := cur.All(ctx, &items); err != nil {
		return nil, Failure("decode notifications", err)
	}
	return items, nil
}

func (m *Mongo) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.db.Collection(collNotifications).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return Failure("delete notification", err)
	}
	if res.DeletedCount == 0 {
		return NotFound("notification not found")
	}
	return nil
}

func (m *Mongo) DeleteNotificationsByComment(ctx context.Context, commentID primitive.ObjectID) error {
	if _, err := m.db.Collection(collNotifications).DeleteMany(ctx, bson.M{"comment_id": commentID}); err != nil {
		return Failure("delete comment notifications", err)
	}
	return nil
}

func (m *Mongo) DeleteNotificationsByPost(ctx context.Context, postID primitive.ObjectID) error {
	if _, err := m.db.Collection(collNotifications).DeleteMany(ctx, bson.M{"post_id": postID}); err != nil {
		return Failure("delete post notifications", err)
	}
	return nil
}

// InTransaction runs fn inside a causally-consistent session transaction with
// majority read/write concern. The scope is bounded by txTimeout; cancellation
// of the caller's context aborts the transaction rather than letting it commit
// orphaned. Domain errors from fn pass through untouched so the coordinator's
// taxonomy survives the round trip.
func (m *Mongo) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return Failure("start session", err)
	}
	defer session.EndSession(ctx)

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	if err != nil {
		var domain *Error
		if errors.As(err, &domain) {
			return err
		}
		return Failure("transaction", err)
	}
	return nil
}
