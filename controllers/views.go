package controllers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/models"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

// CommentView is a comment with its author summary embedded.
type CommentView struct {
	models.Comment
	Author models.UserSummary `json:"author"`
}

// PostView is a post with author and comment list embedded, the shape every
// post read endpoint returns.
type PostView struct {
	models.Post
	Author   models.UserSummary `json:"author"`
	Comments []CommentView      `json:"comments"`
}

// NotificationView is a notification with the acting user embedded.
type NotificationView struct {
	models.Notification
	From models.UserSummary `json:"from"`
}

// buildPostViews assembles post views by batch-loading the posts' comments
// and every referenced user, then joining in maps. Embedded comments follow
// the order of each post's denormalized comment list.
func buildPostViews(ctx context.Context, st store.Store, posts []models.Post) ([]PostView, error) {
	postIDs := make([]primitive.ObjectID, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}
	comments, err := st.CommentsByPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	var userIDs []primitive.ObjectID
	for _, p := range posts {
		userIDs = append(userIDs, p.UserID)
	}
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	users, err := usersMap(ctx, st, userIDs)
	if err != nil {
		return nil, err
	}

	commentsByID := make(map[primitive.ObjectID]models.Comment, len(comments))
	for _, c := range comments {
		commentsByID[c.ID] = c
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		view := PostView{
			Post:     p,
			Author:   users[p.UserID].Summary(),
			Comments: make([]CommentView, 0, len(p.Comments)),
		}
		for _, cid := range p.Comments {
			c, ok := commentsByID[cid]
			if !ok {
				continue
			}
			view.Comments = append(view.Comments, CommentView{Comment: c, Author: users[c.UserID].Summary()})
		}
		views = append(views, view)
	}
	return views, nil
}

// buildCommentViews embeds author summaries into a flat comment list.
func buildCommentViews(ctx context.Context, st store.Store, comments []models.Comment) ([]CommentView, error) {
	var userIDs []primitive.ObjectID
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	users, err := usersMap(ctx, st, userIDs)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, CommentView{Comment: c, Author: users[c.UserID].Summary()})
	}
	return views, nil
}

func usersMap(ctx context.Context, st store.Store, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	users, err := st.UsersByIDs(ctx, utils.UniqueObjectIDs(ids))
	if err != nil {
		return nil, err
	}
	m := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m, nil
}
