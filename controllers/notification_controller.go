package controllers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

// NotificationController serves a user's notification feed.
type NotificationController struct {
	store store.Store
}

// NewNotificationController creates a new NotificationController instance.
func NewNotificationController(st store.Store) *NotificationController {
	return &NotificationController{store: st}
}

// ListNotifications returns the caller's notifications, newest first, with
// the acting user embedded.
func (n *NotificationController) ListNotifications(ctx *gin.Context) {
	user, ok := currentUser(ctx, n.store)
	if !ok {
		return
	}

	notifications, err := n.store.NotificationsFor(ctx.Request.Context(), user.ID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	fromIDs := make([]primitive.ObjectID, 0, len(notifications))
	for _, nt := range notifications {
		fromIDs = append(fromIDs, nt.FromUserID)
	}
	users, err := usersMap(ctx.Request.Context(), n.store, fromIDs)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}

	views := make([]NotificationView, 0, len(notifications))
	for _, nt := range notifications {
		from, ok := users[nt.FromUserID]
		if !ok {
			continue
		}
		views = append(views, NotificationView{Notification: nt, From: from.Summary()})
	}

	utils.Success(ctx, gin.H{"notifications": views})
}

// DeleteNotification removes one of the caller's own notifications.
func (n *NotificationController) DeleteNotification(ctx *gin.Context) {
	user, ok := currentUser(ctx, n.store)
	if !ok {
		return
	}
	notificationID, ok := objectIDParam(ctx, "notificationId")
	if !ok {
		return
	}

	notification, err := n.store.NotificationByID(ctx.Request.Context(), notificationID)
	if err != nil {
		utils.FromError(ctx, err)
		return
	}
	if notification.ToUserID != user.ID {
		utils.FromError(ctx, store.Forbidden("not authorized to delete this notification"))
		return
	}

	if err := n.store.DeleteNotification(ctx.Request.Context(), notificationID); err != nil {
		utils.FromError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{"message": "notification deleted"})
}
