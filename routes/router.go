package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/perchsocial/perch/cache"
	"github.com/perchsocial/perch/config"
	"github.com/perchsocial/perch/controllers"
	"github.com/perchsocial/perch/media"
	"github.com/perchsocial/perch/middleware"
	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

// Deps holds everything the router's controllers need. Constructing the
// dependencies happens in main; the router only wires them.
type Deps struct {
	Store       store.Store
	Coordinator *store.Coordinator
	Uploader    media.Uploader
	Cache       *cache.Cache
	Verifier    *utils.IdentityVerifier
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postController := controllers.NewPostController(deps.Store, deps.Coordinator, deps.Uploader, deps.Cache)
	commentController := controllers.NewCommentController(deps.Store, deps.Coordinator, deps.Cache)
	userController := controllers.NewUserController(deps.Store, deps.Coordinator, deps.Cache)
	notificationController := controllers.NewNotificationController(deps.Store)

	auth := middleware.AuthRequired(deps.Verifier)
	limited := middleware.RateLimitMiddleware()

	postsGroup := r.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/user/:username", postController.ListUserPosts)
	postsGroup.GET("/:postId", postController.GetPost)
	postsGroup.POST("", auth, limited, middleware.ValidateUploads(), postController.CreatePost)
	postsGroup.POST("/:postId/like", auth, limited, postController.LikePost)
	postsGroup.PATCH("/:postId/like", auth, limited, postController.LikePost)
	postsGroup.DELETE("/:postId", auth, limited, postController.DeletePost)

	commentsGroup := r.Group("/comments")
	commentsGroup.GET("/:postId", commentController.GetComments)
	commentsGroup.POST("/:postId", auth, limited, commentController.CreateComment)
	commentsGroup.DELETE("/:commentId", auth, limited, commentController.DeleteComment)

	usersGroup := r.Group("/users")
	usersGroup.GET("/profile/:username", userController.GetUserProfile)
	usersGroup.POST("/sync", auth, limited, userController.SyncUser)
	usersGroup.GET("/me", auth, userController.GetCurrentUser)
	usersGroup.PUT("/profile", auth, limited, userController.UpdateProfile)
	usersGroup.POST("/follow/:targetUserId", auth, limited, userController.FollowUser)

	notificationsGroup := r.Group("/notifications")
	notificationsGroup.GET("", auth, notificationController.ListNotifications)
	notificationsGroup.DELETE("/:notificationId", auth, limited, notificationController.DeleteNotification)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
