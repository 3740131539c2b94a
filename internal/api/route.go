package api

import (
	"Haven/internal/api/middleware"
	"Haven/internal/model"
	"Haven/internal/pkg/logger"
	"Haven/internal/pkg/util"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(basePath string, group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	if err := util.RegisterValidations(); err != nil {
		log.Error("register validations failed", "err", err)
	}

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.AuditMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group(basePath)
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
			})
		})

		authGroup := apiGroup.Group("/auth")
		{
			// 无需登录即可访问的接口
			authGroup.POST("/register", group.UserHandler.Register)
			authGroup.POST("/login", group.UserHandler.Login)

			sessionGroup := authGroup.Group("")
			sessionGroup.Use(middleware.AuthMiddleware())
			{
				sessionGroup.POST("/logout", group.UserHandler.Logout)
				sessionGroup.GET("/me", group.UserHandler.Me)
			}
		}

		discussionGroup := apiGroup.Group("/discussions")
		{
			publicGroup := discussionGroup.Group("")
			publicGroup.Use(middleware.AuthOptionalMiddleware())
			{
				publicGroup.GET("", group.DiscussionHandler.List)
				publicGroup.GET("/:post_id", group.DiscussionHandler.Get)
			}

			// 删除类操作的管理员校验在 service 内完成, 返回 403
			memberGroup := discussionGroup.Group("")
			memberGroup.Use(middleware.AuthMiddleware())
			{
				memberGroup.POST("", group.DiscussionHandler.Create)
				memberGroup.PUT("", group.DiscussionHandler.Update)
				memberGroup.DELETE("", group.DiscussionHandler.Delete)
				memberGroup.POST("/:post_id/like", group.DiscussionHandler.ToggleLike)
				memberGroup.POST("/:post_id/comments", group.DiscussionHandler.AddComment)
				memberGroup.DELETE("/:post_id/comments/:comment_id", group.DiscussionHandler.DeleteComment)
			}
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(model.RoleAdmin))
		{
			adminGroup.POST("/likes/recount", group.DiscussionHandler.RecountLikes)
		}
	}

	return r
}
