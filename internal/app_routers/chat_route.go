package approuters

import (
	"github.com/Arin958/ChattingApp/internal/auth"
	"github.com/Arin958/ChattingApp/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/chat")
	chatRoute.Use(auth.Middleware(container.Config.Auth.JwtSecret))
	{
		chatRoute.POST("", container.ChatHandler.SendMessage)
		chatRoute.GET("/:userId", container.ChatHandler.GetConversation)
		chatRoute.GET("/group/:groupId", container.ChatHandler.GetGroupConversation)
		chatRoute.PUT("/edit-message/:messageId", container.ChatHandler.EditMessage)
		chatRoute.PUT("/seen/:messageId", container.ChatHandler.MarkSeen)
		chatRoute.DELETE("/:messageId", container.ChatHandler.DeleteMessage)
	}
}
