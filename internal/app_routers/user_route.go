package approuters

import (
	"github.com/Arin958/ChattingApp/internal/auth"
	"github.com/Arin958/ChattingApp/internal/configuration"

	"github.com/gin-gonic/gin"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	userRoute := router.Group("/api/users")
	userRoute.Use(auth.Middleware(container.Config.Auth.JwtSecret))
	{
		userRoute.GET("/online", container.UserHandler.GetOnlineUsers)
	}
}
