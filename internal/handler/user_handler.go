package handler

import (
	"net/http"

	"github.com/Arin958/ChattingApp/internal/repo"

	"github.com/gin-gonic/gin"
)

type UserHandler interface {
	GetOnlineUsers(c *gin.Context)
}

type userHandler struct {
	users repo.UserRepository
}

func NewUserHandler(users repo.UserRepository) UserHandler {
	return &userHandler{users: users}
}

// GetOnlineUsers handles GET /api/users/online. It answers from the
// durable status flags, so clients without an open push channel (or
// polling before the socket connects) still get a list; the realtime
// snapshot stays on the get-online-users websocket pull.
func (h *userHandler) GetOnlineUsers(c *gin.Context) {
	ids, err := h.users.OnlineUserIDs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userIds": ids,
	})
}
