package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Arin958/ChattingApp/internal/auth"
	"github.com/Arin958/ChattingApp/internal/repo"
	"github.com/Arin958/ChattingApp/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler interface {
	SendMessage(c *gin.Context)
	GetConversation(c *gin.Context)
	GetGroupConversation(c *gin.Context)
	EditMessage(c *gin.Context)
	DeleteMessage(c *gin.Context)
	MarkSeen(c *gin.Context)
}

type chatHandler struct {
	chat service.ChatService
}

func NewChatHandler(chat service.ChatService) ChatHandler {
	return &chatHandler{chat: chat}
}

// SendMessage handles POST /api/chat. Accepts multipart form data so a
// file can ride along with the text fields.
func (h *chatHandler) SendMessage(c *gin.Context) {
	in := service.SendInput{
		SenderID:   auth.UserID(c),
		ReceiverID: c.PostForm("receiver"),
		GroupID:    c.PostForm("group"),
		Content:    c.PostForm("content"),
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			respondError(c, err)
			return
		}

		in.Media = &service.MediaInput{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Data:        data,
		}
	}

	msg, err := h.chat.Send(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    msg,
	})
}

// GetConversation handles GET /api/chat/:userId with cursor pagination
// (?before=RFC3339&limit=n). The page comes back oldest-first; fetching
// also bulk-marks the peer's messages as seen.
func (h *chatHandler) GetConversation(c *gin.Context) {
	before, limit, ok := pageParams(c)
	if !ok {
		return
	}

	page, err := h.chat.GetConversation(c.Request.Context(), auth.UserID(c), c.Param("userId"), before, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": page.Messages,
		"hasMore":  page.HasMore,
	})
}

func (h *chatHandler) GetGroupConversation(c *gin.Context) {
	before, limit, ok := pageParams(c)
	if !ok {
		return
	}

	page, err := h.chat.GetGroupConversation(c.Request.Context(), auth.UserID(c), c.Param("groupId"), before, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": page.Messages,
		"hasMore":  page.HasMore,
	})
}

// EditMessage handles PUT /api/chat/edit-message/:messageId.
func (h *chatHandler) EditMessage(c *gin.Context) {
	var body struct {
		NewContent string `json:"newContent"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "VALIDATION_ERROR",
			"message": "Invalid request body",
		})
		return
	}

	msg, err := h.chat.Edit(c.Request.Context(), c.Param("messageId"), auth.UserID(c), body.NewContent)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    msg,
	})
}

// DeleteMessage handles DELETE /api/chat/:messageId.
func (h *chatHandler) DeleteMessage(c *gin.Context) {
	msg, err := h.chat.Delete(c.Request.Context(), c.Param("messageId"), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
	})
}

// MarkSeen handles PUT /api/chat/seen/:messageId, the fine-grained
// per-message seen path.
func (h *chatHandler) MarkSeen(c *gin.Context) {
	msg, err := h.chat.MarkSeen(c.Request.Context(), c.Param("messageId"), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"messageId": msg.ID.Hex(),
		"seenAt":    msg.SeenAt,
	})
}

func pageParams(c *gin.Context) (*time.Time, int64, bool) {
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "VALIDATION_ERROR",
				"message": "before must be an RFC 3339 timestamp",
				"field":   "before",
			})
			return nil, 0, false
		}
		before = &t
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "VALIDATION_ERROR",
			"message": "limit must be a positive integer",
			"field":   "limit",
		})
		return nil, 0, false
	}

	return before, limit, true
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "VALIDATION_ERROR",
			"message": ve.Reason,
			"field":   ve.Field,
		})
		return
	}

	switch {
	case errors.Is(err, repo.ErrMessageNotFound),
		errors.Is(err, repo.ErrUserNotFound),
		errors.Is(err, repo.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "NOT_FOUND",
			"message": err.Error(),
		})
	case errors.Is(err, repo.ErrNotSender), errors.Is(err, repo.ErrNotReceiver):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "FORBIDDEN",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "SERVER_ERROR",
			"message": "An unexpected error occurred",
		})
	}
}
