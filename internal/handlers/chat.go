package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-chat-service/internal/services"
	"classroom-chat-service/internal/telemetry"
)

// ChatHandler exposes chat history and message deletion over HTTP.
type ChatHandler struct {
	chat  *services.ChatService
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chat *services.ChatService, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chat: chat, audit: audit}
}

// GetHistory returns the full chat log of a room.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	room := c.Param("room")

	msgs, err := h.chat.History(c.Request.Context(), room)
	if err != nil {
		h.emitAudit(c, "ERROR", "failed to load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, msgs)
}

// DeleteMessage removes a message owned by the author. Not-found and
// not-owned both answer 403 so callers cannot probe for existence.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	room := c.Param("room")
	messageID := c.Param("message_id")

	author := c.Query("author")
	if author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author is required"})
		return
	}

	if err := h.chat.DeleteMessage(c.Request.Context(), room, messageID, author); err != nil {
		if errors.Is(err, services.ErrNotAuthorized) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
		h.emitAudit(c, "ERROR", "failed to delete message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	h.emitAudit(c, "INFO", "message deleted")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
