package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"classroom-chat-service/internal/middleware"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID
}

// actorFromContext pulls the caller-supplied actor name from the query
// string; author for chat routes, creator for class-request routes.
func actorFromContext(c *gin.Context) string {
	if actor := c.Query("author"); actor != "" {
		return actor
	}
	return c.Query("creator")
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), actorFromContext(c))
}

func (h *RequestHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), actorFromContext(c))
}
