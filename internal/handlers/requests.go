package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-chat-service/internal/models"
	"classroom-chat-service/internal/services"
	"classroom-chat-service/internal/telemetry"
)

// RequestHandler exposes class-request operations over HTTP.
type RequestHandler struct {
	requests *services.RequestService
	audit    *telemetry.AuditEmitter
}

// NewRequestHandler builds a RequestHandler.
func NewRequestHandler(requests *services.RequestService, audit *telemetry.AuditEmitter) *RequestHandler {
	return &RequestHandler{requests: requests, audit: audit}
}

// reservedDetailKeys are fields the server assigns; callers may not
// smuggle them in through the open details map.
var reservedDetailKeys = []string{
	"id", "room", "creator_name", "creator_student_id", "creator_class",
	"participants", "participant_count", "created_at",
}

// Create handles POST /class-request.
func (h *RequestHandler) Create(c *gin.Context) {
	var req struct {
		Room             string         `json:"room" binding:"required"`
		CreatorName      string         `json:"creator_name" binding:"required"`
		CreatorStudentID string         `json:"creator_student_id" binding:"required"`
		CreatorClass     string         `json:"creator_class" binding:"required"`
		Details          map[string]any `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, key := range reservedDetailKeys {
		if _, ok := req.Details[key]; ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reserved detail field: " + key})
			return
		}
	}

	record, err := h.requests.Create(c.Request.Context(), services.CreateRequestInput{
		Room:             req.Room,
		CreatorName:      req.CreatorName,
		CreatorStudentID: req.CreatorStudentID,
		CreatorClass:     req.CreatorClass,
		Details:          req.Details,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "failed to create class request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create class request"})
		return
	}

	h.emitAudit(c, "INFO", "class request created")
	c.JSON(http.StatusCreated, record)
}

// Join handles POST /class-request/:id/join.
func (h *RequestHandler) Join(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		StudentID string `json:"student_id" binding:"required"`
		FullName  string `json:"full_name" binding:"required"`
		Class     string `json:"class" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.requests.Join(c.Request.Context(), id, models.Participant{
		StudentID: req.StudentID,
		FullName:  req.FullName,
		Class:     req.Class,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "class request not found"})
		case errors.Is(err, services.ErrAlreadyJoined):
			c.JSON(http.StatusBadRequest, gin.H{"error": "already joined"})
		default:
			h.emitAudit(c, "ERROR", "failed to join class request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join class request"})
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// Delete handles DELETE /class-request/:id. Only the creator may delete.
func (h *RequestHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	creator := c.Query("creator")
	if creator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "creator is required"})
		return
	}

	if err := h.requests.Delete(c.Request.Context(), id, creator); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "class request not found"})
		case errors.Is(err, services.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the creator can delete"})
		default:
			h.emitAudit(c, "ERROR", "failed to delete class request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete class request"})
		}
		return
	}

	h.emitAudit(c, "INFO", "class request deleted")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ListByRoom handles GET /class-requests/:room.
func (h *RequestHandler) ListByRoom(c *gin.Context) {
	room := c.Param("room")

	records, err := h.requests.ListByRoom(c.Request.Context(), room)
	if err != nil {
		h.emitAudit(c, "ERROR", "failed to list class requests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list class requests"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// Participants handles GET /class-request/:id/participants.
func (h *RequestHandler) Participants(c *gin.Context) {
	id := c.Param("id")

	participants, err := h.requests.Participants(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "class request not found"})
			return
		}
		h.emitAudit(c, "ERROR", "failed to load participants")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load participants"})
		return
	}

	c.JSON(http.StatusOK, participants)
}
