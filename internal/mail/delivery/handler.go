package delivery

import (
	"net/http"
	"strconv"

	maildto "mailroom-backend/internal/mail/dto"
	"mailroom-backend/internal/mail/repository"

	"github.com/gin-gonic/gin"
)

// InboxHandler exposes the read surface the inbox UI and other collaborators
// consume; all writes happen in the ingestion pipeline.
type InboxHandler struct {
	mailRepo repository.MailRepository
}

func NewInboxHandler(mailRepo repository.MailRepository) *InboxHandler {
	return &InboxHandler{mailRepo: mailRepo}
}

func (h *InboxHandler) ListThreads(c *gin.Context) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	threads, total, err := h.mailRepo.ListThreads(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, maildto.ThreadsResponse{
		Threads: threads,
		Limit:   limit,
		Offset:  offset,
		Total:   total,
	})
}

func (h *InboxHandler) GetThreadMessages(c *gin.Context) {
	id := c.Param("id")
	messages, err := h.mailRepo.MessagesByThread(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, maildto.MessagesResponse{Messages: messages})
}

func (h *InboxHandler) MarkAsRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.mailRepo.MarkMessageRead(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message marked as read"})
}
