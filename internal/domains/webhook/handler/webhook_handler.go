package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-backend/internal/domains/webhook/service"
	"storefront-backend/internal/shared/response"
	"storefront-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	intake *service.IntakeService
	queue  *service.QueueManager
	dlq    *service.DLQService
}

func NewWebhookHandler(intake *service.IntakeService, queue *service.QueueManager, dlq *service.DLQService) *WebhookHandler {
	return &WebhookHandler{intake: intake, queue: queue, dlq: dlq}
}

// Receive handles POST /webhooks/:provider. The gateway always gets
// HTTP 200 once we have had a chance to persist; anything else invites
// a retry storm.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Error("Failed to read webhook body", err, map[string]interface{}{
			"provider": provider,
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	headers := map[string]string{
		"X-Request-Id": c.GetHeader("X-Request-Id"),
		"User-Agent":   c.GetHeader("User-Agent"),
		"Content-Type": c.GetHeader("Content-Type"),
	}

	result, err := h.intake.Handle(c.Request.Context(), provider, headers, body, c.GetHeader("Authorization"))
	if err != nil {
		logger.Critical("Webhook intake failed to persist", err, map[string]interface{}{
			"provider": provider,
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "result": result.Result})
}

// ListDeadLetters handles GET /admin/webhooks/dlq.
func (h *WebhookHandler) ListDeadLetters(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	webhooks, err := h.dlq.List(c.Request.Context(), limit)
	if err != nil {
		response.InternalServerError(c, "failed to list dead letters")
		return
	}

	response.Success(c, http.StatusOK, webhooks)
}

// RetryDeadLetter handles POST /admin/webhooks/dlq/:id/retry.
func (h *WebhookHandler) RetryDeadLetter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webhook id")
		return
	}

	result, err := h.dlq.Retry(c.Request.Context(), id)
	if err != nil {
		response.ErrorResponse(c, http.StatusConflict, "RETRY_FAILED", err.Error())
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
