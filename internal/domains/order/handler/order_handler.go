package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/order/service"
	"storefront-backend/internal/shared/response"
)

type OrderHandler struct {
	draftService service.DraftServiceInterface
}

func NewOrderHandler(draftService service.DraftServiceInterface) *OrderHandler {
	return &OrderHandler{draftService: draftService}
}

// List handles GET /orders for the authenticated caller.
func (h *OrderHandler) List(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		response.Unauthorized(c, "missing caller identity")
		return
	}

	orders, err := h.draftService.ListForUser(c.Request.Context(), email)
	if err != nil {
		response.InternalServerError(c, "failed to list orders")
		return
	}

	out := make([]*model.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, model.NewOrderResponse(&orders[i]))
	}

	response.Success(c, http.StatusOK, out)
}

// Get handles GET /orders/:orderId. The caller must own the order.
func (h *OrderHandler) Get(c *gin.Context) {
	email := c.GetString("email")
	code := c.Param("orderId")

	order, err := h.draftService.GetByOrderCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		response.InternalServerError(c, "failed to load order")
		return
	}

	if order.UserEmail != email {
		response.Forbidden(c, "order belongs to another customer")
		return
	}

	response.Success(c, http.StatusOK, model.NewOrderResponse(order))
}

// GetByTxn handles GET /orders/by-txn/:txnId, used by the
// redirect-callback page while the webhook is still in flight. No auth
// is required here, so only the order summary is returned.
func (h *OrderHandler) GetByTxn(c *gin.Context) {
	txnID := c.Param("txnId")
	if txnID == "" {
		response.BadRequest(c, "missing transaction id")
		return
	}

	order, err := h.draftService.GetByGatewayTxnID(c.Request.Context(), txnID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		response.InternalServerError(c, "failed to load order")
		return
	}

	response.Success(c, http.StatusOK, model.NewOrderResponse(order))
}
